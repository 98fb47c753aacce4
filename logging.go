package movielist

import (
	"context"

	"go.uber.org/zap"

	"github.com/flarexio/movielist/list"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	return func(next Service) Service {
		return &loggingMiddleware{
			log.With(
				zap.String("service", "movielist"),
				zap.String("middleware", "logging"),
			),
			next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Lists(ctx context.Context) ([]*list.MovieList, error) {
	log := mw.log.With(
		zap.String("action", "lists"),
	)

	lists, err := mw.next.Lists(ctx)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Debug("lists listed", zap.Int("total", len(lists)))
	return lists, nil
}

func (mw *loggingMiddleware) List(ctx context.Context, id int64) (*list.MovieList, error) {
	log := mw.log.With(
		zap.String("action", "list"),
		zap.Int64("list_id", id),
	)

	l, err := mw.next.List(ctx, id)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Debug("list found")
	return l, nil
}

func (mw *loggingMiddleware) CreateList(ctx context.Context, l *list.MovieList) (*list.MovieList, error) {
	log := mw.log.With(
		zap.String("action", "create_list"),
	)

	created, err := mw.next.CreateList(ctx, l)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("list created",
		zap.Int64("list_id", created.ID),
		zap.String("name", created.Name),
	)
	return created, nil
}

func (mw *loggingMiddleware) UpdateList(ctx context.Context, p list.Patch) (*list.MovieList, error) {
	log := mw.log.With(
		zap.String("action", "update_list"),
		zap.Int64("list_id", p.ID),
	)

	l, err := mw.next.UpdateList(ctx, p)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("list updated")
	return l, nil
}

func (mw *loggingMiddleware) DeleteList(ctx context.Context, id int64) error {
	log := mw.log.With(
		zap.String("action", "delete_list"),
		zap.Int64("list_id", id),
	)

	if err := mw.next.DeleteList(ctx, id); err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("list deleted")
	return nil
}

func (mw *loggingMiddleware) AddItems(ctx context.Context, id int64, items []*list.MediaRelation) (*list.MovieList, error) {
	log := mw.log.With(
		zap.String("action", "add_items"),
		zap.Int64("list_id", id),
		zap.Int("items", len(items)),
	)

	l, err := mw.next.AddItems(ctx, id, items)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("items added", zap.Int("number_of_items", l.NumberOfItems))
	return l, nil
}

func (mw *loggingMiddleware) RemoveItems(ctx context.Context, id int64, items []*list.MediaRelation) (*list.MovieList, error) {
	log := mw.log.With(
		zap.String("action", "remove_items"),
		zap.Int64("list_id", id),
		zap.Int("items", len(items)),
	)

	l, err := mw.next.RemoveItems(ctx, id, items)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("items removed", zap.Int("number_of_items", l.NumberOfItems))
	return l, nil
}
