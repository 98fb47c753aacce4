package movielist

import (
	"context"

	"go.uber.org/zap"

	"github.com/flarexio/movielist/list"
)

// EventMiddleware publishes a domain event after every successful
// command. Publish failures are logged only.
func EventMiddleware(publisher list.EventPublisher, log *zap.Logger) ServiceMiddleware {
	return func(next Service) Service {
		return &eventMiddleware{
			publisher: publisher,
			log: log.With(
				zap.String("service", "movielist"),
				zap.String("middleware", "event"),
			),
			next: next,
		}
	}
}

type eventMiddleware struct {
	publisher list.EventPublisher
	log       *zap.Logger
	next      Service
}

func (mw *eventMiddleware) publish(e *list.Event) {
	if err := mw.publisher.Publish(e); err != nil {
		mw.log.Warn("event not published",
			zap.String("event", e.EventName()),
			zap.Int64("list_id", e.ListID),
			zap.Error(err),
		)
	}
}

func (mw *eventMiddleware) Lists(ctx context.Context) ([]*list.MovieList, error) {
	return mw.next.Lists(ctx)
}

func (mw *eventMiddleware) List(ctx context.Context, id int64) (*list.MovieList, error) {
	return mw.next.List(ctx, id)
}

func (mw *eventMiddleware) CreateList(ctx context.Context, l *list.MovieList) (*list.MovieList, error) {
	created, err := mw.next.CreateList(ctx, l)
	if err != nil {
		return nil, err
	}

	mw.publish(list.NewEvent(list.ListCreated, created.ID))
	return created, nil
}

func (mw *eventMiddleware) UpdateList(ctx context.Context, p list.Patch) (*list.MovieList, error) {
	l, err := mw.next.UpdateList(ctx, p)
	if err != nil {
		return nil, err
	}

	mw.publish(list.NewEvent(list.ListUpdated, l.ID))
	return l, nil
}

func (mw *eventMiddleware) DeleteList(ctx context.Context, id int64) error {
	if err := mw.next.DeleteList(ctx, id); err != nil {
		return err
	}

	mw.publish(list.NewEvent(list.ListDeleted, id))
	return nil
}

func (mw *eventMiddleware) AddItems(ctx context.Context, id int64, items []*list.MediaRelation) (*list.MovieList, error) {
	l, err := mw.next.AddItems(ctx, id, items)
	if err != nil {
		return nil, err
	}

	mw.publish(list.NewEvent(list.ListItemsAdded, id, items...))
	return l, nil
}

func (mw *eventMiddleware) RemoveItems(ctx context.Context, id int64, items []*list.MediaRelation) (*list.MovieList, error) {
	l, err := mw.next.RemoveItems(ctx, id, items)
	if err != nil {
		return nil, err
	}

	mw.publish(list.NewEvent(list.ListItemsRemoved, id, items...))
	return l, nil
}
