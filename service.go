package movielist

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/flarexio/movielist/list"
)

type Service interface {
	Lists(ctx context.Context) ([]*list.MovieList, error)
	List(ctx context.Context, id int64) (*list.MovieList, error)
	CreateList(ctx context.Context, l *list.MovieList) (*list.MovieList, error)
	UpdateList(ctx context.Context, p list.Patch) (*list.MovieList, error)
	DeleteList(ctx context.Context, id int64) error
	AddItems(ctx context.Context, id int64, items []*list.MediaRelation) (*list.MovieList, error)
	RemoveItems(ctx context.Context, id int64, items []*list.MediaRelation) (*list.MovieList, error)
}

type ServiceMiddleware func(Service) Service

func NewService(lists list.Repository, media list.MediaRepository) Service {
	return &service{
		lists: lists,
		media: media,
	}
}

type service struct {
	lists list.Repository
	media list.MediaRepository

	// serializes read-modify-write of a list
	mu sync.Mutex
}

func notFound(id int64, err error) error {
	if errors.Is(err, list.ErrListNotFound) {
		return fmt.Errorf("list %d does not exist: %w", id, list.ErrListNotFound)
	}

	return err
}

func (svc *service) find(ctx context.Context, id int64) (*list.MovieList, error) {
	l, err := svc.lists.Find(ctx, id)
	if err != nil {
		return nil, notFound(id, err)
	}

	return l, nil
}

// enrich attaches the TMDB document to every item of the list.
func (svc *service) enrich(ctx context.Context, l *list.MovieList) error {
	for _, item := range l.Items {
		data, err := svc.media.FindByMediaIDAndType(ctx, item.MediaID, item.MediaType)
		if err != nil {
			return err
		}

		item.APIData = data
	}

	return nil
}

func (svc *service) Lists(ctx context.Context) ([]*list.MovieList, error) {
	return svc.lists.ListAll(ctx)
}

func (svc *service) List(ctx context.Context, id int64) (*list.MovieList, error) {
	l, err := svc.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := svc.enrich(ctx, l); err != nil {
		return nil, err
	}

	return l, nil
}

func (svc *service) CreateList(ctx context.Context, l *list.MovieList) (*list.MovieList, error) {
	if err := list.ValidateForCreate(l); err != nil {
		return nil, err
	}

	l.Items = make([]*list.MediaRelation, 0)
	l.NumberOfItems = 0

	if err := svc.lists.Store(ctx, l); err != nil {
		return nil, err
	}

	return l, nil
}

func (svc *service) UpdateList(ctx context.Context, p list.Patch) (*list.MovieList, error) {
	if err := list.ValidateForUpdate(p); err != nil {
		return nil, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	l, err := svc.find(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	l.Apply(p)

	if err := svc.lists.Store(ctx, l); err != nil {
		return nil, err
	}

	return l, nil
}

func (svc *service) DeleteList(ctx context.Context, id int64) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	// deleting an unknown list is a no-op
	err := svc.lists.Delete(ctx, id)
	if err != nil && !errors.Is(err, list.ErrListNotFound) {
		return err
	}

	return nil
}

func (svc *service) AddItems(ctx context.Context, id int64, items []*list.MediaRelation) (*list.MovieList, error) {
	for _, item := range items {
		if err := list.ValidateItem(item); err != nil {
			return nil, err
		}
	}

	if _, err := svc.find(ctx, id); err != nil {
		return nil, err
	}

	for _, item := range items {
		ok, err := svc.media.Exists(ctx, item.MediaID, item.MediaType)
		if err != nil {
			return nil, err
		}

		if !ok {
			return nil, fmt.Errorf("%w: %s %d", list.ErrMediaNotFound, item.MediaType, item.MediaID)
		}
	}

	l, err := svc.modify(ctx, id, func(l *list.MovieList) {
		l.AddItems(items...)
	})
	if err != nil {
		return nil, err
	}

	if err := svc.enrich(ctx, l); err != nil {
		return nil, err
	}

	return l, nil
}

func (svc *service) RemoveItems(ctx context.Context, id int64, items []*list.MediaRelation) (*list.MovieList, error) {
	for _, item := range items {
		if err := list.ValidateItem(item); err != nil {
			return nil, err
		}
	}

	l, err := svc.modify(ctx, id, func(l *list.MovieList) {
		l.RemoveItems(items...)
	})
	if err != nil {
		return nil, err
	}

	if err := svc.enrich(ctx, l); err != nil {
		return nil, err
	}

	return l, nil
}

func (svc *service) modify(ctx context.Context, id int64, fn func(l *list.MovieList)) (*list.MovieList, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	l, err := svc.find(ctx, id)
	if err != nil {
		return nil, err
	}

	fn(l)

	if err := svc.lists.Store(ctx, l); err != nil {
		return nil, err
	}

	return l, nil
}
