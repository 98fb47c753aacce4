package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/flarexio/core/model"

	"github.com/flarexio/movielist/conf"
	"github.com/flarexio/movielist/list"
)

var (
	listPrefix  = []byte("lists/")
	sequenceKey = []byte("sequences/lists")
)

func listKey(id int64) []byte {
	return []byte(fmt.Sprintf("lists/%020d", id))
}

func NewListRepository(cfg conf.Persistence) (list.Repository, error) {
	opts := badger.DefaultOptions(cfg.Host + "/" + cfg.Name).
		WithLogger(nil)

	if cfg.InMem {
		opts = badger.DefaultOptions("").
			WithInMemory(true).
			WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	seq, err := db.GetSequence(sequenceKey, 100)
	if err != nil {
		db.Close()
		return nil, err
	}

	repo := new(listRepository)
	repo.db = db
	repo.seq = seq
	return repo, nil
}

type listRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

type movieList struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	ISO6391      string      `json:"iso_639_1"`
	Visible      bool        `json:"visible"`
	BackdropPath string      `json:"backdrop_path"`
	Items        []mediaItem `json:"items"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type mediaItem struct {
	MediaID   int64  `json:"media_id"`
	MediaType string `json:"media_type"`
}

func newMovieList(l *list.MovieList) *movieList {
	items := make([]mediaItem, len(l.Items))
	for i, item := range l.Items {
		items[i] = mediaItem{item.MediaID, string(item.MediaType)}
	}

	return &movieList{
		ID:           l.ID,
		Name:         l.Name,
		Description:  l.Description,
		ISO6391:      l.ISO6391,
		Visible:      l.Visible,
		BackdropPath: l.BackdropPath,
		Items:        items,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

func (l *movieList) reconstitute() *list.MovieList {
	items := make([]*list.MediaRelation, len(l.Items))
	for i, item := range l.Items {
		items[i] = list.NewMediaRelation(item.MediaID, list.MediaType(item.MediaType))
	}

	return &list.MovieList{
		ID:            l.ID,
		Name:          l.Name,
		Description:   l.Description,
		ISO6391:       l.ISO6391,
		Visible:       l.Visible,
		BackdropPath:  l.BackdropPath,
		Items:         items,
		NumberOfItems: len(items),
		Model: model.Model{
			CreatedAt: l.CreatedAt,
			UpdatedAt: l.UpdatedAt,
		},
	}
}

func (repo *listRepository) Store(ctx context.Context, l *list.MovieList) error {
	if l.ID == 0 {
		next, err := repo.seq.Next()
		if err != nil {
			return err
		}

		// badger sequences start at zero
		l.ID = int64(next) + 1
	}

	bs, err := json.Marshal(newMovieList(l))
	if err != nil {
		return err
	}

	return repo.db.Update(func(txn *badger.Txn) error {
		return txn.Set(listKey(l.ID), bs)
	})
}

func (repo *listRepository) Delete(ctx context.Context, id int64) error {
	return repo.db.Update(func(txn *badger.Txn) error {
		key := listKey(id)

		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return list.ErrListNotFound
			}

			return err
		}

		return txn.Delete(key)
	})
}

func (repo *listRepository) ListAll(ctx context.Context) ([]*list.MovieList, error) {
	results := make([]*list.MovieList, 0)

	err := repo.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = listPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			err := it.Item().Value(func(val []byte) error {
				var l *movieList
				if err := json.Unmarshal(val, &l); err != nil {
					return err
				}

				results = append(results, l.reconstitute())
				return nil
			})

			if err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return results, nil
}

func (repo *listRepository) Find(ctx context.Context, id int64) (*list.MovieList, error) {
	var l *movieList

	err := repo.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(listKey(id))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &l)
		})
	})

	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, list.ErrListNotFound
		}

		return nil, err
	}

	return l.reconstitute(), nil
}

func (repo *listRepository) Truncate() error {
	return repo.db.DropPrefix(listPrefix)
}

func (repo *listRepository) Close() error {
	if err := repo.seq.Release(); err != nil {
		return err
	}

	return repo.db.Close()
}
