package persistence

import (
	"errors"

	"github.com/flarexio/movielist/conf"
	"github.com/flarexio/movielist/list"
	"github.com/flarexio/movielist/persistence/db"
	"github.com/flarexio/movielist/persistence/kv"
)

func NewListRepository(cfg conf.Persistence) (list.Repository, error) {
	switch cfg.Driver {
	case conf.SQLite:
		return db.NewListRepository(cfg)
	case conf.BadgerDB:
		return kv.NewListRepository(cfg)
	default:
		return nil, errors.New("driver not supported")
	}
}
