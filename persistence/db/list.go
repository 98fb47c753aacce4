package db

import (
	"context"
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/flarexio/movielist/conf"
	"github.com/flarexio/movielist/list"
)

func NewListRepository(cfg conf.Persistence) (list.Repository, error) {
	filename := cfg.Host + "/" + cfg.Name + ".db"
	if cfg.InMem {
		filename = "file::memory:?cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(filename), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// shared-cache connections lock whole tables, readers and writers
	// take turns on a single connection instead
	if cfg.InMem {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}

		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(
		&MovieList{}, &MediaRelation{},
	); err != nil {
		return nil, err
	}

	repo := new(listRepository)
	repo.db = db
	return repo, nil
}

type listRepository struct {
	db *gorm.DB
}

func (repo *listRepository) Store(ctx context.Context, l *list.MovieList) error {
	data := NewMovieList(l) // convert Domain to Data model
	items := data.Items
	data.Items = nil

	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(data).Error; err != nil {
			return err
		}

		// items are replaced as a whole
		if err := tx.Where("list_id = ?", data.ID).
			Delete(&MediaRelation{}).
			Error; err != nil {
			return err
		}

		if len(items) == 0 {
			return nil
		}

		for _, item := range items {
			item.ListID = data.ID
		}

		return tx.Create(items).Error
	})
	if err != nil {
		return err
	}

	l.ID = data.ID
	return nil
}

func (repo *listRepository) Delete(ctx context.Context, id int64) error {
	db := repo.db.WithContext(ctx)

	result := db.Delete(&MovieList{}, "id = ?", id)
	if err := result.Error; err != nil {
		return err
	}

	if result.RowsAffected == 0 {
		return list.ErrListNotFound
	}

	return db.Where("list_id = ?", id).Delete(&MediaRelation{}).Error
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}

func (repo *listRepository) ListAll(ctx context.Context) ([]*list.MovieList, error) {
	var lists []*MovieList

	result := repo.db.WithContext(ctx).
		Preload("Items", preloadItems).
		Order("id").
		Find(&lists)

	if err := result.Error; err != nil {
		return nil, err
	}

	results := make([]*list.MovieList, 0, len(lists))
	for _, l := range lists {
		results = append(results, l.reconstitute())
	}

	return results, nil
}

func (repo *listRepository) Find(ctx context.Context, id int64) (*list.MovieList, error) {
	var l *MovieList

	result := repo.db.WithContext(ctx).
		Preload("Items", preloadItems).
		Take(&l, "id = ?", id)

	if err := result.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, list.ErrListNotFound
		}

		return nil, err
	}

	return l.reconstitute(), nil
}

func (repo *listRepository) Close() error {
	db, err := repo.db.DB()
	if err != nil {
		return err
	}

	return db.Close()
}

func (repo *listRepository) Truncate() error {
	err := repo.db.Exec("DELETE FROM list_items").Error
	if err != nil {
		return err
	}

	return repo.db.Exec("DELETE FROM lists").Error
}
