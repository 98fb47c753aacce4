package db

import (
	"github.com/flarexio/core/model"

	"github.com/flarexio/movielist/list"
)

type MovieList struct {
	ID            int64 `gorm:"primaryKey;autoIncrement"`
	Name          string
	Description   string
	ISO6391       string `gorm:"column:iso_639_1"`
	Visible       bool
	BackdropPath  string
	NumberOfItems int
	Items         []*MediaRelation `gorm:"foreignKey:ListID"`
	DataModel
}

func (MovieList) TableName() string {
	return "lists"
}

func NewMovieList(l *list.MovieList) *MovieList {
	items := make([]*MediaRelation, len(l.Items))
	for i, item := range l.Items {
		items[i] = &MediaRelation{
			ListID:    l.ID,
			MediaID:   item.MediaID,
			MediaType: string(item.MediaType),
			Position:  i,
		}
	}

	return &MovieList{
		ID:            l.ID,
		Name:          l.Name,
		Description:   l.Description,
		ISO6391:       l.ISO6391,
		Visible:       l.Visible,
		BackdropPath:  l.BackdropPath,
		NumberOfItems: len(l.Items),
		Items:         items,
		DataModel: DataModel{
			CreatedAt: l.CreatedAt,
			UpdatedAt: l.UpdatedAt,
		},
	}
}

func (l *MovieList) reconstitute() *list.MovieList {
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

type MediaRelation struct {
	ListID    int64  `gorm:"primaryKey;autoIncrement:false"`
	MediaID   int64  `gorm:"primaryKey;autoIncrement:false"`
	MediaType string `gorm:"primaryKey"`
	Position  int
}

func (MediaRelation) TableName() string {
	return "list_items"
}
