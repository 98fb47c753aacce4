package list

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/flarexio/core/model"
)

var (
	ErrListNotFound  = errors.New("list not found")
	ErrInvalidList   = errors.New("invalid movie list")
	ErrInvalidItem   = errors.New("invalid media item")
	ErrMediaNotFound = errors.New("no such movie/tv")
)

type MediaType string

const (
	Movie MediaType = "movie"
	TV    MediaType = "tv"
)

func ParseMediaType(t string) (MediaType, error) {
	switch strings.ToLower(t) {
	case "movie":
		return Movie, nil
	case "tv":
		return TV, nil
	default:
		return "", fmt.Errorf("%w: media type %q", ErrInvalidItem, t)
	}
}

// MediaRelation references a movie or tv show on TMDB. APIData holds
// the TMDB document of the item and is never persisted.
type MediaRelation struct {
	MediaID   int64          `validate:"required"`
	MediaType MediaType      `validate:"required,oneof=movie tv"`
	APIData   map[string]any `validate:"-"`
}

func NewMediaRelation(id int64, t MediaType) *MediaRelation {
	return &MediaRelation{
		MediaID:   id,
		MediaType: t,
	}
}

func (m *MediaRelation) Key() string {
	return string(m.MediaType) + "/" + strconv.FormatInt(m.MediaID, 10)
}

func (m *MediaRelation) Equal(other *MediaRelation) bool {
	return m.MediaID == other.MediaID && m.MediaType == other.MediaType
}

type MovieList struct {
	ID            int64  `validate:"-"`
	Name          string `validate:"required"`
	Description   string
	ISO6391       string
	Visible       bool
	BackdropPath  string
	Items         []*MediaRelation `validate:"-"`
	NumberOfItems int
	model.Model   `validate:"-"`
}

func NewMovieList(name, description, iso6391 string, visible bool, backdropPath string) *MovieList {
	now := time.Now()

	return &MovieList{
		Name:         name,
		Description:  description,
		ISO6391:      iso6391,
		Visible:      visible,
		BackdropPath: backdropPath,
		Items:        make([]*MediaRelation, 0),
		Model: model.Model{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func (l *MovieList) HasItem(item *MediaRelation) bool {
	for _, i := range l.Items {
		if i.Equal(item) {
			return true
		}
	}

	return false
}

// AddItems merges items into the list. Items already in the list are
// skipped, so the list behaves as a set keyed by media id and type.
func (l *MovieList) AddItems(items ...*MediaRelation) {
	for _, item := range items {
		if l.HasItem(item) {
			continue
		}

		l.Items = append(l.Items, item)
	}

	l.NumberOfItems = len(l.Items)
	l.UpdatedAt = time.Now()
}

func (l *MovieList) RemoveItems(items ...*MediaRelation) {
	remaining := make([]*MediaRelation, 0, len(l.Items))
	for _, i := range l.Items {
		removed := false
		for _, item := range items {
			if i.Equal(item) {
				removed = true
				break
			}
		}

		if !removed {
			remaining = append(remaining, i)
		}
	}

	l.Items = remaining
	l.NumberOfItems = len(l.Items)
	l.UpdatedAt = time.Now()
}

// Patch carries a partial update. Nil fields are left untouched and an
// empty name never replaces the current one.
type Patch struct {
	ID           int64 `validate:"required"`
	Name         *string
	Description  *string
	Visible      *bool
	BackdropPath *string
}

func (l *MovieList) Apply(p Patch) {
	if p.Name != nil && *p.Name != "" {
		l.Name = *p.Name
	}

	if p.Description != nil {
		l.Description = *p.Description
	}

	if p.Visible != nil {
		l.Visible = *p.Visible
	}

	if p.BackdropPath != nil {
		l.BackdropPath = *p.BackdropPath
	}

	l.UpdatedAt = time.Now()
}

var validate = validator.New()

type ValidationError struct {
	kind   error
	Fields []string
}

func (e *ValidationError) Error() string {
	return e.kind.Error() + ": " + strings.Join(e.Fields, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.kind
}

func newValidationError(kind error, err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %s", kind, err.Error())
	}

	fields := make([]string, 0, len(ve))
	for _, e := range ve {
		fields = append(fields, fmt.Sprintf("%s %s", e.Field(), e.ActualTag()))
	}

	return &ValidationError{kind, fields}
}

func ValidateForCreate(l *MovieList) error {
	if l == nil {
		return &ValidationError{ErrInvalidList, []string{"list required"}}
	}

	if l.ID != 0 {
		return &ValidationError{ErrInvalidList, []string{"ID must be empty"}}
	}

	if err := validate.Struct(l); err != nil {
		return newValidationError(ErrInvalidList, err)
	}

	return nil
}

func ValidateForUpdate(p Patch) error {
	if err := validate.Struct(p); err != nil {
		return newValidationError(ErrInvalidList, err)
	}

	return nil
}

func ValidateItem(item *MediaRelation) error {
	if item == nil {
		return &ValidationError{ErrInvalidItem, []string{"item required"}}
	}

	if err := validate.Struct(item); err != nil {
		return newValidationError(ErrInvalidItem, err)
	}

	return nil
}
