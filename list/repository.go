package list

import "context"

type Repository interface {
	// Command

	Store(ctx context.Context, l *MovieList) error
	Delete(ctx context.Context, id int64) error

	// Query

	ListAll(ctx context.Context) ([]*MovieList, error)
	Find(ctx context.Context, id int64) (*MovieList, error)

	Truncate() error
	Close() error
}

// MediaRepository looks up media data of list items on an external
// catalogue.
type MediaRepository interface {
	FindByMediaIDAndType(ctx context.Context, id int64, t MediaType) (map[string]any, error)
	Exists(ctx context.Context, id int64, t MediaType) (bool, error)
}
