package tmdb

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/flarexio/movielist/conf"
	"github.com/flarexio/movielist/list"
)

// MediaRepository resolves list items against the TMDB api. Documents
// found are cached, misses are not.
type MediaRepository struct {
	client *Client
	store  *cache.Cache
	log    *zap.Logger
}

func NewMediaRepository(client *Client, cfg conf.Cache) *MediaRepository {
	expiration := cfg.Expiration
	if expiration == 0 {
		expiration = 5 * time.Minute
	}

	cleanup := cfg.Cleanup
	if cleanup == 0 {
		cleanup = 10 * time.Minute
	}

	return &MediaRepository{
		client: client,
		store:  cache.New(expiration, cleanup),
		log:    client.log.With(zap.String("repository", "media")),
	}
}

func mediaPath(id int64, t list.MediaType) string {
	if t == list.Movie {
		return "/3/movie/" + strconv.FormatInt(id, 10)
	}

	return "/3/tv/" + strconv.FormatInt(id, 10)
}

func (repo *MediaRepository) fetch(ctx context.Context, id int64, t list.MediaType) (*Response, map[string]any, error) {
	resp, err := repo.client.FetchAPI(ctx, Request{
		Method: http.MethodGet,
		Path:   mediaPath(id, t),
		Header: http.Header{"Accept": []string{"application/json"}},
	})
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, nil, nil
	}

	var data map[string]any
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		repo.log.Warn("could not decode media data",
			zap.Int64("media_id", id),
			zap.String("media_type", string(t)),
			zap.Error(err),
		)

		return resp, nil, nil
	}

	repo.store.Set(list.NewMediaRelation(id, t).Key(), data, cache.DefaultExpiration)
	return resp, data, nil
}

func (repo *MediaRepository) FindByMediaIDAndType(ctx context.Context, id int64, t list.MediaType) (map[string]any, error) {
	key := list.NewMediaRelation(id, t).Key()
	if data, ok := repo.store.Get(key); ok {
		return data.(map[string]any), nil
	}

	_, data, err := repo.fetch(ctx, id, t)
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (repo *MediaRepository) Exists(ctx context.Context, id int64, t list.MediaType) (bool, error) {
	key := list.NewMediaRelation(id, t).Key()
	if _, ok := repo.store.Get(key); ok {
		return true, nil
	}

	resp, _, err := repo.fetch(ctx, id, t)
	if err != nil {
		return false, err
	}

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}
