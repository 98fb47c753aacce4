package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/movielist"
	"github.com/flarexio/movielist/list"
)

type ListRequest struct {
	ID int64 `json:"id"`
}

type listReply struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	ISO6391       string    `json:"iso_639_1"`
	Visible       bool      `json:"visible"`
	BackdropPath  string    `json:"backdrop_path"`
	Items         []item    `json:"items"`
	NumberOfItems int       `json:"number_of_items"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type item struct {
	MediaID   int64          `json:"media_id"`
	MediaType list.MediaType `json:"media_type"`
	APIData   map[string]any `json:"api_data,omitempty"`
}

func newListReply(l *list.MovieList) *listReply {
	items := make([]item, len(l.Items))
	for i, it := range l.Items {
		items[i] = item{it.MediaID, it.MediaType, it.APIData}
	}

	return &listReply{
		ID:            l.ID,
		Name:          l.Name,
		Description:   l.Description,
		ISO6391:       l.ISO6391,
		Visible:       l.Visible,
		BackdropPath:  l.BackdropPath,
		Items:         items,
		NumberOfItems: l.NumberOfItems,
		UpdatedAt:     l.UpdatedAt,
	}
}

// ListHandler answers list lookups over NATS micro.
func ListHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req ListRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		resp, err := endpoint(ctx, req.ID)
		if err != nil {
			r.Error("503", err.Error(), nil)
			return
		}

		response, ok := resp.(movielist.ListResponse)
		if !ok {
			r.Error("500", "invalid response", nil)
			return
		}

		if err := response.Failed(); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		r.RespondJSON(newListReply(response.List))
	}
}
