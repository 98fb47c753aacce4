package movielist

import (
	"context"

	"github.com/flarexio/movielist/list"
)

var sampleMovies = []int64{940721, 346698, 872585}

// GenerateSampleData seeds a list with a few movies.
func GenerateSampleData(ctx context.Context, svc Service) (*list.MovieList, error) {
	l := list.NewMovieList("My Cool List", "Some hits of 2023!", "en", true, "")

	l, err := svc.CreateList(ctx, l)
	if err != nil {
		return nil, err
	}

	items := make([]*list.MediaRelation, len(sampleMovies))
	for i, id := range sampleMovies {
		items[i] = list.NewMediaRelation(id, list.Movie)
	}

	return svc.AddItems(ctx, l.ID, items)
}
