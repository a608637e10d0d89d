package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/liamwears/moviestats/internal/models"
)

type fakeStore struct {
	movies  []models.Movie
	err     error
	loads   int
	created [][]models.CreateMovieInput
	// onLoad runs inside All, after the snapshot is taken
	onLoad func()
}

func (f *fakeStore) All(ctx context.Context) ([]models.Movie, error) {
	f.loads++
	if f.onLoad != nil {
		defer f.onLoad()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.movies, nil
}

func (f *fakeStore) Get(ctx context.Context, id uuid.UUID) (*models.Movie, error) {
	for _, m := range f.movies {
		if m.ID == id {
			m := m
			return &m, nil
		}
	}
	return nil, ErrMovieNotFound
}

func (f *fakeStore) CreateMany(ctx context.Context, createdBy *uuid.UUID, inputs []models.CreateMovieInput) ([]models.Movie, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, inputs)
	out := make([]models.Movie, len(inputs))
	for i, in := range inputs {
		out[i] = models.Movie{
			ID:            uuid.New(),
			Title:         in.Title,
			Category:      in.Category,
			Country:       in.Country,
			ReleaseYear:   in.ReleaseYear,
			AverageRating: in.AverageRating,
			Description:   in.Description,
			CreatedBy:     createdBy,
		}
	}
	return out, nil
}

// fakeCache stores JSON like the redis cache does
type fakeCache struct {
	entries  map[string][]byte
	versions map[string]int64
	getErr   error
	sets     int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte), versions: make(map[string]int64)}
}

func (c *fakeCache) Get(ctx context.Context, name string, dst interface{}) (bool, error) {
	if c.getErr != nil {
		return false, c.getErr
	}
	raw, ok := c.entries[name]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *fakeCache) Set(ctx context.Context, name string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.sets++
	c.entries[name] = raw
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, names ...string) error {
	for _, n := range names {
		delete(c.entries, n)
	}
	return nil
}

func (c *fakeCache) Version(ctx context.Context, name string) (int64, error) {
	return c.versions[name], nil
}

func (c *fakeCache) Bump(ctx context.Context, name string) (int64, error) {
	c.versions[name]++
	return c.versions[name], nil
}

var errStoreDown = errors.New("store down")

func ratingPtr(v float64) *float64 { return &v }

func testMovie(n int, category models.Category, country models.Country, rating *float64) models.Movie {
	return models.Movie{
		ID:            uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n)),
		Title:         fmt.Sprintf("Movie %d", n),
		Category:      category,
		Country:       country,
		ReleaseYear:   2000 + n,
		AverageRating: rating,
	}
}
