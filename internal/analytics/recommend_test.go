package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/liamwears/moviestats/internal/models"
)

func titles(movies []models.Movie) []string {
	out := make([]string, len(movies))
	for i, m := range movies {
		out[i] = m.Title
	}
	return out
}

func TestRecommend(t *testing.T) {
	s := newStats(t,
		movie(1, models.CategoryArt, models.CountryFrance, 2001, rating(3.0)),
		movie(2, models.CategoryArt, models.CountryJapan, 2001, rating(4.8)),
		movie(3, models.CategoryComedy, models.CountryFrance, 2001, rating(4.1)),
		movie(4, models.CategoryArt, models.CountryFrance, 2001, nil),
		movie(5, models.CategoryArt, models.CountryFrance, 2001, rating(4.8)),
	)

	t.Run("no filters", func(t *testing.T) {
		got := s.Recommend(Preferences{})
		assert.Equal(t, []string{"Movie 2", "Movie 5", "Movie 3", "Movie 1", "Movie 4"}, titles(got))
	})

	t.Run("category and country", func(t *testing.T) {
		got := s.Recommend(Preferences{Category: models.CategoryArt, Country: models.CountryFrance})
		assert.Equal(t, []string{"Movie 5", "Movie 1", "Movie 4"}, titles(got))
	})

	t.Run("minimum rating drops unrated", func(t *testing.T) {
		got := s.Recommend(Preferences{MinRating: rating(4.1)})
		assert.Equal(t, []string{"Movie 2", "Movie 5", "Movie 3"}, titles(got))
	})

	t.Run("limit", func(t *testing.T) {
		got := s.Recommend(Preferences{Limit: 1})
		assert.Equal(t, []string{"Movie 2"}, titles(got))
	})
}
