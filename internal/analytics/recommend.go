package analytics

import (
	"sort"

	"github.com/liamwears/moviestats/internal/models"
)

// DefaultRecommendLimit caps Recommend when no limit is given
const DefaultRecommendLimit = 10

// Preferences filter Recommend. Zero values leave a filter unset.
type Preferences struct {
	Category  models.Category `json:"category,omitempty"`
	Country   models.Country  `json:"country,omitempty"`
	MinRating *float64        `json:"minRating,omitempty"`
	Limit     int             `json:"limit,omitempty"`
}

// Recommend returns movies matching prefs, best rated first. With a
// minimum rating set, unrated movies are excluded; otherwise they sort
// last. Equal ratings are ordered by title.
func (s *Statistics) Recommend(prefs Preferences) []models.Movie {
	limit := prefs.Limit
	if limit <= 0 {
		limit = DefaultRecommendLimit
	}

	out := make([]models.Movie, 0)
	for i := 0; i < s.movies.Len(); i++ {
		m := s.movies.At(i)
		if prefs.Category != "" && m.Category != prefs.Category {
			continue
		}
		if prefs.Country != "" && m.Country != prefs.Country {
			continue
		}
		if prefs.MinRating != nil && (m.AverageRating == nil || *m.AverageRating < *prefs.MinRating) {
			continue
		}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].AverageRating, out[j].AverageRating
		switch {
		case a == nil && b == nil:
			return out[i].Title < out[j].Title
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a > *b
		}
		return out[i].Title < out[j].Title
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
