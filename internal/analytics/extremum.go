package analytics

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/liamwears/moviestats/internal/models"
)

const summaryDescriptionLimit = 100

// Summary is the display form of a movie in extremum results
type Summary struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Category    models.Category `json:"category"`
	Country     models.Country  `json:"country"`
	ReleaseYear int             `json:"releaseYear"`
	Rating      *float64        `json:"rating"`
	Description *string         `json:"description"`
}

func summarize(m models.Movie) Summary {
	s := Summary{
		ID:          m.ID,
		Title:       m.Title,
		Category:    m.Category,
		Country:     m.Country,
		ReleaseYear: m.ReleaseYear,
		Rating:      m.AverageRating,
	}
	if m.Description != nil {
		d := truncate(*m.Description, summaryDescriptionLimit)
		s.Description = &d
	}
	return s
}

// truncate shortens s to at most limit characters, the trailing "..."
// included.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

// Extremum is the result of HighestRated and LowestRated. It is nil when
// no movie is rated, OneRecord when a single movie holds the extreme
// rating and ManyRecords when several tie.
type Extremum interface {
	Records() []Summary
	extremum()
}

// OneRecord is an Extremum held by exactly one movie
type OneRecord struct {
	Summary
}

// Records returns the single summary
func (o OneRecord) Records() []Summary { return []Summary{o.Summary} }

func (OneRecord) extremum() {}

// MarshalJSON encodes the summary as a plain object
func (o OneRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Summary)
}

// ManyRecords is an Extremum shared by several tied movies
type ManyRecords []Summary

// Records returns the tied summaries in collection order
func (m ManyRecords) Records() []Summary { return m }

func (ManyRecords) extremum() {}

// HighestRated returns the movie or movies with the highest rating
func (s *Statistics) HighestRated() Extremum {
	return s.extreme(func(a, b float64) bool { return a > b })
}

// LowestRated returns the movie or movies with the lowest rating
func (s *Statistics) LowestRated() Extremum {
	return s.extreme(func(a, b float64) bool { return a < b })
}

func (s *Statistics) extreme(better func(a, b float64) bool) Extremum {
	var best float64
	var matches []models.Movie
	for i := 0; i < s.movies.Len(); i++ {
		m := s.movies.At(i)
		if m.AverageRating == nil {
			continue
		}
		r := *m.AverageRating
		switch {
		case matches == nil || better(r, best):
			best = r
			matches = []models.Movie{m}
		case r == best:
			matches = append(matches, m)
		}
	}

	switch len(matches) {
	case 0:
		return nil
	case 1:
		return OneRecord{Summary: summarize(matches[0])}
	}

	out := make(ManyRecords, len(matches))
	for i, m := range matches {
		out[i] = summarize(m)
	}
	return out
}

// DecodeExtremum decodes the JSON form of an Extremum: null, an object or
// an array.
func DecodeExtremum(data []byte) (Extremum, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch trimmed[0] {
	case '{':
		var one OneRecord
		if err := json.Unmarshal(trimmed, &one.Summary); err != nil {
			return nil, fmt.Errorf("decode single extremum: %w", err)
		}
		return one, nil
	case '[':
		var many ManyRecords
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return nil, fmt.Errorf("decode tied extremum: %w", err)
		}
		return many, nil
	}
	return nil, fmt.Errorf("unexpected extremum JSON %q", trimmed[0])
}

// reportJSON is the wire form of Report with the Extremum fields left raw
type reportJSON struct {
	TotalMovies          int                               `json:"totalMovies"`
	AverageRating        float64                           `json:"averageRating"`
	RatingStdDev         float64                           `json:"ratingStandardDeviation"`
	HighestRated         json.RawMessage                   `json:"highestRatedMovie"`
	LowestRated          json.RawMessage                   `json:"lowestRatedMovie"`
	CategoryDistribution map[models.Category]CategoryShare `json:"categoryDistribution"`
	YearDistribution     []YearCount                       `json:"yearDistribution"`
	RatingDistribution   []BucketCount                     `json:"ratingDistribution"`
}

// UnmarshalJSON restores a Report, including its Extremum fields
func (r *Report) UnmarshalJSON(data []byte) error {
	var aux reportJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	highest, err := DecodeExtremum(aux.HighestRated)
	if err != nil {
		return err
	}
	lowest, err := DecodeExtremum(aux.LowestRated)
	if err != nil {
		return err
	}

	*r = Report{
		TotalMovies:          aux.TotalMovies,
		AverageRating:        aux.AverageRating,
		RatingStdDev:         aux.RatingStdDev,
		HighestRated:         highest,
		LowestRated:          lowest,
		CategoryDistribution: aux.CategoryDistribution,
		YearDistribution:     aux.YearDistribution,
		RatingDistribution:   aux.RatingDistribution,
	}
	return nil
}
