// Package analytics computes aggregate views over a snapshot of the movie
// catalogue: averages, spread, extremes, distributions, a weighted rating
// prediction and nearest-rating lookups.
//
// A Statistics value only reads the collection it was built from. Every
// operation may walk the collection more than once, so callers must hand
// it a stable snapshot (a slice loaded for this request, for example) and
// must not mutate that snapshot while an operation runs.
package analytics

import (
	"errors"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/liamwears/moviestats/internal/models"
)

const (
	// DefaultPrecision is the number of decimals AverageRating rounds to
	DefaultPrecision = 2
	// DefaultSimilarLimit caps FindSimilarMovies when no limit is given
	DefaultSimilarLimit = 5

	stdDevPrecision     = 3
	percentagePrecision = 2
	predictPrecision    = 2

	categoryWeight = 0.6
	countryWeight  = 0.4
)

// ErrInvalidInput is matched by every InvalidInputError
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError is returned by New when the collection is unusable
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "analytics: " + e.Reason
}

// Is lets errors.Is(err, ErrInvalidInput) match
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Collection is a countable, indexable set of movies
type Collection interface {
	Len() int
	At(i int) models.Movie
}

// Movies adapts a slice to Collection
type Movies []models.Movie

func (m Movies) Len() int              { return len(m) }
func (m Movies) At(i int) models.Movie { return m[i] }

// Statistics computes aggregates over a movie collection
type Statistics struct {
	movies Collection
}

// New creates a Statistics over movies. The collection is not copied.
func New(movies Collection) (*Statistics, error) {
	if movies == nil {
		return nil, &InvalidInputError{Reason: "movies collection cannot be nil"}
	}
	return &Statistics{movies: movies}, nil
}

// TotalCount returns the number of movies in the collection
func (s *Statistics) TotalCount() int {
	return s.movies.Len()
}

// ratings returns the ratings of every rated movie in collection order
func (s *Statistics) ratings() []float64 {
	var out []float64
	for i := 0; i < s.movies.Len(); i++ {
		if r := s.movies.At(i).AverageRating; r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// AverageRating returns the mean rating of rated movies rounded to
// precision decimals, or 0 when nothing is rated.
func (s *Statistics) AverageRating(precision int) float64 {
	ratings := s.ratings()
	if len(ratings) == 0 {
		return 0
	}
	return round(mean(ratings), precision)
}

// RatingStdDev returns the sample standard deviation of the ratings,
// rounded to three decimals. Fewer than two rated movies yield 0.
func (s *Statistics) RatingStdDev() float64 {
	ratings := s.ratings()
	if len(ratings) < 2 {
		return 0
	}

	m := mean(ratings)
	var sumOfSquares float64
	for _, r := range ratings {
		sumOfSquares += (r - m) * (r - m)
	}
	variance := sumOfSquares / float64(len(ratings)-1)

	return round(math.Sqrt(variance), stdDevPrecision)
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// CategoryShare is the number and share of movies in one category
type CategoryShare struct {
	Category   models.Category `json:"category"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
}

// CategoryDistribution groups every movie, rated or not, by category
func (s *Statistics) CategoryDistribution() map[models.Category]CategoryShare {
	shares := s.CategoryShares()
	out := make(map[models.Category]CategoryShare, len(shares))
	for _, share := range shares {
		out[share.Category] = share
	}
	return out
}

// CategoryShares is CategoryDistribution ordered by models.Categories,
// with categories outside the canonical set appended alphabetically.
func (s *Statistics) CategoryShares() []CategoryShare {
	counts := make(map[models.Category]int)
	total := 0
	for i := 0; i < s.movies.Len(); i++ {
		counts[s.movies.At(i).Category]++
		total++
	}
	if total == 0 {
		return []CategoryShare{}
	}

	order := make([]models.Category, 0, len(counts))
	for _, c := range models.Categories {
		if _, ok := counts[c]; ok {
			order = append(order, c)
		}
	}
	var extra []models.Category
	for c := range counts {
		if !c.IsValid() {
			extra = append(extra, c)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	order = append(order, extra...)

	shares := make([]CategoryShare, 0, len(order))
	for _, c := range order {
		shares = append(shares, CategoryShare{
			Category:   c,
			Count:      counts[c],
			Percentage: round(float64(counts[c])/float64(total)*100, percentagePrecision),
		})
	}
	return shares
}

// CountryCount is the number of movies from one country
type CountryCount struct {
	Country models.Country `json:"country"`
	Count   int            `json:"count"`
}

// CountryDistribution counts movies per country, most common first
func (s *Statistics) CountryDistribution() []CountryCount {
	counts := make(map[models.Country]int)
	for i := 0; i < s.movies.Len(); i++ {
		counts[s.movies.At(i).Country]++
	}

	out := make([]CountryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, CountryCount{Country: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Country < out[j].Country
	})
	return out
}

// YearCount is the number of movies released in one year
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// YearDistribution counts movies per release year, oldest year first
func (s *Statistics) YearDistribution() []YearCount {
	counts := make(map[int]int)
	for i := 0; i < s.movies.Len(); i++ {
		counts[s.movies.At(i).ReleaseYear]++
	}

	out := make([]YearCount, 0, len(counts))
	for y, n := range counts {
		out = append(out, YearCount{Year: y, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// PredictRating blends the average rating of the category (60%) with the
// average rating of the country (40%). A side with no rated movies
// contributes 0.
func (s *Statistics) PredictRating(category models.Category, country models.Country) float64 {
	var catSum, countrySum float64
	var catN, countryN int
	for i := 0; i < s.movies.Len(); i++ {
		m := s.movies.At(i)
		if m.AverageRating == nil {
			continue
		}
		if m.Category == category {
			catSum += *m.AverageRating
			catN++
		}
		if m.Country == country {
			countrySum += *m.AverageRating
			countryN++
		}
	}

	var catAvg, countryAvg float64
	if catN > 0 {
		catAvg = catSum / float64(catN)
	}
	if countryN > 0 {
		countryAvg = countrySum / float64(countryN)
	}

	return round(catAvg*categoryWeight+countryAvg*countryWeight, predictPrecision)
}

// FindSimilarMovies returns movies in ref's category ordered by how close
// their rating is to ref's, unrated counting as 0. Equal distances are
// ordered by id. ref is identified by its ID and excluded when that ID is
// non-zero, so a reference built outside the collection keeps every
// candidate. limit <= 0 means DefaultSimilarLimit.
func (s *Statistics) FindSimilarMovies(ref models.Movie, limit int) []models.Movie {
	if limit <= 0 {
		limit = DefaultSimilarLimit
	}
	target := ref.RatingOrZero()

	candidates := make([]models.Movie, 0)
	for i := 0; i < s.movies.Len(); i++ {
		m := s.movies.At(i)
		if m.Category != ref.Category || (ref.ID != uuid.Nil && m.ID == ref.ID) {
			continue
		}
		candidates = append(candidates, m)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		di := math.Abs(candidates[i].RatingOrZero() - target)
		dj := math.Abs(candidates[j].RatingOrZero() - target)
		if di != dj {
			return di < dj
		}
		return candidates[i].ID.String() < candidates[j].ID.String()
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// Report is the full set of default aggregates
type Report struct {
	TotalMovies          int                               `json:"totalMovies"`
	AverageRating        float64                           `json:"averageRating"`
	RatingStdDev         float64                           `json:"ratingStandardDeviation"`
	HighestRated         Extremum                          `json:"highestRatedMovie"`
	LowestRated          Extremum                          `json:"lowestRatedMovie"`
	CategoryDistribution map[models.Category]CategoryShare `json:"categoryDistribution"`
	YearDistribution     []YearCount                       `json:"yearDistribution"`
	RatingDistribution   []BucketCount                     `json:"ratingDistribution"`
}

// OverallStatistics computes every aggregate with default parameters
func (s *Statistics) OverallStatistics() Report {
	return Report{
		TotalMovies:          s.TotalCount(),
		AverageRating:        s.AverageRating(DefaultPrecision),
		RatingStdDev:         s.RatingStdDev(),
		HighestRated:         s.HighestRated(),
		LowestRated:          s.LowestRated(),
		CategoryDistribution: s.CategoryDistribution(),
		YearDistribution:     s.YearDistribution(),
		RatingDistribution:   s.RatingDistribution(nil),
	}
}
