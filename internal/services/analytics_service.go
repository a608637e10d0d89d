package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/liamwears/moviestats/internal/analytics"
	"github.com/liamwears/moviestats/internal/metrics"
	"github.com/liamwears/moviestats/internal/models"
)

const (
	overviewCacheKey = "overview"
	catalogueVersion = "catalogue:version"
)

// MovieSource loads catalogue snapshots for analytics
type MovieSource interface {
	All(ctx context.Context) ([]models.Movie, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Movie, error)
}

// ReportCache stores computed reports between catalogue writes. Version and
// Bump manage a counter that catalogue writes advance, so reports keyed by
// an older version are never read again.
type ReportCache interface {
	Get(ctx context.Context, name string, dst interface{}) (bool, error)
	Set(ctx context.Context, name string, v interface{}) error
	Delete(ctx context.Context, names ...string) error
	Version(ctx context.Context, name string) (int64, error)
	Bump(ctx context.Context, name string) (int64, error)
}

// Prediction is a predicted rating for a category and country pair
type Prediction struct {
	Category models.Category `json:"category"`
	Country  models.Country  `json:"country"`
	Rating   float64         `json:"rating"`
}

// Dashboard is everything the analytics page shows, computed from one snapshot
type Dashboard struct {
	Report        analytics.Report          `json:"report"`
	AverageRating float64                   `json:"averageRating"`
	Categories    []analytics.CategoryShare `json:"categories"`
	Countries     []analytics.CountryCount  `json:"countries"`
	Stars         []analytics.StarShare     `json:"stars"`
	Predictions   []Prediction              `json:"predictions"`
	Sample        *models.Movie             `json:"sample,omitempty"`
	Similar       []models.Movie            `json:"similar"`
}

// dashboardPredictions are the pairs shown on the analytics page
var dashboardPredictions = []struct {
	category models.Category
	country  models.Country
}{
	{models.CategoryScienceFiction, models.CountryUnitedStates},
	{models.CategoryDrama, models.CountrySouthKorea},
	{models.CategoryComedy, models.CountryUnitedKingdom},
}

const dashboardSimilarLimit = 3

// AnalyticsService runs the statistics engine over catalogue snapshots
type AnalyticsService struct {
	source    MovieSource
	cache     ReportCache
	precision int
	logger    zerolog.Logger
}

// NewAnalyticsService creates an AnalyticsService. precision is the number
// of decimals of the dashboard headline average. cache may be nil, in which
// case every report is computed on demand.
func NewAnalyticsService(source MovieSource, cache ReportCache, precision int, logger zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{
		source:    source,
		cache:     cache,
		precision: precision,
		logger:    logger.With().Str("component", "analytics").Logger(),
	}
}

// snapshot loads the catalogue and wraps it in a statistics engine
func (s *AnalyticsService) snapshot(ctx context.Context) (*analytics.Statistics, []models.Movie, error) {
	movies, err := s.source.All(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load catalogue: %w", err)
	}
	stats, err := analytics.New(analytics.Movies(movies))
	if err != nil {
		return nil, nil, err
	}
	return stats, movies, nil
}

// overviewKey names the overview report cached for a catalogue version
func overviewKey(version int64) string {
	return fmt.Sprintf("%s:v%d", overviewCacheKey, version)
}

// Overview returns the overall statistics report, served from cache when
// a copy exists for the current catalogue version. The version is read
// before the snapshot, so a report computed from data that a concurrent
// write has since replaced is stored under a key no reader asks for.
func (s *AnalyticsService) Overview(ctx context.Context) (*analytics.Report, error) {
	key := ""
	if s.cache != nil {
		version, err := s.cache.Version(ctx, catalogueVersion)
		if err != nil {
			metrics.ReportCacheLookups.WithLabelValues("error").Inc()
			s.logger.Warn().Err(err).Msg("report cache version lookup failed")
		} else {
			key = overviewKey(version)
		}
	}

	if key != "" {
		var cached analytics.Report
		hit, err := s.cache.Get(ctx, key, &cached)
		switch {
		case err != nil:
			metrics.ReportCacheLookups.WithLabelValues("error").Inc()
			s.logger.Warn().Err(err).Msg("report cache lookup failed")
		case hit:
			metrics.ReportCacheLookups.WithLabelValues("hit").Inc()
			return &cached, nil
		default:
			metrics.ReportCacheLookups.WithLabelValues("miss").Inc()
		}
	}

	start := time.Now()
	stats, movies, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	report := stats.OverallStatistics()
	metrics.ReportComputeDuration.Observe(time.Since(start).Seconds())

	s.logger.Debug().Int("movies", len(movies)).Dur("took", time.Since(start)).Msg("computed overview report")

	if key != "" {
		if err := s.cache.Set(ctx, key, report); err != nil {
			s.logger.Warn().Err(err).Msg("failed to cache overview report")
		}
	}
	return &report, nil
}

// Invalidate advances the catalogue version so cached reports are no longer
// served. Call it after every catalogue write.
func (s *AnalyticsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	version, err := s.cache.Bump(ctx, catalogueVersion)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate report cache")
		return
	}
	// the previous report would expire on its own; drop it now
	if err := s.cache.Delete(ctx, overviewKey(version-1)); err != nil {
		s.logger.Debug().Err(err).Msg("failed to delete stale overview report")
	}
}

// Dashboard computes the analytics page from a single snapshot
func (s *AnalyticsService) Dashboard(ctx context.Context) (*Dashboard, error) {
	stats, movies, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		Report:        stats.OverallStatistics(),
		AverageRating: stats.AverageRating(s.precision),
		Categories:    stats.CategoryShares(),
		Countries:     stats.CountryDistribution(),
		Stars:         stats.StarDistribution(),
		Similar:       []models.Movie{},
	}
	for _, p := range dashboardPredictions {
		d.Predictions = append(d.Predictions, Prediction{
			Category: p.category,
			Country:  p.country,
			Rating:   stats.PredictRating(p.category, p.country),
		})
	}
	if len(movies) > 0 {
		sample := movies[0]
		d.Sample = &sample
		d.Similar = stats.FindSimilarMovies(sample, dashboardSimilarLimit)
	}
	return d, nil
}

// Distribution counts rated movies per bucket; nil buckets use the defaults
func (s *AnalyticsService) Distribution(ctx context.Context, buckets []analytics.Bucket) ([]analytics.BucketCount, error) {
	stats, _, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return stats.RatingDistribution(buckets), nil
}

// Stars returns the 1-5 star histogram of rated movies
func (s *AnalyticsService) Stars(ctx context.Context) ([]analytics.StarShare, error) {
	stats, _, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return stats.StarDistribution(), nil
}

// Predict returns the blended rating prediction for a category and country
func (s *AnalyticsService) Predict(ctx context.Context, category models.Category, country models.Country) (*Prediction, error) {
	stats, _, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &Prediction{
		Category: category,
		Country:  country,
		Rating:   stats.PredictRating(category, country),
	}, nil
}

// Similar returns movies in the same category with the closest ratings
func (s *AnalyticsService) Similar(ctx context.Context, id uuid.UUID, limit int) ([]models.Movie, error) {
	ref, err := s.source.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	stats, _, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return stats.FindSimilarMovies(*ref, limit), nil
}

// Recommend returns the best rated movies matching prefs
func (s *AnalyticsService) Recommend(ctx context.Context, prefs analytics.Preferences) ([]models.Movie, error) {
	stats, _, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return stats.Recommend(prefs), nil
}

// WriteCSV writes the statistics CSV export to w
func (s *AnalyticsService) WriteCSV(ctx context.Context, w io.Writer) error {
	stats, _, err := s.snapshot(ctx)
	if err != nil {
		return err
	}
	return stats.WriteCSV(w)
}
