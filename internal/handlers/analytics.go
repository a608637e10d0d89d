package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/liamwears/moviestats/internal/analytics"
	"github.com/liamwears/moviestats/internal/models"
	"github.com/liamwears/moviestats/internal/services"
)

// AnalyticsReader computes statistics over the catalogue
type AnalyticsReader interface {
	Overview(ctx context.Context) (*analytics.Report, error)
	Dashboard(ctx context.Context) (*services.Dashboard, error)
	Distribution(ctx context.Context, buckets []analytics.Bucket) ([]analytics.BucketCount, error)
	Stars(ctx context.Context) ([]analytics.StarShare, error)
	Predict(ctx context.Context, category models.Category, country models.Country) (*services.Prediction, error)
	Similar(ctx context.Context, id uuid.UUID, limit int) ([]models.Movie, error)
	Recommend(ctx context.Context, prefs analytics.Preferences) ([]models.Movie, error)
	WriteCSV(ctx context.Context, w io.Writer) error
}

// AnalyticsHandler serves the statistics API
type AnalyticsHandler struct {
	analytics AnalyticsReader
	logger    zerolog.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analytics AnalyticsReader, logger zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: analytics,
		logger:    logger.With().Str("handler", "analytics").Logger(),
	}
}

func (h *AnalyticsHandler) failed(w http.ResponseWriter, r *http.Request, err error, message string) {
	logFor(r, h.logger).Error().Err(err).Msg(message)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}

// Overview handles GET /api/analytics
func (h *AnalyticsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	report, err := h.analytics.Overview(r.Context())
	if err != nil {
		h.failed(w, r, err, "Failed to compute statistics")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Ratings handles GET /api/analytics/ratings?edges=0,1,2,3,4,5
func (h *AnalyticsHandler) Ratings(w http.ResponseWriter, r *http.Request) {
	var buckets []analytics.Bucket
	if raw := r.URL.Query().Get("edges"); raw != "" {
		var err error
		buckets, err = analytics.ParseEdges(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BUCKETS", err.Error())
			return
		}
	}

	counts, err := h.analytics.Distribution(r.Context(), buckets)
	if err != nil {
		h.failed(w, r, err, "Failed to compute rating distribution")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// Stars handles GET /api/analytics/stars
func (h *AnalyticsHandler) Stars(w http.ResponseWriter, r *http.Request) {
	stars, err := h.analytics.Stars(r.Context())
	if err != nil {
		h.failed(w, r, err, "Failed to compute star distribution")
		return
	}
	writeJSON(w, http.StatusOK, stars)
}

// Predict handles GET /api/analytics/predict?category=&country=
func (h *AnalyticsHandler) Predict(w http.ResponseWriter, r *http.Request) {
	category := models.Category(r.URL.Query().Get("category"))
	country := models.Country(r.URL.Query().Get("country"))
	if !category.IsValid() {
		writeError(w, http.StatusBadRequest, "INVALID_CATEGORY", fmt.Sprintf("unknown category %q", category))
		return
	}
	if !country.IsValid() {
		writeError(w, http.StatusBadRequest, "INVALID_COUNTRY", fmt.Sprintf("unknown country %q", country))
		return
	}

	prediction, err := h.analytics.Predict(r.Context(), category, country)
	if err != nil {
		h.failed(w, r, err, "Failed to predict rating")
		return
	}
	writeJSON(w, http.StatusOK, prediction)
}

// Similar handles GET /api/movies/{id}/similar?limit=
func (h *AnalyticsHandler) Similar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid movie ID")
		return
	}
	limit := intParam(r, "limit", analytics.DefaultSimilarLimit, maxPageSize)

	movies, err := h.analytics.Similar(r.Context(), id, limit)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Movie not found")
			return
		}
		h.failed(w, r, err, "Failed to find similar movies")
		return
	}
	writeJSON(w, http.StatusOK, movies)
}

// Recommend handles GET /api/recommendations
func (h *AnalyticsHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	prefs := analytics.Preferences{
		Category: models.Category(q.Get("category")),
		Country:  models.Country(q.Get("country")),
		Limit:    intParam(r, "limit", analytics.DefaultRecommendLimit, maxPageSize),
	}
	if prefs.Category != "" && !prefs.Category.IsValid() {
		writeError(w, http.StatusBadRequest, "INVALID_CATEGORY", fmt.Sprintf("unknown category %q", prefs.Category))
		return
	}
	if prefs.Country != "" && !prefs.Country.IsValid() {
		writeError(w, http.StatusBadRequest, "INVALID_COUNTRY", fmt.Sprintf("unknown country %q", prefs.Country))
		return
	}
	if raw := q.Get("min_rating"); raw != "" {
		minRating, err := strconv.ParseFloat(raw, 64)
		if err != nil || minRating < 0 || minRating > 5 {
			writeError(w, http.StatusBadRequest, "INVALID_RATING", "min_rating must be a number between 0 and 5")
			return
		}
		prefs.MinRating = &minRating
	}

	movies, err := h.analytics.Recommend(r.Context(), prefs)
	if err != nil {
		h.failed(w, r, err, "Failed to compute recommendations")
		return
	}
	writeJSON(w, http.StatusOK, movies)
}

// Export handles GET /api/analytics/export
func (h *AnalyticsHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.analytics.WriteCSV(r.Context(), &buf); err != nil {
		h.failed(w, r, err, "Failed to export statistics")
		return
	}
	writeCSV(w, fmt.Sprintf("movie-analytics-%s.csv", time.Now().Format("2006-01-02")), buf.Bytes())
}

func isNotFound(err error) bool {
	return errors.Is(err, services.ErrMovieNotFound)
}
