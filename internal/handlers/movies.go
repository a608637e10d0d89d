package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/liamwears/moviestats/internal/middleware"
	"github.com/liamwears/moviestats/internal/models"
	"github.com/liamwears/moviestats/internal/services"
	"github.com/liamwears/moviestats/internal/validation"
)

const (
	defaultPageSize = 24
	maxPageSize     = 100
	maxImportSize   = 10 << 20
)

// MovieCatalogue is the movie storage used by the API
type MovieCatalogue interface {
	List(ctx context.Context, input models.ListMoviesInput) (*models.PaginatedMovies, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Movie, error)
	Create(ctx context.Context, createdBy *uuid.UUID, input models.CreateMovieInput) (*models.Movie, error)
	Update(ctx context.Context, input models.UpdateMovieInput) (*models.Movie, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CatalogueTransfer imports and exports the catalogue as CSV
type CatalogueTransfer interface {
	Import(ctx context.Context, createdBy *uuid.UUID, r io.Reader) ([]models.Movie, error)
	Export(ctx context.Context, w io.Writer) error
}

// CacheInvalidator drops derived data after catalogue writes
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// MovieHandler handles movie-related requests
type MovieHandler struct {
	movies   MovieCatalogue
	transfer CatalogueTransfer
	reports  CacheInvalidator
	logger   zerolog.Logger
}

// NewMovieHandler creates a new movie handler
func NewMovieHandler(movies MovieCatalogue, transfer CatalogueTransfer, reports CacheInvalidator, logger zerolog.Logger) *MovieHandler {
	return &MovieHandler{
		movies:   movies,
		transfer: transfer,
		reports:  reports,
		logger:   logger.With().Str("handler", "movies").Logger(),
	}
}

func currentUserID(r *http.Request) *uuid.UUID {
	if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		return &id
	}
	return nil
}

// listInput reads the catalogue filters shared by the API and the movies page
func listInput(r *http.Request) models.ListMoviesInput {
	q := r.URL.Query()
	return models.ListMoviesInput{
		Query:    q.Get("query"),
		Category: models.Category(q.Get("category")),
		Country:  models.Country(q.Get("country")),
		Page:     intParam(r, "page", 1, 0),
		Limit:    intParam(r, "limit", defaultPageSize, maxPageSize),
	}
}

// List handles GET /api/movies
func (h *MovieHandler) List(w http.ResponseWriter, r *http.Request) {
	input := listInput(r)
	if verr := validation.ValidateStruct(input); verr != nil {
		writeValidationError(w, verr)
		return
	}

	result, err := h.movies.List(r.Context(), input)
	if err != nil {
		logFor(r, h.logger).Error().Err(err).Msg("failed to list movies")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch movies")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Create handles POST /api/movies
func (h *MovieHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input models.CreateMovieInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body: "+err.Error())
		return
	}
	if input.Category == "" {
		input.Category = models.CategoryOthers
	}
	if verr := validation.ValidateStruct(input); verr != nil {
		writeValidationError(w, verr)
		return
	}

	movie, err := h.movies.Create(r.Context(), currentUserID(r), input)
	if err != nil {
		logFor(r, h.logger).Error().Err(err).Str("title", input.Title).Msg("failed to create movie")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create movie")
		return
	}
	h.reports.Invalidate(r.Context())

	writeJSON(w, http.StatusCreated, movie)
}

// Get handles GET /api/movies/{id}
func (h *MovieHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid movie ID")
		return
	}

	movie, err := h.movies.Get(r.Context(), id)
	if err != nil {
		h.movieError(w, r, err, "Failed to fetch movie")
		return
	}

	writeJSON(w, http.StatusOK, movie)
}

// Update handles PATCH /api/movies/{id}
func (h *MovieHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid movie ID")
		return
	}

	var input models.UpdateMovieInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body: "+err.Error())
		return
	}
	input.ID = id
	if verr := validation.ValidateStruct(input); verr != nil {
		writeValidationError(w, verr)
		return
	}

	movie, err := h.movies.Update(r.Context(), input)
	if err != nil {
		h.movieError(w, r, err, "Failed to update movie")
		return
	}
	h.reports.Invalidate(r.Context())

	writeJSON(w, http.StatusOK, movie)
}

// Delete handles DELETE /api/movies/{id}
func (h *MovieHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid movie ID")
		return
	}

	if err := h.movies.Delete(r.Context(), id); err != nil {
		h.movieError(w, r, err, "Failed to delete movie")
		return
	}
	h.reports.Invalidate(r.Context())

	w.WriteHeader(http.StatusNoContent)
}

// Import handles POST /api/movies/import. The CSV is either the raw body
// or the "file" part of a multipart form.
func (h *MovieHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)

	var src io.Reader = r.Body
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "Missing CSV file in form field \"file\"")
			return
		}
		defer file.Close()
		src = file
	}

	movies, err := h.transfer.Import(r.Context(), currentUserID(r), src)
	if err != nil {
		var importErr *services.ImportError
		if errors.As(err, &importErr) {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error": importErr.Error(),
				"code":  "IMPORT_REJECTED",
				"line":  importErr.Line,
			})
			return
		}
		logFor(r, h.logger).Error().Err(err).Msg("failed to import movies")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to import movies")
		return
	}
	h.reports.Invalidate(r.Context())

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"imported": len(movies),
		"movies":   movies,
	})
}

// Export handles GET /api/movies/export
func (h *MovieHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.transfer.Export(r.Context(), &buf); err != nil {
		logFor(r, h.logger).Error().Err(err).Msg("failed to export movies")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to export movies")
		return
	}

	writeCSV(w, fmt.Sprintf("movies-%s.csv", time.Now().Format("2006-01-02")), buf.Bytes())
}

func (h *MovieHandler) movieError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Movie not found")
		return
	}
	logFor(r, h.logger).Error().Err(err).Msg(message)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}
