package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/liamwears/moviestats/internal/middleware"
	"github.com/liamwears/moviestats/internal/models"
	"github.com/liamwears/moviestats/internal/validation"
)

// PageHandler handles page rendering
type PageHandler struct {
	movies    MovieCatalogue
	analytics AnalyticsReader
	renderer  *Renderer
	logger    zerolog.Logger
}

// NewPageHandler creates a new page handler
func NewPageHandler(movies MovieCatalogue, analytics AnalyticsReader, renderer *Renderer, logger zerolog.Logger) *PageHandler {
	return &PageHandler{
		movies:    movies,
		analytics: analytics,
		renderer:  renderer,
		logger:    logger.With().Str("handler", "pages").Logger(),
	}
}

// Home handles GET /{$}
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/movies", http.StatusSeeOther)
}

// Movies handles GET /movies
func (h *PageHandler) Movies(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUserFromContext(r.Context())

	input := listInput(r)
	// Unknown filters from a hand-edited URL are dropped rather than rejected
	if validation.ValidateStruct(input) != nil {
		input.Category = ""
		input.Country = ""
	}

	result, err := h.movies.List(r.Context(), input)
	if err != nil {
		logFor(r, h.logger).Error().Err(err).Msg("failed to list movies")
		http.Error(w, "Failed to fetch movies", http.StatusInternalServerError)
		return
	}

	h.renderer.RenderPage(w, "movies.html", map[string]interface{}{
		"User":       user,
		"ActivePage": "movies",
		"Movies":     result.Results,
		"Query":      input.Query,
		"Category":   input.Category,
		"Country":    input.Country,
		"Categories": models.Categories,
		"Countries":  models.Countries,
		"Page":       result.Page,
		"TotalPages": result.TotalPages,
		"Count":      result.Count,
	})
}

// Analytics handles GET /analytics
func (h *PageHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUserFromContext(r.Context())

	dashboard, err := h.analytics.Dashboard(r.Context())
	if err != nil {
		logFor(r, h.logger).Error().Err(err).Msg("failed to compute dashboard")
		http.Error(w, "Failed to compute statistics", http.StatusInternalServerError)
		return
	}

	h.renderer.RenderPage(w, "analytics.html", map[string]interface{}{
		"User":       user,
		"ActivePage": "analytics",
		"Dashboard":  dashboard,
	})
}
