package handlers

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamwears/moviestats/internal/models"
	"github.com/liamwears/moviestats/internal/services"
)

// memoryCatalogue is an in-memory stand-in for the Postgres backed MovieService
type memoryCatalogue struct {
	movies []models.Movie
}

func (c *memoryCatalogue) All(ctx context.Context) ([]models.Movie, error) {
	return append([]models.Movie(nil), c.movies...), nil
}

func (c *memoryCatalogue) List(ctx context.Context, input models.ListMoviesInput) (*models.PaginatedMovies, error) {
	var matched []models.Movie
	for _, m := range c.movies {
		if input.Query != "" && !strings.Contains(strings.ToLower(m.Title), strings.ToLower(input.Query)) {
			continue
		}
		if input.Category != "" && m.Category != input.Category {
			continue
		}
		if input.Country != "" && m.Country != input.Country {
			continue
		}
		matched = append(matched, m)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Title < matched[j].Title })

	start := (input.Page - 1) * input.Limit
	end := start + input.Limit
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}
	return &models.PaginatedMovies{
		Results:    append([]models.Movie{}, matched[start:end]...),
		Page:       input.Page,
		Count:      len(matched),
		TotalPages: (len(matched) + input.Limit - 1) / input.Limit,
	}, nil
}

func (c *memoryCatalogue) Get(ctx context.Context, id uuid.UUID) (*models.Movie, error) {
	for _, m := range c.movies {
		if m.ID == id {
			m := m
			return &m, nil
		}
	}
	return nil, services.ErrMovieNotFound
}

func (c *memoryCatalogue) Create(ctx context.Context, createdBy *uuid.UUID, input models.CreateMovieInput) (*models.Movie, error) {
	created, err := c.CreateMany(ctx, createdBy, []models.CreateMovieInput{input})
	if err != nil {
		return nil, err
	}
	return &created[0], nil
}

func (c *memoryCatalogue) CreateMany(ctx context.Context, createdBy *uuid.UUID, inputs []models.CreateMovieInput) ([]models.Movie, error) {
	out := make([]models.Movie, 0, len(inputs))
	for _, in := range inputs {
		m := models.Movie{
			ID:            uuid.New(),
			Title:         in.Title,
			Category:      in.Category,
			Country:       in.Country,
			ReleaseYear:   in.ReleaseYear,
			AverageRating: in.AverageRating,
			Description:   in.Description,
			CreatedBy:     createdBy,
			CreatedAt:     time.Now(),
			UpdatedAt:     time.Now(),
		}
		c.movies = append(c.movies, m)
		out = append(out, m)
	}
	return out, nil
}

func (c *memoryCatalogue) Update(ctx context.Context, input models.UpdateMovieInput) (*models.Movie, error) {
	for i := range c.movies {
		m := &c.movies[i]
		if m.ID != input.ID {
			continue
		}
		if input.Title != nil {
			m.Title = *input.Title
		}
		if input.AverageRating != nil {
			m.AverageRating = input.AverageRating
		}
		if input.ClearRating {
			m.AverageRating = nil
		}
		out := *m
		return &out, nil
	}
	return nil, services.ErrMovieNotFound
}

func (c *memoryCatalogue) Delete(ctx context.Context, id uuid.UUID) error {
	for i, m := range c.movies {
		if m.ID == id {
			c.movies = append(c.movies[:i], c.movies[i+1:]...)
			return nil
		}
	}
	return services.ErrMovieNotFound
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate(ctx context.Context) {
	c.calls++
}

func ptr[T any](v T) *T {
	return &v
}

func seedMovie(title string, category models.Category, country models.Country, year int, rating *float64) models.Movie {
	return models.Movie{
		ID:            uuid.New(),
		Title:         title,
		Category:      category,
		Country:       country,
		ReleaseYear:   year,
		AverageRating: rating,
	}
}

type testServer struct {
	mux         http.Handler
	catalogue   *memoryCatalogue
	invalidator *countingInvalidator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	catalogue := &memoryCatalogue{movies: []models.Movie{
		seedMovie("The Wandering Earth 2", models.CategoryScienceFiction, models.CountryChina, 2023, ptr(4.2)),
		seedMovie("Avatar: The Way of Water", models.CategoryScienceFiction, models.CountryUnitedStates, 2022, ptr(3.8)),
		seedMovie("Full River Red", models.CategoryMystery, models.CountryChina, 2023, ptr(4.5)),
		seedMovie("Untitled Draft", models.CategoryDrama, models.CountryFrance, 2021, nil),
	}}
	invalidator := &countingInvalidator{}
	logger := zerolog.Nop()

	analyticsService := services.NewAnalyticsService(catalogue, nil, 2, logger)
	transfer := services.NewTransferService(catalogue, logger)
	renderer, err := NewRenderer(logger)
	require.NoError(t, err)

	movies := NewMovieHandler(catalogue, transfer, invalidator, logger)
	stats := NewAnalyticsHandler(analyticsService, logger)
	pages := NewPageHandler(catalogue, analyticsService, renderer, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /movies", pages.Movies)
	mux.HandleFunc("GET /analytics", pages.Analytics)
	mux.HandleFunc("GET /api/movies", movies.List)
	mux.HandleFunc("POST /api/movies", movies.Create)
	mux.HandleFunc("GET /api/movies/export", movies.Export)
	mux.HandleFunc("POST /api/movies/import", movies.Import)
	mux.HandleFunc("GET /api/movies/{id}", movies.Get)
	mux.HandleFunc("PATCH /api/movies/{id}", movies.Update)
	mux.HandleFunc("DELETE /api/movies/{id}", movies.Delete)
	mux.HandleFunc("GET /api/movies/{id}/similar", stats.Similar)
	mux.HandleFunc("GET /api/analytics", stats.Overview)
	mux.HandleFunc("GET /api/analytics/ratings", stats.Ratings)
	mux.HandleFunc("GET /api/analytics/stars", stats.Stars)
	mux.HandleFunc("GET /api/analytics/predict", stats.Predict)
	mux.HandleFunc("GET /api/analytics/export", stats.Export)
	mux.HandleFunc("GET /api/recommendations", stats.Recommend)

	return &testServer{mux: mux, catalogue: catalogue, invalidator: invalidator}
}

func (s *testServer) do(method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestListMovies(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodGet, "/api/movies?country=China", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page models.PaginatedMovies
	decodeBody(t, rec, &page)
	assert.Equal(t, 2, page.Count)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "Full River Red", page.Results[0].Title)

	rec = srv.do(http.MethodGet, "/api/movies?category=Horror", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestCreateMovie(t *testing.T) {
	srv := newTestServer(t)

	body := `{"title":"Spirited Away","category":"Art","country":"Japan","releaseYear":2001,"averageRating":4.8}`
	rec := srv.do(http.MethodPost, "/api/movies", strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.Movie
	decodeBody(t, rec, &created)
	assert.Equal(t, "Spirited Away", created.Title)
	assert.Equal(t, models.CountryJapan, created.Country)
	assert.Len(t, srv.catalogue.movies, 5)
	assert.Equal(t, 1, srv.invalidator.calls)
}

func TestCreateMovieDefaultsCategory(t *testing.T) {
	srv := newTestServer(t)

	body := `{"title":"Untitled","country":"India","releaseYear":2020}`
	rec := srv.do(http.MethodPost, "/api/movies", strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.Movie
	decodeBody(t, rec, &created)
	assert.Equal(t, models.CategoryOthers, created.Category)
	assert.Nil(t, created.AverageRating)
}

func TestCreateMovieRejectsInvalidInput(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed json", `{"title":`, "INVALID_BODY"},
		{"unknown field", `{"title":"A","country":"China","releaseYear":2000,"stars":5}`, "INVALID_BODY"},
		{"empty body", ``, "INVALID_BODY"},
		{"rating out of range", `{"title":"A","country":"China","releaseYear":2000,"averageRating":7}`, "VALIDATION_ERROR"},
		{"unknown country", `{"title":"A","country":"Atlantis","releaseYear":2000}`, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(http.MethodPost, "/api/movies", strings.NewReader(tt.body), "application/json")
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body struct {
				Code string `json:"code"`
			}
			decodeBody(t, rec, &body)
			assert.Equal(t, tt.code, body.Code)
		})
	}
	assert.Len(t, srv.catalogue.movies, 4)
	assert.Zero(t, srv.invalidator.calls)
}

func TestGetUpdateDeleteMovie(t *testing.T) {
	srv := newTestServer(t)
	target := srv.catalogue.movies[0]

	rec := srv.do(http.MethodGet, "/api/movies/"+target.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(http.MethodGet, "/api/movies/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(http.MethodGet, "/api/movies/"+uuid.NewString(), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(http.MethodPatch, "/api/movies/"+target.ID.String(), strings.NewReader(`{"clearRating":true}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated models.Movie
	decodeBody(t, rec, &updated)
	assert.Nil(t, updated.AverageRating)

	rec = srv.do(http.MethodPatch, "/api/movies/"+target.ID.String(), strings.NewReader(`{"title":""}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(http.MethodDelete, "/api/movies/"+target.ID.String(), nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(http.MethodDelete, "/api/movies/"+target.ID.String(), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, 2, srv.invalidator.calls)
}

func TestImportMovies(t *testing.T) {
	srv := newTestServer(t)

	csvBody := "title,category,country,release_year,average_rating\n" +
		"Parasite,Drama,South Korea,2019,4.6\n" +
		"Amélie,Comedy,France,2001,\n"
	rec := srv.do(http.MethodPost, "/api/movies/import", strings.NewReader(csvBody), "text/csv")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Imported int `json:"imported"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, 2, body.Imported)
	assert.Len(t, srv.catalogue.movies, 6)
	assert.Equal(t, 1, srv.invalidator.calls)
}

func TestImportMoviesRejectsBadRow(t *testing.T) {
	srv := newTestServer(t)

	csvBody := "title,country,release_year\nGood,China,2000\nBad,China,1850\n"
	rec := srv.do(http.MethodPost, "/api/movies/import", strings.NewReader(csvBody), "text/csv")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Code string `json:"code"`
		Line int    `json:"line"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, "IMPORT_REJECTED", body.Code)
	assert.Equal(t, 3, body.Line)
	assert.Len(t, srv.catalogue.movies, 4, "nothing stored")
}

func TestExportMovies(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodGet, "/api/movies/export", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "movies-")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "ID,Title,Category"))
}

func TestAnalyticsOverview(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodGet, "/api/analytics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var report struct {
		TotalMovies   int     `json:"totalMovies"`
		AverageRating float64 `json:"averageRating"`
		Highest       struct {
			Title string `json:"title"`
		} `json:"highestRatedMovie"`
	}
	decodeBody(t, rec, &report)
	assert.Equal(t, 4, report.TotalMovies)
	assert.Equal(t, 4.17, report.AverageRating)
	assert.Equal(t, "Full River Red", report.Highest.Title)
}

func TestAnalyticsRatings(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodGet, "/api/analytics/ratings?edges=0,4,5", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var counts []struct {
		Label string `json:"label"`
		Count int    `json:"count"`
	}
	decodeBody(t, rec, &counts)
	require.Len(t, counts, 2)
	assert.Equal(t, 1, counts[0].Count)
	assert.Equal(t, 2, counts[1].Count)

	for _, edges := range []string{"5,4", "1", "a,b", "NaN,5", "0,Inf", "0,NaN,5", "-Inf,0,Inf"} {
		rec := srv.do(http.MethodGet, "/api/analytics/ratings?edges="+edges, nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, edges)
	}
}

func TestWriteJSONUnencodableValue(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"average": math.NaN()})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorBody
	decodeBody(t, rec, &body)
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
}

func TestAnalyticsStars(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodGet, "/api/analytics/stars", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stars []struct {
		Stars int `json:"stars"`
		Count int `json:"count"`
	}
	decodeBody(t, rec, &stars)
	require.Len(t, stars, 5)
	total := 0
	for _, s := range stars {
		total += s.Count
	}
	assert.Equal(t, 3, total)
}

func TestAnalyticsPredict(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodGet, "/api/analytics/predict?category=ScienceFiction&country=China", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var prediction services.Prediction
	decodeBody(t, rec, &prediction)
	// 0.6 * avg(4.2, 3.8) + 0.4 * avg(4.2, 4.5)
	assert.Equal(t, 4.14, prediction.Rating)

	rec = srv.do(http.MethodGet, "/api/analytics/predict?category=ScienceFiction", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(http.MethodGet, "/api/analytics/predict?category=Horror&country=China", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSimilarMovies(t *testing.T) {
	srv := newTestServer(t)
	ref := srv.catalogue.movies[0]

	rec := srv.do(http.MethodGet, "/api/movies/"+ref.ID.String()+"/similar", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var similar []models.Movie
	decodeBody(t, rec, &similar)
	require.Len(t, similar, 1)
	assert.Equal(t, "Avatar: The Way of Water", similar[0].Title)

	rec = srv.do(http.MethodGet, "/api/movies/"+uuid.NewString()+"/similar", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecommendations(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodGet, "/api/recommendations?country=China&min_rating=4.3", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var movies []models.Movie
	decodeBody(t, rec, &movies)
	require.Len(t, movies, 1)
	assert.Equal(t, "Full River Red", movies[0].Title)

	for _, q := range []string{"min_rating=6", "min_rating=abc", "category=Horror", "country=Mars"} {
		rec := srv.do(http.MethodGet, "/api/recommendations?"+q, nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestAnalyticsExport(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodGet, "/api/analytics/export", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	want := "movie-analytics-" + time.Now().Format("2006-01-02") + ".csv"
	assert.Contains(t, rec.Header().Get("Content-Disposition"), want)
	assert.NotEmpty(t, rec.Body.String())
}

func TestPages(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodGet, "/movies?country=China", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Full River Red")
	assert.NotContains(t, rec.Body.String(), "Untitled Draft")

	rec = srv.do(http.MethodGet, "/analytics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Full River Red")
	assert.Contains(t, rec.Body.String(), "Predicted ratings")
}

func TestAnalyticsPageWithEmptyCatalogue(t *testing.T) {
	srv := newTestServer(t)
	srv.catalogue.movies = nil

	rec := srv.do(http.MethodGet, "/analytics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "No rated movies yet")
}

func TestRendererLoginPage(t *testing.T) {
	renderer, err := NewRenderer(zerolog.Nop())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	renderer.RenderPage(rec, "login.html", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/auth/github/login")

	rec = httptest.NewRecorder()
	renderer.RenderPage(rec, "missing.html", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
