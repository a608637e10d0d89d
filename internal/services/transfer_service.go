package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/liamwears/moviestats/internal/metrics"
	"github.com/liamwears/moviestats/internal/models"
	"github.com/liamwears/moviestats/internal/validation"
)

// MovieStore is the catalogue storage used by imports and exports
type MovieStore interface {
	All(ctx context.Context) ([]models.Movie, error)
	CreateMany(ctx context.Context, createdBy *uuid.UUID, inputs []models.CreateMovieInput) ([]models.Movie, error)
}

// ImportError reports the CSV line that stopped an import
type ImportError struct {
	Line int
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

var exportHeader = []string{"ID", "Title", "Category", "Country", "Release Year", "Rating", "Description"}

// columnAliases maps normalized header names onto import fields, so an
// export can be imported again unchanged.
var columnAliases = map[string]string{
	"title":          "title",
	"category":       "category",
	"country":        "country",
	"release_year":   "release_year",
	"year":           "release_year",
	"average_rating": "average_rating",
	"rating":         "average_rating",
	"description":    "description",
}

var requiredColumns = []string{"title", "country", "release_year"}

// TransferService imports and exports the catalogue as CSV
type TransferService struct {
	store  MovieStore
	logger zerolog.Logger
}

// NewTransferService creates a new TransferService
func NewTransferService(store MovieStore, logger zerolog.Logger) *TransferService {
	return &TransferService{
		store:  store,
		logger: logger.With().Str("component", "transfer").Logger(),
	}
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.ReplaceAll(h, " ", "_")
}

// ParseMoviesCSV reads movies from CSV with a header row. A blank
// category becomes Others and a blank rating leaves the movie unrated.
// Every row is validated; the first bad row aborts with an *ImportError.
func ParseMoviesCSV(r io.Reader) ([]models.CreateMovieInput, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ImportError{Line: 1, Err: errors.New("empty file")}
	}
	if err != nil {
		return nil, &ImportError{Line: 1, Err: fmt.Errorf("failed to read header: %w", err)}
	}

	index := make(map[string]int)
	for i, h := range header {
		if field, ok := columnAliases[normalizeHeader(h)]; ok {
			index[field] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, &ImportError{Line: 1, Err: fmt.Errorf("missing column %q", col)}
		}
	}

	inputs := make([]models.CreateMovieInput, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, &ImportError{Line: parseErr.Line, Err: parseErr.Err}
			}
			return nil, &ImportError{Err: err}
		}
		line, _ := reader.FieldPos(0)

		input, err := parseRow(record, index)
		if err != nil {
			return nil, &ImportError{Line: line, Err: err}
		}
		if verr := validation.ValidateStruct(input); verr != nil {
			return nil, &ImportError{Line: line, Err: verr}
		}
		inputs = append(inputs, *input)
	}

	return inputs, nil
}

func parseRow(record []string, index map[string]int) (*models.CreateMovieInput, error) {
	get := func(field string) string {
		i, ok := index[field]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	input := &models.CreateMovieInput{
		Title:    get("title"),
		Category: models.Category(get("category")),
		Country:  models.Country(get("country")),
	}
	if input.Category == "" {
		input.Category = models.CategoryOthers
	}

	year, err := strconv.Atoi(get("release_year"))
	if err != nil {
		return nil, fmt.Errorf("invalid release year %q", get("release_year"))
	}
	input.ReleaseYear = year

	if raw := get("average_rating"); raw != "" {
		rating, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rating %q", raw)
		}
		input.AverageRating = &rating
	}

	if desc := get("description"); desc != "" {
		input.Description = &desc
	}
	return input, nil
}

// Import parses r and stores every movie in one transaction. It returns
// the created movies; nothing is stored if any row is rejected.
func (s *TransferService) Import(ctx context.Context, createdBy *uuid.UUID, r io.Reader) ([]models.Movie, error) {
	inputs, err := ParseMoviesCSV(r)
	if err != nil {
		metrics.ImportedRows.WithLabelValues("rejected").Inc()
		s.logger.Info().Err(err).Msg("csv import rejected")
		return nil, err
	}

	created, err := s.store.CreateMany(ctx, createdBy, inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to store imported movies: %w", err)
	}

	metrics.ImportedRows.WithLabelValues("accepted").Add(float64(len(created)))
	s.logger.Info().Int("movies", len(created)).Msg("csv import stored")
	return created, nil
}

// Export writes the whole catalogue as CSV
func (s *TransferService) Export(ctx context.Context, w io.Writer) error {
	movies, err := s.store.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalogue: %w", err)
	}
	return WriteMoviesCSV(w, movies)
}

// WriteMoviesCSV writes movies with the export header. Unrated movies
// have an empty rating cell.
func WriteMoviesCSV(w io.Writer, movies []models.Movie) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, m := range movies {
		rating := ""
		if m.AverageRating != nil {
			rating = strconv.FormatFloat(*m.AverageRating, 'f', -1, 64)
		}
		description := ""
		if m.Description != nil {
			description = *m.Description
		}

		row := []string{
			m.ID.String(),
			m.Title,
			m.Category.String(),
			m.Country.String(),
			strconv.Itoa(m.ReleaseYear),
			rating,
			description,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write movie %s: %w", m.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
