package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/liamwears/moviestats/internal/models"
)

// ErrMovieNotFound is returned when no movie has the requested id
var ErrMovieNotFound = fmt.Errorf("movie not found: %w", pgx.ErrNoRows)

const movieColumns = `id, title, category, country, "releaseYear", "averageRating",
	description, "createdBy", "createdAt", "updatedAt"`

// MovieService handles movie catalogue storage
type MovieService struct {
	db *pgxpool.Pool
}

// NewMovieService creates a new MovieService
func NewMovieService(db *pgxpool.Pool) *MovieService {
	return &MovieService{db: db}
}

func scanMovie(row pgx.Row) (*models.Movie, error) {
	var movie models.Movie
	err := row.Scan(
		&movie.ID,
		&movie.Title,
		&movie.Category,
		&movie.Country,
		&movie.ReleaseYear,
		&movie.AverageRating,
		&movie.Description,
		&movie.CreatedBy,
		&movie.CreatedAt,
		&movie.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

func collectMovies(rows pgx.Rows) ([]models.Movie, error) {
	defer rows.Close()

	movies := make([]models.Movie, 0)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}
		movies = append(movies, *movie)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating movies: %w", err)
	}
	return movies, nil
}

// List retrieves movies with pagination and filtering
func (s *MovieService) List(ctx context.Context, input models.ListMoviesInput) (*models.PaginatedMovies, error) {
	// Set defaults
	if input.Page < 1 {
		input.Page = 1
	}
	if input.Limit < 1 || input.Limit > 100 {
		input.Limit = 24
	}

	offset := (input.Page - 1) * input.Limit

	// Build query
	baseQuery := ` FROM "Movie" WHERE TRUE`
	args := []interface{}{}

	if input.Query != "" {
		args = append(args, "%"+input.Query+"%")
		baseQuery += fmt.Sprintf(" AND title ILIKE $%d", len(args))
	}
	if input.Category != "" {
		args = append(args, input.Category)
		baseQuery += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if input.Country != "" {
		args = append(args, input.Country)
		baseQuery += fmt.Sprintf(" AND country = $%d", len(args))
	}

	// Count total
	var total int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*)"+baseQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count movies: %w", err)
	}

	query := "SELECT " + movieColumns + baseQuery +
		fmt.Sprintf(" ORDER BY title, id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, input.Limit, offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query movies: %w", err)
	}
	movies, err := collectMovies(rows)
	if err != nil {
		return nil, err
	}

	return &models.PaginatedMovies{
		Results:    movies,
		Page:       input.Page,
		Count:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(input.Limit))),
	}, nil
}

// All loads the whole catalogue in insertion order. The result is a
// snapshot safe to hand to analytics.
func (s *MovieService) All(ctx context.Context) ([]models.Movie, error) {
	rows, err := s.db.Query(ctx, `SELECT `+movieColumns+` FROM "Movie" ORDER BY "createdAt", id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query movies: %w", err)
	}
	return collectMovies(rows)
}

// Get retrieves a movie by ID
func (s *MovieService) Get(ctx context.Context, id uuid.UUID) (*models.Movie, error) {
	query := `SELECT ` + movieColumns + ` FROM "Movie" WHERE id = $1`

	movie, err := scanMovie(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}
	return movie, nil
}

const insertMovie = `
	INSERT INTO "Movie" (title, category, country, "releaseYear", "averageRating", description, "createdBy")
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING ` + movieColumns

func insertArgs(createdBy *uuid.UUID, input models.CreateMovieInput) []interface{} {
	return []interface{}{
		input.Title,
		input.Category,
		input.Country,
		input.ReleaseYear,
		input.AverageRating,
		input.Description,
		createdBy,
	}
}

// Create creates a new movie. createdBy may be nil for system inserts.
func (s *MovieService) Create(ctx context.Context, createdBy *uuid.UUID, input models.CreateMovieInput) (*models.Movie, error) {
	movie, err := scanMovie(s.db.QueryRow(ctx, insertMovie, insertArgs(createdBy, input)...))
	if err != nil {
		return nil, fmt.Errorf("failed to create movie: %w", err)
	}
	return movie, nil
}

// CreateMany inserts every movie in a single transaction. Either all rows
// are stored or none are.
func (s *MovieService) CreateMany(ctx context.Context, createdBy *uuid.UUID, inputs []models.CreateMovieInput) ([]models.Movie, error) {
	if len(inputs) == 0 {
		return []models.Movie{}, nil
	}

	created := make([]models.Movie, 0, len(inputs))
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, input := range inputs {
			batch.Queue(insertMovie, insertArgs(createdBy, input)...)
		}

		results := tx.SendBatch(ctx, batch)
		defer results.Close()

		for i := range inputs {
			movie, err := scanMovie(results.QueryRow())
			if err != nil {
				return fmt.Errorf("failed to insert movie %d (%q): %w", i+1, inputs[i].Title, err)
			}
			created = append(created, *movie)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update applies the non-nil fields of input
func (s *MovieService) Update(ctx context.Context, input models.UpdateMovieInput) (*models.Movie, error) {
	// Build dynamic update query
	query := `UPDATE "Movie" SET "updatedAt" = NOW()`
	args := []interface{}{}

	set := func(column string, value interface{}) {
		args = append(args, value)
		query += fmt.Sprintf(`, %s = $%d`, column, len(args))
	}

	if input.Title != nil {
		set("title", *input.Title)
	}
	if input.Category != nil {
		set("category", *input.Category)
	}
	if input.Country != nil {
		set("country", *input.Country)
	}
	if input.ReleaseYear != nil {
		set(`"releaseYear"`, *input.ReleaseYear)
	}
	if input.ClearRating {
		query += `, "averageRating" = NULL`
	} else if input.AverageRating != nil {
		set(`"averageRating"`, *input.AverageRating)
	}
	if input.Description != nil {
		set("description", *input.Description)
	}

	args = append(args, input.ID)
	query += fmt.Sprintf(` WHERE id = $%d RETURNING `, len(args)) + movieColumns

	movie, err := scanMovie(s.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update movie: %w", err)
	}
	return movie, nil
}

// Delete deletes a movie
func (s *MovieService) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.Exec(ctx, `DELETE FROM "Movie" WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete movie: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrMovieNotFound
	}
	return nil
}

// DeleteAll empties the catalogue and returns how many movies were removed
func (s *MovieService) DeleteAll(ctx context.Context) (int64, error) {
	result, err := s.db.Exec(ctx, `DELETE FROM "Movie"`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete movies: %w", err)
	}
	return result.RowsAffected(), nil
}
