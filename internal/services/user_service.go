package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/liamwears/moviestats/internal/models"
)

const userColumns = `id, "providerId", provider, email, name, "createdAt", "updatedAt"`

// UserService stores accounts created through OAuth sign-in
type UserService struct {
	db *pgxpool.Pool
}

// NewUserService creates a new UserService
func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.ProviderID,
		&user.Provider,
		&user.Email,
		&user.Name,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindOrCreate finds a user by provider ID or creates a new one. A
// returning user's email and name are refreshed from the provider.
func (s *UserService) FindOrCreate(ctx context.Context, providerID string, provider models.Provider, email, name string) (*models.User, error) {
	user, err := s.FindByProviderID(ctx, provider, providerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.Create(ctx, providerID, provider, email, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.Email != email || user.Name != name {
		return s.Update(ctx, user.ID, email, name)
	}
	return user, nil
}

// FindByProviderID finds a user by their provider and provider ID
func (s *UserService) FindByProviderID(ctx context.Context, provider models.Provider, providerID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM "User" WHERE provider = $1 AND "providerId" = $2`
	return scanUser(s.db.QueryRow(ctx, query, provider, providerID))
}

// Create creates a new user
func (s *UserService) Create(ctx context.Context, providerID string, provider models.Provider, email, name string) (*models.User, error) {
	if !provider.IsValid() {
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}

	query := `
		INSERT INTO "User" ("providerId", provider, email, name)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	user, err := scanUser(s.db.QueryRow(ctx, query, providerID, provider, email, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Get retrieves a user by ID
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM "User" WHERE id = $1`, id))
}

// Update refreshes a user's email and display name
func (s *UserService) Update(ctx context.Context, id uuid.UUID, email, name string) (*models.User, error) {
	query := `
		UPDATE "User"
		SET email = $2, name = $3, "updatedAt" = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(s.db.QueryRow(ctx, query, id, email, name))
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}
