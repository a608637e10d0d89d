package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Provider is the OAuth provider a user signed in with
type Provider string

const (
	ProviderGitHub Provider = "GITHUB"
	ProviderGoogle Provider = "GOOGLE"
)

// User is an account allowed to curate the catalogue
type User struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ProviderID string    `db:"providerId" json:"providerId"`
	Provider   Provider  `db:"provider" json:"provider"`
	Email      string    `db:"email" json:"email"`
	Name       string    `db:"name" json:"name"`
	CreatedAt  time.Time `db:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `db:"updatedAt" json:"updatedAt"`
}

// DisplayName is the name shown in the navigation bar
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(u.Email, "@"); ok && local != "" {
		return local
	}
	return "Signed in"
}

func (p Provider) String() string {
	return string(p)
}

// IsValid checks if the provider is valid
func (p Provider) IsValid() bool {
	return p == ProviderGitHub || p == ProviderGoogle
}
