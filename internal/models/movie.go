package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is the genre bucket a movie is filed under
type Category string

const (
	CategoryScienceFiction Category = "ScienceFiction"
	CategoryMystery        Category = "Mystery"
	CategoryArt            Category = "Art"
	CategoryComedy         Category = "Comedy"
	CategoryDrama          Category = "Drama"
	CategoryOthers         Category = "Others"
)

// Categories lists every valid category in display order
var Categories = []Category{
	CategoryScienceFiction,
	CategoryMystery,
	CategoryArt,
	CategoryComedy,
	CategoryDrama,
	CategoryOthers,
}

// String returns the string representation of Category
func (c Category) String() string {
	return string(c)
}

// IsValid checks if the category is one of Categories
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Country is the production country of a movie
type Country string

const (
	CountryUnitedStates  Country = "United States"
	CountryChina         Country = "China"
	CountryJapan         Country = "Japan"
	CountrySouthKorea    Country = "South Korea"
	CountryUnitedKingdom Country = "United Kingdom"
	CountryFrance        Country = "France"
	CountryIndia         Country = "India"
)

// Countries lists every valid country in display order
var Countries = []Country{
	CountryUnitedStates,
	CountryChina,
	CountryJapan,
	CountrySouthKorea,
	CountryUnitedKingdom,
	CountryFrance,
	CountryIndia,
}

// String returns the string representation of Country
func (c Country) String() string {
	return string(c)
}

// IsValid checks if the country is one of Countries
func (c Country) IsValid() bool {
	for _, known := range Countries {
		if c == known {
			return true
		}
	}
	return false
}

// MinReleaseYear is the earliest release year accepted in the catalogue
const MinReleaseYear = 1900

// Movie represents a movie in the catalogue
type Movie struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	Title         string     `db:"title" json:"title"`
	Category      Category   `db:"category" json:"category"`
	Country       Country    `db:"country" json:"country"`
	ReleaseYear   int        `db:"releaseYear" json:"releaseYear"`
	AverageRating *float64   `db:"averageRating" json:"averageRating"`
	Description   *string    `db:"description" json:"description"`
	CreatedBy     *uuid.UUID `db:"createdBy" json:"createdBy,omitempty"`
	CreatedAt     time.Time  `db:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updatedAt" json:"updatedAt"`
}

// Rated reports whether the movie has an average rating
func (m Movie) Rated() bool {
	return m.AverageRating != nil
}

// RatingOrZero returns the rating, treating an unrated movie as 0
func (m Movie) RatingOrZero() float64 {
	if m.AverageRating == nil {
		return 0
	}
	return *m.AverageRating
}

// CreateMovieInput represents the input for creating a movie
type CreateMovieInput struct {
	Title         string   `json:"title" validate:"required,max=255"`
	Category      Category `json:"category" validate:"required,category"`
	Country       Country  `json:"country" validate:"required,country"`
	ReleaseYear   int      `json:"releaseYear" validate:"gte=1900,notfutureyear"`
	AverageRating *float64 `json:"averageRating,omitempty" validate:"omitempty,gte=0,lte=5"`
	Description   *string  `json:"description,omitempty"`
}

// UpdateMovieInput represents the input for updating a movie
type UpdateMovieInput struct {
	ID            uuid.UUID `json:"id" validate:"required"`
	Title         *string   `json:"title,omitempty" validate:"omitnil,min=1,max=255"`
	Category      *Category `json:"category,omitempty" validate:"omitempty,category"`
	Country       *Country  `json:"country,omitempty" validate:"omitempty,country"`
	ReleaseYear   *int      `json:"releaseYear,omitempty" validate:"omitempty,gte=1900,notfutureyear"`
	AverageRating *float64  `json:"averageRating,omitempty" validate:"omitempty,gte=0,lte=5"`
	ClearRating   bool      `json:"clearRating,omitempty"`
	Description   *string   `json:"description,omitempty"`
}

// ListMoviesInput represents the input for listing movies
type ListMoviesInput struct {
	Query    string   `query:"query"`
	Category Category `query:"category" validate:"omitempty,category"`
	Country  Country  `query:"country" validate:"omitempty,country"`
	Page     int      `query:"page" validate:"min=1"`
	Limit    int      `query:"limit" validate:"min=1,max=100"`
}

// PaginatedMovies represents a paginated list of movies
type PaginatedMovies struct {
	Results    []Movie `json:"results"`
	Page       int     `json:"page"`
	Count      int     `json:"count"`
	TotalPages int     `json:"totalPages"`
}
