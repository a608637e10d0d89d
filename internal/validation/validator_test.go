package validation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamwears/moviestats/internal/models"
)

func validInput() models.CreateMovieInput {
	rating := 4.2
	return models.CreateMovieInput{
		Title:         "Full River Red",
		Category:      models.CategoryMystery,
		Country:       models.CountryChina,
		ReleaseYear:   2023,
		AverageRating: &rating,
	}
}

func TestValidateCreateMovieInput(t *testing.T) {
	assert.Nil(t, ValidateStruct(validInput()))

	unrated := validInput()
	unrated.AverageRating = nil
	assert.Nil(t, ValidateStruct(unrated), "rating is optional")

	tests := []struct {
		name  string
		edit  func(*models.CreateMovieInput)
		field string
		tag   string
	}{
		{"missing title", func(in *models.CreateMovieInput) { in.Title = "" }, "title", "required"},
		{"unknown category", func(in *models.CreateMovieInput) { in.Category = "Science fiction" }, "category", "category"},
		{"unknown country", func(in *models.CreateMovieInput) { in.Country = "American" }, "country", "country"},
		{"early year", func(in *models.CreateMovieInput) { in.ReleaseYear = 1899 }, "releaseYear", "gte"},
		{"future year", func(in *models.CreateMovieInput) { in.ReleaseYear = time.Now().Year() + 1 }, "releaseYear", "notfutureyear"},
		{"rating too high", func(in *models.CreateMovieInput) { r := 5.1; in.AverageRating = &r }, "averageRating", "lte"},
		{"negative rating", func(in *models.CreateMovieInput) { r := -0.5; in.AverageRating = &r }, "averageRating", "gte"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.edit(&in)

			verr := ValidateStruct(in)
			require.NotNil(t, verr)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
			assert.Equal(t, tt.tag, verr.Fields[0].Tag)
			assert.NotEmpty(t, verr.Error())
		})
	}
}

func TestValidateUpdateMovieInput(t *testing.T) {
	empty := ""
	bad := models.Category("Horror")
	in := models.UpdateMovieInput{ID: uuid.New(), Title: &empty, Category: &bad}

	verr := ValidateStruct(in)
	require.NotNil(t, verr)
	assert.Len(t, verr.Fields, 2)

	ok := models.UpdateMovieInput{ID: uuid.New()}
	assert.Nil(t, ValidateStruct(ok))
}

func TestToAPIError(t *testing.T) {
	in := validInput()
	in.Title = ""
	in.Country = "Atlantis"

	apiErr := ValidateStruct(in).ToAPIError()
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Len(t, apiErr.Details, 2)
	assert.Contains(t, apiErr.Error, "title is required")
	assert.Contains(t, apiErr.Error, "country is not a known country")
}
