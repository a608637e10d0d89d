package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamwears/moviestats/internal/models"
)

func counts(dist []BucketCount) []int {
	out := make([]int, len(dist))
	for i, d := range dist {
		out[i] = d.Count
	}
	return out
}

func TestBucketContains(t *testing.T) {
	tests := []struct {
		name   string
		bucket Bucket
		value  float64
		want   bool
	}{
		{"half-open lower edge", HalfOpen(1, 2), 1, true},
		{"half-open upper edge", HalfOpen(1, 2), 2, false},
		{"closed upper edge", Closed(4, 5), 5, true},
		{"open lower edge", Bucket{Min: 1, Max: 2, MaxInclusive: true}, 1, false},
		{"inside", HalfOpen(1, 2), 1.5, true},
		{"below", HalfOpen(1, 2), 0.99, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.bucket.Contains(tt.value))
		})
	}
}

func TestBucketString(t *testing.T) {
	assert.Equal(t, "[0.0, 1.0)", HalfOpen(0, 1).String())
	assert.Equal(t, "[4.0, 5.0]", Closed(4, 5).String())
	assert.Equal(t, "(1.5, 2.5)", Bucket{Min: 1.5, Max: 2.5}.String())
}

func TestRatingDistributionDefaultBuckets(t *testing.T) {
	s := newStats(t,
		movie(1, models.CategoryArt, models.CountryFrance, 2001, rating(0.5)),
		movie(2, models.CategoryArt, models.CountryFrance, 2001, rating(1.0)),
		movie(3, models.CategoryArt, models.CountryFrance, 2001, rating(4.9)),
		movie(4, models.CategoryArt, models.CountryFrance, 2001, rating(5.0)),
		movie(5, models.CategoryArt, models.CountryFrance, 2001, nil),
	)

	dist := s.RatingDistribution(nil)
	require.Len(t, dist, 5)
	// 1.0 lands in [1,2): lower edges are inclusive, upper exclusive except the last
	assert.Equal(t, []int{1, 1, 0, 0, 2}, counts(dist))
	assert.Equal(t, "[0.0, 1.0)", dist[0].Label)
	assert.Equal(t, "[4.0, 5.0]", dist[4].Label)

	assert.Equal(t, dist, s.RatingDistribution(DefaultBuckets()))
}

func TestRatingDistributionOverlapCountsOnce(t *testing.T) {
	s := newStats(t,
		movie(1, models.CategoryArt, models.CountryFrance, 2001, rating(1.0)),
		movie(2, models.CategoryArt, models.CountryFrance, 2001, rating(2.0)),
	)

	dist := s.RatingDistribution([]Bucket{Closed(0, 1), Closed(1, 2), Closed(2, 3)})
	assert.Equal(t, []int{1, 1, 0}, counts(dist))
}

func TestRatingDistributionExcludesOutsideRatings(t *testing.T) {
	s := newStats(t,
		movie(1, models.CategoryArt, models.CountryFrance, 2001, rating(0.5)),
		movie(2, models.CategoryArt, models.CountryFrance, 2001, rating(3.0)),
		movie(3, models.CategoryArt, models.CountryFrance, 2001, rating(4.2)),
	)

	dist := s.RatingDistribution([]Bucket{HalfOpen(0, 1), HalfOpen(4, 4.5)})
	assert.Equal(t, []int{1, 1}, counts(dist))

	total := 0
	for _, d := range dist {
		total += d.Count
	}
	assert.Equal(t, 2, total)
}

func TestBucketsFromEdges(t *testing.T) {
	buckets, err := BucketsFromEdges([]float64{0, 2.5, 5})
	require.NoError(t, err)
	assert.Equal(t, []Bucket{HalfOpen(0, 2.5), Closed(2.5, 5)}, buckets)

	_, err = BucketsFromEdges([]float64{1})
	assert.Error(t, err)

	_, err = BucketsFromEdges([]float64{0, 2, 2})
	assert.Error(t, err)

	_, err = BucketsFromEdges([]float64{math.NaN(), 5})
	assert.Error(t, err)

	_, err = BucketsFromEdges([]float64{0, math.Inf(1)})
	assert.Error(t, err)
}

func TestParseEdges(t *testing.T) {
	buckets, err := ParseEdges("0, 1,2,3,4,5")
	require.NoError(t, err)
	assert.Equal(t, DefaultBuckets(), buckets)

	_, err = ParseEdges("0,one,2")
	assert.Error(t, err)

	for _, raw := range []string{"NaN,5", "0,Inf", "0,NaN,5", "-Inf,0,Inf"} {
		_, err = ParseEdges(raw)
		assert.Error(t, err, raw)
	}
}

func TestStarDistribution(t *testing.T) {
	s := newStats(t,
		movie(1, models.CategoryArt, models.CountryFrance, 2001, rating(5.0)),
		movie(2, models.CategoryArt, models.CountryFrance, 2001, rating(4.5)),
		movie(3, models.CategoryArt, models.CountryFrance, 2001, rating(4.0)),
		movie(4, models.CategoryArt, models.CountryFrance, 2001, rating(1.0)),
		movie(5, models.CategoryArt, models.CountryFrance, 2001, nil),
	)

	assert.Equal(t, []StarShare{
		{Stars: 5, Count: 2, Percentage: 50},
		{Stars: 4, Count: 1, Percentage: 25},
		{Stars: 3, Count: 0, Percentage: 0},
		{Stars: 2, Count: 0, Percentage: 0},
		{Stars: 1, Count: 1, Percentage: 25},
	}, s.StarDistribution())
}
