package analytics

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Bucket is a numeric rating range with its own boundary inclusivity
type Bucket struct {
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	MinInclusive bool    `json:"minInclusive"`
	MaxInclusive bool    `json:"maxInclusive"`
}

// HalfOpen returns the bucket [min, max)
func HalfOpen(min, max float64) Bucket {
	return Bucket{Min: min, Max: max, MinInclusive: true}
}

// Closed returns the bucket [min, max]
func Closed(min, max float64) Bucket {
	return Bucket{Min: min, Max: max, MinInclusive: true, MaxInclusive: true}
}

// Contains reports whether v lies inside the bucket
func (b Bucket) Contains(v float64) bool {
	if v < b.Min || (v == b.Min && !b.MinInclusive) {
		return false
	}
	if v > b.Max || (v == b.Max && !b.MaxInclusive) {
		return false
	}
	return true
}

// String renders the bucket in interval notation, e.g. "[1.0, 2.0)"
func (b Bucket) String() string {
	lo, hi := "(", ")"
	if b.MinInclusive {
		lo = "["
	}
	if b.MaxInclusive {
		hi = "]"
	}
	return lo + formatNumber(b.Min) + ", " + formatNumber(b.Max) + hi
}

// DefaultBuckets are five unit-width buckets over 0-5: [0,1) [1,2) [2,3)
// [3,4) and the closed [4,5] so a perfect 5 is counted.
func DefaultBuckets() []Bucket {
	return []Bucket{
		HalfOpen(0, 1),
		HalfOpen(1, 2),
		HalfOpen(2, 3),
		HalfOpen(3, 4),
		Closed(4, 5),
	}
}

// BucketsFromEdges builds consecutive buckets [e0,e1) [e1,e2) ... with the
// last bucket closed. Edges must be finite, strictly ascending and at least
// two.
func BucketsFromEdges(edges []float64) ([]Bucket, error) {
	if len(edges) < 2 {
		return nil, fmt.Errorf("need at least two edges, got %d", len(edges))
	}
	for _, e := range edges {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			return nil, fmt.Errorf("edge %v is not a finite number", e)
		}
	}

	buckets := make([]Bucket, 0, len(edges)-1)
	for i := 1; i < len(edges); i++ {
		if edges[i] <= edges[i-1] {
			return nil, fmt.Errorf("edges must be strictly ascending: %v after %v", edges[i], edges[i-1])
		}
		b := HalfOpen(edges[i-1], edges[i])
		if i == len(edges)-1 {
			b.MaxInclusive = true
		}
		buckets = append(buckets, b)
	}
	return buckets, nil
}

// ParseEdges parses a comma separated edge list such as "0,1,2.5,5"
func ParseEdges(raw string) ([]Bucket, error) {
	parts := strings.Split(raw, ",")
	edges := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid edge %q", p)
		}
		edges = append(edges, v)
	}
	return BucketsFromEdges(edges)
}

// BucketCount is the number of rated movies that fell in a bucket
type BucketCount struct {
	Bucket Bucket `json:"bucket"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
}

// RatingDistribution counts rated movies per bucket, in bucket order. A
// rating is assigned to the first bucket that contains it, so overlapping
// buckets never count a movie twice. Unrated movies and ratings outside
// every bucket are not counted. An empty bucket list means DefaultBuckets.
func (s *Statistics) RatingDistribution(buckets []Bucket) []BucketCount {
	if len(buckets) == 0 {
		buckets = DefaultBuckets()
	}

	out := make([]BucketCount, len(buckets))
	for i, b := range buckets {
		out[i] = BucketCount{Bucket: b, Label: b.String()}
	}

	for _, r := range s.ratings() {
		for i, b := range buckets {
			if b.Contains(r) {
				out[i].Count++
				break
			}
		}
	}
	return out
}

// StarShare is the share of rated movies that map to a star level
type StarShare struct {
	Stars      int     `json:"stars"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

var starBuckets = []struct {
	stars  int
	bucket Bucket
}{
	{5, Closed(4.5, 5)},
	{4, HalfOpen(3.5, 4.5)},
	{3, HalfOpen(2.5, 3.5)},
	{2, HalfOpen(1.5, 2.5)},
	{1, HalfOpen(0, 1.5)},
}

// StarDistribution maps ratings to 1-5 stars and returns each level's
// share of rated movies, five stars first. It is empty when nothing is
// rated.
func (s *Statistics) StarDistribution() []StarShare {
	rated := len(s.ratings())
	if rated == 0 {
		return []StarShare{}
	}

	buckets := make([]Bucket, len(starBuckets))
	for i, sb := range starBuckets {
		buckets[i] = sb.bucket
	}
	counts := s.RatingDistribution(buckets)

	out := make([]StarShare, len(starBuckets))
	for i, sb := range starBuckets {
		out[i] = StarShare{
			Stars:      sb.stars,
			Count:      counts[i].Count,
			Percentage: round(float64(counts[i].Count)/float64(rated)*100, 1),
		}
	}
	return out
}
