package analytics

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// round rounds v to places decimals, half away from zero, working on the
// shortest decimal form of v so 2.675 becomes 2.68.
func round(v float64, places int) float64 {
	return decimal.NewFromFloat(v).Round(int32(places)).InexactFloat64()
}

// formatNumber renders v with its shortest decimals, keeping at least one
// fractional digit (4 -> "4.0", 66.67 -> "66.67").
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
