package analytics

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteCSV writes the headline statistics and the per-category breakdown
// as two-column CSV.
func (s *Statistics) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	rows := [][]string{
		{"Statistic", "Value"},
		{"Total Movies", strconv.Itoa(s.TotalCount())},
		{"Average Rating", formatNumber(s.AverageRating(DefaultPrecision))},
		{"Rating Std Dev", formatNumber(s.RatingStdDev())},
	}
	for _, share := range s.CategoryShares() {
		rows = append(rows, []string{
			fmt.Sprintf("Category: %s", share.Category),
			fmt.Sprintf("%d (%s%%)", share.Count, formatNumber(share.Percentage)),
		})
	}

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write statistics csv: %w", err)
	}
	return nil
}

// ExportCSV returns WriteCSV's output as a string
func (s *Statistics) ExportCSV() (string, error) {
	var buf bytes.Buffer
	if err := s.WriteCSV(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
