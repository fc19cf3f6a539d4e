// pkg/core/battle.go
package core

import "fmt"

// Battle is a historical battle as served by the battles API.
// Optional text fields are nil when the service sent null.
type Battle struct {
	ID                int             `json:"id"`
	Name              string          `json:"name"`
	Year              int             `json:"year"`
	Latitude          *float64        `json:"latitude"`
	Longitude         *float64        `json:"longitude"`
	Description       *string         `json:"description"`
	Participants      *string         `json:"participants"`
	Outcome           *string         `json:"outcome"`
	HistoricalContext *string         `json:"historical_context"`
	ImageURL          *string         `json:"image_url"`
	MediaURLs         SerializedField `json:"media_urls"`
	Sources           SerializedField `json:"sources"`
}

// Text returns the value of an optional text field and whether it carries
// anything worth rendering. Empty strings count as absent.
func Text(s *string) (string, bool) {
	if s == nil || *s == "" {
		return "", false
	}
	return *s, true
}

// TextOr returns the optional text or the placeholder when it is absent.
func TextOr(s *string, placeholder string) string {
	if v, ok := Text(s); ok {
		return v
	}
	return placeholder
}

// YearRange is an inclusive range of years.
type YearRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// NewYearRange builds a range, swapping the bounds if they arrive reversed.
func NewYearRange(start, end int) YearRange {
	if start > end {
		start, end = end, start
	}
	return YearRange{Start: start, End: end}
}

// Contains reports whether year lies in [Start, End].
func (r YearRange) Contains(year int) bool {
	return year >= r.Start && year <= r.End
}

func (r YearRange) String() string {
	return fmt.Sprintf("%d - %d", r.Start, r.End)
}

// RenderStats summarizes one render pass over a visible set.
type RenderStats struct {
	Category string
	Visible  int
	Markers  int
	Skipped  int
	Buckets  int
	// HistogramTotal is the sum of all bucket counts.
	HistogramTotal int
}
