// Package timeline aggregates the visible battles into 25-year periods and
// drives the histogram chart.
package timeline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/FrenchBattlesMap/viewer/pkg/core"
)

// PeriodSize is the width of a histogram bucket in years.
const PeriodSize = 25

// Chart titles.
const (
	TitleDataset = "Nombre de batailles"
	TitleXAxis   = "Période"
	TitleChart   = "Distribution temporelle des batailles"
)

// PeriodStart returns the first year of the period holding year. Negative
// years floor toward minus infinity: -1 belongs to [-25, 0).
func PeriodStart(year int) int {
	q := year / PeriodSize
	if year%PeriodSize != 0 && year < 0 {
		q--
	}
	return q * PeriodSize
}

// Bucket counts the battles of one period [Start, End).
type Bucket struct {
	Start int `json:"start"`
	End   int `json:"end"`
	Count int `json:"count"`
}

// Label formats the bucket as "start - end".
func (b Bucket) Label() string {
	return fmt.Sprintf("%d - %d", b.Start, b.End)
}

// Series is the histogram input, buckets sorted by start year.
type Series struct {
	Title   string   `json:"title"`
	Dataset string   `json:"dataset"`
	XAxis   string   `json:"xAxis"`
	Buckets []Bucket `json:"buckets"`
}

// Labels returns the bucket labels in order.
func (s Series) Labels() []string {
	labels := make([]string, len(s.Buckets))
	for i, b := range s.Buckets {
		labels[i] = b.Label()
	}
	return labels
}

// Counts returns the bucket counts in order.
func (s Series) Counts() []int {
	counts := make([]int, len(s.Buckets))
	for i, b := range s.Buckets {
		counts[i] = b.Count
	}
	return counts
}

// Total is the sum of all bucket counts.
func (s Series) Total() int {
	total := 0
	for _, b := range s.Buckets {
		total += b.Count
	}
	return total
}

// Aggregate buckets the visible battles. Empty periods are not emitted.
func Aggregate(visible []core.Battle) Series {
	counts := make(map[int]int)
	for _, b := range visible {
		counts[PeriodStart(b.Year)]++
	}

	buckets := make([]Bucket, 0, len(counts))
	for start, n := range counts {
		buckets = append(buckets, Bucket{Start: start, End: start + PeriodSize, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Start < buckets[j].Start })

	return Series{
		Title:   TitleChart,
		Dataset: TitleDataset,
		XAxis:   TitleXAxis,
		Buckets: buckets,
	}
}

// Chart is a drawn histogram.
type Chart interface {
	Destroy() error
}

// ChartRenderer draws a series.
type ChartRenderer interface {
	Draw(s Series) (Chart, error)
}

// Aggregator owns the single live chart instance.
type Aggregator struct {
	mu       sync.Mutex
	renderer ChartRenderer
	current  Chart
	last     Series
}

// NewAggregator creates an Aggregator drawing through renderer.
func NewAggregator(renderer ChartRenderer) *Aggregator {
	return &Aggregator{renderer: renderer}
}

// Render destroys the previous chart and draws the histogram of visible.
func (a *Aggregator) Render(visible []core.Battle) (Series, error) {
	s := Aggregate(visible)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current != nil {
		if err := a.current.Destroy(); err != nil {
			return s, fmt.Errorf("destroy previous chart: %w", err)
		}
		a.current = nil
	}

	chart, err := a.renderer.Draw(s)
	if err != nil {
		return s, fmt.Errorf("draw timeline: %w", err)
	}
	a.current = chart
	a.last = s
	return s, nil
}

// Last returns the most recently drawn series.
func (a *Aggregator) Last() Series {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// Close destroys the live chart, if any.
func (a *Aggregator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return nil
	}
	err := a.current.Destroy()
	a.current = nil
	return err
}
