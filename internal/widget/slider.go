package widget

import (
	"math"
	"sync"

	"github.com/FrenchBattlesMap/viewer/pkg/core"
)

// pipInterval is the spacing of the labelled slider ticks.
const pipInterval = 500

// RangeSlider is the two-handle year selector. Dragging only moves the
// displayed text; committing also changes the live value that fetches and
// enrichment refreshes read.
type RangeSlider struct {
	mu      sync.RWMutex
	min     int
	max     int
	step    int
	live    core.YearRange
	display core.YearRange
}

// NewRangeSlider creates a slider spanning [lo, hi] with both handles at
// the bounds.
func NewRangeSlider(lo, hi, step int) *RangeSlider {
	full := core.NewYearRange(lo, hi)
	if step <= 0 {
		step = 1
	}
	return &RangeSlider{min: full.Start, max: full.End, step: step, live: full, display: full}
}

func (s *RangeSlider) snap(v float64) int {
	if math.IsNaN(v) || v <= float64(s.min) {
		return s.min
	}
	if v >= float64(s.max) {
		return s.max
	}
	steps := math.Round((v - float64(s.min)) / float64(s.step))
	return min(s.min+int(steps)*s.step, s.max)
}

func (s *RangeSlider) normalize(a, b float64) core.YearRange {
	return core.NewYearRange(s.snap(a), s.snap(b))
}

// Drag moves the handles without committing. It returns the displayed range.
func (s *RangeSlider) Drag(a, b float64) core.YearRange {
	r := s.normalize(a, b)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.display = r
	return r
}

// Commit sets the live range, as when the user releases a handle.
func (s *RangeSlider) Commit(a, b float64) core.YearRange {
	r := s.normalize(a, b)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.display = r
	s.live = r
	return r
}

// Values returns the live range.
func (s *RangeSlider) Values() core.YearRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live
}

// Display returns the text shown next to the slider, "a - b".
func (s *RangeSlider) Display() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.display.String()
}

// Bounds returns the slider extent.
func (s *RangeSlider) Bounds() core.YearRange {
	return core.YearRange{Start: s.min, End: s.max}
}

// Pips returns the labelled tick values.
func (s *RangeSlider) Pips() []int {
	var pips []int
	first := int(math.Ceil(float64(s.min)/pipInterval)) * pipInterval
	for v := first; v <= s.max; v += pipInterval {
		pips = append(pips, v)
	}
	return pips
}
