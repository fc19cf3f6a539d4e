package store

import (
	"sync"

	"github.com/FrenchBattlesMap/viewer/pkg/core"
)

// Store holds the battles of the last completed fetch together with the range
// that produced them. It is only ever replaced wholesale.
type Store struct {
	mu        sync.RWMutex
	records   []core.Battle
	yearRange core.YearRange
	loaded    bool
}

// New creates an empty Store
func New() *Store {
	return &Store{}
}

// Replace swaps in a new record set for r. Records outside r are dropped.
func (s *Store) Replace(r core.YearRange, records []core.Battle) {
	kept := make([]core.Battle, 0, len(records))
	for _, b := range records {
		if r.Contains(b.Year) {
			kept = append(kept, b)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = kept
	s.yearRange = r
	s.loaded = true
}

// Records returns a copy of the current record set.
func (s *Store) Records() []core.Battle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Battle, len(s.records))
	copy(out, s.records)
	return out
}

// Range returns the range of the current record set, and false before the
// first successful fetch.
func (s *Store) Range() (core.YearRange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.yearRange, s.loaded
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// WithinRange drops nil entries and any battle whose year lies outside r.
// The server's own range filtering is treated as advisory.
func WithinRange(r core.YearRange, battles []*core.Battle) []core.Battle {
	out := make([]core.Battle, 0, len(battles))
	for _, b := range battles {
		if b == nil || !r.Contains(b.Year) {
			continue
		}
		out = append(out, *b)
	}
	return out
}
