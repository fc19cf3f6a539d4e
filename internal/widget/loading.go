// Package widget holds the interactive controls of the viewer: the year range
// slider, category buttons, loading indicator, notifications, theme and the
// histogram panel toggle.
package widget

import "sync"

// LoadingIndicator is visible while at least one operation is in flight.
type LoadingIndicator struct {
	mu       sync.Mutex
	depth    int
	onChange func(visible bool)
}

// NewLoadingIndicator creates a hidden indicator. onChange, if set, is called
// on every visibility transition while the indicator's lock is held and must
// not call back into it.
func NewLoadingIndicator(onChange func(visible bool)) *LoadingIndicator {
	return &LoadingIndicator{onChange: onChange}
}

// Start marks one more operation in flight.
func (l *LoadingIndicator) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.depth++
	if l.depth == 1 && l.onChange != nil {
		l.onChange(true)
	}
}

// Stop marks one operation done. Extra calls are ignored.
func (l *LoadingIndicator) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.depth == 0 {
		return
	}
	l.depth--
	if l.depth == 0 && l.onChange != nil {
		l.onChange(false)
	}
}

// Visible reports whether any operation is in flight.
func (l *LoadingIndicator) Visible() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.depth > 0
}
