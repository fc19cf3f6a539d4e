package widget

import (
	"fmt"
	"sync"

	"github.com/FrenchBattlesMap/viewer/internal/filter"
)

// Categories are the filter buttons, in display order.
var Categories = []string{filter.All, "Bataille", "Siège", "Escarmouche", "Défense", "Assaut"}

// ButtonState is one category button.
type ButtonState struct {
	Category string `json:"category"`
	Active   bool   `json:"active"`
}

// CategoryButtons is a group of mutually exclusive filter buttons.
type CategoryButtons struct {
	mu     sync.RWMutex
	active string
}

func NewCategoryButtons() *CategoryButtons {
	return &CategoryButtons{active: filter.All}
}

// Select activates category, deactivating every other button.
func (c *CategoryButtons) Select(category string) error {
	if !knownCategory(category) {
		return fmt.Errorf("unknown category %q", category)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = category
	return nil
}

// Active returns the selected category.
func (c *CategoryButtons) Active() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// States returns every button with its active flag.
func (c *CategoryButtons) States() []ButtonState {
	active := c.Active()
	states := make([]ButtonState, len(Categories))
	for i, cat := range Categories {
		states[i] = ButtonState{Category: cat, Active: cat == active}
	}
	return states
}

func knownCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}
