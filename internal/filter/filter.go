// Package filter selects the visible subset of the stored battles.
package filter

import (
	"strings"

	"github.com/FrenchBattlesMap/viewer/pkg/core"
)

// All is the category that matches every battle.
const All = "all"

// Matches reports whether b belongs to category. Categories are
// case-sensitive name prefixes ("Bataille", "Siège", ...).
func Matches(category string, b core.Battle) bool {
	if category == All {
		return true
	}
	return strings.HasPrefix(b.Name, category)
}

// Apply returns the battles matching category, in their original order.
// The result never aliases records.
func Apply(category string, records []core.Battle) []core.Battle {
	visible := make([]core.Battle, 0, len(records))
	for _, b := range records {
		if Matches(category, b) {
			visible = append(visible, b)
		}
	}
	return visible
}
