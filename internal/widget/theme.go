package widget

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"

	// DarkTileFilter is the CSS filter applied to map tiles in dark mode.
	DarkTileFilter = "invert(90%) hue-rotate(180deg)"

	themeKey = "theme"
)

// PreferenceStore persists user preferences by key.
type PreferenceStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Theme is the light/dark toggle. The last choice is persisted and restored
// on the next start.
type Theme struct {
	mu      sync.Mutex
	store   PreferenceStore
	current string
	logger  *slog.Logger
}

// NewTheme restores the saved theme, falling back to light. A nil store keeps
// the choice in memory only.
func NewTheme(ctx context.Context, store PreferenceStore, logger *slog.Logger) *Theme {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Theme{store: store, current: ThemeLight, logger: logger}
	if store == nil {
		return t
	}

	saved, ok, err := store.Get(ctx, themeKey)
	if err != nil {
		logger.Warn("Failed to load saved theme", "error", err)
		return t
	}
	if ok && (saved == ThemeLight || saved == ThemeDark) {
		t.current = saved
	}
	return t
}

// Current returns the active theme.
func (t *Theme) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// TileFilter returns the CSS filter for the map tiles.
func (t *Theme) TileFilter() string {
	if t.Current() == ThemeDark {
		return DarkTileFilter
	}
	return "none"
}

// Toggle flips the theme and persists it.
func (t *Theme) Toggle(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := ThemeDark
	if t.current == ThemeDark {
		next = ThemeLight
	}
	return next, t.setLocked(ctx, next)
}

// Set switches to theme and persists it. The in-memory choice changes even
// when persisting fails.
func (t *Theme) Set(ctx context.Context, theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("unknown theme %q", theme)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.setLocked(ctx, theme)
}

func (t *Theme) setLocked(ctx context.Context, theme string) error {
	t.current = theme
	if t.store == nil {
		return nil
	}
	if err := t.store.Set(ctx, themeKey, theme); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}
