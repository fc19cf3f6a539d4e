package preferences

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrenchBattlesMap/viewer/internal/config"
	"github.com/FrenchBattlesMap/viewer/internal/database"
	"github.com/FrenchBattlesMap/viewer/internal/widget"
)

func newStore(t *testing.T, path string) *Store {
	t.Helper()
	m := database.NewManager(zerolog.Nop())
	require.NoError(t, m.Connect(config.PreferencesConfig{Type: database.BackendSQLite, Path: path}))
	require.NoError(t, m.Setup())
	t.Cleanup(func() { m.Close() })
	return New(m.DB, zerolog.Nop())
}

func TestGet_Missing(t *testing.T) {
	s := newStore(t, filepath.Join(t.TempDir(), "prefs.db"))

	v, ok, err := s.Get(context.Background(), "theme")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestSet_Upsert(t *testing.T) {
	s := newStore(t, filepath.Join(t.TempDir(), "prefs.db"))
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "theme", "dark"))
	require.NoError(t, s.Set(ctx, "theme", "light"))
	require.NoError(t, s.Set(ctx, "density", "hidden"))

	v, ok, err := s.Get(ctx, "theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "light", v)

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"theme": "light", "density": "hidden"}, all)
}

func TestThemeRestoredAcrossSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	ctx := context.Background()

	first := widget.NewTheme(ctx, newStore(t, path), nil)
	assert.Equal(t, widget.ThemeLight, first.Current())
	theme, err := first.Toggle(ctx)
	require.NoError(t, err)
	assert.Equal(t, widget.ThemeDark, theme)

	second := widget.NewTheme(ctx, newStore(t, path), nil)
	assert.Equal(t, widget.ThemeDark, second.Current())
	assert.Equal(t, widget.DarkTileFilter, second.TileFilter())
}
