package database

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrenchBattlesMap/viewer/internal/config"
	"github.com/FrenchBattlesMap/viewer/internal/model"
)

func TestConnect_SQLite(t *testing.T) {
	m := NewManager(zerolog.Nop())
	path := filepath.Join(t.TempDir(), "prefs.db")

	require.NoError(t, m.Connect(config.PreferencesConfig{Type: BackendSQLite, Path: path}))
	t.Cleanup(func() { m.Close() })

	assert.True(t, m.IsValid)
	assert.True(t, m.UsingLocal)
	require.NoError(t, m.Setup())
	assert.True(t, m.DB.Migrator().HasTable(&model.Preference{}))
	assert.FileExists(t, path)
}

func TestConnect_UnknownTypeUsesSQLite(t *testing.T) {
	m := NewManager(zerolog.Nop())
	path := filepath.Join(t.TempDir(), "prefs.db")

	require.NoError(t, m.Connect(config.PreferencesConfig{Type: "mysql", Path: path}))
	t.Cleanup(func() { m.Close() })
	assert.True(t, m.UsingLocal)
}

func TestConnect_PostgresFallsBackToSQLite(t *testing.T) {
	m := NewManager(zerolog.Nop())
	path := filepath.Join(t.TempDir(), "fallback.db")

	err := m.Connect(config.PreferencesConfig{
		Type: BackendPostgres,
		Path: path,
		// nothing listens on port 1
		DB: config.DBConfig{Host: "127.0.0.1", Port: "1", Username: "u", Password: "p", Database: "d"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	assert.True(t, m.IsValid)
	assert.True(t, m.UsingLocal)
}

func TestSetup_NotConnected(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.ErrorIs(t, m.Setup(), ErrNotConnected)
	assert.NoError(t, m.Close())
}
