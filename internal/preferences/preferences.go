// Package preferences persists viewer settings in the viewer database.
package preferences

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/FrenchBattlesMap/viewer/internal/model"
)

// Store is a key/value preference store backed by the preferences table.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// New returns a Store over db. The preferences table must already exist,
// see database.Manager.Setup.
func New(db *gorm.DB, logger zerolog.Logger) *Store {
	return &Store{db: db, logger: logger.With().Str("component", "preferences").Logger()}
}

// Get returns the stored value of key. ok is false when the key was never set.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var p model.Preference
	err := s.db.WithContext(ctx).Where(&model.Preference{Key: key}).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference %q: %w", key, err)
	}
	return p.Value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&model.Preference{Key: key, Value: value}).Error
	if err != nil {
		return fmt.Errorf("set preference %q: %w", key, err)
	}
	s.logger.Debug().Str("key", key).Str("value", value).Msg("Preference saved")
	return nil
}

// All returns every stored preference keyed by name.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	var prefs []model.Preference
	if err := s.db.WithContext(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).Find(&prefs).Error; err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	out := make(map[string]string, len(prefs))
	for _, p := range prefs {
		out[p.Key] = p.Value
	}
	return out, nil
}
