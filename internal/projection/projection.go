// Package projection places the visible battles on the map as markers.
package projection

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/FrenchBattlesMap/viewer/internal/geo"
	"github.com/FrenchBattlesMap/viewer/internal/popup"
	"github.com/FrenchBattlesMap/viewer/pkg/core"
)

// Marker is a positioned battle with its bound popup.
type Marker struct {
	BattleID int           `json:"battleId"`
	Name     string        `json:"name"`
	Year     int           `json:"year"`
	Position geo.LatLng    `json:"position"`
	Popup    popup.Content `json:"popup"`
}

// MarkerLayer is the clustered marker group owned by the map view.
type MarkerLayer interface {
	ClearLayers() error
	AddMarker(m Marker) error
}

// UnrenderableRecordWarning describes a battle that could not be placed.
type UnrenderableRecordWarning struct {
	BattleID int
	Name     string
	Err      error
}

func (w UnrenderableRecordWarning) Error() string {
	return fmt.Sprintf("battle %d (%s) not rendered: %v", w.BattleID, w.Name, w.Err)
}

func (w UnrenderableRecordWarning) Unwrap() error {
	return w.Err
}

// Result reports what a render placed and what it skipped.
type Result struct {
	Markers int
	Skipped []UnrenderableRecordWarning
}

// Projection renders battle sets into a MarkerLayer.
type Projection struct {
	layer  MarkerLayer
	popups *popup.Builder
	logger *slog.Logger
}

// New creates a Projection drawing into layer.
func New(layer MarkerLayer, popups *popup.Builder, logger *slog.Logger) *Projection {
	if logger == nil {
		logger = slog.Default()
	}
	if popups == nil {
		popups = popup.NewBuilder(popup.DefaultOptions(), logger)
	}
	return &Projection{layer: layer, popups: popups, logger: logger}
}

// Render clears the layer and adds one marker per renderable battle.
// Battles without usable coordinates, or whose popup fails to build, are
// skipped with a warning; the rest of the set still renders.
func (p *Projection) Render(visible []core.Battle) (Result, error) {
	if err := p.layer.ClearLayers(); err != nil {
		return Result{}, fmt.Errorf("clear marker layer: %w", err)
	}

	var res Result
	for _, b := range visible {
		pos, err := geo.FromOptional(b.Latitude, b.Longitude)
		if err != nil {
			res.Skipped = append(res.Skipped, p.skip(b, err))
			continue
		}

		content, err := p.popups.Build(b)
		if err != nil {
			res.Skipped = append(res.Skipped, p.skip(b, err))
			continue
		}

		m := Marker{
			BattleID: b.ID,
			Name:     b.Name,
			Year:     b.Year,
			Position: pos,
			Popup:    content,
		}
		if err := p.layer.AddMarker(m); err != nil {
			return res, fmt.Errorf("add marker for battle %d: %w", b.ID, err)
		}
		res.Markers++
	}
	return res, nil
}

func (p *Projection) skip(b core.Battle, err error) UnrenderableRecordWarning {
	w := UnrenderableRecordWarning{BattleID: b.ID, Name: b.Name, Err: err}
	if errors.Is(err, geo.ErrMissingCoordinates) {
		p.logger.Debug("skipping battle without coordinates", "battleId", b.ID)
	} else {
		p.logger.Warn("skipping unrenderable battle", "battleId", b.ID, "error", err)
	}
	return w
}
