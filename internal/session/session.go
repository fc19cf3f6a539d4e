// Package session binds the viewer controls to the dispatcher: every UI
// signal is an event whose handler updates a widget and drives the
// controller.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/FrenchBattlesMap/viewer/internal/controller"
	"github.com/FrenchBattlesMap/viewer/internal/dispatcher"
	"github.com/FrenchBattlesMap/viewer/internal/widget"
	"github.com/FrenchBattlesMap/viewer/pkg/core"
)

// Commands understood by the session.
const (
	CmdRangeDrag      = "range:drag"
	CmdRangeChange    = "range:change"
	CmdCategorySelect = "category:select"
	CmdBattleEnrich   = "battle:enrich"
	CmdThemeToggle    = "theme:toggle"
	CmdDensityToggle  = "density:toggle"
)

// Observer is told about state the user sees outside the map and histogram.
type Observer interface {
	RangeDisplayed(text string)
	Rendered(stats core.RenderStats)
	ThemeChanged(theme, tileFilter string)
	DensityChanged(visible bool, label string)
}

// Controller is the part of controller.Controller the session drives.
type Controller interface {
	RequestRange(ctx context.Context, start, end int) error
	ApplyCategory(category string) (core.RenderStats, error)
	Enrich(ctx context.Context, id int) error
	State() controller.State
}

// Deps holds the widgets and controller of one session.
type Deps struct {
	Controller Controller
	Slider     *widget.RangeSlider
	Categories *widget.CategoryButtons
	Theme      *widget.Theme
	Density    *widget.DensityToggle
	Observer   Observer
	Logger     *slog.Logger
}

// Manager owns the handlers of one session.
type Manager struct {
	ctx  context.Context
	deps Deps
}

// NewManager creates a Manager. ctx bounds every network call the handlers
// make.
func NewManager(ctx context.Context, deps Deps) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	return &Manager{ctx: ctx, deps: deps}
}

// RegisterHandlers registers all session handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Slider drag only moves the displayed text - sync
	d.Register(CmdRangeDrag, m.handleRangeDrag)
	// Slider release fetches - buffered, newest range wins
	d.Register(CmdRangeChange, m.handleRangeChange, dispatcher.Buffered(8), dispatcher.Coalesced(), dispatcher.Logged())

	// Filtering works on the store only - sync
	d.Register(CmdCategorySelect, m.handleCategorySelect, dispatcher.Logged())

	// Popup action - buffered
	d.Register(CmdBattleEnrich, m.handleBattleEnrich, dispatcher.Buffered(16), dispatcher.Logged())

	// Display toggles - sync
	d.Register(CmdThemeToggle, m.handleThemeToggle, dispatcher.Logged())
	d.Register(CmdDensityToggle, m.handleDensityToggle, dispatcher.Logged())
}

func parseRange(args []string) (float64, float64, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("expected 2 arguments, got %d", len(args))
	}
	a, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start year %q: %w", args[0], err)
	}
	b, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end year %q: %w", args[1], err)
	}
	return a, b, nil
}

func (m *Manager) handleRangeDrag(e dispatcher.Event) (any, error) {
	a, b, err := parseRange(e.Args)
	if err != nil {
		return nil, err
	}
	m.deps.Slider.Drag(a, b)
	text := m.deps.Slider.Display()
	m.deps.Observer.RangeDisplayed(text)
	return text, nil
}

func (m *Manager) handleRangeChange(e dispatcher.Event) (any, error) {
	a, b, err := parseRange(e.Args)
	if err != nil {
		return nil, err
	}
	r := m.deps.Slider.Commit(a, b)
	m.deps.Observer.RangeDisplayed(m.deps.Slider.Display())

	err = m.deps.Controller.RequestRange(m.ctx, r.Start, r.End)
	if errors.Is(err, controller.ErrSuperseded) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	st := m.deps.Controller.State()
	m.deps.Observer.Rendered(st.Last)
	return st.Last, nil
}

func (m *Manager) handleCategorySelect(e dispatcher.Event) (any, error) {
	if len(e.Args) != 1 {
		return nil, fmt.Errorf("expected 1 argument, got %d", len(e.Args))
	}
	if err := m.deps.Categories.Select(e.Args[0]); err != nil {
		return nil, err
	}
	stats, err := m.deps.Controller.ApplyCategory(e.Args[0])
	if err != nil {
		return nil, err
	}
	m.deps.Observer.Rendered(stats)
	return stats, nil
}

func (m *Manager) handleBattleEnrich(e dispatcher.Event) (any, error) {
	if len(e.Args) != 1 {
		return nil, fmt.Errorf("expected 1 argument, got %d", len(e.Args))
	}
	id, err := strconv.Atoi(e.Args[0])
	if err != nil {
		return nil, fmt.Errorf("invalid battle id %q: %w", e.Args[0], err)
	}
	if err := m.deps.Controller.Enrich(m.ctx, id); err != nil {
		return nil, err
	}
	m.deps.Observer.Rendered(m.deps.Controller.State().Last)
	return id, nil
}

func (m *Manager) handleThemeToggle(e dispatcher.Event) (any, error) {
	theme, err := m.deps.Theme.Toggle(m.ctx)
	m.deps.Observer.ThemeChanged(theme, m.deps.Theme.TileFilter())
	if err != nil {
		// the theme still applies for this session
		m.deps.Logger.Warn("Failed to persist theme", "theme", theme, "error", err)
	}
	return theme, nil
}

func (m *Manager) handleDensityToggle(e dispatcher.Event) (any, error) {
	visible, err := m.deps.Density.Toggle()
	m.deps.Observer.DensityChanged(visible, m.deps.Density.Label())
	if err != nil {
		return visible, fmt.Errorf("redraw timeline: %w", err)
	}
	return visible, nil
}

type nopObserver struct{}

func (nopObserver) RangeDisplayed(string) {}
func (nopObserver) Rendered(core.RenderStats) {}
func (nopObserver) ThemeChanged(string, string) {}
func (nopObserver) DensityChanged(bool, string) {}
