// Package controller owns the viewer session: it fetches battles for the
// selected year range, keeps the record store, applies the category filter
// and drives both projections from one visible set.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FrenchBattlesMap/viewer/internal/filter"
	"github.com/FrenchBattlesMap/viewer/internal/projection"
	"github.com/FrenchBattlesMap/viewer/internal/store"
	"github.com/FrenchBattlesMap/viewer/internal/timeline"
	"github.com/FrenchBattlesMap/viewer/pkg/core"
)

// ErrSuperseded is returned by a range request whose result was discarded
// because a newer request was issued while it was in flight.
var ErrSuperseded = errors.New("range request superseded")

// User-facing messages.
const (
	MsgFetchFailed     = "Error loading battle data. Please try again."
	MsgEnrichFailed    = "Erreur lors de l'enrichissement des informations. Veuillez réessayer."
	MsgEnrichSucceeded = "Informations enrichies avec succès !"
)

// Source is the battles data service.
type Source interface {
	FetchBattles(ctx context.Context, start, end int) ([]*core.Battle, error)
	Enrich(ctx context.Context, id int) (json.RawMessage, error)
}

// MapRenderer places the visible set on the map.
type MapRenderer interface {
	Render(visible []core.Battle) (projection.Result, error)
}

// TimelineRenderer draws the histogram of the visible set.
type TimelineRenderer interface {
	Render(visible []core.Battle) (timeline.Series, error)
}

// Loading is the busy indicator.
type Loading interface {
	Start()
	Stop()
}

// Notifier shows one blocking message to the user.
type Notifier interface {
	Alert(message string)
}

// RangeSelector exposes the live value of the year range control.
type RangeSelector interface {
	Values() core.YearRange
}

// Recorder receives session telemetry.
type Recorder interface {
	RecordFetch(r core.YearRange, records int, took time.Duration, err error)
	RecordRender(stats core.RenderStats)
}

// Dependencies wires a Controller. Loading and Recorder are optional.
type Dependencies struct {
	Source   Source
	Map      MapRenderer
	Timeline TimelineRenderer
	Loading  Loading
	Notifier Notifier
	Range    RangeSelector
	Recorder Recorder
	Logger   *slog.Logger
}

// State is a snapshot of the session.
type State struct {
	Range    core.YearRange
	Loaded   bool
	Category string
	Records  int
	Last     core.RenderStats
}

// Controller coordinates fetches, filtering and rendering.
type Controller struct {
	deps    Dependencies
	store   *store.Store
	metrics *metrics

	mu       sync.Mutex
	category string
	token    uint64
	cancel   context.CancelFunc

	// renderMu serializes store commits and render passes so that the map
	// and the histogram always see the same snapshot.
	renderMu sync.Mutex
	last     core.RenderStats
}

// New creates a Controller with the "all" category and an empty store.
func New(deps Dependencies) (*Controller, error) {
	if deps.Source == nil || deps.Map == nil || deps.Timeline == nil {
		return nil, errors.New("controller needs a source, a map and a timeline")
	}
	if deps.Notifier == nil {
		return nil, errors.New("controller needs a notifier")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	m, err := newMetrics()
	if err != nil {
		return nil, err
	}
	return &Controller{
		deps:     deps,
		store:    store.New(),
		metrics:  m,
		category: filter.All,
	}, nil
}

func (c *Controller) startLoading() {
	if c.deps.Loading != nil {
		c.deps.Loading.Start()
	}
}

func (c *Controller) stopLoading() {
	if c.deps.Loading != nil {
		c.deps.Loading.Stop()
	}
}

// begin takes a new supersession token and cancels the fetch it replaces.
func (c *Controller) begin(ctx context.Context) (context.Context, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.token++
	fetchCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	return fetchCtx, c.token
}

func (c *Controller) current(token uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token == token
}

func (c *Controller) finish(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == token && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// RequestRange fetches the battles of [start, end], replaces the store and
// re-renders. Reversed bounds are swapped. Only the most recently issued
// request may commit; older ones return ErrSuperseded.
func (c *Controller) RequestRange(ctx context.Context, start, end int) error {
	r := core.NewYearRange(start, end)
	fetchCtx, token := c.begin(ctx)
	defer c.finish(token)

	c.startLoading()
	defer c.stopLoading()

	rangeAttr := metric.WithAttributes(attribute.String("range", r.String()))
	c.metrics.fetchRequests.Add(ctx, 1, rangeAttr)

	began := time.Now()
	battles, err := c.deps.Source.FetchBattles(fetchCtx, r.Start, r.End)
	took := time.Since(began)
	c.metrics.fetchDuration.Record(ctx, took.Seconds())

	if !c.current(token) {
		c.metrics.fetchSuperseded.Add(ctx, 1, rangeAttr)
		c.deps.Logger.Debug("discarding superseded range", "range", r.String())
		return ErrSuperseded
	}
	if err != nil {
		c.recordFetch(r, 0, took, err)
		c.metrics.fetchFailures.Add(ctx, 1, rangeAttr)
		if ctx.Err() != nil {
			c.deps.Logger.Debug("range request cancelled", "range", r.String())
			return err
		}
		c.deps.Logger.Error("Error fetching battles", "range", r.String(), "error", err)
		c.deps.Notifier.Alert(MsgFetchFailed)
		return err
	}

	records := store.WithinRange(r, battles)
	if dropped := len(battles) - len(records); dropped > 0 {
		c.deps.Logger.Debug("dropped records outside range or undecodable", "range", r.String(), "dropped", dropped)
	}
	c.recordFetch(r, len(records), took, nil)

	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	if !c.current(token) {
		c.metrics.fetchSuperseded.Add(ctx, 1, rangeAttr)
		return ErrSuperseded
	}
	c.store.Replace(r, records)
	c.deps.Logger.Info("Battles loaded", "range", r.String(), "count", len(records))

	if _, err := c.renderLocked(ctx); err != nil {
		c.deps.Logger.Error("Error rendering battles", "range", r.String(), "error", err)
		c.deps.Notifier.Alert(MsgFetchFailed)
		return err
	}
	return nil
}

func (c *Controller) recordFetch(r core.YearRange, n int, took time.Duration, err error) {
	if c.deps.Recorder != nil {
		c.deps.Recorder.RecordFetch(r, n, took, err)
	}
}

// ApplyCategory changes the filter and re-renders from the store. No network
// access happens.
func (c *Controller) ApplyCategory(category string) (core.RenderStats, error) {
	c.mu.Lock()
	c.category = category
	c.mu.Unlock()

	c.deps.Logger.Debug("category selected", "category", category)
	return c.Rerender()
}

// Category returns the active category.
func (c *Controller) Category() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.category
}

// Rerender draws both projections again from the current store.
func (c *Controller) Rerender() (core.RenderStats, error) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	return c.renderLocked(context.Background())
}

// RerenderTimeline redraws only the histogram, as when its panel is shown.
func (c *Controller) RerenderTimeline() error {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	_, err := c.deps.Timeline.Render(c.visible())
	return err
}

func (c *Controller) visible() []core.Battle {
	return filter.Apply(c.Category(), c.store.Records())
}

// renderLocked runs one render pass. renderMu must be held.
func (c *Controller) renderLocked(ctx context.Context) (core.RenderStats, error) {
	category := c.Category()
	visible := filter.Apply(category, c.store.Records())
	stats := core.RenderStats{Category: category, Visible: len(visible)}

	res, err := c.deps.Map.Render(visible)
	if err != nil {
		return stats, fmt.Errorf("render map: %w", err)
	}
	stats.Markers = res.Markers
	stats.Skipped = len(res.Skipped)

	series, err := c.deps.Timeline.Render(visible)
	if err != nil {
		return stats, fmt.Errorf("render timeline: %w", err)
	}
	stats.Buckets = len(series.Buckets)
	stats.HistogramTotal = series.Total()

	catAttr := metric.WithAttributes(attribute.String("category", category))
	c.metrics.renderMarkers.Add(ctx, int64(stats.Markers), catAttr)
	c.metrics.renderSkipped.Add(ctx, int64(stats.Skipped), catAttr)
	if c.deps.Recorder != nil {
		c.deps.Recorder.RecordRender(stats)
	}

	c.last = stats
	return stats, nil
}

// Refresh re-fetches the range currently shown by the range selector.
func (c *Controller) Refresh(ctx context.Context) error {
	r := c.liveRange()
	return c.RequestRange(ctx, r.Start, r.End)
}

func (c *Controller) liveRange() core.YearRange {
	if c.deps.Range != nil {
		return c.deps.Range.Values()
	}
	if r, ok := c.store.Range(); ok {
		return r
	}
	return core.YearRange{}
}

// Enrich asks the service to enrich one battle, then refreshes the range the
// selector holds at that moment and confirms to the user. A failed refresh
// has already alerted on its own and does not fail the enrichment.
func (c *Controller) Enrich(ctx context.Context, id int) error {
	c.startLoading()
	defer c.stopLoading()

	idAttr := metric.WithAttributes(attribute.Int("battle.id", id))
	c.metrics.enrichRequests.Add(ctx, 1, idAttr)

	reply, err := c.deps.Source.Enrich(ctx, id)
	if err != nil {
		c.metrics.enrichFailures.Add(ctx, 1, idAttr)
		c.deps.Logger.Error("Error enriching battle", "battleId", id, "error", err)
		c.deps.Notifier.Alert(MsgEnrichFailed)
		return err
	}
	c.deps.Logger.Info("Battle enriched", "battleId", id, "response", string(reply))

	if err := c.Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		c.deps.Logger.Warn("Refresh after enrichment failed", "battleId", id, "error", err)
	}
	c.deps.Notifier.Alert(MsgEnrichSucceeded)
	return nil
}

// State returns a snapshot of the session.
func (c *Controller) State() State {
	r, loaded := c.store.Range()
	c.renderMu.Lock()
	last := c.last
	c.renderMu.Unlock()
	return State{
		Range:    r,
		Loaded:   loaded,
		Category: c.Category(),
		Records:  c.store.Len(),
		Last:     last,
	}
}

// Visible returns the current visible set.
func (c *Controller) Visible() []core.Battle {
	return c.visible()
}

// SessionAttrs describes the session for log records.
func (c *Controller) SessionAttrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("category", c.Category())}
	if r, ok := c.store.Range(); ok {
		attrs = append(attrs, slog.String("range", r.String()))
	}
	return attrs
}

// Close cancels the in-flight fetch, if any.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.token++
}
