package controller

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrenchBattlesMap/viewer/internal/api"
	"github.com/FrenchBattlesMap/viewer/internal/chartrender"
	"github.com/FrenchBattlesMap/viewer/internal/mapview"
	"github.com/FrenchBattlesMap/viewer/internal/projection"
	"github.com/FrenchBattlesMap/viewer/internal/timeline"
	"github.com/FrenchBattlesMap/viewer/internal/widget"
	"github.com/FrenchBattlesMap/viewer/pkg/core"
)

type fakeSource struct {
	mu       sync.Mutex
	fetches  []core.YearRange
	enriches []int
	fetch    func(ctx context.Context, start, end int) ([]*core.Battle, error)
	enrich   func(ctx context.Context, id int) (json.RawMessage, error)
}

func (s *fakeSource) FetchBattles(ctx context.Context, start, end int) ([]*core.Battle, error) {
	s.mu.Lock()
	s.fetches = append(s.fetches, core.YearRange{Start: start, End: end})
	fetch := s.fetch
	s.mu.Unlock()
	if fetch == nil {
		return nil, nil
	}
	return fetch(ctx, start, end)
}

func (s *fakeSource) Enrich(ctx context.Context, id int) (json.RawMessage, error) {
	s.mu.Lock()
	s.enriches = append(s.enriches, id)
	enrich := s.enrich
	s.mu.Unlock()
	if enrich == nil {
		return json.RawMessage(`{"success":true}`), nil
	}
	return enrich(ctx, id)
}

func (s *fakeSource) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fetches)
}

func (s *fakeSource) lastFetch() core.YearRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[len(s.fetches)-1]
}

type visibleRecorder struct {
	mu   sync.Mutex
	sets [][]core.Battle
}

func (v *visibleRecorder) record(visible []core.Battle) {
	v.mu.Lock()
	defer v.mu.Unlock()
	cp := make([]core.Battle, len(visible))
	copy(cp, visible)
	v.sets = append(v.sets, cp)
}

func (v *visibleRecorder) last() []core.Battle {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.sets) == 0 {
		return nil
	}
	return v.sets[len(v.sets)-1]
}

func (v *visibleRecorder) count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.sets)
}

type fakeMap struct{ visibleRecorder }

func (m *fakeMap) Render(visible []core.Battle) (projection.Result, error) {
	m.record(visible)
	return projection.Result{Markers: len(visible)}, nil
}

type fakeTimeline struct{ visibleRecorder }

func (tl *fakeTimeline) Render(visible []core.Battle) (timeline.Series, error) {
	tl.record(visible)
	return timeline.Aggregate(visible), nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	fetches int
	renders []core.RenderStats
}

func (r *fakeRecorder) RecordFetch(core.YearRange, int, time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches++
}

func (r *fakeRecorder) RecordRender(stats core.RenderStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders = append(r.renders, stats)
}

type harness struct {
	c        *Controller
	source   *fakeSource
	mapR     *fakeMap
	timeline *fakeTimeline
	loading  *widget.LoadingIndicator
	notifier *widget.RecordingNotifier
	slider   *widget.RangeSlider
	recorder *fakeRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		source:   &fakeSource{},
		mapR:     &fakeMap{},
		timeline: &fakeTimeline{},
		loading:  widget.NewLoadingIndicator(nil),
		notifier: &widget.RecordingNotifier{},
		slider:   widget.NewRangeSlider(0, 2025, 1),
		recorder: &fakeRecorder{},
	}
	c, err := New(Dependencies{
		Source:   h.source,
		Map:      h.mapR,
		Timeline: h.timeline,
		Loading:  h.loading,
		Notifier: h.notifier,
		Range:    h.slider,
		Recorder: h.recorder,
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	h.c = c
	return h
}

func battles(bs ...core.Battle) []*core.Battle {
	out := make([]*core.Battle, len(bs))
	for i := range bs {
		out[i] = &bs[i]
	}
	return out
}

func ids(bs []core.Battle) []int {
	out := make([]int, len(bs))
	for i, b := range bs {
		out[i] = b.ID
	}
	return out
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Dependencies{})
	assert.Error(t, err)

	_, err = New(Dependencies{Source: &fakeSource{}, Map: &fakeMap{}, Timeline: &fakeTimeline{}})
	assert.Error(t, err)
}

func TestRequestRange_RangeContainment(t *testing.T) {
	h := newHarness(t)
	h.source.fetch = func(context.Context, int, int) ([]*core.Battle, error) {
		return []*core.Battle{
			{ID: 1, Name: "Bataille de Bouvines", Year: 1214},
			{ID: 2, Name: "Bataille de Waterloo", Year: 1815},
			nil,
			{ID: 3, Name: "Bataille de Poitiers", Year: 732},
		}, nil
	}

	require.NoError(t, h.c.RequestRange(context.Background(), 1000, 1500))

	assert.Equal(t, core.YearRange{Start: 1000, End: 1500}, h.source.lastFetch())
	st := h.c.State()
	assert.True(t, st.Loaded)
	assert.Equal(t, 1, st.Records)
	assert.Equal(t, []int{1}, ids(h.mapR.last()))
	assert.Empty(t, h.notifier.Messages())
	assert.False(t, h.loading.Visible())
}

func TestRequestRange_SwapsReversedBounds(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.c.RequestRange(context.Background(), 1500, 1000))

	assert.Equal(t, core.YearRange{Start: 1000, End: 1500}, h.source.lastFetch())
}

func TestRequestRange_RenderConsistency(t *testing.T) {
	h := newHarness(t)
	h.source.fetch = func(context.Context, int, int) ([]*core.Battle, error) {
		return battles(
			core.Battle{ID: 1, Name: "Bataille de Crécy", Year: 1346},
			core.Battle{ID: 2, Name: "Siège de Calais", Year: 1346},
			core.Battle{ID: 3, Name: "Bataille d'Azincourt", Year: 1415},
		), nil
	}

	require.NoError(t, h.c.RequestRange(context.Background(), 0, 2025))
	stats, err := h.c.ApplyCategory("Bataille")
	require.NoError(t, err)

	assert.Equal(t, h.mapR.last(), h.timeline.last())
	assert.Equal(t, []int{1, 3}, ids(h.mapR.last()))
	assert.Equal(t, 2, stats.Visible)
	assert.Equal(t, stats.Visible, stats.HistogramTotal)
	assert.Equal(t, stats.Markers+stats.Skipped, stats.HistogramTotal)
	assert.Equal(t, "Bataille", h.c.Category())
}

func TestApplyCategory_NoNetwork(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.c.RequestRange(context.Background(), 0, 2025))
	before := h.source.fetchCount()

	_, err := h.c.ApplyCategory("Siège")
	require.NoError(t, err)
	_, err = h.c.ApplyCategory("all")
	require.NoError(t, err)

	assert.Equal(t, before, h.source.fetchCount())
	assert.Equal(t, 3, h.mapR.count())
	assert.Equal(t, 3, h.timeline.count())
}

func TestRequestRange_FetchFailureKeepsStore(t *testing.T) {
	h := newHarness(t)
	h.source.fetch = func(context.Context, int, int) ([]*core.Battle, error) {
		return battles(core.Battle{ID: 1, Year: 1214}), nil
	}
	require.NoError(t, h.c.RequestRange(context.Background(), 1000, 1500))
	renders := h.mapR.count()

	h.source.fetch = func(context.Context, int, int) ([]*core.Battle, error) {
		return nil, &api.FetchError{Status: 500, Err: errors.New("boom")}
	}
	err := h.c.RequestRange(context.Background(), 1600, 1700)

	var fetchErr *api.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, []string{MsgFetchFailed}, h.notifier.Messages())
	st := h.c.State()
	assert.Equal(t, core.YearRange{Start: 1000, End: 1500}, st.Range)
	assert.Equal(t, 1, st.Records)
	assert.Equal(t, renders, h.mapR.count())
	assert.False(t, h.loading.Visible())
}

func TestRequestRange_EmptyResult(t *testing.T) {
	h := newHarness(t)
	h.source.fetch = func(context.Context, int, int) ([]*core.Battle, error) {
		return []*core.Battle{}, nil
	}

	require.NoError(t, h.c.RequestRange(context.Background(), 100, 200))

	stats := h.c.State().Last
	assert.Equal(t, 0, stats.Visible)
	assert.Equal(t, 0, stats.Buckets)
	assert.Empty(t, h.notifier.Messages())
	assert.Equal(t, 1, h.timeline.count())
}

func TestRequestRange_LastRequestWins(t *testing.T) {
	h := newHarness(t)
	started := make(chan struct{})
	release := make(chan struct{})
	h.source.fetch = func(_ context.Context, start, _ int) ([]*core.Battle, error) {
		if start == 1000 {
			close(started)
			<-release
			return battles(core.Battle{ID: 1, Year: 1200}), nil
		}
		return battles(core.Battle{ID: 2, Year: 1800}), nil
	}

	errA := make(chan error, 1)
	go func() { errA <- h.c.RequestRange(context.Background(), 1000, 1500) }()
	<-started

	require.NoError(t, h.c.RequestRange(context.Background(), 1700, 1900))
	close(release)

	assert.ErrorIs(t, <-errA, ErrSuperseded)
	st := h.c.State()
	assert.Equal(t, core.YearRange{Start: 1700, End: 1900}, st.Range)
	assert.Equal(t, []int{2}, ids(h.mapR.last()))
	assert.Empty(t, h.notifier.Messages())
	assert.False(t, h.loading.Visible())
}

func TestRequestRange_SupersededFetchIsCancelled(t *testing.T) {
	h := newHarness(t)
	started := make(chan struct{})
	h.source.fetch = func(ctx context.Context, start, _ int) ([]*core.Battle, error) {
		if start == 1000 {
			close(started)
			<-ctx.Done()
			return nil, &api.FetchError{Err: ctx.Err()}
		}
		return nil, nil
	}

	errA := make(chan error, 1)
	go func() { errA <- h.c.RequestRange(context.Background(), 1000, 1500) }()
	<-started

	require.NoError(t, h.c.RequestRange(context.Background(), 0, 10))

	assert.ErrorIs(t, <-errA, ErrSuperseded)
	assert.Empty(t, h.notifier.Messages())
}

func TestRequestRange_CallerCancelled(t *testing.T) {
	h := newHarness(t)
	h.source.fetch = func(ctx context.Context, _, _ int) ([]*core.Battle, error) {
		return nil, &api.FetchError{Err: ctx.Err()}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.c.RequestRange(ctx, 0, 10)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.notifier.Messages())
}

func TestRequestRange_MissingCoordinatesTolerated(t *testing.T) {
	source := &fakeSource{fetch: func(context.Context, int, int) ([]*core.Battle, error) {
		lat, lng := 48.85, 2.35
		return battles(
			core.Battle{ID: 1, Name: "Siège de Paris", Year: 1870, Latitude: &lat, Longitude: &lng},
			core.Battle{ID: 2, Name: "Bataille sans lieu", Year: 1871},
		), nil
	}}
	layer := mapview.NewClusterLayer(0)
	agg := timeline.NewAggregator(chartrender.New(chartrender.Options{}, nil))
	notifier := &widget.RecordingNotifier{}

	c, err := New(Dependencies{
		Source:   source,
		Map:      projection.New(layer, nil, nil),
		Timeline: agg,
		Notifier: notifier,
	})
	require.NoError(t, err)

	require.NoError(t, c.RequestRange(context.Background(), 1800, 1900))

	stats := c.State().Last
	assert.Equal(t, 1, stats.Markers)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 2, stats.HistogramTotal)
	assert.Equal(t, 1, layer.Len())
	assert.Empty(t, notifier.Messages())
}

func TestEnrich_RefreshesLiveRange(t *testing.T) {
	h := newHarness(t)
	h.slider.Commit(1000, 1500)
	h.source.enrich = func(context.Context, int) (json.RawMessage, error) {
		// the user moves the slider while the request is in flight
		h.slider.Commit(1200, 1300)
		return json.RawMessage(`{"success":true}`), nil
	}

	require.NoError(t, h.c.Enrich(context.Background(), 42))

	assert.Equal(t, []int{42}, h.source.enriches)
	assert.Equal(t, core.YearRange{Start: 1200, End: 1300}, h.source.lastFetch())
	assert.Equal(t, []string{MsgEnrichSucceeded}, h.notifier.Messages())
	assert.False(t, h.loading.Visible())
}

func TestEnrich_Failure(t *testing.T) {
	h := newHarness(t)
	h.source.enrich = func(context.Context, int) (json.RawMessage, error) {
		return nil, &api.EnrichError{ID: 9, Status: 500, Err: errors.New("boom")}
	}

	err := h.c.Enrich(context.Background(), 9)

	var enrichErr *api.EnrichError
	require.True(t, errors.As(err, &enrichErr))
	assert.Equal(t, []string{MsgEnrichFailed}, h.notifier.Messages())
	assert.Equal(t, 0, h.source.fetchCount())
	assert.False(t, h.loading.Visible())
}

func TestEnrich_RefreshFailureStillConfirms(t *testing.T) {
	h := newHarness(t)
	h.source.fetch = func(context.Context, int, int) ([]*core.Battle, error) {
		return nil, &api.FetchError{Status: 502, Err: errors.New("bad gateway")}
	}

	require.NoError(t, h.c.Enrich(context.Background(), 3))

	assert.Equal(t, []string{MsgFetchFailed, MsgEnrichSucceeded}, h.notifier.Messages())
}

func TestRecorderReceivesTelemetry(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.c.RequestRange(context.Background(), 0, 10))
	_, err := h.c.ApplyCategory("Assaut")
	require.NoError(t, err)

	assert.Equal(t, 1, h.recorder.fetches)
	require.Len(t, h.recorder.renders, 2)
	assert.Equal(t, "Assaut", h.recorder.renders[1].Category)
}

func TestSessionAttrs(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.c.RequestRange(context.Background(), 10, 20))

	attrs := h.c.SessionAttrs()

	require.Len(t, attrs, 2)
	assert.Equal(t, "all", attrs[0].Value.String())
	assert.Equal(t, "10 - 20", attrs[1].Value.String())
}
