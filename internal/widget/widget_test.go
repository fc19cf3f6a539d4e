package widget

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrenchBattlesMap/viewer/pkg/core"
)

func TestLoadingIndicator_RefCounted(t *testing.T) {
	var transitions []bool
	l := NewLoadingIndicator(func(v bool) { transitions = append(transitions, v) })

	l.Start()
	l.Start()
	assert.True(t, l.Visible())

	l.Stop()
	assert.True(t, l.Visible(), "still visible while one operation is in flight")

	l.Stop()
	assert.False(t, l.Visible())

	l.Stop()
	assert.False(t, l.Visible())
	assert.Equal(t, []bool{true, false}, transitions)
}

func TestLoadingIndicator_Concurrent(t *testing.T) {
	l := NewLoadingIndicator(nil)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Start()
			l.Stop()
		}()
	}
	wg.Wait()

	assert.False(t, l.Visible())
}

func TestConsoleNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewConsoleNotifier(&buf)

	n.Alert("Informations enrichies avec succès !")

	assert.Equal(t, "! Informations enrichies avec succès !\n", buf.String())
}

func TestRecordingNotifier(t *testing.T) {
	n := &RecordingNotifier{}
	n.Alert("a")
	n.Alert("b")

	msgs := n.Messages()
	assert.Equal(t, []string{"a", "b"}, msgs)

	msgs[0] = "changed"
	assert.Equal(t, "a", n.Messages()[0])
}

func TestRangeSlider_Defaults(t *testing.T) {
	s := NewRangeSlider(0, 2025, 1)

	assert.Equal(t, core.YearRange{Start: 0, End: 2025}, s.Values())
	assert.Equal(t, "0 - 2025", s.Display())
	assert.Equal(t, []int{0, 500, 1000, 1500, 2000}, s.Pips())
}

func TestRangeSlider_DragDoesNotCommit(t *testing.T) {
	s := NewRangeSlider(0, 2025, 1)

	r := s.Drag(1200.4, 1500.6)

	assert.Equal(t, core.YearRange{Start: 1200, End: 1501}, r)
	assert.Equal(t, "1200 - 1501", s.Display())
	assert.Equal(t, core.YearRange{Start: 0, End: 2025}, s.Values())
}

func TestRangeSlider_Commit(t *testing.T) {
	s := NewRangeSlider(0, 2025, 1)

	s.Commit(1800, 1500)

	assert.Equal(t, core.YearRange{Start: 1500, End: 1800}, s.Values())
	assert.Equal(t, "1500 - 1800", s.Display())
}

func TestRangeSlider_Clamps(t *testing.T) {
	s := NewRangeSlider(0, 2025, 1)

	assert.Equal(t, core.YearRange{Start: 0, End: 2025}, s.Commit(-300, 9999))
	assert.Equal(t, core.YearRange{Start: 0, End: 2025}, s.Commit(math.NaN(), math.Inf(1)))
}

func TestRangeSlider_Step(t *testing.T) {
	s := NewRangeSlider(0, 2025, 25)

	assert.Equal(t, core.YearRange{Start: 1000, End: 2025}, s.Commit(1010, 2024))
	assert.Equal(t, core.YearRange{Start: 0, End: 2025}, s.Bounds())
}

func TestCategoryButtons(t *testing.T) {
	c := NewCategoryButtons()
	assert.Equal(t, "all", c.Active())

	require.NoError(t, c.Select("Siège"))
	assert.Equal(t, "Siège", c.Active())

	active := 0
	for _, st := range c.States() {
		if st.Active {
			active++
			assert.Equal(t, "Siège", st.Category)
		}
	}
	assert.Equal(t, 1, active)

	assert.Error(t, c.Select("Guerre"))
	assert.Equal(t, "Siège", c.Active())
}

type memoryPrefs struct {
	values map[string]string
	getErr error
	setErr error
}

func (m *memoryPrefs) Get(_ context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryPrefs) Set(_ context.Context, key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	return nil
}

func TestTheme_DefaultsToLight(t *testing.T) {
	th := NewTheme(context.Background(), &memoryPrefs{}, nil)

	assert.Equal(t, ThemeLight, th.Current())
	assert.Equal(t, "none", th.TileFilter())
}

func TestTheme_RestoresSaved(t *testing.T) {
	prefs := &memoryPrefs{values: map[string]string{"theme": "dark"}}

	th := NewTheme(context.Background(), prefs, nil)

	assert.Equal(t, ThemeDark, th.Current())
	assert.Equal(t, DarkTileFilter, th.TileFilter())
}

func TestTheme_IgnoresUnknownSaved(t *testing.T) {
	prefs := &memoryPrefs{values: map[string]string{"theme": "sepia"}}

	assert.Equal(t, ThemeLight, NewTheme(context.Background(), prefs, nil).Current())
}

func TestTheme_TogglePersists(t *testing.T) {
	ctx := context.Background()
	prefs := &memoryPrefs{}
	th := NewTheme(ctx, prefs, nil)

	next, err := th.Toggle(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, next)
	assert.Equal(t, "dark", prefs.values["theme"])

	next, err = th.Toggle(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, next)
	assert.Equal(t, "light", prefs.values["theme"])

	assert.Equal(t, ThemeLight, NewTheme(ctx, prefs, nil).Current())
}

func TestTheme_StoreErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	th := NewTheme(ctx, &memoryPrefs{getErr: boom}, nil)
	assert.Equal(t, ThemeLight, th.Current())

	th = NewTheme(ctx, &memoryPrefs{setErr: boom}, nil)
	_, err := th.Toggle(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, ThemeDark, th.Current())

	assert.Error(t, th.Set(ctx, "sepia"))
}

func TestTheme_ConcurrentTogglesAlternate(t *testing.T) {
	ctx := context.Background()
	th := NewTheme(ctx, nil, nil)

	const n = 100
	results := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next, err := th.Toggle(ctx)
			assert.NoError(t, err)
			results <- next
		}()
	}
	wg.Wait()
	close(results)

	counts := map[string]int{}
	for r := range results {
		counts[r]++
	}
	assert.Equal(t, n/2, counts[ThemeDark])
	assert.Equal(t, n/2, counts[ThemeLight])
	assert.Equal(t, ThemeLight, th.Current())
}

func TestTheme_NilStore(t *testing.T) {
	th := NewTheme(context.Background(), nil, nil)

	_, err := th.Toggle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, th.Current())
}

func TestDensityToggle(t *testing.T) {
	redraws := 0
	d := NewDensityToggle(func() error {
		redraws++
		return nil
	})
	assert.True(t, d.Visible())
	assert.Equal(t, "Masquer la distribution temporelle", d.Label())

	visible, err := d.Toggle()
	require.NoError(t, err)
	assert.False(t, visible)
	assert.Equal(t, "Afficher la distribution temporelle", d.Label())
	assert.Equal(t, 0, redraws)

	visible, err = d.Toggle()
	require.NoError(t, err)
	assert.True(t, visible)
	assert.Equal(t, 1, redraws)
}
