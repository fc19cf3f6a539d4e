package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrenchBattlesMap/viewer/internal/config"
	"github.com/FrenchBattlesMap/viewer/pkg/core"
)

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFetchPoint(t *testing.T) {
	lp := influxdb2_write.PointToLineProtocol(
		FetchPoint(core.YearRange{Start: 1000, End: 1500}, 12, 250*time.Millisecond, nil, at),
		time.Nanosecond,
	)

	assert.True(t, strings.HasPrefix(lp, "fetch,"))
	assert.Contains(t, lp, "start=1000")
	assert.Contains(t, lp, "end=1500")
	assert.Contains(t, lp, "status=ok")
	assert.Contains(t, lp, "records=12i")
	assert.Contains(t, lp, "duration_ms=250")
}

func TestFetchPoint_Error(t *testing.T) {
	lp := influxdb2_write.PointToLineProtocol(
		FetchPoint(core.YearRange{}, 0, time.Second, errors.New("boom"), at),
		time.Nanosecond,
	)
	assert.Contains(t, lp, "status=error")
}

func TestRenderPoint(t *testing.T) {
	lp := influxdb2_write.PointToLineProtocol(RenderPoint(core.RenderStats{
		Category:       "Siège",
		Visible:        5,
		Markers:        4,
		Skipped:        1,
		Buckets:        3,
		HistogramTotal: 5,
	}, at), time.Nanosecond)

	assert.True(t, strings.HasPrefix(lp, "render,category=Siège"))
	assert.Contains(t, lp, "visible=5i")
	assert.Contains(t, lp, "markers=4i")
	assert.Contains(t, lp, "skipped=1i")
	assert.Contains(t, lp, "histogram_total=5i")
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{}, "")
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.Error(t, m.WritePoint(RenderPoint(core.RenderStats{}, at)))
	assert.NoError(t, m.Close())
}

func TestConnect_UnreachableUsesBackup(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "influx_backup.lp.gz")
	m := NewManager(zerolog.Nop(), config.InfluxConfig{
		Enabled:  true,
		Protocol: "http",
		Host:     "127.0.0.1",
		Port:     "1",
		Org:      "battlemap",
		Bucket:   "viewer",
	}, backup)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.IsValid)

	m.RecordFetch(core.YearRange{Start: 0, End: 2025}, 3, time.Millisecond, nil)
	m.RecordRender(core.RenderStats{Category: "all", Visible: 3, Markers: 3})
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)

	var lines []string
	for _, l := range strings.Split(string(data), "\n") {
		if l != "" {
			lines = append(lines, l)
		}
	}
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "fetch,"))
	assert.True(t, strings.HasPrefix(lines[1], "render,"))
}
