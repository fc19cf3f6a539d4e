// Package chartrender draws timeline histograms as SVG or PNG bar charts.
package chartrender

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/FrenchBattlesMap/viewer/internal/timeline"
)

// Format is the output encoding of a chart.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// Options configure the renderer.
type Options struct {
	Format Format
	Width  int
	Height int
	// Path, when set, receives every drawn chart.
	Path string
}

// Renderer implements timeline.ChartRenderer on top of go-chart.
type Renderer struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Renderer, filling unset options with an 800x400 SVG.
func New(opts Options, logger *slog.Logger) *Renderer {
	if opts.Format == "" {
		opts.Format = FormatSVG
	}
	if opts.Width <= 0 {
		opts.Width = 800
	}
	if opts.Height <= 0 {
		opts.Height = 400
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{opts: opts, logger: logger}
}

var barColor = drawing.Color{R: 54, G: 162, B: 235, A: 128}

func (r *Renderer) barChart(s timeline.Series) chart.BarChart {
	bars := make([]chart.Value, 0, len(s.Buckets))
	maxCount := 0
	for _, b := range s.Buckets {
		bars = append(bars, chart.Value{
			Value: float64(b.Count),
			Label: b.Label(),
			Style: chart.Style{FillColor: barColor, StrokeColor: barColor.WithAlpha(255), StrokeWidth: 1},
		})
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}
	// go-chart refuses an empty bar list; a single zero bar draws the bare axes
	if len(bars) == 0 {
		bars = append(bars, chart.Value{Value: 0, Label: ""})
	}

	barWidth := r.opts.Width / (2 * len(bars))
	if barWidth < 2 {
		barWidth = 2
	}
	if barWidth > 60 {
		barWidth = 60
	}

	return chart.BarChart{
		Title:      s.Title,
		Width:      r.opts.Width,
		Height:     r.opts.Height,
		BarWidth:   barWidth,
		BarSpacing: barWidth / 2,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.Style{TextRotationDegrees: 45.0},
		YAxis: chart.YAxis{
			Name:  s.Dataset,
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxCount + 1)},
		},
		Bars: bars,
	}
}

// Draw renders s. An empty series yields an empty chart.
func (r *Renderer) Draw(s timeline.Series) (timeline.Chart, error) {
	provider := chart.SVG
	if r.opts.Format == FormatPNG {
		provider = chart.PNG
	}

	var buf bytes.Buffer
	if err := r.barChart(s).Render(provider, &buf); err != nil {
		return nil, fmt.Errorf("render %s chart: %w", r.opts.Format, err)
	}

	c := &Chart{
		data:    buf.Bytes(),
		format:  r.opts.Format,
		empty:   len(s.Buckets) == 0,
		buckets: len(s.Buckets),
	}

	if r.opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(r.opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create chart directory: %w", err)
		}
		if err := os.WriteFile(r.opts.Path, c.data, 0o644); err != nil {
			return nil, fmt.Errorf("write chart: %w", err)
		}
		c.path = r.opts.Path
		r.logger.Debug("timeline chart written", "path", r.opts.Path, "buckets", c.buckets)
	}
	return c, nil
}

// Chart is one drawn histogram.
type Chart struct {
	mu        sync.Mutex
	data      []byte
	format    Format
	path      string
	empty     bool
	buckets   int
	destroyed bool
}

// Bytes returns the encoded chart, or nil once destroyed.
func (c *Chart) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data
}

// Format returns the chart encoding.
func (c *Chart) Format() Format { return c.format }

// Path returns the file the chart was written to, if any.
func (c *Chart) Path() string { return c.path }

// Empty reports whether the chart was drawn from zero records.
func (c *Chart) Empty() bool { return c.empty }

// Buckets returns the number of bars drawn.
func (c *Chart) Buckets() int { return c.buckets }

// Destroyed reports whether Destroy has been called.
func (c *Chart) Destroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

// Destroy releases the encoded chart. The file written at Path is left for
// the next chart to overwrite.
func (c *Chart) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
	c.destroyed = true
	return nil
}
