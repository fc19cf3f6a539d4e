package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/FrenchBattlesMap/viewer/internal/bridge"
	"github.com/FrenchBattlesMap/viewer/internal/chartrender"
	"github.com/FrenchBattlesMap/viewer/internal/config"
	"github.com/FrenchBattlesMap/viewer/internal/controller"
	"github.com/FrenchBattlesMap/viewer/internal/geo"
	"github.com/FrenchBattlesMap/viewer/internal/mapview"
	"github.com/FrenchBattlesMap/viewer/internal/popup"
	"github.com/FrenchBattlesMap/viewer/internal/projection"
	"github.com/FrenchBattlesMap/viewer/internal/session"
	"github.com/FrenchBattlesMap/viewer/internal/timeline"
	"github.com/FrenchBattlesMap/viewer/internal/widget"
	"github.com/FrenchBattlesMap/viewer/pkg/core"
)

const markersFile = "markers.geojson"

// viewer is one fully wired viewer session.
type viewer struct {
	ctrl       *controller.Controller
	slider     *widget.RangeSlider
	categories *widget.CategoryButtons
	theme      *widget.Theme
	density    *widget.DensityToggle
	loading    *widget.LoadingIndicator
	timeline   *timeline.Aggregator
	layer      *mapview.ClusterLayer
	observer   session.Observer
	bridge     *bridge.Bridge

	outDir string
	zoom   int
	logger *slog.Logger
}

// markerLayers fans markers out to several layers.
type markerLayers []projection.MarkerLayer

func (ls markerLayers) ClearLayers() error {
	for _, l := range ls {
		if err := l.ClearLayers(); err != nil {
			return err
		}
	}
	return nil
}

func (ls markerLayers) AddMarker(m projection.Marker) error {
	for _, l := range ls {
		if err := l.AddMarker(m); err != nil {
			return err
		}
	}
	return nil
}

// fileObserver keeps markers.geojson in step with every render and forwards
// each notification to next, when set.
type fileObserver struct {
	v    *viewer
	next session.Observer
}

func (o fileObserver) RangeDisplayed(text string) {
	o.v.logger.Debug("Range displayed", "range", text)
	if o.next != nil {
		o.next.RangeDisplayed(text)
	}
}

func (o fileObserver) Rendered(stats core.RenderStats) {
	if err := o.v.writeMarkers(); err != nil {
		o.v.logger.Error("Failed to write markers", "error", err)
	}
	if o.next != nil {
		o.next.Rendered(stats)
	}
}

func (o fileObserver) ThemeChanged(theme, tileFilter string) {
	o.v.logger.Info("Theme changed", "theme", theme, "tileFilter", tileFilter)
	if o.next != nil {
		o.next.ThemeChanged(theme, tileFilter)
	}
}

func (o fileObserver) DensityChanged(visible bool, label string) {
	o.v.logger.Info("Density panel toggled", "visible", visible, "label", label)
	if o.next != nil {
		o.next.DensityChanged(visible, label)
	}
}

// newViewer builds the widgets, projections and controller. When the
// bridge is enabled and the renderer answers, output is streamed to it;
// otherwise charts and alerts go to files and stderr. markers.geojson is
// written from the clustered layer in both modes.
func (a *app) newViewer(ctx context.Context) (*viewer, error) {
	mapCfg := config.GetMapConfig()
	sliderCfg := config.GetSliderConfig()
	tlCfg := config.GetTimelineConfig()

	v := &viewer{
		slider:     widget.NewRangeSlider(sliderCfg.Min, sliderCfg.Max, sliderCfg.Step),
		categories: widget.NewCategoryButtons(),
		layer:      mapview.NewClusterLayer(mapCfg.ClusterRadius),
		outDir:     config.GetOutputConfig().Dir,
		zoom:       mapCfg.Zoom,
		logger:     a.logger,
	}
	// a typed nil store must not reach the theme
	var prefs widget.PreferenceStore
	if a.prefs != nil {
		prefs = a.prefs
	}
	v.theme = widget.NewTheme(ctx, prefs, a.logger)

	layers := markerLayers{v.layer}
	var (
		renderer timeline.ChartRenderer
		notifier controller.Notifier
	)

	if b := a.connectBridge(ctx, mapCfg, v.theme); b != nil {
		v.bridge = b
		layers = append(layers, b)
		renderer = b
		notifier = b
		v.observer = fileObserver{v: v, next: b}
		v.loading = widget.NewLoadingIndicator(b.LoadingChanged)
	} else {
		renderer = chartrender.New(chartrender.Options{
			Format: chartrender.Format(tlCfg.Format),
			Width:  tlCfg.Width,
			Height: tlCfg.Height,
			Path:   filepath.Join(v.outDir, "timeline."+tlCfg.Format),
		}, a.logger)
		notifier = widget.NewConsoleNotifier(a.stderr)
		v.observer = fileObserver{v: v}
		v.loading = widget.NewLoadingIndicator(func(visible bool) {
			a.logger.Debug("Loading indicator", "visible", visible)
		})
	}

	popups := popup.NewBuilder(popup.Options{
		MaxWidth:  mapCfg.PopupMaxWidth,
		MaxHeight: mapCfg.PopupMaxHeight,
		AutoPan:   true,
		ClassName: "battle-popup",
	}, a.logger)
	v.timeline = timeline.NewAggregator(renderer)

	ctrl, err := controller.New(controller.Dependencies{
		Source:   a.client,
		Map:      projection.New(layers, popups, a.logger),
		Timeline: v.timeline,
		Loading:  v.loading,
		Notifier: notifier,
		Range:    v.slider,
		Recorder: a.recorder(),
		Logger:   a.logger,
	})
	if err != nil {
		if v.bridge != nil {
			_ = v.bridge.Close(ctx)
		}
		return nil, fmt.Errorf("failed to create controller: %w", err)
	}
	v.ctrl = ctrl
	v.density = widget.NewDensityToggle(ctrl.RerenderTimeline)

	a.ctrl.Store(ctrl)
	a.v = v
	return v, nil
}

// connectBridge returns nil when the bridge is disabled or unreachable.
func (a *app) connectBridge(ctx context.Context, mapCfg config.MapConfig, theme *widget.Theme) *bridge.Bridge {
	cfg := config.GetBridgeConfig()
	if !cfg.Enabled {
		return nil
	}

	b := bridge.New(bridge.Config{URL: cfg.URL, Secret: cfg.Secret}, a.logger)
	hello := bridge.HelloPayload{
		View: mapview.View{
			Center: geo.LatLng{Lat: mapCfg.CenterLat, Lng: mapCfg.CenterLng},
			Zoom:   mapCfg.Zoom,
		},
		TileURL:     mapview.TileURL,
		Attribution: mapview.TileAttribution,
		Theme:       theme.Current(),
		TileFilter:  theme.TileFilter(),
	}
	if err := b.Connect(ctx, hello); err != nil {
		a.logger.Warn("Renderer unreachable, writing output files", "url", cfg.URL, "error", err)
		_ = b.Close(ctx)
		return nil
	}
	a.logger.Info("Connected to renderer", "url", cfg.URL)
	return b
}

// writeMarkers writes the clustered layer at the configured zoom.
func (v *viewer) writeMarkers() error {
	if err := os.MkdirAll(v.outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(v.outDir, markersFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := v.layer.WriteGeoJSON(f, v.zoom); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// sessionDeps exposes the viewer to the session handlers.
func (v *viewer) sessionDeps() session.Deps {
	return session.Deps{
		Controller: v.ctrl,
		Slider:     v.slider,
		Categories: v.categories,
		Theme:      v.theme,
		Density:    v.density,
		Observer:   v.observer,
		Logger:     v.logger,
	}
}

func (v *viewer) close(ctx context.Context) error {
	v.ctrl.Close()
	var errs []error
	errs = append(errs, v.timeline.Close())
	if v.bridge != nil {
		errs = append(errs, v.bridge.Close(ctx))
	}
	return errors.Join(errs...)
}
