package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"

	"github.com/FrenchBattlesMap/viewer/internal/api"
	"github.com/FrenchBattlesMap/viewer/internal/config"
	"github.com/FrenchBattlesMap/viewer/internal/controller"
	"github.com/FrenchBattlesMap/viewer/internal/database"
	"github.com/FrenchBattlesMap/viewer/internal/influx"
	"github.com/FrenchBattlesMap/viewer/internal/logging"
	intOtel "github.com/FrenchBattlesMap/viewer/internal/otel"
	"github.com/FrenchBattlesMap/viewer/internal/preferences"
)

const appName = "battlemap"

// app holds the process-wide infrastructure shared by every subcommand.
type app struct {
	configDir string
	logLevel  string
	started   time.Time

	// stderr receives user-facing alerts in file mode
	stderr io.Writer

	logs    *logging.SlogManager
	logger  *slog.Logger
	zlog    zerolog.Logger
	logFile *os.File
	gelf    *gelf.Writer
	otel    *intOtel.Provider

	db     *database.Manager
	prefs  *preferences.Store
	influx *influx.Manager
	client *api.Client

	// set once the viewer is built, read by the log context provider
	ctrl atomic.Pointer[controller.Controller]
	v    *viewer
}

func newApp() *app {
	return &app{
		configDir: ".",
		started:   time.Now(),
		stderr:    os.Stderr,
		logs:      logging.NewSlogManager(),
		logger:    slog.Default(),
		zlog:      zerolog.Nop(),
	}
}

// sessionAttrs tags every log record with the live category and range.
func (a *app) sessionAttrs() []slog.Attr {
	if c := a.ctrl.Load(); c != nil {
		return c.SessionAttrs()
	}
	return nil
}

// setup loads the config and brings up logging, storage and telemetry.
// Only a failing log directory is fatal; every other sink degrades.
func (a *app) setup(ctx context.Context) error {
	configErr := config.Load(a.configDir)

	level := config.GetString("logLevel")
	if a.logLevel != "" {
		level = a.logLevel
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	logFile, err := os.OpenFile(logging.LogFilePath(logsDir, appName, a.started), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	a.logFile = logFile

	otelCfg := config.GetOTelConfig()
	var otelErr error
	if otelCfg.Enabled {
		a.otel, otelErr = intOtel.New(ctx, intOtel.Config{
			Enabled:      true,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
	}

	var gelfErr error
	if gl := config.GetGraylogConfig(); gl.Enabled {
		a.gelf, gelfErr = gelf.NewWriter(gl.Address)
	}

	opts := logging.Options{File: logFile, Level: level, Context: a.sessionAttrs}
	if a.otel != nil {
		opts.Provider = a.otel.LoggerProvider()
	}
	if a.gelf != nil {
		opts.Graylog = a.gelf
	}
	a.logs.Setup(opts)
	a.logger = a.logs.Logger()
	a.zlog = logging.NewZerolog(level, logFile)

	if configErr != nil {
		a.logger.Warn("Using default configuration", "error", configErr)
	}
	if otelErr != nil {
		a.logger.Warn("OpenTelemetry disabled", "error", otelErr)
	}
	if gelfErr != nil {
		a.logger.Warn("Graylog disabled", "error", gelfErr)
	}

	a.setupPreferences()
	a.setupInflux(ctx)

	apiCfg := config.GetAPIConfig()
	a.client = api.New(apiCfg.ServerURL, apiCfg.Timeout)
	a.client.SetLogger(a.logger)
	a.logger.Info("Battles service configured", "url", a.client.BaseURL())
	return nil
}

// setupPreferences opens the preference database. Without it the theme
// lives in memory only.
func (a *app) setupPreferences() {
	a.db = database.NewManager(a.zlog)
	if err := a.db.Connect(config.GetPreferencesConfig()); err != nil {
		a.logger.Warn("Preferences unavailable", "error", err)
		return
	}
	if err := a.db.Setup(); err != nil {
		a.logger.Warn("Preferences unavailable", "error", err)
		return
	}
	a.prefs = preferences.New(a.db.DB, a.zlog)
}

func (a *app) setupInflux(ctx context.Context) {
	cfg := config.GetInfluxConfig()
	if !cfg.Enabled {
		return
	}
	if err := os.MkdirAll(cfg.BackupDir, 0755); err != nil {
		a.logger.Warn("Influx backup directory unavailable", "error", err)
	}
	backup := filepath.Join(cfg.BackupDir, fmt.Sprintf("%s_%s.influx.gz", appName, a.started.Format("20060102_150405")))

	m := influx.NewManager(a.zlog, cfg, backup)
	if err := m.Connect(ctx); err != nil {
		a.logger.Warn("Telemetry disabled", "error", err)
		return
	}
	a.influx = m
}

// recorder returns the telemetry sink, or nil when influx is off.
func (a *app) recorder() controller.Recorder {
	if a.influx == nil {
		return nil
	}
	return a.influx
}

// close releases everything setup opened, in reverse order.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.v != nil {
		errs = append(errs, a.v.close(ctx))
	}
	if a.influx != nil {
		errs = append(errs, a.influx.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	errs = append(errs, a.logs.Flush(ctx))
	if a.otel != nil {
		errs = append(errs, a.otel.Shutdown(ctx))
	}
	if a.gelf != nil {
		errs = append(errs, a.gelf.Close())
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
	}
	return errors.Join(errs...)
}
