package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "battlemap.cfg.json"

// APIConfig holds the battles data service settings
type APIConfig struct {
	ServerURL string        `json:"serverUrl" mapstructure:"serverUrl"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
}

// SliderConfig holds the year range control bounds
type SliderConfig struct {
	Min  int `json:"min" mapstructure:"min"`
	Max  int `json:"max" mapstructure:"max"`
	Step int `json:"step" mapstructure:"step"`
}

// MapConfig holds the initial viewport, clustering and popup settings
type MapConfig struct {
	CenterLat      float64 `json:"centerLat" mapstructure:"centerLat"`
	CenterLng      float64 `json:"centerLng" mapstructure:"centerLng"`
	Zoom           int     `json:"zoom" mapstructure:"zoom"`
	ClusterRadius  int     `json:"clusterRadius" mapstructure:"clusterRadius"`
	PopupMaxWidth  int     `json:"popupMaxWidth" mapstructure:"popupMaxWidth"`
	PopupMaxHeight int     `json:"popupMaxHeight" mapstructure:"popupMaxHeight"`
}

// TimelineConfig holds the histogram output settings
type TimelineConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Width  int    `json:"width" mapstructure:"width"`
	Height int    `json:"height" mapstructure:"height"`
}

// OutputConfig holds where rendered files are written
type OutputConfig struct {
	Dir string `json:"dir" mapstructure:"dir"`
}

// DBConfig holds PostgreSQL connection settings
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslmode" mapstructure:"sslmode"`
}

// PreferencesConfig selects the preference store backend
type PreferencesConfig struct {
	Type string   `json:"type" mapstructure:"type"` // "sqlite" or "postgres"
	Path string   `json:"path" mapstructure:"path"` // sqlite file
	DB   DBConfig `json:"db" mapstructure:"db"`
}

// InfluxConfig holds the session telemetry sink settings
type InfluxConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	Host      string `json:"host" mapstructure:"host"`
	Port      string `json:"port" mapstructure:"port"`
	Protocol  string `json:"protocol" mapstructure:"protocol"`
	Token     string `json:"token" mapstructure:"token"`
	Org       string `json:"org" mapstructure:"org"`
	Bucket    string `json:"bucket" mapstructure:"bucket"`
	BackupDir string `json:"backupDir" mapstructure:"backupDir"`
}

// GraylogConfig holds the GELF log sink settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// BridgeConfig holds the remote renderer websocket settings
type BridgeConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	URL     string `json:"url" mapstructure:"url"`
	Secret  string `json:"secret" mapstructure:"secret"`
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./battlemaplogs")

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.timeout", "30s")

	viper.SetDefault("slider.min", 0)
	viper.SetDefault("slider.max", 2025)
	viper.SetDefault("slider.step", 1)

	viper.SetDefault("map.centerLat", 46.603354)
	viper.SetDefault("map.centerLng", 1.888334)
	viper.SetDefault("map.zoom", 6)
	viper.SetDefault("map.clusterRadius", 80)
	viper.SetDefault("map.popupMaxWidth", 400)
	viper.SetDefault("map.popupMaxHeight", 400)

	viper.SetDefault("timeline.format", "svg")
	viper.SetDefault("timeline.width", 800)
	viper.SetDefault("timeline.height", 400)

	viper.SetDefault("output.dir", "./output")

	viper.SetDefault("preferences.type", "sqlite")
	viper.SetDefault("preferences.path", "./battlemap.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "battlemap")
	viper.SetDefault("db.sslmode", "disable")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "battlemap")
	viper.SetDefault("influx.bucket", "viewer")
	viper.SetDefault("influx.backupDir", "./battlemaplogs")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "battlemap")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("bridge.enabled", false)
	viper.SetDefault("bridge.url", "ws://localhost:5000/ws/viewer")
	viper.SetDefault("bridge.secret", "")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. Defaults stay in
// effect when the file is missing.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// Set overrides a config value, as command line flags do.
func Set(key string, value any) {
	viper.Set(key, value)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		Timeout:   viper.GetDuration("api.timeout"),
	}
}

func GetSliderConfig() SliderConfig {
	return SliderConfig{
		Min:  viper.GetInt("slider.min"),
		Max:  viper.GetInt("slider.max"),
		Step: viper.GetInt("slider.step"),
	}
}

func GetMapConfig() MapConfig {
	return MapConfig{
		CenterLat:      viper.GetFloat64("map.centerLat"),
		CenterLng:      viper.GetFloat64("map.centerLng"),
		Zoom:           viper.GetInt("map.zoom"),
		ClusterRadius:  viper.GetInt("map.clusterRadius"),
		PopupMaxWidth:  viper.GetInt("map.popupMaxWidth"),
		PopupMaxHeight: viper.GetInt("map.popupMaxHeight"),
	}
}

func GetTimelineConfig() TimelineConfig {
	return TimelineConfig{
		Format: viper.GetString("timeline.format"),
		Width:  viper.GetInt("timeline.width"),
		Height: viper.GetInt("timeline.height"),
	}
}

func GetOutputConfig() OutputConfig {
	return OutputConfig{Dir: viper.GetString("output.dir")}
}

// GetPreferencesConfig returns the preference store settings, including
// the shared db.* connection keys.
func GetPreferencesConfig() PreferencesConfig {
	return PreferencesConfig{
		Type: viper.GetString("preferences.type"),
		Path: viper.GetString("preferences.path"),
		DB: DBConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
			SSLMode:  viper.GetString("db.sslmode"),
		},
	}
}

func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:   viper.GetBool("influx.enabled"),
		Host:      viper.GetString("influx.host"),
		Port:      viper.GetString("influx.port"),
		Protocol:  viper.GetString("influx.protocol"),
		Token:     viper.GetString("influx.token"),
		Org:       viper.GetString("influx.org"),
		Bucket:    viper.GetString("influx.bucket"),
		BackupDir: viper.GetString("influx.backupDir"),
	}
}

func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

func GetBridgeConfig() BridgeConfig {
	return BridgeConfig{
		Enabled: viper.GetBool("bridge.enabled"),
		URL:     viper.GetString("bridge.url"),
		Secret:  viper.GetString("bridge.secret"),
	}
}
