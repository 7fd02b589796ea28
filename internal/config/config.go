// file: internal/config/config.go
// version: 2.0.0
// guid: f02e64e2-d164-453d-a9fd-6bbcb9d7fd03

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LastfmConfig configures the Last.fm client and its request pool
type LastfmConfig struct {
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	MaxConcurrent     int           `yaml:"max_concurrent"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	Timeout           time.Duration `yaml:"timeout"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
}

// Config holds application configuration
type Config struct {
	Library struct {
		Root string `yaml:"root"`
	} `yaml:"library"`
	Database struct {
		Path string `yaml:"path"`
		Type string `yaml:"type"` // "pebble" (default) or "sqlite"
	} `yaml:"database"`
	Lastfm        LastfmConfig `yaml:"lastfm"`
	SaveLocalMeta bool         `yaml:"save_local_meta"`
	Refresh       struct {
		MaxAge  time.Duration `yaml:"max_age"`
		Workers int           `yaml:"workers"`
	} `yaml:"refresh"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Server struct {
		Host string `yaml:"host"`
		Port string `yaml:"port"`
	} `yaml:"server"`
	Watch struct {
		Debounce time.Duration `yaml:"debounce"`
	} `yaml:"watch"`
}

var AppConfig Config

// EnvPrefix is prepended to environment variable overrides,
// e.g. ALBUM_ENRICHER_LASTFM_API_KEY.
const EnvPrefix = "ALBUM_ENRICHER"

// SetDefaults registers default values with viper
func SetDefaults() {
	viper.SetDefault("library.root", "")
	viper.SetDefault("database.path", "album-enricher.pebble")
	viper.SetDefault("database.type", "pebble")
	viper.SetDefault("lastfm.api_key", "")
	viper.SetDefault("lastfm.base_url", "https://ws.audioscrobbler.com/2.0/")
	viper.SetDefault("lastfm.max_concurrent", 4)
	viper.SetDefault("lastfm.requests_per_second", 0)
	viper.SetDefault("lastfm.burst", 1)
	viper.SetDefault("lastfm.timeout", 30*time.Second)
	viper.SetDefault("lastfm.cache_ttl", time.Duration(0))
	viper.SetDefault("save_local_meta", false)
	viper.SetDefault("refresh.max_age", 720*time.Hour)
	viper.SetDefault("refresh.workers", 4)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("watch.debounce", 5*time.Second)
}

// BindEnv enables ALBUM_ENRICHER_* environment overrides
func BindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// InitConfig initializes the application configuration from viper
func InitConfig() error {
	SetDefaults()

	var cfg Config
	cfg.Library.Root = viper.GetString("library.root")
	cfg.Database.Path = viper.GetString("database.path")
	cfg.Database.Type = viper.GetString("database.type")
	cfg.Lastfm = LastfmConfig{
		APIKey:            viper.GetString("lastfm.api_key"),
		BaseURL:           viper.GetString("lastfm.base_url"),
		MaxConcurrent:     viper.GetInt("lastfm.max_concurrent"),
		RequestsPerSecond: viper.GetFloat64("lastfm.requests_per_second"),
		Burst:             viper.GetInt("lastfm.burst"),
		Timeout:           viper.GetDuration("lastfm.timeout"),
		CacheTTL:          viper.GetDuration("lastfm.cache_ttl"),
	}
	cfg.SaveLocalMeta = viper.GetBool("save_local_meta")
	cfg.Refresh.MaxAge = viper.GetDuration("refresh.max_age")
	cfg.Refresh.Workers = viper.GetInt("refresh.workers")
	cfg.Log.Level = viper.GetString("log.level")
	cfg.Log.Format = viper.GetString("log.format")
	cfg.Server.Host = viper.GetString("server.host")
	cfg.Server.Port = viper.GetString("server.port")
	cfg.Watch.Debounce = viper.GetDuration("watch.debounce")

	// Normalize database type
	cfg.Database.Type = strings.ToLower(strings.TrimSpace(cfg.Database.Type))
	if cfg.Database.Type == "sqlite3" {
		cfg.Database.Type = "sqlite"
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = "pebble"
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Validate rejects settings the rest of the application cannot work with
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "pebble", "sqlite", "memory":
	default:
		return fmt.Errorf("unsupported database type %q", c.Database.Type)
	}
	if c.Lastfm.MaxConcurrent <= 0 {
		return fmt.Errorf("lastfm.max_concurrent must be positive, got %d", c.Lastfm.MaxConcurrent)
	}
	if c.Refresh.Workers <= 0 {
		return fmt.Errorf("refresh.workers must be positive, got %d", c.Refresh.Workers)
	}
	if c.Lastfm.RequestsPerSecond < 0 {
		return fmt.Errorf("lastfm.requests_per_second must not be negative")
	}
	if c.Lastfm.Timeout < 0 || c.Lastfm.CacheTTL < 0 || c.Refresh.MaxAge < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

// RequireAPIKey reports a missing Last.fm API key
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.Lastfm.APIKey) == "" {
		return fmt.Errorf("lastfm.api_key is required (set %s_LASTFM_API_KEY or lastfm.api_key in the config file)", EnvPrefix)
	}
	return nil
}
