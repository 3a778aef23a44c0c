// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ijug-ev/cindy/internal/feed"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Mastodon MastodonConfig `mapstructure:"mastodon"`
	Server   ServerConfig   `mapstructure:"server"`
	Poll     PollConfig     `mapstructure:"poll"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Redirect RedirectConfig `mapstructure:"redirect"`
	LastRun  LastRunConfig  `mapstructure:"lastrun"`
	Timezone string         `mapstructure:"timezone"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// MastodonConfig identifies the publish target.
type MastodonConfig struct {
	Host        string `mapstructure:"host"`
	AccessToken string `mapstructure:"access_token"`
}

// ServerConfig controls the health/metrics HTTP endpoint.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// PollConfig governs the scheduler.
type PollConfig struct {
	IntervalSeconds     int `mapstructure:"interval_seconds"`
	StartupDelaySeconds int `mapstructure:"startup_delay_seconds"`
	TimeoutSeconds      int `mapstructure:"timeout_seconds"`
}

// CalendarConfig lists the feed sources.
type CalendarConfig struct {
	// Sources is a comma-separated URI list.
	Sources string `mapstructure:"sources"`
}

// RedirectConfig bounds the redirect interceptor.
type RedirectConfig struct {
	Limit int `mapstructure:"limit"`
}

// LastRunConfig locates the last-run persistence file.
type LastRunConfig struct {
	File string `mapstructure:"file"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	return load(path, true)
}

// LoadLenient builds a Config without validation. Used by commands that
// only need individual values, such as the health probe.
func LoadLenient(path string) (Config, error) {
	return load(path, false)
}

func load(path string, validate bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CINDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if validate {
		if err := cfg.Validate(); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Registering empty defaults makes env-only keys visible to Unmarshal.
	v.SetDefault("mastodon.host", "")
	v.SetDefault("mastodon.access_token", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("poll.interval_seconds", 60)
	v.SetDefault("poll.startup_delay_seconds", 5)
	v.SetDefault("poll.timeout_seconds", 30)
	v.SetDefault("redirect.limit", 50)
	v.SetDefault("lastrun.file", "lastRun")
	v.SetDefault("timezone", "Europe/Berlin")
	v.SetDefault("logging.development", true)
	v.SetDefault("calendar.sources", "")
}

// Validate enforces required values and reasonable limits. Missing
// credentials are fatal before any scheduling begins.
func (c Config) Validate() error {
	if c.Mastodon.Host == "" {
		return fmt.Errorf("mastodon.host is missing")
	}
	if c.Mastodon.AccessToken == "" {
		return fmt.Errorf("mastodon.access_token is missing")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Poll.IntervalSeconds <= 0 {
		return fmt.Errorf("poll.interval_seconds must be > 0")
	}
	if c.Redirect.Limit < 0 {
		return fmt.Errorf("redirect.limit must be >= 0")
	}
	if c.LastRun.File == "" {
		return fmt.Errorf("lastrun.file is missing")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q is not loadable: %w", c.Timezone, err)
	}
	return nil
}

// Sources parses the comma-separated source list into calendar sources.
// Blank entries are skipped.
func (c Config) Sources() ([]feed.CalendarSource, error) {
	var out []feed.CalendarSource
	for _, raw := range strings.Split(c.Calendar.Sources, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		source, err := feed.ParseSource(raw)
		if err != nil {
			return nil, fmt.Errorf("calendar source %q: %w", raw, err)
		}
		out = append(out, source)
	}
	return out, nil
}

// Interval converts the polling interval to a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

// StartupDelay converts the startup delay to a duration.
func (c Config) StartupDelay() time.Duration {
	return time.Duration(c.Poll.StartupDelaySeconds) * time.Second
}

// FetchTimeout converts the per-fetch timeout to a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Poll.TimeoutSeconds) * time.Second
}

// Zone loads the configured target time zone.
func (c Config) Zone() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
