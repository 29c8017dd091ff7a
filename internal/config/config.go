package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config represents application configuration
type Config struct {
	Calendar   CalendarConfig   `mapstructure:"calendar"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Events     []EventConfig    `mapstructure:"events"`
}

// CalendarConfig represents the month view configuration
type CalendarConfig struct {
	Timezone     string `mapstructure:"timezone"`   // IANA name, e.g. "America/New_York"
	WeekStart    string `mapstructure:"week_start"` // "sunday" or "monday"
	UpcomingDays int    `mapstructure:"upcoming_days"`
}

// EnrichmentConfig represents the Hebrew holiday source configuration
type EnrichmentConfig struct {
	Type         string `mapstructure:"type"`          // "library", "api", "file" or "none"
	APIURL       string `mapstructure:"api_url"`       // Default: https://www.hebcal.com
	FallbackFile string `mapstructure:"fallback_file"` // Used alone for "file", as fallback otherwise
	CacheTTL     string `mapstructure:"cache_ttl"`
	Timeout      string `mapstructure:"timeout"`
	Israel       bool   `mapstructure:"israel"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Listen      string `mapstructure:"listen"`
	RefreshCron string `mapstructure:"refresh_cron"` // cron spec for re-enriching open sessions
	SessionIdle string `mapstructure:"session_idle"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// EventConfig represents a seed church event
type EventConfig struct {
	Title                string `mapstructure:"title"`
	Date                 string `mapstructure:"date"` // YYYY-MM-DD
	Time                 string `mapstructure:"time"`
	Location             string `mapstructure:"location"`
	Department           string `mapstructure:"department"`
	Description          string `mapstructure:"description"`
	Type                 string `mapstructure:"type"`
	Recurring            bool   `mapstructure:"recurring"`
	BiblicalSignificance string `mapstructure:"biblical_significance"`
}

const (
	EnrichmentLibrary = "library"
	EnrichmentAPI     = "api"
	EnrichmentFile    = "file"
	EnrichmentNone    = "none"
)

// Load loads configuration from file.
// Without an explicit path a missing config file is not an error: defaults apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.church-calendar")
		v.AddConfigPath("/etc/church-calendar")
	}

	// Read environment variables, e.g. CHURCH_CALENDAR_ENRICHMENT_TYPE=none
	v.SetEnvPrefix("church_calendar")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		dateStringHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&config, decodeHook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.ExpandEnvVars()

	// Validate config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// dateStringHook turns YAML timestamps (unquoted 2024-01-14) back into YYYY-MM-DD strings
func dateStringHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to.Kind() != reflect.String {
			return data, nil
		}
		if t, ok := data.(time.Time); ok {
			return t.Format("2006-01-02"), nil
		}
		return data, nil
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("calendar.timezone", "America/New_York")
	v.SetDefault("calendar.week_start", "sunday")
	v.SetDefault("calendar.upcoming_days", 30)
	v.SetDefault("enrichment.type", EnrichmentLibrary)
	v.SetDefault("enrichment.cache_ttl", "24h")
	v.SetDefault("enrichment.timeout", "10s")
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.refresh_cron", "@daily")
	v.SetDefault("server.session_idle", "2h")
	v.SetDefault("log.level", "info")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate Calendar config
	if _, err := c.Calendar.GetLocation(); err != nil {
		return err
	}
	if _, err := c.Calendar.GetWeekStart(); err != nil {
		return err
	}
	if c.Calendar.UpcomingDays < 0 {
		return fmt.Errorf("calendar.upcoming_days must not be negative")
	}

	// Validate Enrichment config
	enrType := c.Enrichment.Type
	if enrType == "" {
		enrType = EnrichmentLibrary
	}

	switch enrType {
	case EnrichmentLibrary, EnrichmentAPI, EnrichmentNone:
	case EnrichmentFile:
		if c.Enrichment.FallbackFile == "" {
			return fmt.Errorf("enrichment.fallback_file is required for file type")
		}
	default:
		return fmt.Errorf("enrichment.type must be 'library', 'api', 'file' or 'none', got '%s'", enrType)
	}

	for _, field := range []struct{ name, value string }{
		{"enrichment.cache_ttl", c.Enrichment.CacheTTL},
		{"enrichment.timeout", c.Enrichment.Timeout},
		{"server.session_idle", c.Server.SessionIdle},
	} {
		if field.value == "" {
			continue
		}
		if d, err := time.ParseDuration(field.value); err != nil || d <= 0 {
			return fmt.Errorf("%s must be a positive duration, got '%s'", field.name, field.value)
		}
	}

	// Validate seed events
	for i, ev := range c.Events {
		if ev.Title == "" {
			return fmt.Errorf("events[%d].title is required", i)
		}
		if _, err := time.Parse("2006-01-02", ev.Date); err != nil {
			return fmt.Errorf("events[%d].date must be YYYY-MM-DD, got '%s'", i, ev.Date)
		}
	}

	return nil
}

// GetLocation returns the calendar time zone (default: America/New_York)
func (c *CalendarConfig) GetLocation() (*time.Location, error) {
	name := c.Timezone
	if name == "" {
		name = "America/New_York"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("calendar.timezone: %w", err)
	}
	return loc, nil
}

// GetWeekStart returns the first weekday of the grid (default: Sunday)
func (c *CalendarConfig) GetWeekStart() (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(c.WeekStart)) {
	case "", "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	default:
		return time.Sunday, fmt.Errorf("calendar.week_start must be 'sunday' or 'monday', got '%s'", c.WeekStart)
	}
}

// GetCacheTTL returns the API cache TTL duration
func (c *EnrichmentConfig) GetCacheTTL() time.Duration {
	return parseDurationOr(c.CacheTTL, 24*time.Hour)
}

// GetTimeout returns the bound of a single enrichment pass
func (c *EnrichmentConfig) GetTimeout() time.Duration {
	return parseDurationOr(c.Timeout, 10*time.Second)
}

// GetSessionIdle returns how long an unused session is kept
func (c *ServerConfig) GetSessionIdle() time.Duration {
	return parseDurationOr(c.SessionIdle, 2*time.Hour)
}

func parseDurationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	duration, err := time.ParseDuration(s)
	if err != nil || duration <= 0 {
		return def
	}
	return duration
}

// ExpandEnvVars expands environment variables in config strings
func (c *Config) ExpandEnvVars() {
	c.Enrichment.APIURL = os.ExpandEnv(c.Enrichment.APIURL)
	c.Enrichment.FallbackFile = os.ExpandEnv(c.Enrichment.FallbackFile)
	c.Log.File = os.ExpandEnv(c.Log.File)
}
