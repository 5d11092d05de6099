// Package config loads agent configuration from defaults, an optional YAML
// file, a .env file and PARENTGUARD_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/eliteGoblin/focusd/parentguard/internal/infra"
	"github.com/eliteGoblin/focusd/parentguard/internal/journal"
	"github.com/eliteGoblin/focusd/parentguard/internal/policy"
	"github.com/eliteGoblin/focusd/parentguard/internal/usecase"
)

// EnvPrefix prefixes every environment override, e.g. PARENTGUARD_API_ADDR.
const EnvPrefix = "PARENTGUARD"

// DefaultAPIAddr is loopback only; the API must not be reachable from the LAN.
const DefaultAPIAddr = "127.0.0.1:7474"

// Config is the agent configuration.
type Config struct {
	Interval         time.Duration `mapstructure:"interval"`
	UTCOffsetMinutes int           `mapstructure:"utc_offset_minutes"`
	RestorePolicy    string        `mapstructure:"restore_policy"`
	RulesFile        string        `mapstructure:"rules_file"`
	DataDir          string        `mapstructure:"data_dir"`
	Hosts            HostsConfig   `mapstructure:"hosts"`
	Network          NetworkConfig `mapstructure:"network"`
	API              APIConfig     `mapstructure:"api"`
	Log              LogConfig     `mapstructure:"log"`
	Notify           NotifyConfig  `mapstructure:"notify"`
	Journal          JournalConfig `mapstructure:"journal"`
}

type HostsConfig struct {
	Path   string `mapstructure:"path"`
	Marker string `mapstructure:"marker"`
}

type NetworkConfig struct {
	Interfaces []string `mapstructure:"interfaces"`
}

type APIConfig struct {
	Addr      string `mapstructure:"addr"`
	RateLimit int    `mapstructure:"rate_limit"` // PIN-guarded requests per minute per IP
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type NotifyConfig struct {
	Desktop      bool          `mapstructure:"desktop"`
	SlackWebhook string        `mapstructure:"slack_webhook"`
	MinInterval  time.Duration `mapstructure:"min_interval"`
}

type JournalConfig struct {
	MaxEntries int `mapstructure:"max_entries"`
}

// New returns a viper instance with defaults and environment binding.
// Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	mode := infra.DetectExecMode()

	v.SetDefault("interval", policy.DefaultInterval)
	v.SetDefault("utc_offset_minutes", 0)
	v.SetDefault("restore_policy", string(usecase.RestoreUnconditional))
	v.SetDefault("rules_file", "")
	v.SetDefault("data_dir", mode.DataDir)
	v.SetDefault("hosts.path", mode.HostsPath)
	v.SetDefault("hosts.marker", usecase.DefaultMarker)
	v.SetDefault("network.interfaces", []string{})
	v.SetDefault("api.addr", DefaultAPIAddr)
	v.SetDefault("api.rate_limit", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("notify.desktop", false)
	v.SetDefault("notify.slack_webhook", "")
	v.SetDefault("notify.min_interval", 5*time.Minute)
	v.SetDefault("journal.max_entries", journal.DefaultMaxEntries)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file and .env file and decodes the result.
// An explicit configFile must exist; otherwise config.yaml is searched in
// /etc/parentguard, the data directory and the working directory.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	loadDotEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/parentguard")
		v.AddConfigPath(v.GetString("data_dir"))
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv loads the first .env found; existing variables win.
func loadDotEnv() {
	for _, path := range envPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func envPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}
	paths = append(paths, filepath.Join(infra.GetRealUserHome(), ".parentguard", ".env"))
	return paths
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", c.Interval))
	}
	// Real-world offsets run from UTC-12 to UTC+14.
	if c.UTCOffsetMinutes < -12*60 || c.UTCOffsetMinutes > 14*60 {
		errs = append(errs, fmt.Errorf("utc_offset_minutes out of range: %d", c.UTCOffsetMinutes))
	}
	if _, err := usecase.ParseRestorePolicy(c.RestorePolicy); err != nil {
		errs = append(errs, err)
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must be set"))
	}
	if c.API.Addr == "" {
		errs = append(errs, errors.New("api.addr must be set"))
	}
	if c.API.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("api.rate_limit must be positive, got %d", c.API.RateLimit))
	}
	if c.Journal.MaxEntries <= 0 {
		errs = append(errs, fmt.Errorf("journal.max_entries must be positive, got %d", c.Journal.MaxEntries))
	}
	if c.Notify.MinInterval < 0 {
		errs = append(errs, fmt.Errorf("notify.min_interval must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
