// Package config loads and saves the lychnos TOML configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all lychnos configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Firefly    FireflyConfig    `toml:"firefly"`
	Appearance AppearanceConfig `toml:"appearance"`
	TUI        TUIConfig        `toml:"tui"`
	Daemon     DaemonConfig     `toml:"daemon"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DBPath      string `toml:"db_path,omitempty"`
	TaxCategory string `toml:"tax_category"`
	Location    string `toml:"location,omitempty"` // IANA zone for monthly intervals
	LogLevel    string `toml:"log_level"`
}

// FireflyConfig holds the Firefly III server settings.
type FireflyConfig struct {
	URL   string `toml:"url,omitempty"`
	Token string `toml:"token,omitempty"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// TUIConfig holds dashboard settings.
type TUIConfig struct {
	AutoRefresh        bool `toml:"auto_refresh"`
	RefreshIntervalSec int  `toml:"refresh_interval_sec"`
}

// DaemonConfig holds background poller settings.
type DaemonConfig struct {
	Addr        string `toml:"addr"`
	IntervalSec int    `toml:"interval_sec"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			TaxCategory: "taxes",
			LogLevel:    "info",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		TUI: TUIConfig{
			AutoRefresh:        true,
			RefreshIntervalSec: 300,
		},
		Daemon: DaemonConfig{
			Addr:        "127.0.0.1:8787",
			IntervalSec: 300,
		},
	}
}

var pathOverride string

// SetPath makes Load and Save use path instead of the XDG location.
func SetPath(path string) {
	pathOverride = path
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if pathOverride != "" {
		return filepath.Dir(pathOverride)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "lychnos")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "lychnos")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	if pathOverride != "" {
		return pathOverride
	}
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns the XDG-compliant data directory.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "lychnos")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "lychnos")
}

// LoadDotEnv loads a .env file from the working directory if present.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// GetFireflyURL returns the server URL from env var or config, in that order.
func GetFireflyURL(cfg Config) string {
	if v := os.Getenv("FIREFLY_URL"); v != "" {
		return v
	}
	return cfg.Firefly.URL
}

// GetFireflyToken returns the access token from env var or config, in that order.
func GetFireflyToken(cfg Config) string {
	if v := os.Getenv("FIREFLY_TOKEN"); v != "" {
		return v
	}
	return cfg.Firefly.Token
}

// DBPath returns the budget database path, defaulting into DataDir.
func DBPath(cfg Config) string {
	if cfg.General.DBPath != "" {
		return cfg.General.DBPath
	}
	return filepath.Join(DataDir(), "lychnos.db")
}

// Location returns the configured time zone, or the local zone if unset.
func Location(cfg Config) (*time.Location, error) {
	if cfg.General.Location == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(cfg.General.Location)
	if err != nil {
		return nil, fmt.Errorf("loading location %q: %w", cfg.General.Location, err)
	}
	return loc, nil
}

// Validate checks the configuration and reports every problem at once.
func Validate(cfg Config) error {
	var problems []string

	if raw := GetFireflyURL(cfg); raw != "" {
		u, err := url.Parse(raw)
		switch {
		case err != nil:
			problems = append(problems, fmt.Sprintf("invalid Firefly URL %q: %v", raw, err))
		case u.Scheme != "http" && u.Scheme != "https":
			problems = append(problems, fmt.Sprintf("invalid Firefly URL scheme %q: must be http or https", u.Scheme))
		case u.Host == "":
			problems = append(problems, fmt.Sprintf("invalid Firefly URL %q: missing host", raw))
		}
	}

	if _, err := Location(cfg); err != nil {
		problems = append(problems, err.Error())
	}

	if strings.TrimSpace(cfg.General.TaxCategory) == "" {
		problems = append(problems, "tax category cannot be empty")
	}

	switch strings.ToLower(cfg.General.LogLevel) {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid log level %q", cfg.General.LogLevel))
	}

	if cfg.TUI.RefreshIntervalSec < 10 || cfg.TUI.RefreshIntervalSec > 86400 {
		problems = append(problems, fmt.Sprintf("invalid TUI refresh interval %ds: must be between 10s and 24h", cfg.TUI.RefreshIntervalSec))
	}
	if cfg.Daemon.IntervalSec < 10 || cfg.Daemon.IntervalSec > 86400 {
		problems = append(problems, fmt.Sprintf("invalid daemon interval %ds: must be between 10s and 24h", cfg.Daemon.IntervalSec))
	}
	if cfg.Daemon.Addr == "" {
		problems = append(problems, "daemon address cannot be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}
