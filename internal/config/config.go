// ABOUTME: Configuration loading and parsing for the Predictera console
// ABOUTME: Handles YAML config with env var expansion, .env files, and defaults

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables consulted while resolving configuration.
const (
	EnvConfigPath = "PREDICTERA_CONFIG"
	EnvAPIHost    = "PREDICTERA_API_HOST"
	EnvAPIPort    = "PREDICTERA_API_PORT"
)

// FallbackBaseURL is used when no base URL is configured and the host/port
// environment pair is incomplete.
const FallbackBaseURL = "http://localhost:8000"

// Credential backends accepted in the credentials section.
var credentialBackends = map[string]bool{
	"file":    true,
	"sqlite":  true,
	"keyring": true,
	"memory":  true,
}

// Config holds all configuration for the console.
type Config struct {
	API           APIConfig           `yaml:"api"`
	Credentials   CredentialsConfig   `yaml:"credentials"`
	Session       SessionConfig       `yaml:"session"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Diagnostics   DiagnosticsConfig   `yaml:"diagnostics"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// APIConfig holds backend connection settings.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`

	// Raw string values for YAML unmarshaling
	TimeoutRaw        string `yaml:"timeout"`
	RefreshTimeoutRaw string `yaml:"refresh_timeout"`

	// Parsed durations (not from YAML directly)
	Timeout        time.Duration `yaml:"-"`
	RefreshTimeout time.Duration `yaml:"-"`
}

// CredentialsConfig selects where the token pair is persisted.
type CredentialsConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	Encrypt bool   `yaml:"encrypt"`
}

// SessionConfig tunes the chat session.
type SessionConfig struct {
	ReplyDelayRaw  string `yaml:"reply_delay"`
	RevealSpeedRaw string `yaml:"reveal_speed"`
	SidebarWindow  int    `yaml:"sidebar_window"`
	HistoryLimit   int    `yaml:"history_limit"`

	ReplyDelay  time.Duration `yaml:"-"`
	RevealSpeed time.Duration `yaml:"-"`
}

// NotificationsConfig controls notification polling.
type NotificationsConfig struct {
	PollIntervalRaw string        `yaml:"poll_interval"`
	PollInterval    time.Duration `yaml:"-"`
}

// DiagnosticsConfig controls scheduled bulk diagnostics.
type DiagnosticsConfig struct {
	// BulkSchedule is a cron expression; empty disables the scheduler.
	BulkSchedule   string        `yaml:"bulk_schedule"`
	BulkTimeoutRaw string        `yaml:"bulk_timeout"`
	BulkTimeout    time.Duration `yaml:"-"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        DefaultBaseURL(),
			Timeout:        30 * time.Second,
			RefreshTimeout: 15 * time.Second,
		},
		Credentials: CredentialsConfig{
			Backend: "file",
		},
		Session: SessionConfig{
			ReplyDelay:    800 * time.Millisecond,
			RevealSpeed:   6 * time.Millisecond,
			SidebarWindow: 10,
		},
		Notifications: NotificationsConfig{
			PollInterval: 30 * time.Second,
		},
		Diagnostics: DiagnosticsConfig{
			BulkTimeout: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "color",
		},
	}
}

// DefaultBaseURL builds the backend URL from PREDICTERA_API_HOST and
// PREDICTERA_API_PORT, falling back to FallbackBaseURL unless both are set.
func DefaultBaseURL() string {
	host, port := os.Getenv(EnvAPIHost), os.Getenv(EnvAPIPort)
	if host == "" || port == "" {
		return FallbackBaseURL
	}
	return fmt.Sprintf("http://%s:%s", host, port)
}

// Dir returns the per-user configuration directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "predictera")
	}
	return filepath.Join("~", ".config", "predictera")
}

// DefaultPath returns PREDICTERA_CONFIG when set, else config.yaml in Dir.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return filepath.Join(Dir(), "config.yaml")
}

// LoadDotEnv loads variables from the given .env files (default "./.env")
// without overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from path. Fields absent from the file keep
// their Default values.
func Load(path string) (*Config, error) {
	expanded, err := expandHome(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDerived()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path (DefaultPath when empty). A missing file yields
// the defaults rather than an error.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
		cfg.applyDerived()
		return cfg, nil
	}
	return cfg, err
}

// applyDerived fills values that depend on other settings.
func (c *Config) applyDerived() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL()
	}
	if c.Credentials.Backend == "" {
		c.Credentials.Backend = "file"
	}
	if c.Credentials.Path == "" {
		switch c.Credentials.Backend {
		case "file":
			c.Credentials.Path = filepath.Join(Dir(), "credentials.toml")
		case "sqlite":
			c.Credentials.Path = filepath.Join(Dir(), "credentials.db")
		}
	}
}

// expandEnvVars replaces ${VAR} references with environment values.
// Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if c.API.RefreshTimeout < 0 {
		return fmt.Errorf("api.refresh_timeout must not be negative")
	}

	if !credentialBackends[c.Credentials.Backend] {
		return fmt.Errorf("credentials.backend %q is not one of file, sqlite, keyring, memory", c.Credentials.Backend)
	}
	if c.Credentials.Encrypt && c.Credentials.Backend != "file" {
		return fmt.Errorf("credentials.encrypt is only supported by the file backend")
	}

	if c.Session.ReplyDelay < 0 || c.Session.RevealSpeed < 0 {
		return fmt.Errorf("session durations must not be negative")
	}
	if c.Session.SidebarWindow < 0 {
		return fmt.Errorf("session.sidebar_window must not be negative")
	}
	if c.Session.HistoryLimit < 0 {
		return fmt.Errorf("session.history_limit must not be negative")
	}

	if c.Notifications.PollInterval <= 0 {
		return fmt.Errorf("notifications.poll_interval must be positive")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json", "color":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json, color", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw YAML strings to time.Duration values.
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"api.timeout", cfg.API.TimeoutRaw, &cfg.API.Timeout},
		{"api.refresh_timeout", cfg.API.RefreshTimeoutRaw, &cfg.API.RefreshTimeout},
		{"session.reply_delay", cfg.Session.ReplyDelayRaw, &cfg.Session.ReplyDelay},
		{"session.reveal_speed", cfg.Session.RevealSpeedRaw, &cfg.Session.RevealSpeed},
		{"notifications.poll_interval", cfg.Notifications.PollIntervalRaw, &cfg.Notifications.PollInterval},
		{"diagnostics.bulk_timeout", cfg.Diagnostics.BulkTimeoutRaw, &cfg.Diagnostics.BulkTimeout},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

func expandHome(path string) (string, error) {
	if len(path) < 2 || path[:2] != "~/" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
