package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Database DatabaseConfig  `yaml:"database"`
	Log      LogConfig       `yaml:"log"`
	Sync     SyncConfig      `yaml:"sync"`
	Accounts []AccountConfig `yaml:"accounts"`
	Archive  ArchiveConfig   `yaml:"archive"`
}

// ServerConfig contains settings of the reference note service.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	APIKey          string   `yaml:"-"` // env-only, never in YAML
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	// Path is the client-side store holding notes, journal and sync state.
	Path string `yaml:"path"`
	// ServerPath is the store of the reference note service.
	ServerPath string `yaml:"server_path"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SyncConfig contains scheduler and connectivity settings shared by all accounts.
type SyncConfig struct {
	Schedule       string   `yaml:"schedule"`
	RequestTimeout Duration `yaml:"request_timeout"`
	ProbeTimeout   Duration `yaml:"probe_timeout"`
	// Metered marks the current connection as metered; wifi-only accounts
	// defer while it is set.
	Metered bool `yaml:"metered"`
}

// AccountConfig binds a local account to its remote note service.
type AccountConfig struct {
	ID              string `yaml:"id"`
	RemoteURL       string `yaml:"remote_url"`
	RemoteAccountID string `yaml:"remote_account_id"`
	WifiOnly        bool   `yaml:"wifi_only"`
	APIKey          string `yaml:"-"` // env-only, never in YAML
}

// RemoteID returns the account id used in remote paths.
func (a AccountConfig) RemoteID() string {
	if a.RemoteAccountID != "" {
		return a.RemoteAccountID
	}
	return a.ID
}

// ArchiveConfig contains S3-compatible journal archive settings.
// An empty Bucket disables archiving.
type ArchiveConfig struct {
	Bucket    string   `yaml:"bucket"`
	Endpoint  string   `yaml:"endpoint"`
	Region    string   `yaml:"region"`
	Prefix    string   `yaml:"prefix"`
	UseSSL    *bool    `yaml:"use_ssl"`
	Interval  Duration `yaml:"interval"`
	BatchSize int      `yaml:"batch_size"`
	AccessKey string   `yaml:"-"` // env-only, never in YAML
	SecretKey string   `yaml:"-"` // env-only, never in YAML
}

// Enabled reports whether an archive bucket is configured.
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// Account returns the account with the given id.
func (c *Config) Account(id string) (AccountConfig, bool) {
	for _, a := range c.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return AccountConfig{}, false
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// A .env file is loaded into the environment first; its variables never
// override ones already set.
func Load() (*Config, error) {
	cfg := newDefaults()

	if err := loadDotEnv(getEnv("NOTESYNC_ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	configPath := getEnv("NOTESYNC_CONFIG_PATH", "config/notesync.yaml")

	// Missing file is not an error
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific path, which must exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Database: DatabaseConfig{
			Path:       "data/notesync.db",
			ServerPath: "data/noteservice.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Sync: SyncConfig{
			Schedule:       "@every 15m",
			RequestTimeout: Duration(30 * time.Second),
			ProbeTimeout:   Duration(3 * time.Second),
		},
		Archive: ArchiveConfig{
			Prefix:    "journal",
			Interval:  Duration(1 * time.Hour),
			BatchSize: 500,
		},
	}
}

// loadDotEnv loads path into the process environment if it exists.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("parsing env file: %w", err)
	}
	return nil
}

// loadYAMLFile loads configuration from a YAML file if it exists.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("NOTESYNC_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	envDuration("NOTESYNC_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("NOTESYNC_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("NOTESYNC_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	if v := os.Getenv("NOTESYNC_SERVER_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}

	// Database
	if v := os.Getenv("NOTESYNC_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("NOTESYNC_SERVER_DB_PATH"); v != "" {
		cfg.Database.ServerPath = v
	}

	// Log
	if v := os.Getenv("NOTESYNC_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("NOTESYNC_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	// Sync
	if v := os.Getenv("NOTESYNC_SCHEDULE"); v != "" {
		cfg.Sync.Schedule = v
	}
	envDuration("NOTESYNC_REQUEST_TIMEOUT", &cfg.Sync.RequestTimeout)
	envDuration("NOTESYNC_PROBE_TIMEOUT", &cfg.Sync.ProbeTimeout)
	if v := os.Getenv("NOTESYNC_METERED"); v != "" {
		cfg.Sync.Metered = v == "true" || v == "1"
	}

	// Accounts: a single account may be declared from the environment.
	if id := os.Getenv("NOTESYNC_ACCOUNT_ID"); id != "" {
		if _, ok := cfg.Account(id); !ok {
			cfg.Accounts = append(cfg.Accounts, AccountConfig{ID: id})
		}
		for i := range cfg.Accounts {
			if cfg.Accounts[i].ID != id {
				continue
			}
			if v := os.Getenv("NOTESYNC_REMOTE_URL"); v != "" {
				cfg.Accounts[i].RemoteURL = v
			}
			if v := os.Getenv("NOTESYNC_WIFI_ONLY"); v != "" {
				cfg.Accounts[i].WifiOnly = v == "true" || v == "1"
			}
		}
	}
	if v := os.Getenv("NOTESYNC_REMOTE_API_KEY"); v != "" {
		for i := range cfg.Accounts {
			cfg.Accounts[i].APIKey = v
		}
	}

	// Archive
	if v := os.Getenv("NOTESYNC_ARCHIVE_BUCKET"); v != "" {
		cfg.Archive.Bucket = v
	}
	if v := os.Getenv("NOTESYNC_S3_ENDPOINT"); v != "" {
		cfg.Archive.Endpoint = v
	}
	if v := os.Getenv("NOTESYNC_S3_REGION"); v != "" {
		cfg.Archive.Region = v
	}
	if v := os.Getenv("NOTESYNC_S3_ACCESS_KEY"); v != "" {
		cfg.Archive.AccessKey = v
	}
	if v := os.Getenv("NOTESYNC_S3_SECRET_KEY"); v != "" {
		cfg.Archive.SecretKey = v
	}
	if v := os.Getenv("NOTESYNC_S3_USE_SSL"); v != "" {
		useSSL := v == "true" || v == "1"
		cfg.Archive.UseSSL = &useSSL
	}
	envDuration("NOTESYNC_ARCHIVE_INTERVAL", &cfg.Archive.Interval)
}

// envDuration overrides dst with the duration in env var key, if parseable.
func envDuration(key string, dst *Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}

// validate checks that the configuration is usable.
func (c *Config) validate() error {
	var errs []error

	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if _, err := cron.ParseStandard(c.Sync.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("sync.schedule %q: %w", c.Sync.Schedule, err))
	}
	if c.Sync.RequestTimeout <= 0 {
		errs = append(errs, errors.New("sync.request_timeout must be positive"))
	}

	seen := make(map[string]bool, len(c.Accounts))
	for i, a := range c.Accounts {
		switch {
		case strings.TrimSpace(a.ID) == "":
			errs = append(errs, fmt.Errorf("accounts[%d].id is required", i))
		case seen[a.ID]:
			errs = append(errs, fmt.Errorf("accounts[%d]: duplicate id %q", i, a.ID))
		}
		seen[a.ID] = true
		if a.RemoteURL == "" {
			errs = append(errs, fmt.Errorf("accounts[%d].remote_url is required", i))
		}
	}

	if c.Archive.Enabled() {
		if c.Archive.Endpoint == "" {
			errs = append(errs, errors.New("archive.endpoint is required when archive.bucket is set"))
		}
		if c.Archive.Interval <= 0 {
			errs = append(errs, errors.New("archive.interval must be positive"))
		}
		if c.Archive.BatchSize <= 0 {
			errs = append(errs, errors.New("archive.batch_size must be positive"))
		}
	}

	return errors.Join(errs...)
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
