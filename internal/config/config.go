package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"blockpad/internal/storage"
)

// Config is the full application configuration. A missing config file
// is not an error; defaults describe a local sqlite-backed server.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Editor EditorConfig `yaml:"editor"`
	Backup BackupConfig `yaml:"backup"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// StoreConfig selects the BlockStore backend. Driver is one of
// sqlite, postgres, mysql, mongo. Path is the sqlite file; DSN is the
// postgres/mysql DSN or the mongo URI; Database names the mongo db.
type StoreConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	DSN      string `yaml:"dsn"`
	Database string `yaml:"database"`
}

type EditorConfig struct {
	DebounceDelay time.Duration `yaml:"debounce_delay"`
	// RemoteURL points the editor at a running server instead of a
	// local store (MCP mode only).
	RemoteURL string `yaml:"remote_url"`
}

type BackupConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"` // cron expression
	Dir      string `yaml:"dir"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Driver: storage.DriverSQLite,
			Path:   "blockpad.db",
		},
		Editor: EditorConfig{
			DebounceDelay: 500 * time.Millisecond,
		},
		Backup: BackupConfig{
			Schedule: "@hourly",
			Dir:      "backups",
		},
	}
}

// Load reads the YAML config at path, applying defaults for anything
// unset and environment overrides for credentials. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// DSNs carry credentials; let the environment win over the file.
	if dsn := os.Getenv("BLOCKPAD_STORE_DSN"); dsn != "" {
		cfg.Store.DSN = dsn
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks the cross-field constraints.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case storage.DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for sqlite")
		}
	case storage.DriverPostgres, storage.DriverMySQL:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for %s", c.Store.Driver)
		}
	case storage.DriverMongo:
		if c.Store.DSN == "" || c.Store.Database == "" {
			return fmt.Errorf("store.dsn and store.database are required for mongo")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Backup.Enabled && c.Backup.Dir == "" {
		return fmt.Errorf("backup.dir is required when backup is enabled")
	}
	return nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
