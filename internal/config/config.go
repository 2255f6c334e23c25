// ABOUTME: Configuration loading from YAML and environment variables
// ABOUTME: Resolves XDG paths, applies defaults, validates, and saves the config file

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/harper/inkreader/internal/db"
)

// Config stores inkreader configuration. Environment variables override the file.
type Config struct {
	// DataDir is the root directory for data storage; inkreader.db lives here.
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/inkreader.
	DataDir string `yaml:"data_dir,omitempty" env:"INKREADER_DATA_DIR"`

	// SyncKey is this device's reading-history key.
	SyncKey string `yaml:"sync_key,omitempty" env:"INKREADER_SYNC_KEY"`

	ArticlesPerPage  int      `yaml:"articles_per_page" env:"INKREADER_PAGE_SIZE" env-default:"5"`
	RetentionDays    int      `yaml:"retention_days" env:"INKREADER_RETENTION_DAYS" env-default:"90"`
	RefreshInterval  Duration `yaml:"refresh_interval" env:"INKREADER_REFRESH_INTERVAL" env-default:"1h"`
	CleanupInterval  Duration `yaml:"cleanup_interval" env:"INKREADER_CLEANUP_INTERVAL" env-default:"24h"`
	FetchTimeout     Duration `yaml:"fetch_timeout" env:"INKREADER_FETCH_TIMEOUT" env-default:"30s"`
	FetchConcurrency int      `yaml:"fetch_concurrency" env:"INKREADER_FETCH_CONCURRENCY" env-default:"4"`
	HostInterval     Duration `yaml:"host_interval" env:"INKREADER_HOST_INTERVAL" env-default:"1s"`

	LogLevel    string `yaml:"log_level" env:"INKREADER_LOG_LEVEL" env-default:"info"`
	LogFormat   string `yaml:"log_format" env:"INKREADER_LOG_FORMAT" env-default:"text"`
	MetricsAddr string `yaml:"metrics_addr,omitempty" env:"INKREADER_METRICS_ADDR"`
}

// Default returns a config holding only defaults.
func Default() *Config {
	return &Config{
		ArticlesPerPage:  DefaultArticlesPerPage,
		RetentionDays:    DefaultRetentionDays,
		RefreshInterval:  Duration(DefaultRefreshInterval),
		CleanupInterval:  Duration(DefaultCleanupInterval),
		FetchTimeout:     Duration(DefaultHTTPTimeout),
		FetchConcurrency: DefaultFetchConcurrency,
		HostInterval:     Duration(DefaultHostInterval),
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return db.GetDefaultDataDir()
	}
	return ExpandPath(c.DataDir)
}

// DBPath returns the SQLite database path inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), db.DBFileName)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "inkreader", "config.yaml")
}

// Exists reports whether a config file is present at path (or the default path).
func Exists(path string) bool {
	if path == "" {
		path = GetConfigPath()
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load reads the config file at path (the default path when empty), then
// applies environment overrides. A missing file means defaults plus env.
func Load(path string) (*Config, error) {
	if path == "" {
		path = GetConfigPath()
	}

	var cfg Config
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return nil, fmt.Errorf("config path %s is a directory", path)
	case err == nil:
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("read config from environment: %w", err)
		}
	default:
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path (the default path when empty) atomically.
func (c *Config) Save(path string) error {
	if path == "" {
		path = GetConfigPath()
	}
	if err := c.validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DefaultDirPerms); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Chmod(DefaultFilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close config: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func (c *Config) validate() error {
	if c.ArticlesPerPage <= 0 {
		return fmt.Errorf("articles_per_page must be > 0")
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("retention_days must be > 0")
	}
	if c.RefreshInterval.Std() <= 0 {
		return fmt.Errorf("refresh_interval must be > 0")
	}
	if c.CleanupInterval.Std() <= 0 {
		return fmt.Errorf("cleanup_interval must be > 0")
	}
	if c.FetchTimeout.Std() <= 0 {
		return fmt.Errorf("fetch_timeout must be > 0")
	}
	if c.FetchConcurrency <= 0 {
		return fmt.Errorf("fetch_concurrency must be > 0")
	}
	if c.HostInterval.Std() < 0 {
		return fmt.Errorf("host_interval must not be negative")
	}
	return nil
}
