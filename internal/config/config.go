// Package config loads creatorhub settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Archive drivers.
const (
	ArchiveMemory = "memory"
	ArchiveFS     = "fs"
	ArchiveS3     = "s3"
)

// Config is the full application configuration.
type Config struct {
	Locale     string           `yaml:"locale"`
	Storage    StorageConfig    `yaml:"storage"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Logging    LoggingConfig    `yaml:"logging"`
	Load       LoadConfig       `yaml:"load"`
	Generation GenerationConfig `yaml:"generation"`
	Server     ServerConfig     `yaml:"server"`
	Export     ExportConfig     `yaml:"export"`
}

// StorageConfig selects the persistence driver.
type StorageConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// ArchiveConfig selects where exports are written.
type ArchiveConfig struct {
	Driver      string `yaml:"driver"`
	Dir         string `yaml:"dir"`
	S3Bucket    string `yaml:"s3_bucket"`
	S3Region    string `yaml:"s3_region"`
	S3Endpoint  string `yaml:"s3_endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig holds the weekly heatmap thresholds: a day with at most Light
// items is light, at most Moderate is moderate, anything above is heavy.
type LoadConfig struct {
	Light    int `yaml:"light"`
	Moderate int `yaml:"moderate"`
}

// GenerationConfig configures the AI content generator.
type GenerationConfig struct {
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

// ServerConfig configures the notification/metrics server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ExportConfig configures the export worker.
type ExportConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Locale:  "en",
		Storage: StorageConfig{Driver: StorageSQLite, SQLitePath: "creatorhub.db"},
		Archive: ArchiveConfig{Driver: ArchiveFS, Dir: "exports", S3Region: "us-east-1"},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Load:    LoadConfig{Light: 2, Moderate: 5},
		Generation: GenerationConfig{
			Model:   "gemini-2.5-flash",
			Timeout: "45s",
		},
		Server: ServerConfig{Addr: ":8090"},
		Export: ExportConfig{QueueSize: 16},
	}
}

// Load reads path (missing files yield defaults), applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	setString := func(env string, dst *string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	setString("CREATORHUB_LOCALE", &c.Locale)
	setString("CREATORHUB_STORAGE_DRIVER", &c.Storage.Driver)
	setString("CREATORHUB_SQLITE_PATH", &c.Storage.SQLitePath)
	setString("CREATORHUB_POSTGRES_DSN", &c.Storage.PostgresDSN)
	setString("CREATORHUB_ARCHIVE_DRIVER", &c.Archive.Driver)
	setString("CREATORHUB_ARCHIVE_DIR", &c.Archive.Dir)
	setString("CREATORHUB_ARCHIVE_S3_BUCKET", &c.Archive.S3Bucket)
	setString("CREATORHUB_ARCHIVE_S3_REGION", &c.Archive.S3Region)
	setString("CREATORHUB_ARCHIVE_S3_ENDPOINT", &c.Archive.S3Endpoint)
	if v := os.Getenv("CREATORHUB_ARCHIVE_S3_PATH_STYLE"); v != "" {
		c.Archive.S3PathStyle = strings.EqualFold(v, "true")
	}
	setString("CREATORHUB_LOG_LEVEL", &c.Logging.Level)
	setString("CREATORHUB_LOG_FORMAT", &c.Logging.Format)
	setString("CREATORHUB_GENAI_MODEL", &c.Generation.Model)
	setString("GEMINI_API_KEY", &c.Generation.APIKey)
	setString("CREATORHUB_GENAI_API_KEY", &c.Generation.APIKey)
	setString("CREATORHUB_ADDR", &c.Server.Addr)
	if v := os.Getenv("CREATORHUB_LOAD_LIGHT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Load.Light = n
		}
	}
	if v := os.Getenv("CREATORHUB_LOAD_MODERATE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Load.Moderate = n
		}
	}
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StorageSQLite:
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("config: postgres driver requires storage.postgres_dsn")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Archive.Driver {
	case ArchiveMemory:
	case ArchiveFS:
		if c.Archive.Dir == "" {
			return errors.New("config: fs archive requires archive.dir")
		}
	case ArchiveS3:
		if c.Archive.S3Bucket == "" {
			return errors.New("config: s3 archive requires archive.s3_bucket")
		}
	default:
		return fmt.Errorf("config: unknown archive driver %q", c.Archive.Driver)
	}
	if c.Load.Light < 0 || c.Load.Moderate < c.Load.Light {
		return fmt.Errorf("config: load thresholds must satisfy 0 <= light <= moderate, got %d/%d", c.Load.Light, c.Load.Moderate)
	}
	if c.Export.QueueSize <= 0 {
		return errors.New("config: export.queue_size must be positive")
	}
	return nil
}

// GenerationTimeout parses Generation.Timeout, defaulting to 45s.
func (c *Config) GenerationTimeout() time.Duration {
	d, err := time.ParseDuration(c.Generation.Timeout)
	if err != nil || d <= 0 {
		return 45 * time.Second
	}
	return d
}
