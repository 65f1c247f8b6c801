// Package config provides configuration management for the signalstore
// engine.
//
// Configuration is loaded from multiple sources:
//  1. A local .env file (optional, for development), whose entries are set
//     as environment variables unless already present
//  2. A YAML config file (optional)
//  3. Environment variables, including those set from .env (take
//     precedence over the YAML file)
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete engine configuration.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Storage StorageConfig `mapstructure:"storage"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// EngineConfig tunes the dispatcher and index sizing knobs that sit between
// the engine and the rest of the system: how deep the async command queue
// runs, how much each per-kind LRU cache holds, and how aggressively the
// galloping search in the compound index iterator expands its probe window.
// SubscriptionBufferSize is loaded and validated, but the HTTP subscribe
// handlers use a fixed buffer of 64 and do not read it.
type EngineConfig struct {
	CommandBufferSize      int `mapstructure:"command_buffer_size"`
	SubscriptionBufferSize int `mapstructure:"subscription_buffer_size"`
	CacheCapacity          int `mapstructure:"cache_capacity"`
	GallopExpansionFactor  int `mapstructure:"gallop_expansion_factor"`
}

// Validate validates engine configuration.
func (ec *EngineConfig) Validate() error {
	if ec.CommandBufferSize <= 0 {
		return errors.New("command_buffer_size must be positive")
	}
	if ec.SubscriptionBufferSize <= 0 {
		return errors.New("subscription_buffer_size must be positive")
	}
	if ec.CacheCapacity <= 0 {
		return errors.New("cache_capacity must be positive")
	}
	if ec.GallopExpansionFactor < 2 {
		return errors.New("gallop_expansion_factor must be at least 2")
	}
	return nil
}

// StorageConfig selects between the transient (in-memory) and persistent
// (Badger-backed) hot-path storage, and configures the cold-storage export
// of entities dropped from the hot path.
type StorageConfig struct {
	// TransientOnly runs the engine entirely in memory (storage.Transient),
	// never opening a Badger directory. Suitable for tests and short-lived
	// embeddings; all data is lost on process exit.
	TransientOnly bool `mapstructure:"transient_only"`
	// ArchivePath is the Badger directory backing storage.Persistent when
	// TransientOnly is false.
	ArchivePath string `mapstructure:"archive_path"`
	// ArchiveFsync forces every write to the persistent archive to fsync
	// before being acknowledged, trading write throughput for the
	// guarantee that an acknowledged insert survives a crash.
	ArchiveFsync bool `mapstructure:"archive_fsync"`

	// ColdStorageEnabled attaches an archive.Exporter to the engine so
	// entities removed by Drop* calls are snapshotted to Parquet before
	// they disappear from storage and the indexes.
	ColdStorageEnabled bool `mapstructure:"cold_storage_enabled"`
	// ColdStoragePath is the Hive-partitioned directory the exporter
	// writes signal=.../year=.../month=.../day=... files under.
	ColdStoragePath string `mapstructure:"cold_storage_path"`
	// ColdStorageCompressionLevel is a zstd level, 1-22.
	ColdStorageCompressionLevel int `mapstructure:"cold_storage_compression_level"`
	// ColdStorageFlushInterval bounds how long a dropped entity can sit in
	// the exporter's in-memory batch before being flushed to disk.
	ColdStorageFlushInterval time.Duration `mapstructure:"cold_storage_flush_interval"`
}

// Validate validates storage configuration.
func (sc *StorageConfig) Validate() error {
	if !sc.TransientOnly && sc.ArchivePath == "" {
		return errors.New("archive_path is required unless transient_only is set")
	}
	if sc.ColdStorageEnabled {
		if sc.ColdStoragePath == "" {
			return errors.New("cold_storage_path is required when cold_storage_enabled is set")
		}
		if sc.ColdStorageCompressionLevel < 1 || sc.ColdStorageCompressionLevel > 22 {
			return fmt.Errorf("cold_storage_compression_level must be 1-22 (got %d)", sc.ColdStorageCompressionLevel)
		}
		if sc.ColdStorageFlushInterval <= 0 {
			return errors.New("cold_storage_flush_interval must be positive when cold_storage_enabled is set")
		}
	}
	return nil
}

// ServerConfig contains HTTP and WebSocket server configuration, relevant
// only when cmd/server fronts the engine over the network.
type ServerConfig struct {
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
	CORSAllowedMethods []string      `mapstructure:"cors_allowed_methods"`
	CORSAllowedHeaders []string      `mapstructure:"cors_allowed_headers"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the host:port the HTTP server should bind to.
func (sc *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", sc.Host, sc.Port)
}

// Validate validates server configuration.
func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", sc.Port)
	}
	if sc.Host == "" {
		return errors.New("host cannot be empty")
	}
	if sc.ReadTimeout < 0 {
		return errors.New("read_timeout cannot be negative")
	}
	if sc.WriteTimeout < 0 {
		return errors.New("write_timeout cannot be negative")
	}
	return nil
}

// LoggingConfig contains logging configuration, passed straight to
// pkg/logging.NewLoggerWithFormat.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Validate validates logging configuration.
func (lc *LoggingConfig) Validate() error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, lc.Level) {
		return fmt.Errorf("invalid log level: %s (must be one of %v)", lc.Level, validLevels)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, lc.Format) {
		return fmt.Errorf("invalid log format: %s (must be one of %v)", lc.Format, validFormats)
	}

	return nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// Validate validates the main configuration and all sub-configurations.
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine config validation failed: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config validation failed: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config validation failed: %w", err)
	}
	return nil
}

// Load reads configuration from a local .env file, an optional YAML config
// file, and environment variables. Environment variables, including those
// set from .env, take precedence over the YAML file, which takes precedence
// over the defaults.
func Load() (*Config, error) {
	// Load .env file if it exists (optional, for local development). This
	// sets environment variables that Viper can then read.
	_ = godotenv.Load(".env")

	viper.Reset()
	viper.SetConfigName("signalstore")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/signalstore")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	//nolint:errcheck // BindEnv only errors with invalid args, safe with string literals
	viper.BindEnv("engine.command_buffer_size", "SIGNALSTORE_ENGINE_COMMAND_BUFFER_SIZE")
	//nolint:errcheck
	viper.BindEnv("engine.subscription_buffer_size", "SIGNALSTORE_ENGINE_SUBSCRIPTION_BUFFER_SIZE")
	//nolint:errcheck
	viper.BindEnv("engine.cache_capacity", "SIGNALSTORE_ENGINE_CACHE_CAPACITY")
	//nolint:errcheck
	viper.BindEnv("engine.gallop_expansion_factor", "SIGNALSTORE_ENGINE_GALLOP_EXPANSION_FACTOR")

	//nolint:errcheck
	viper.BindEnv("storage.transient_only", "SIGNALSTORE_STORAGE_TRANSIENT_ONLY")
	//nolint:errcheck
	viper.BindEnv("storage.archive_path", "SIGNALSTORE_STORAGE_ARCHIVE_PATH")
	//nolint:errcheck
	viper.BindEnv("storage.archive_fsync", "SIGNALSTORE_STORAGE_ARCHIVE_FSYNC")
	//nolint:errcheck
	viper.BindEnv("storage.cold_storage_enabled", "SIGNALSTORE_STORAGE_COLD_STORAGE_ENABLED")
	//nolint:errcheck
	viper.BindEnv("storage.cold_storage_path", "SIGNALSTORE_STORAGE_COLD_STORAGE_PATH")
	//nolint:errcheck
	viper.BindEnv("storage.cold_storage_compression_level", "SIGNALSTORE_STORAGE_COLD_STORAGE_COMPRESSION_LEVEL")
	//nolint:errcheck
	viper.BindEnv("storage.cold_storage_flush_interval", "SIGNALSTORE_STORAGE_COLD_STORAGE_FLUSH_INTERVAL")

	//nolint:errcheck
	viper.BindEnv("server.host", "SIGNALSTORE_SERVER_HOST")
	//nolint:errcheck
	viper.BindEnv("server.port", "PORT")
	//nolint:errcheck
	viper.BindEnv("server.cors_allowed_origins", "CORS_ALLOWED_ORIGINS")
	//nolint:errcheck
	viper.BindEnv("server.cors_allowed_methods", "CORS_ALLOWED_METHODS")
	//nolint:errcheck
	viper.BindEnv("server.cors_allowed_headers", "CORS_ALLOWED_HEADERS")

	//nolint:errcheck
	viper.BindEnv("logging.level", "LOG_LEVEL")
	//nolint:errcheck
	viper.BindEnv("logging.format", "LOG_FORMAT")

	setDefaults()

	// Read config file (optional).
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("engine.command_buffer_size", 256)
	viper.SetDefault("engine.subscription_buffer_size", 64)
	viper.SetDefault("engine.cache_capacity", 4096)
	viper.SetDefault("engine.gallop_expansion_factor", 2)

	viper.SetDefault("storage.transient_only", true)
	viper.SetDefault("storage.archive_path", "./data/archive")
	viper.SetDefault("storage.archive_fsync", false)
	viper.SetDefault("storage.cold_storage_enabled", false)
	viper.SetDefault("storage.cold_storage_path", "./data/cold")
	viper.SetDefault("storage.cold_storage_compression_level", 3)
	viper.SetDefault("storage.cold_storage_flush_interval", 5*time.Minute)

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.cors_allowed_origins", []string{"*"})
	viper.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "OPTIONS"})
	viper.SetDefault("server.cors_allowed_headers", []string{"Content-Type", "Authorization"})
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}
