package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 256, cfg.Engine.CommandBufferSize)
	assert.Equal(t, 64, cfg.Engine.SubscriptionBufferSize)
	assert.Equal(t, 4096, cfg.Engine.CacheCapacity)
	assert.Equal(t, 2, cfg.Engine.GallopExpansionFactor)

	assert.True(t, cfg.Storage.TransientOnly)
	assert.False(t, cfg.Storage.ColdStorageEnabled)
	assert.Equal(t, 3, cfg.Storage.ColdStorageCompressionLevel)
	assert.Equal(t, 5*time.Minute, cfg.Storage.ColdStorageFlushInterval)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)

	require.NoError(t, cfg.Validate())
}

func TestLoadHonorsEnvOverrides(t *testing.T) {
	t.Setenv("SIGNALSTORE_ENGINE_CACHE_CAPACITY", "1024")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1024, cfg.Engine.CacheCapacity)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestEngineConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     EngineConfig
		wantErr string
	}{
		{"valid", EngineConfig{CommandBufferSize: 1, SubscriptionBufferSize: 1, CacheCapacity: 1, GallopExpansionFactor: 2}, ""},
		{"zero command buffer", EngineConfig{SubscriptionBufferSize: 1, CacheCapacity: 1, GallopExpansionFactor: 2}, "command_buffer_size"},
		{"zero subscription buffer", EngineConfig{CommandBufferSize: 1, CacheCapacity: 1, GallopExpansionFactor: 2}, "subscription_buffer_size"},
		{"zero cache capacity", EngineConfig{CommandBufferSize: 1, SubscriptionBufferSize: 1, GallopExpansionFactor: 2}, "cache_capacity"},
		{"gallop factor below 2", EngineConfig{CommandBufferSize: 1, SubscriptionBufferSize: 1, CacheCapacity: 1, GallopExpansionFactor: 1}, "gallop_expansion_factor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStorageConfigValidate(t *testing.T) {
	t.Run("transient only needs no archive path", func(t *testing.T) {
		cfg := StorageConfig{TransientOnly: true}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("persistent requires archive path", func(t *testing.T) {
		cfg := StorageConfig{TransientOnly: false}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "archive_path")
	})

	t.Run("cold storage requires a path", func(t *testing.T) {
		cfg := StorageConfig{
			TransientOnly:      true,
			ColdStorageEnabled: true,
		}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cold_storage_path")
	})

	t.Run("cold storage compression level out of range", func(t *testing.T) {
		cfg := StorageConfig{
			TransientOnly:               true,
			ColdStorageEnabled:          true,
			ColdStoragePath:             "/tmp/cold",
			ColdStorageCompressionLevel: 99,
			ColdStorageFlushInterval:    time.Second,
		}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "compression_level")
	})

	t.Run("fully configured cold storage is valid", func(t *testing.T) {
		cfg := StorageConfig{
			TransientOnly:               true,
			ColdStorageEnabled:          true,
			ColdStoragePath:             "/tmp/cold",
			ColdStorageCompressionLevel: 3,
			ColdStorageFlushInterval:    time.Second,
		}
		assert.NoError(t, cfg.Validate())
	})
}

func TestServerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServerConfig
		wantErr string
	}{
		{"valid", ServerConfig{Host: "0.0.0.0", Port: 8080}, ""},
		{"invalid port", ServerConfig{Host: "0.0.0.0", Port: 0}, "invalid port"},
		{"port too large", ServerConfig{Host: "0.0.0.0", Port: 70000}, "invalid port"},
		{"empty host", ServerConfig{Port: 8080}, "host cannot be empty"},
		{"negative read timeout", ServerConfig{Host: "0.0.0.0", Port: 8080, ReadTimeout: -1}, "read_timeout"},
		{"negative write timeout", ServerConfig{Host: "0.0.0.0", Port: 8080, WriteTimeout: -1}, "write_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestServerConfigAddress(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", Port: 9000}
	assert.Equal(t, "127.0.0.1:9000", cfg.Address())
}

func TestLoggingConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LoggingConfig
		wantErr string
	}{
		{"valid json", LoggingConfig{Level: "info", Format: "json"}, ""},
		{"valid text", LoggingConfig{Level: "debug", Format: "text"}, ""},
		{"invalid level", LoggingConfig{Level: "verbose", Format: "text"}, "invalid log level"},
		{"invalid format", LoggingConfig{Level: "info", Format: "xml"}, "invalid log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
