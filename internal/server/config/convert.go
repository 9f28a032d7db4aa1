package config

import (
	"github.com/big14way/afri-asset/internal/core/service"
	"github.com/big14way/afri-asset/internal/storage"
	"github.com/big14way/afri-asset/internal/telemetry/logger"
	"github.com/big14way/afri-asset/internal/telemetry/tracer"
)

// StorageConfig returns the store configuration.
func (c *ServerConfig) StorageConfig() storage.Config {
	return storage.Config{
		Engine:     c.Storage.Engine,
		Dir:        c.Storage.DataDir,
		SyncWrites: c.Storage.SyncWrites,
		Badger: storage.BadgerConfig{
			GCInterval:       c.Storage.Badger.GCInterval.String(),
			GCThreshold:      c.Storage.Badger.GCThreshold,
			CacheSize:        c.Storage.Badger.CacheSize,
			ValueLogFileSize: c.Storage.Badger.ValueLogFileSize,
			NumMemtables:     c.Storage.Badger.NumMemtables,
		},
	}
}

// SignatureVerifierConfig returns the request signature settings.
func (c *ServerConfig) SignatureVerifierConfig() *service.SignatureVerifierConfig {
	return &service.SignatureVerifierConfig{
		TimestampWindow: c.Security.TimestampWindow,
		NonceTTL:        c.Security.NonceTTL,
		NonceCacheSize:  c.Security.NonceCacheSize,
		MaxSignatures:   c.Security.MaxSignatures,
	}
}

// TracerConfig returns the tracing settings.
func (c *ServerConfig) TracerConfig() tracer.Config {
	return tracer.Config{
		Enabled:     c.Telemetry.Tracing.Enabled,
		Endpoint:    c.Telemetry.Tracing.Endpoint,
		ServiceName: c.Telemetry.Tracing.ServiceName,
		SampleRatio: c.Telemetry.Tracing.SampleRatio,
	}
}

// LoggerConfig returns the logger settings. Output defaults to stderr.
func (c *ServerConfig) LoggerConfig() logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = c.Log.Level
	cfg.Format = c.Log.Format
	return cfg
}
