package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/big14way/afri-asset/internal/storage"
)

// Verify validates the configuration and returns every problem found.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifyStorage(&cfg.Storage),
		verifySecurity(&cfg.Security),
		verifyTelemetry(&cfg.Telemetry),
		verifyLog(&cfg.Log),
	)
}

func verifyServer(cfg *ServerSection) error {
	var errs []error
	if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		errs = append(errs, fmt.Errorf("server.http.addr %q: %w", cfg.HTTP.Addr, err))
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		errs = append(errs, errors.New("server.http.tls_cert_file and tls_key_file must be set together"))
	}
	for _, f := range []string{cfg.HTTP.TLSCertFile, cfg.HTTP.TLSKeyFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			errs = append(errs, fmt.Errorf("tls file: %w", err))
		}
	}
	if cfg.HTTP.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.http.max_body_bytes must be positive"))
	}
	if cfg.HTTP.RateLimit.Enabled && (cfg.HTTP.RateLimit.RPS <= 0 || cfg.HTTP.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("server.http.rate_limit rps and burst must be positive when enabled"))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	return errors.Join(errs...)
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Engine {
	case storage.EngineMemory:
		return nil
	case storage.EngineBadger, storage.EngineLevelDB, storage.EngineSQLite:
	default:
		return fmt.Errorf("storage.engine %q: must be one of badger, leveldb, sqlite, memory", cfg.Engine)
	}

	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("cannot create data directory: %w", err)
	}
	if cfg.Engine == storage.EngineBadger {
		if cfg.Badger.GCThreshold <= 0 || cfg.Badger.GCThreshold >= 1 {
			return errors.New("storage.badger.gc_threshold must be between 0 and 1")
		}
		if cfg.Badger.GCInterval <= 0 {
			return errors.New("storage.badger.gc_interval must be positive")
		}
	}
	return nil
}

func verifySecurity(cfg *SecuritySection) error {
	var errs []error
	if cfg.TimestampWindow <= 0 {
		errs = append(errs, errors.New("security.timestamp_window must be positive"))
	}
	if cfg.NonceTTL < cfg.TimestampWindow {
		errs = append(errs, errors.New("security.nonce_ttl must not be shorter than timestamp_window"))
	}
	if cfg.NonceCacheSize <= 0 {
		errs = append(errs, errors.New("security.nonce_cache_size must be positive"))
	}
	if cfg.MaxSignatures < 1 {
		errs = append(errs, errors.New("security.max_signatures must be at least 1"))
	}
	return errors.Join(errs...)
}

func verifyTelemetry(cfg *TelemetrySection) error {
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return errors.New("telemetry.metrics.path must start with /")
	}
	if !cfg.Tracing.Enabled {
		return nil
	}
	u, err := url.Parse(cfg.Tracing.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("telemetry.tracing.endpoint %q must be an absolute URL", cfg.Tracing.Endpoint)
	}
	if cfg.Tracing.SampleRatio <= 0 || cfg.Tracing.SampleRatio > 1 {
		return errors.New("telemetry.tracing.sample_ratio must be in (0, 1]")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not a level", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
	default:
		return fmt.Errorf("log.format %q: must be json or text", cfg.Format)
	}
	return nil
}
