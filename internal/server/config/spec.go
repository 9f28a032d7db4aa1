package config

import "time"

// ServerConfig is the root configuration for afriasset-server.
type ServerConfig struct {
	Server    ServerSection    `koanf:"server"`
	Storage   StorageSection   `koanf:"storage"`
	Security  SecuritySection  `koanf:"security"`
	Events    EventsSection    `koanf:"events"`
	Telemetry TelemetrySection `koanf:"telemetry"`
	Log       LogSection       `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP            HTTPConfig    `koanf:"http"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr         string        `koanf:"addr"`
	TLSCertFile  string        `koanf:"tls_cert_file"`
	TLSKeyFile   string        `koanf:"tls_key_file"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`

	// MaxBodyBytes caps request bodies; signatures cover the whole body.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	RateLimit RateLimitConfig `koanf:"rate_limit"`

	// CORSAllowedOrigins enables CORS for the listed origins ("*" for any).
	// Empty disables CORS headers.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// Audit logs one line per served request.
	Audit bool `koanf:"audit"`
}

// RateLimitConfig configures the per-client-IP token bucket.
type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
}

// StorageSection configures the key-value store.
type StorageSection struct {
	// Engine is one of badger, leveldb, sqlite, memory.
	Engine     string        `koanf:"engine"`
	DataDir    string        `koanf:"data_dir"`
	SyncWrites bool          `koanf:"sync_writes"`
	Badger     BadgerSection `koanf:"badger"`
}

// BadgerSection tunes the badger engine.
type BadgerSection struct {
	GCInterval       time.Duration `koanf:"gc_interval"`
	GCThreshold      float64       `koanf:"gc_threshold"`
	CacheSize        int64         `koanf:"cache_size"`
	ValueLogFileSize int64         `koanf:"value_log_file_size"`
	NumMemtables     int           `koanf:"num_memtables"`
}

// SecuritySection configures request signature checks.
type SecuritySection struct {
	TimestampWindow time.Duration `koanf:"timestamp_window"`
	NonceTTL        time.Duration `koanf:"nonce_ttl"`
	NonceCacheSize  int           `koanf:"nonce_cache_size"`
	MaxSignatures   int           `koanf:"max_signatures"`

	// InsecureSkipAuth approves every principal without signatures.
	// Local development only.
	InsecureSkipAuth bool `koanf:"insecure_skip_auth"`
}

// EventsSection configures event fan-out.
type EventsSection struct {
	// StreamBuffer is the per-subscriber buffer of the SSE stream.
	StreamBuffer int `koanf:"stream_buffer"`
	// LogEvents writes one log line per committed event.
	LogEvents bool `koanf:"log_events"`
}

// TelemetrySection configures metrics and tracing.
type TelemetrySection struct {
	Metrics MetricsConfig `koanf:"metrics"`
	Tracing TracingConfig `koanf:"tracing"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRatio float64 `koanf:"sample_ratio"`
}

// LogSection configures logging. Level is re-applied on config reload.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
