package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:5080"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultMaxBodyBytes    = 1 << 20
	DefaultRateLimitRPS    = 50
	DefaultRateLimitBurst  = 100
	DefaultShutdownTimeout = 15 * time.Second

	DefaultEngine  = "badger"
	DefaultDataDir = "/var/lib/afriasset-server/data"

	DefaultTimestampWindow = 30 * time.Second
	DefaultNonceTTL        = 60 * time.Second
	DefaultNonceCacheSize  = 100000
	DefaultMaxSignatures   = 4

	DefaultStreamBuffer = 64
	DefaultMetricsPath  = "/metrics"
	DefaultServiceName  = "afriasset-server"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:         DefaultHTTPAddr,
				ReadTimeout:  DefaultReadTimeout,
				WriteTimeout: DefaultWriteTimeout,
				IdleTimeout:  DefaultIdleTimeout,
				MaxBodyBytes: DefaultMaxBodyBytes,
				RateLimit: RateLimitConfig{
					Enabled: true,
					RPS:     DefaultRateLimitRPS,
					Burst:   DefaultRateLimitBurst,
				},
				Audit: true,
			},
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Storage: StorageSection{
			Engine:     DefaultEngine,
			DataDir:    DefaultDataDir,
			SyncWrites: true,
			Badger: BadgerSection{
				GCInterval:       10 * time.Minute,
				GCThreshold:      0.5,
				CacheSize:        64 << 20,
				ValueLogFileSize: 256 << 20,
				NumMemtables:     2,
			},
		},
		Security: SecuritySection{
			TimestampWindow: DefaultTimestampWindow,
			NonceTTL:        DefaultNonceTTL,
			NonceCacheSize:  DefaultNonceCacheSize,
			MaxSignatures:   DefaultMaxSignatures,
		},
		Events: EventsSection{
			StreamBuffer: DefaultStreamBuffer,
		},
		Telemetry: TelemetrySection{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    DefaultMetricsPath,
			},
			Tracing: TracingConfig{
				ServiceName: DefaultServiceName,
				SampleRatio: 1,
			},
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
