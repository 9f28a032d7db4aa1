package httpserver

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/big14way/afri-asset/internal/core/service"
	"github.com/big14way/afri-asset/internal/server/httpserver/handler"
	"github.com/big14way/afri-asset/internal/telemetry/metric"
)

// DefaultMetricsPath is where Prometheus metrics are served.
const DefaultMetricsPath = "/metrics"

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Registry serves the registry API.
	Registry handler.Registry

	// Events feeds the event stream; nil disables streaming.
	Events handler.EventSource

	// Verifier checks request signatures.
	Verifier *service.SignatureVerifier

	// Metrics enables /metrics and per-request metrics when set.
	Metrics     *metric.Registry
	MetricsPath string

	// TracerProvider creates request spans; nil uses the global provider.
	TracerProvider trace.TracerProvider

	// Logger for request logging.
	Logger *slog.Logger

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64

	// RateLimitRPS is the per-IP request rate; zero disables rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int

	// CORSAllowedOrigins is the list of allowed CORS origins (empty = disabled).
	CORSAllowedOrigins []string

	// EnableAudit enables audit logging for API requests.
	EnableAudit bool

	// StreamBuffer is the per-subscriber buffer of the event stream.
	StreamBuffer int
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		MetricsPath:    DefaultMetricsPath,
		MaxBodyBytes:   1 << 20,
		RateLimitRPS:   50,
		RateLimitBurst: 100,
		EnableAudit:    true,
	}
}

// NewRouter creates and configures the HTTP router with all routes and middleware.
//
// API middleware order: Recover -> RequestID -> Trace -> CORS -> RateLimit ->
// Audit -> Signature -> Metrics -> Handler.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	verifier := cfg.Verifier
	if verifier == nil {
		verifier = service.NewSignatureVerifier(nil)
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultRouterConfig().MaxBodyBytes
	}

	h := handler.New(cfg.Registry, cfg.Events, log, handler.WithStreamBuffer(cfg.StreamBuffer))

	mux := http.NewServeMux()

	// Probes skip rate limiting and signatures.
	probes := Chain(h, Recover(log), RequestID())
	mux.Handle("GET /health", probes)
	mux.Handle("GET /ready", probes)

	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = DefaultMetricsPath
		}
		mux.Handle("GET "+path, Chain(cfg.Metrics.Handler(), Recover(log)))
	}

	api := []Middleware{
		Recover(log),
		RequestID(),
		Trace(cfg.TracerProvider),
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		api = append(api, CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.RateLimitRPS > 0 {
		var onLimited func()
		if cfg.Metrics != nil {
			onLimited = cfg.Metrics.RateLimited.Inc
		}
		api = append(api, RateLimit(NewRateLimiterRegistry(cfg.RateLimitRPS, cfg.RateLimitBurst), onLimited))
	}
	if cfg.EnableAudit {
		api = append(api, Audit(log))
	}
	api = append(api, Signature(verifier, maxBody))
	if cfg.Metrics != nil {
		api = append(api, Metrics(cfg.Metrics))
	}
	mux.Handle("/v1/", Chain(h, api...))

	return mux
}
