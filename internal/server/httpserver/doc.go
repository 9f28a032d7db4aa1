// Package httpserver provides the HTTP/HTTPS server for the registry.
//
// This package implements the external API using stdlib net/http:
//
//   - Registry endpoints: /v1/registry, /v1/registry/initialize
//   - Token endpoints: /v1/tokens, /v1/tokens/{id}[/transfer|/trade|/burn|/escrow]
//   - Event endpoints: /v1/events, /v1/events/stream
//   - Health endpoints: /health, /ready, /metrics
//
// Features:
//
//   - Optional TLS
//   - Middleware chain: Recover, RequestID, Trace, CORS, RateLimit, Audit,
//     Signature, Metrics
//   - Graceful shutdown
//   - Prometheus metrics integration
package httpserver
