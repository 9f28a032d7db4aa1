// Package main provides the entry point for afriasset-server.
//
// The server hosts the tokenized real-world-asset registry behind a signed
// HTTP/JSON API, with Prometheus metrics, an SSE event stream and optional
// OTLP tracing.
//
// Usage:
//
//	afriasset-server [flags]
//	afriasset-server --config /path/to/config.yaml
//
// Settings come from defaults, then the YAML file, then AFRIASSET_*
// environment variables. Changing log.level in the file takes effect
// without a restart.
package main
