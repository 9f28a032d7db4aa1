// Package handler provides HTTP request handlers for the registry API.
//
// This package contains handlers for all HTTP endpoints:
//
//   - registry.go: initialize and registry summary
//   - token.go: mint, transfer, trade, burn and token reads
//   - events.go: event history and the server-sent event stream
//   - health.go: health and readiness checks
//
// All handlers follow a consistent pattern:
//
//   - Parse and validate request
//   - Call the registry
//   - Format and return response
//   - Handle errors with appropriate HTTP status codes
//
// Authorization is not decided here. The signature middleware attaches the
// approving principals to the request context and the registry checks them.
package handler
