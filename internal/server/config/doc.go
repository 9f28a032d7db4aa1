// Package config defines the afriasset-server configuration.
//
//   - spec.go: the ServerConfig structure and its koanf keys
//   - default.go: defaults
//   - verify.go: validation run before the server starts
//   - sanitize.go: a copy safe to log
//   - convert.go: translation into component configs
package config
