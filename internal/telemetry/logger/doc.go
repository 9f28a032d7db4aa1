// Package logger builds the structured loggers used by afri-asset.
//
// New returns a plain *slog.Logger, so components depend only on log/slog.
// Records logged with a context pick up the request and trace IDs set by
// the HTTP middleware. Attributes whose keys name key material (seeds,
// signatures, secrets) are masked before they reach the output.
package logger
