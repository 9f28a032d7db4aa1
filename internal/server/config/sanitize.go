package config

import "net/url"

// Sanitize returns a copy of the config safe to log. Credentials embedded
// in the tracing endpoint URL are masked.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg
	sanitized.Telemetry.Tracing.Endpoint = maskURLCredentials(cfg.Telemetry.Tracing.Endpoint)
	return &sanitized
}

func maskURLCredentials(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "****"
	}
	if u.User == nil {
		return raw
	}
	u.User = url.User("****")
	return u.String()
}
