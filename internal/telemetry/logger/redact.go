package logger

import (
	"log/slog"
	"strings"
)

// Attribute keys whose string values are never logged in full.
// Public identifiers (addresses, token ids, content hashes) are not listed.
var sensitiveKeyPatterns = []string{
	"seed",
	"private",
	"secret",
	"password",
	"signature",
	"credential",
	"authorization",
}

const redactedValue = "***REDACTED***"

// redactSensitive masks string attributes whose key names key material.
// Groups are walked recursively.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		if IsSensitiveKey(a.Key) && a.Value.String() != "" {
			return slog.String(a.Key, RedactString(a.Value.String()))
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}
	return a
}

// RedactString masks a sensitive value. Values long enough to keep a hint
// show their first and last three characters.
func RedactString(value string) string {
	if len(value) <= 12 {
		return redactedValue
	}
	return value[:3] + "..." + value[len(value)-3:]
}

// IsSensitiveKey reports whether a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
