package connector

import (
	"fmt"
	"strings"
)

// localHosts are never required to use TLS; development databases run
// unencrypted on loopback.
var localHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
	"0.0.0.0":   true,
}

// IsLocalHost reports whether the host refers to the local machine.
func IsLocalHost(host string) bool {
	return localHosts[strings.ToLower(host)]
}

// StringFromConfig extracts a required string field from a decrypted config
// map.
func StringFromConfig(config map[string]any, key string) (string, error) {
	if v, ok := config[key].(string); ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%s is required", key)
}

// OptionalString extracts an optional string field, returning fallback when
// absent.
func OptionalString(config map[string]any, key, fallback string) string {
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// IntFromConfig extracts an integer field, tolerating the float64 values
// JSON decoding produces, returning fallback when absent.
func IntFromConfig(config map[string]any, key string, fallback int) int {
	switch v := config[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

// ClampLimit applies the MaxQueryLimit cap: non-positive limits become the
// cap, larger limits are reduced to it.
func ClampLimit(limit int) int {
	if limit <= 0 || limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return limit
}

// IsReadQuery reports whether a SQL statement is a read (SELECT-like)
// operation. SQL executors branch on this: reads fetch rows, everything
// else executes and reports rows affected.
func IsReadQuery(query string) bool {
	trimmed := strings.ToUpper(strings.TrimSpace(query))
	for _, prefix := range []string{"SELECT", "SHOW", "DESCRIBE", "DESC ", "EXPLAIN", "WITH"} {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}
