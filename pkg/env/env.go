// Package env reads process environment variables with fallbacks.
package env

import "os"

// Get returns the named variable, or fallback when it is unset or empty.
func Get(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
