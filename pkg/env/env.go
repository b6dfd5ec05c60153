// Package env reads process settings needed before config.Load runs, such
// as the log format and the instance name.
package env

import (
	"os"
	"strings"
)

// Prefix namespaces every variable owned by the enrollment services.
const Prefix = "ENROLL_"

// Get returns ENROLL_<key>, then the bare <key>, then fallback.
func Get(key, fallback string) string {
	if val := First(Prefix+key, key); val != "" {
		return val
	}
	return fallback
}

// First returns the first non-blank value among keys.
func First(keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return ""
}
