package env

import (
	"os"
	"strings"
)

// Prefix namespaces the variables every vendorops binary reads.
const Prefix = "VENDOROPS_"

// Get returns VENDOROPS_<name>, then the bare <name>, then fallback. Blank
// values count as unset.
func Get(name, fallback string) string {
	if val, ok := Lookup(name); ok {
		return val
	}
	return fallback
}

// Lookup resolves name the way Get does and reports whether it was set.
func Lookup(name string) (string, bool) {
	name = strings.TrimPrefix(name, Prefix)
	for _, key := range []string{Prefix + name, name} {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val, true
		}
	}
	return "", false
}
