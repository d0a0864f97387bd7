package instance

import (
	"os"

	"github.com/angelmondragon/vendorops-backend/pkg/env"
)

// GetID identifies this process in lock values and logs. VENDOROPS_WORKER_ID
// (or WORKER_ID) wins, then the hostname.
func GetID() string {
	if id := env.Get("WORKER_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
