package instance

import "os"

// EnvInstanceID overrides the identifier a worker reports in logs.
const EnvInstanceID = "STOREFRONT_INSTANCE_ID"

// GetID returns the configured instance identifier, falling back to the
// hostname and finally to a fixed default.
func GetID() string {
	if id := os.Getenv(EnvInstanceID); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
