package instance

import "os"

const envWorkerID = "ASSETFLOW_WORKER_ID"

// ID identifies the running replica in logs and lock ownership. It prefers
// ASSETFLOW_WORKER_ID, then the host name.
func ID(serviceKind string) string {
	if id := os.Getenv(envWorkerID); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	if serviceKind == "" {
		return "worker-0"
	}
	return serviceKind + "-0"
}
