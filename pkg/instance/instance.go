package instance

import "os"

// GetID names this worker instance in logs. Deployments set WORKER_ID
// per replica, a single local process falls back to worker-0.
func GetID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	return "worker-0"
}
