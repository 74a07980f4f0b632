package instance

import "os"

// ID names the running process in logs: the platform dyno, an explicit
// WORKER_ID, or "local".
func ID() string {
	for _, key := range []string{"DYNO", "WORKER_ID"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
