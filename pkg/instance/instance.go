package instance

import "os"

// GetID identifies this process in logs so pipeline runs from the API
// and the scan worker can be told apart. Set WORKER_ID per deployment.
func GetID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	return "callinsights-0"
}
