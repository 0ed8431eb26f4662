package config

import (
	"time"
)

type APIConfig interface {
	GetAPIBaseURL() string
	GetResourcePath() string
	GetRequestTimeout() time.Duration
}

type API struct{}

var _ APIConfig = API{}

// GetAPIBaseURL returns the base URL of the remote resource API
// (e.g., "https://api.example.com/v1")
func (API) GetAPIBaseURL() string {
	return GetEnv("API_BASE_URL", "http://localhost:8080")
}

func (API) GetResourcePath() string {
	return GetEnv("API_RESOURCE_PATH", "records")
}

func (API) GetRequestTimeout() time.Duration {
	timeout, err := time.ParseDuration(GetEnv("API_REQUEST_TIMEOUT", "30s"))
	if err != nil {
		return 30 * time.Second
	}
	return timeout
}
