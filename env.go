package igvf

import (
	"os"
	"strconv"
	"strings"
)

// Environment variables consumed by DefaultConfig.
const (
	envAPIURL       = "IGVF_API_URL"
	envBackendURL   = "IGVF_BACKEND_URL"
	envServerURL    = "IGVF_SERVER_URL"
	envCacheURL     = "IGVF_CACHE_URL"
	envMaxURLLength = "IGVF_MAX_URL_LENGTH"
	envRuntime      = "IGVF_RUNTIME"
)

// defaultMaxURLLength bounds the query strings built by the bulk-search
// chunking algorithm.
const defaultMaxURLLength = 4000

// Config carries the base URLs and limits the client resolves at
// construction time. All fields come from the environment by default and can
// be overridden with WithConfig or WithBaseURL.
type Config struct {
	// APIURL is the data provider base URL used from the browser runtime.
	APIURL string
	// BackendURL is the data provider base URL for server-to-server calls.
	BackendURL string
	// ServerURL is the hosting application's own API base URL (backend mode).
	ServerURL string
	// CacheURL is the external cache store address, e.g. a redis URL.
	CacheURL string
	// MaxURLLength caps the constructed query strings in bulk-search fetches.
	MaxURLLength int
}

// DefaultConfig reads the configuration from the environment.
func DefaultConfig() Config {
	return Config{
		APIURL:       strings.TrimSpace(os.Getenv(envAPIURL)),
		BackendURL:   strings.TrimSpace(os.Getenv(envBackendURL)),
		ServerURL:    strings.TrimSpace(os.Getenv(envServerURL)),
		CacheURL:     strings.TrimSpace(os.Getenv(envCacheURL)),
		MaxURLLength: intFromEnv(envMaxURLLength, defaultMaxURLLength),
	}
}

func intFromEnv(name string, def int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
