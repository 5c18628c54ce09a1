package ratelimit

import (
	"net/http"
	"time"

	"github.com/NathanBvumbwe/peza-ganyu/internal/config"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // exact path, or a prefix when it ends with "/"
	Method string
	Limit  int           // requests per window
	Window time.Duration
	Burst  int           // defaults to Limit if 0
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	IdleTTL         time.Duration
	Whitelist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// FromSettings builds a limiter config from the server settings.
func FromSettings(s config.RateLimitConfig) *Config {
	if !s.Enabled {
		return &Config{Enabled: false}
	}

	whitelist := make(map[string]bool, len(s.Whitelist))
	for _, ip := range s.Whitelist {
		if ip != "" {
			whitelist[ip] = true
		}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    s.Limit,
		DefaultWindow:   s.Window,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		Whitelist:       whitelist,
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the budgets for the expensive endpoints.
// Everything else falls back to the default limit.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		{Path: "/pipeline/run", Method: http.MethodPost, Limit: 6, Window: time.Hour, Burst: 2},
		{Path: "/users/", Method: http.MethodPost, Limit: 60, Window: time.Minute, Burst: 10},
	}
}
