package ratelimit

import (
	"strings"
	"time"

	"github.com/jonathan/salary-insights/internal/config"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// LoadConfig builds the limiter configuration from application settings.
func LoadConfig(settings config.RateLimitConfig) *Config {
	if !settings.Enabled {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    settings.DefaultLimit,
		DefaultWindow:   settings.DefaultWindow,
		CleanupInterval: settings.CleanupInterval,
		Whitelist:       toSet(settings.Whitelist),
		Blacklist:       toSet(settings.Blacklist),
		EndpointConfigs: DefaultEndpointConfigs(settings.ChatLimit, settings.ChatWindow, settings.ChatBurst),
	}
}

// DefaultEndpointConfigs returns the endpoint-specific limits. Chat requests
// call the model and get the strictest tier.
func DefaultEndpointConfigs(chatLimit int, chatWindow time.Duration, chatBurst int) []EndpointConfig {
	return []EndpointConfig{
		// Tier 1: model calls
		{Path: "/api/chat", Method: "POST", Limit: chatLimit, Window: chatWindow, Burst: chatBurst},

		// Tier 2: full dataset reloads
		{Path: "/api/dataset/reload", Method: "POST", Limit: 6, Window: time.Minute, Burst: 1},

		// Tier 3: reads use the default limit
		// Tier 4: /health is unlimited, handled in the matcher
	}
}

func toSet(list []string) map[string]bool {
	result := make(map[string]bool, len(list))
	for _, ip := range list {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			result[ip] = true
		}
	}
	return result
}
