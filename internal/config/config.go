// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// NATS settings (JetStream key-value persistence)
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string
	NATSBucket   string

	// JWT settings
	JWTSecret string

	// AI gateway settings
	LLMProvider     string
	RelayURL        string
	RelayAPIKey     string
	OpenAIAPIKey    string
	AnthropicAPIKey string

	// Entitlement provider settings
	EntitlementAPIKey       string
	EntitlementAPIURL       string
	EntitlementID           string
	EntitlementPollInterval time.Duration

	// Report endpoint settings
	ReportURL    string
	ReportAPIKey string

	// Upgrade URL returned with quota-exceeded responses
	UpgradeURL string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from the environment, with .env as a fallback.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// NATS
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),
		NATSBucket:   getEnv("NATS_KV_BUCKET", "lunatalk-device-store"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// AI gateway
		LLMProvider:     getEnv("LLM_PROVIDER", "relay"),
		RelayURL:        getEnv("RELAY_URL", ""),
		RelayAPIKey:     getEnv("RELAY_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),

		// Entitlements
		EntitlementAPIKey:       getEnv("ENTITLEMENT_API_KEY", ""),
		EntitlementAPIURL:       getEnv("ENTITLEMENT_API_URL", "https://api.revenuecat.com/v1"),
		EntitlementID:           getEnv("ENTITLEMENT_ID", "pro"),
		EntitlementPollInterval: getDurationEnv("ENTITLEMENT_POLL_INTERVAL", 30*time.Second),

		// Reports
		ReportURL:    getEnv("REPORT_URL", ""),
		ReportAPIKey: getEnv("REPORT_API_KEY", ""),

		// Upsell
		UpgradeURL: getEnv("UPGRADE_URL", ""),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
