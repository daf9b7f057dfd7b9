package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Backend relay
	BackendURL        string
	RelayAttempts     int
	RelayFirstTimeout time.Duration
	RelayRetryTimeout time.Duration
	RelayBackoff      time.Duration

	// HTTP surface
	AllowedOrigin   string
	RateLimitPerMin int

	// Redis (optional, shared rate limit budget)
	RedisURL string

	// Logging
	LogDir string

	// Client
	PublicAPIBaseURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:              getEnvOrDefault("PORT", "8080"),
		Env:               getEnvOrDefault("APP_ENV", "production"),
		BackendURL:        strings.TrimRight(getEnvOrDefault("BACKEND_URL", "http://backend:8000"), "/"),
		RelayAttempts:     getEnvAsIntOrDefault("RELAY_ATTEMPTS", 3),
		RelayFirstTimeout: getEnvAsDurationOrDefault("RELAY_FIRST_TIMEOUT", 5*time.Second),
		RelayRetryTimeout: getEnvAsDurationOrDefault("RELAY_RETRY_TIMEOUT", 8*time.Second),
		RelayBackoff:      getEnvAsDurationOrDefault("RELAY_BACKOFF", time.Second),
		AllowedOrigin:     getEnvOrDefault("ALLOWED_ORIGIN", ""),
		RateLimitPerMin:   getEnvAsIntOrDefault("RATE_LIMIT_PER_MIN", 30),
		RedisURL:          getEnvOrDefault("REDIS_URL", ""),
		LogDir:            getEnvOrDefault("LOG_DIR", "logs"),
		PublicAPIBaseURL:  strings.TrimRight(getEnvOrDefault("PUBLIC_API_BASE_URL", "http://localhost:8080"), "/"),
	}

	if cfg.RelayAttempts < 1 {
		cfg.RelayAttempts = 1
	}

	return cfg
}

// IsDevelopment reports whether error details may be exposed to clients.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ChatEndpoint is the backend route every relayed request is posted to.
func (c *Config) ChatEndpoint() string {
	return c.BackendURL + "/chat"
}


func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvAsDurationOrDefault accepts Go duration strings ("750ms") or a bare
// number of milliseconds ("5000").
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if ms, err := strconv.Atoi(val); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
