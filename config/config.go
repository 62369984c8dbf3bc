package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Session   SessionConfig
	Log       LogConfig
	Batch     BatchConfig
	Tracker   TrackerConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BackendConfig points at the external scrape-job backend.
type BackendConfig struct {
	// BaseURL is prepended to /api/submit-scrape-job and friends.
	BaseURL string // default: "http://localhost"

	// Timeout bounds a single backend request. Zero means no timeout.
	Timeout time.Duration // default: 0

	// Token is an optional bearer token sent with every request.
	Token string
}

// AuthConfig controls API key authentication of builder users.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// Users maps API keys to user emails. Parsed from "key=email,key2=email2".
	// A key without "=email" authenticates without an email.
	Users map[string]string
}

// RateLimitConfig controls per-identity rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per identity.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per identity.
	Burst int // default: 10
}

// SessionConfig controls the in-memory builder sessions.
type SessionConfig struct {
	// IdleTTL evicts sessions not touched for this long.
	IdleTTL time.Duration // default: 1h

	// MaxEntries bounds the number of live sessions.
	MaxEntries int // default: 10000

	// CookieSecure marks the session cookie Secure.
	CookieSecure bool // default: false
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// BatchConfig controls the batch submitter.
type BatchConfig struct {
	// JobFile is the YAML job description (elements, field, urls).
	JobFile string // default: "job.yaml"

	// URLsFile is a JSON array of target URLs, used when the job file
	// names none.
	URLsFile string // default: "urls.json"

	// OutputFile receives the collected records.
	OutputFile string // default: "data/contact_data.json"

	// Username and Password authenticate against /api/auth/token.
	Username string
	Password string

	// MaxRetries is the number of enqueue attempts per URL.
	MaxRetries int // default: 3

	// RetryDelay spaces enqueue retries, status polls and consecutive jobs.
	RetryDelay time.Duration // default: 2s

	// WebhookURL receives a batch.completed event when set.
	WebhookURL    string
	WebhookSecret string
}

// TrackerConfig locates the resume index file.
type TrackerConfig struct {
	// IndexFile holds {"index": n}, the next URL to process.
	IndexFile string // default: "logs/index.json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("SCRAPEFORM_HOST", "0.0.0.0"),
			Port: envIntOr("SCRAPEFORM_PORT", 8080),
			Mode: envOr("SCRAPEFORM_MODE", "release"),
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(envOr("SCRAPEFORM_BACKEND_URL", "http://localhost"), "/"),
			Timeout: envDurationOr("SCRAPEFORM_BACKEND_TIMEOUT", 0),
			Token:   os.Getenv("SCRAPEFORM_BACKEND_TOKEN"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("SCRAPEFORM_AUTH_ENABLED", false),
			Users:   envMapOr("SCRAPEFORM_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SCRAPEFORM_RATE_RPS", 5.0),
			Burst:             envIntOr("SCRAPEFORM_RATE_BURST", 10),
		},
		Session: SessionConfig{
			IdleTTL:      envDurationOr("SCRAPEFORM_SESSION_TTL", time.Hour),
			MaxEntries:   envIntOr("SCRAPEFORM_SESSION_MAX", 10000),
			CookieSecure: envBoolOr("SCRAPEFORM_COOKIE_SECURE", false),
		},
		Log: LogConfig{
			Level:  envOr("SCRAPEFORM_LOG_LEVEL", "info"),
			Format: envOr("SCRAPEFORM_LOG_FORMAT", "json"),
		},
		Batch: BatchConfig{
			JobFile:       envOr("SCRAPEFORM_BATCH_JOB_FILE", "job.yaml"),
			URLsFile:      envOr("SCRAPEFORM_BATCH_URLS_FILE", "urls.json"),
			OutputFile:    envOr("SCRAPEFORM_BATCH_OUTPUT", "data/contact_data.json"),
			Username:      os.Getenv("SCRAPEFORM_BATCH_USERNAME"),
			Password:      os.Getenv("SCRAPEFORM_BATCH_PASSWORD"),
			MaxRetries:    envIntOr("SCRAPEFORM_BATCH_MAX_RETRIES", 3),
			RetryDelay:    envDurationOr("SCRAPEFORM_BATCH_RETRY_DELAY", 2*time.Second),
			WebhookURL:    os.Getenv("SCRAPEFORM_WEBHOOK_URL"),
			WebhookSecret: os.Getenv("SCRAPEFORM_WEBHOOK_SECRET"),
		},
		Tracker: TrackerConfig{
			IndexFile: envOr("SCRAPEFORM_INDEX_FILE", "logs/index.json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envMapOr parses "k1=v1,k2=v2". Entries without "=" map to "".
func envMapOr(key string, fallback map[string]string) map[string]string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	result := make(map[string]string)
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		k, val, _ := strings.Cut(p, "=")
		if k = strings.TrimSpace(k); k != "" {
			result[k] = strings.TrimSpace(val)
		}
	}
	return result
}
