package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Custody backend constants
const (
	CustodyBackendCookie = "cookie"
	CustodyBackendMemory = "memory"
	CustodyBackendRedis  = "redis"
)

// Default Garmin Connect endpoints. Overridable for testing against a mock
// provider.
const (
	DefaultGarminRequestTokenURL = "https://connectapi.garmin.com/oauth-service/oauth/request_token"
	DefaultGarminAuthorizeURL    = "https://connectapi.garmin.com/oauth-service/oauth/authorize"
	DefaultGarminAccessTokenURL  = "https://connectapi.garmin.com/oauth-service/oauth/access_token"
	DefaultGarminAPIBaseURL      = "https://healthapi.garmin.com/wellness-api/rest"
)

type Config struct {
	// Server settings
	ServerAddr   string
	BaseURL      string
	IsProduction bool

	// Session settings
	SessionSecret string
	SessionMaxAge int // seconds

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string

	// Garmin Connect (OAuth 1.0a consumer credentials)
	GarminConsumerKey     string
	GarminConsumerSecret  string
	GarminCallbackURL     string // defaults to {BaseURL}/api/garmin/callback
	GarminRequestTokenURL string
	GarminAuthorizeURL    string
	GarminAccessTokenURL  string
	GarminAPIBaseURL      string
	GarminTimeout         time.Duration // outbound HTTP timeout for signed requests
	GarminSyncWindowDays  int           // default import window (trailing days)

	// Secret custody for the in-flight OAuth handshake
	CustodyBackend string // "cookie", "memory" or "redis"
	CustodyTTL     time.Duration

	// Google sign-in (OAuth 2.0)
	GoogleOAuthEnabled bool
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GoogleScopes       []string

	// Redis (custody backend + rate limit store)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Rate limiting
	EnableRateLimit  bool
	RateLimitStore   string // "memory" or "redis"
	LoginRateLimit   int    // requests per minute
	SyncRateLimit    int    // requests per minute
	RateLimitCleanup time.Duration

	// Metrics
	MetricsEnabled bool
	MetricsToken   string
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", "fittrack.db")
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	baseURL := getEnv("BASE_URL", "http://localhost:8080")

	return &Config{
		ServerAddr:    getEnv("SERVER_ADDR", ":8080"),
		BaseURL:       baseURL,
		IsProduction:  getEnvBool("PRODUCTION", false),
		SessionSecret: getEnv("SESSION_SECRET", "session-secret-change-in-production"),
		SessionMaxAge: getEnvInt("SESSION_MAX_AGE", 86400*7), // 7 days

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		GarminConsumerKey:     getEnv("GARMIN_CONSUMER_KEY", ""),
		GarminConsumerSecret:  getEnv("GARMIN_CONSUMER_SECRET", ""),
		GarminCallbackURL:     getEnv("GARMIN_CALLBACK_URL", baseURL+"/api/garmin/callback"),
		GarminRequestTokenURL: getEnv("GARMIN_REQUEST_TOKEN_URL", DefaultGarminRequestTokenURL),
		GarminAuthorizeURL:    getEnv("GARMIN_AUTHORIZE_URL", DefaultGarminAuthorizeURL),
		GarminAccessTokenURL:  getEnv("GARMIN_ACCESS_TOKEN_URL", DefaultGarminAccessTokenURL),
		GarminAPIBaseURL:      getEnv("GARMIN_API_BASE_URL", DefaultGarminAPIBaseURL),
		GarminTimeout:         getEnvDuration("GARMIN_TIMEOUT", 30*time.Second),
		GarminSyncWindowDays:  getEnvInt("GARMIN_SYNC_WINDOW_DAYS", 30),

		CustodyBackend: getEnv("CUSTODY_BACKEND", CustodyBackendCookie),
		CustodyTTL:     getEnvDuration("CUSTODY_TTL", 10*time.Minute),

		GoogleOAuthEnabled: getEnvBool("GOOGLE_OAUTH_ENABLED", false),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", baseURL+"/auth/callback/google"),
		GoogleScopes: getEnvSlice("GOOGLE_SCOPES", []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		}),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		EnableRateLimit:  getEnvBool("ENABLE_RATE_LIMIT", true),
		RateLimitStore:   getEnv("RATE_LIMIT_STORE", "memory"),
		LoginRateLimit:   getEnvInt("LOGIN_RATE_LIMIT", 10),
		SyncRateLimit:    getEnvInt("SYNC_RATE_LIMIT", 6),
		RateLimitCleanup: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		MetricsToken:   getEnv("METRICS_TOKEN", ""),
	}
}

// Validate checks configuration consistency. Garmin credentials are optional
// (the integration stays disabled without them) but custody and database
// settings must be coherent.
func (c *Config) Validate() error {
	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "postgres" {
		return fmt.Errorf("invalid DATABASE_DRIVER: %s (must be: sqlite, postgres)", c.DatabaseDriver)
	}
	if c.DatabaseDriver == "postgres" && c.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN is required when DATABASE_DRIVER=postgres")
	}

	switch c.CustodyBackend {
	case CustodyBackendCookie, CustodyBackendMemory:
	case CustodyBackendRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required when CUSTODY_BACKEND=redis")
		}
	default:
		return fmt.Errorf(
			"invalid CUSTODY_BACKEND: %s (must be: cookie, memory, redis)",
			c.CustodyBackend,
		)
	}

	if c.CustodyTTL <= 0 {
		return errors.New("CUSTODY_TTL must be positive")
	}

	if c.GarminConsumerKey != "" && c.GarminConsumerSecret == "" {
		return errors.New("GARMIN_CONSUMER_SECRET is required when GARMIN_CONSUMER_KEY is set")
	}

	if c.GoogleOAuthEnabled && (c.GoogleClientID == "" || c.GoogleClientSecret == "") {
		return errors.New(
			"GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required when GOOGLE_OAUTH_ENABLED=true",
		)
	}

	return nil
}

// GarminEnabled reports whether consumer credentials are configured.
func (c *Config) GarminEnabled() bool {
	return c.GarminConsumerKey != "" && c.GarminConsumerSecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var parts []string
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}
