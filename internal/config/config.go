package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends accepted by BOOKMARKS_STORE.
const (
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // deadline for JSON endpoints (ex: 10s)

	LogLevel       string // "debug" | "info" | "warn" | "error"
	PrettyLog      bool   // true => zap dev (color), false => zap prod (JSON)
	LogFile        string // optional rotating JSON log file
	LogMaxSizeMB   int    // rotate after this many megabytes
	LogMaxBackups  int    // rotated files to keep
	SiteURL        string // public origin, ex: https://bookmarks.domain.ext
	SecureCookies  bool   // set the Secure flag on cookies (disable for plain http dev)
	MutationBurst  int    // per-user burst of add/delete/import requests
	MutationPerMin int    // per-user refill of add/delete/import requests

	// Live views
	RefreshInterval time.Duration // polling period of every open view (ex: 2s)

	// Identity
	SessionSecret      string        // base64, at least 32 bytes once decoded
	SessionTTL         time.Duration // session cookie lifetime (ex: 168h)
	GoogleClientID     string        // optional, empty = provider disabled
	GoogleClientSecret string        // required when GoogleClientID is set

	// Storage
	Store       string // "redis" | "postgres" | "memory"
	DatabaseURL string // postgres DSN, required when Store = "postgres"

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedCIDRS []string // optional, restrict healthz/readyz to specific IPs (e.g. "1.2.3.4, 10.0.0.0/8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

// Load reads the configuration from the environment, after loading a .env
// file from the working directory when one exists. Missing or inconsistent
// required settings panic.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("BOOKMARKS_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("BOOKMARKS_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("BOOKMARKS_REQUEST_TIMEOUT", 10*time.Second),
		SiteURL:         strings.TrimRight(getenv("BOOKMARKS_SITE_URL", "http://localhost:8080"), "/"),
		SecureCookies:   mustBool("BOOKMARKS_SECURE_COOKIES", true),
		MutationBurst:   getenvInt("BOOKMARKS_MUTATION_BURST", 10),
		MutationPerMin:  getenvInt("BOOKMARKS_MUTATION_PER_MIN", 60),

		// Logging
		LogLevel:      getenv("BOOKMARKS_LOG_LEVEL", "info"),
		PrettyLog:     mustBool("BOOKMARKS_PRETTY_LOG", true),
		LogFile:       getenv("BOOKMARKS_LOG_FILE", ""),
		LogMaxSizeMB:  getenvInt("BOOKMARKS_LOG_MAX_SIZE_MB", 50),
		LogMaxBackups: getenvInt("BOOKMARKS_LOG_MAX_BACKUPS", 3),

		RefreshInterval: mustDuration("BOOKMARKS_REFRESH_INTERVAL", 2*time.Second),

		// Identity
		SessionSecret:      requireEnv("BOOKMARKS_SESSION_SECRET"),
		SessionTTL:         mustDuration("BOOKMARKS_SESSION_TTL", 7*24*time.Hour),
		GoogleClientID:     getenv("BOOKMARKS_GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getenv("BOOKMARKS_GOOGLE_CLIENT_SECRET", ""),

		// Storage
		Store:       strings.ToLower(getenv("BOOKMARKS_STORE", StoreRedis)),
		DatabaseURL: getenv("BOOKMARKS_DATABASE_URL", ""),

		// Redis settings
		RedisAddr:             getenv("BOOKMARKS_REDIS_ADDR", "localhost:6379"),
		RedisUser:             getenv("BOOKMARKS_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("BOOKMARKS_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("BOOKMARKS_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("BOOKMARKS_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedCIDRS: splitAndTrim(getenv("BOOKMARKS_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("BOOKMARKS_TRUST_PROXY", true),
	}

	if err := cfg.validate(); err != nil {
		panic("❌ FATAL: " + err.Error())
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// validate checks settings that depend on each other.
func (c *Config) validate() error {
	switch c.Store {
	case StoreRedis:
		if c.RedisPasswordRequired && c.RedisPassword == "" {
			return fmt.Errorf("BOOKMARKS_REDIS_PASSWORD is required when BOOKMARKS_REDIS_PASSWORD_REQUIRED=true")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("BOOKMARKS_DATABASE_URL is required when BOOKMARKS_STORE=%s", StorePostgres)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("BOOKMARKS_STORE must be one of %s, %s, %s (got %q)", StoreRedis, StorePostgres, StoreMemory, c.Store)
	}

	if c.GoogleClientID != "" && c.GoogleClientSecret == "" {
		return fmt.Errorf("BOOKMARKS_GOOGLE_CLIENT_SECRET is required when BOOKMARKS_GOOGLE_CLIENT_ID is set")
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("BOOKMARKS_REFRESH_INTERVAL must be positive")
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	const redacted = "***REDACTED***"
	cp.SessionSecret = redacted
	if cp.GoogleClientSecret != "" {
		cp.GoogleClientSecret = redacted
	}
	if cp.RedisPassword != "" {
		cp.RedisPassword = redacted
	}
	if cp.RedisUser != "" {
		cp.RedisUser = redacted
	}
	if cp.DatabaseURL != "" {
		cp.DatabaseURL = redacted
	}
	return cp
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
