package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort               = "5000"
	defaultDatabaseURL        = "healthtrack.db"
	defaultAccessTokenExpiry  = "1h"
	defaultRefreshTokenExpiry = "7d"
	defaultLoginWindowMinutes = "15"
	defaultMaxLoginAttempts   = "5"
	defaultTokenCookieExpires = "7"
	defaultRevocationBackend  = BackendSQL
	defaultRevocationCache    = "10000"
	defaultRateLimitBackend   = BackendMemory
	defaultLogLevel           = "info"

	// RevocationRetention is how long a revocation record lives. No token may
	// outlive it, so the refresh lifetime is capped to this value.
	RevocationRetention = 7 * 24 * time.Hour
)

const (
	BackendSQL    = "sql"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type AuthRuntimeConfig struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	LogLevel    string

	JWTSecret          string
	RefreshTokenSecret string
	CSRFSecret         string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	LoginWindow      time.Duration
	MaxLoginAttempts int

	CookieSecret       string
	TokenCookieExpires int

	RefreshRevokeOnRotate bool

	RevocationBackend   string
	RevocationCacheSize int
	RateLimitBackend    string
	RedisURL            string

	AllowedOrigins []string
}

// CookieSessions reports whether tokens are also delivered as httpOnly cookies.
func (c *AuthRuntimeConfig) CookieSessions() bool {
	return c.CookieSecret != ""
}

func (c *AuthRuntimeConfig) IsProduction() bool {
	return isProdLike(c.AppEnv)
}

// RefreshCookieMaxAge is the refreshToken cookie lifetime (TOKEN_COOKIE_EXPIRES days).
func (c *AuthRuntimeConfig) RefreshCookieMaxAge() time.Duration {
	return time.Duration(c.TokenCookieExpires) * 24 * time.Hour
}

func (c *AuthRuntimeConfig) NeedsRedis() bool {
	return c.RevocationBackend == BackendRedis || c.RateLimitBackend == BackendRedis
}

func LoadAuthRuntimeConfig() (*AuthRuntimeConfig, error) {
	cfg := &AuthRuntimeConfig{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("NODE_ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.Port = strings.TrimSpace(getEnv("PORT", defaultPort))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel)))

	cfg.JWTSecret = strings.TrimSpace(os.Getenv("JWT_SECRET"))
	cfg.RefreshTokenSecret = strings.TrimSpace(os.Getenv("REFRESH_TOKEN_SECRET"))
	cfg.CSRFSecret = strings.TrimSpace(os.Getenv("CSRF_SECRET"))
	cfg.CookieSecret = strings.TrimSpace(os.Getenv("COOKIE_SECRET"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))

	var err error
	cfg.AccessTokenTTL, err = parseDurationEnv("ACCESS_TOKEN_EXPIRY", defaultAccessTokenExpiry)
	if err != nil {
		return nil, err
	}
	cfg.RefreshTokenTTL, err = parseDurationEnv("REFRESH_TOKEN_EXPIRY", defaultRefreshTokenExpiry)
	if err != nil {
		return nil, err
	}

	windowMinutes, err := parseIntEnv("LOGIN_WINDOW_MINUTES", defaultLoginWindowMinutes)
	if err != nil {
		return nil, err
	}
	cfg.LoginWindow = time.Duration(windowMinutes) * time.Minute

	cfg.MaxLoginAttempts, err = parseIntEnv("MAX_LOGIN_ATTEMPTS", defaultMaxLoginAttempts)
	if err != nil {
		return nil, err
	}
	cfg.TokenCookieExpires, err = parseIntEnv("TOKEN_COOKIE_EXPIRES", defaultTokenCookieExpires)
	if err != nil {
		return nil, err
	}
	cfg.RevocationCacheSize, err = parseIntEnv("REVOCATION_CACHE_SIZE", defaultRevocationCache)
	if err != nil {
		return nil, err
	}

	cfg.RefreshRevokeOnRotate = parseBoolEnv("REFRESH_REVOKE_ON_ROTATE", "false")
	cfg.RevocationBackend = strings.ToLower(strings.TrimSpace(getEnv("REVOCATION_BACKEND", defaultRevocationBackend)))
	cfg.RateLimitBackend = strings.ToLower(strings.TrimSpace(getEnv("RATE_LIMIT_BACKEND", defaultRateLimitBackend)))

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *AuthRuntimeConfig) error {
	var missing []string
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if cfg.RefreshTokenSecret == "" {
		missing = append(missing, "REFRESH_TOKEN_SECRET")
	}
	if cfg.CSRFSecret == "" {
		missing = append(missing, "CSRF_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required secrets: %s", strings.Join(missing, ", "))
	}
	if cfg.JWTSecret == cfg.RefreshTokenSecret || cfg.JWTSecret == cfg.CSRFSecret || cfg.RefreshTokenSecret == cfg.CSRFSecret {
		return fmt.Errorf("JWT_SECRET, REFRESH_TOKEN_SECRET and CSRF_SECRET must all differ")
	}

	if cfg.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRY must be > 0")
	}
	if cfg.RefreshTokenTTL <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_EXPIRY must be > 0")
	}
	if cfg.RefreshTokenTTL > RevocationRetention {
		return fmt.Errorf("REFRESH_TOKEN_EXPIRY must not exceed %s", RevocationRetention)
	}
	if cfg.LoginWindow <= 0 {
		return fmt.Errorf("LOGIN_WINDOW_MINUTES must be > 0")
	}
	if cfg.MaxLoginAttempts <= 0 {
		return fmt.Errorf("MAX_LOGIN_ATTEMPTS must be > 0")
	}
	if cfg.TokenCookieExpires <= 0 {
		return fmt.Errorf("TOKEN_COOKIE_EXPIRES must be > 0")
	}
	if cfg.RevocationCacheSize < 0 {
		return fmt.Errorf("REVOCATION_CACHE_SIZE must be >= 0")
	}

	switch cfg.RevocationBackend {
	case BackendSQL, BackendRedis:
	default:
		return fmt.Errorf("REVOCATION_BACKEND must be one of: sql, redis")
	}
	switch cfg.RateLimitBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("RATE_LIMIT_BACKEND must be one of: memory, redis")
	}
	if cfg.NeedsRedis() && cfg.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when a redis backend is selected")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

// parseDuration accepts Go durations ("90m", "1h") and whole days ("7d").
func parseDuration(value string) (time.Duration, error) {
	if strings.HasSuffix(value, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(value, "d"))
		if err != nil {
			return 0, err
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(value)
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := parseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
