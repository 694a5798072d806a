package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime settings loaded from environment variables.
type Config struct {
	Env               string
	IsProd            bool
	SecretKey         []byte
	DBPath            string
	Host              string
	Port              string
	CookieSecure      bool
	CookieSameSite    http.SameSite
	SessionTTL        time.Duration
	AuditDefaultLimit int
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	ForensicStream    string
	MetricsEnabled    bool
	AdminEmail        string
	AdminPassword     string
}

// LoadConfig reads an optional .env file and environment variables, applies defaults, and validates required settings.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	env := strings.ToLower(strings.TrimSpace(getEnv("KEEPER_ENV", "development")))
	isProd := env == "production"

	secret := os.Getenv("KEEPER_SECRET_KEY")
	if secret == "" && isProd {
		return Config{}, errors.New("KEEPER_SECRET_KEY is required in production")
	}
	if secret == "" {
		secret = randomSecret(32)
	}

	sameSite := http.SameSiteLaxMode
	switch strings.ToLower(getEnv("KEEPER_COOKIE_SAMESITE", "lax")) {
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "none":
		sameSite = http.SameSiteNoneMode
	}

	sessionTTL := 30 * 24 * time.Hour
	if v := os.Getenv("KEEPER_SESSION_TTL"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed <= 0 {
			return Config{}, fmt.Errorf("invalid KEEPER_SESSION_TTL %q", v)
		}
		sessionTTL = parsed
	}

	return Config{
		Env:               env,
		IsProd:            isProd,
		SecretKey:         []byte(secret),
		DBPath:            getEnv("KEEPER_DB_PATH", filepath.Join(getBaseDir(), "keeper.db")),
		Host:              getEnv("KEEPER_HOST", "127.0.0.1"),
		Port:              getEnv("KEEPER_PORT", "5000"),
		CookieSecure:      envBool("KEEPER_COOKIE_SECURE", isProd),
		CookieSameSite:    sameSite,
		SessionTTL:        sessionTTL,
		AuditDefaultLimit: envInt("KEEPER_AUDIT_DEFAULT_LIMIT", 50),
		RedisAddr:         strings.TrimSpace(os.Getenv("KEEPER_REDIS_ADDR")),
		RedisPassword:     os.Getenv("KEEPER_REDIS_PASSWORD"),
		RedisDB:           envInt("KEEPER_REDIS_DB", 0),
		ForensicStream:    getEnv("KEEPER_FORENSIC_STREAM", "keeper:audit:forensics"),
		MetricsEnabled:    envBool("KEEPER_METRICS_ENABLED", true),
		AdminEmail:        getEnv("KEEPER_ADMIN_EMAIL", "admin@example.com"),
		AdminPassword:     os.Getenv("KEEPER_ADMIN_PASSWORD"),
	}, nil
}

// getBaseDir returns the working directory or executable directory as a fallback.
func getBaseDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// randomSecret returns a hex token, falling back to a timestamp on RNG failure.
func randomSecret(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// getEnv returns the environment value or fallback when empty.
func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// envInt parses a positive integer env value and falls back when empty/invalid.
func envInt(name string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

// envBool parses common boolean env values and falls back when empty/invalid.
func envBool(name string, fallback bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
