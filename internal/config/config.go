package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8585"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite:///luxora.db"`

	SessionKeyB64 string `env:"SESSION_KEY"`
	CSRFKeyB64    string `env:"CSRF_KEY"`
	SecretKey     string `env:"SECRET_KEY"`

	// Decoded from the base64 variables above by Load.
	SessionKey []byte `env:"-"`
	CSRFKey    []byte `env:"-"`

	AdminUsername string `env:"ADMIN_USERNAME"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	AdminEmail    string `env:"ADMIN_EMAIL"`

	UploadDir    string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	StaticDir    string `env:"STATIC_DIR"` // Overrides the embedded assets when set
	MaxUploadMB  int64  `env:"MAX_UPLOAD_MB" envDefault:"10"`
	CookieDomain string `env:"COOKIE_DOMAIN"`
	CookieSecure bool   `env:"COOKIE_SECURE" envDefault:"false"`

	OrderRequireAddress bool          `env:"ORDER_REQUIRE_ADDRESS" envDefault:"false"`
	OrderRateWindow     time.Duration `env:"ORDER_RATE_WINDOW" envDefault:"0s"` // 0 disables throttling
	APITokenTTL         time.Duration `env:"API_TOKEN_TTL" envDefault:"24h"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// LoadConfig reads a .env file when one exists, then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		slog.Debug("Loaded .env file")
	}
	return Load()
}

// Load builds the configuration from the process environment only.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// Keys are critical for security; development falls back to random ones.
	cfg.CSRFKey = decodeKey("CSRF_KEY", cfg.CSRFKeyB64)
	cfg.SessionKey = decodeKey("SESSION_KEY", cfg.SessionKeyB64)
	if cfg.SecretKey == "" {
		slog.Warn("SECRET_KEY environment variable not set. Generating a random key for development. API tokens will be invalid on restart. PLEASE SET SECRET_KEY IN PRODUCTION!")
		cfg.SecretKey = base64.StdEncoding.EncodeToString(generateRandomBytes(32))
	}

	// Make sure port is valid
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		slog.Error("Invalid PORT environment variable. Falling back to default.", "PORT", cfg.Port)
		cfg.Port = "8585"
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 10
	}
	if cfg.APITokenTTL <= 0 {
		cfg.APITokenTTL = 24 * time.Hour
	}

	return cfg, nil
}

// AdminConfigured reports whether an env admin account should be seeded.
func (c *Config) AdminConfigured() bool {
	return c.AdminUsername != "" && c.AdminPassword != ""
}

func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func decodeKey(name, value string) []byte {
	if value == "" {
		slog.Warn(name + " environment variable not set. Generating a random key for development. This key will change on each restart. PLEASE SET " + name + " IN PRODUCTION!")
		return generateRandomBytes(32)
	}
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil || len(decoded) < 32 {
		slog.Warn(name + " is invalid or too short (min 32 bytes recommended). Generating a random key for development. PLEASE SET A SECURE " + name + " IN PRODUCTION!")
		return generateRandomBytes(32)
	}
	return decoded
}

// generateRandomBytes generates a random byte slice of specified length
// Uses crypto/rand for secure random numbers.
func generateRandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		slog.Error("Failed to read random bytes", "error", err)
		fallbackKey := "fallback-insecure-key-" + strconv.FormatInt(time.Now().UnixNano(), 10)
		if len(fallbackKey) < n {
			paddedKey := make([]byte, n)
			copy(paddedKey, fallbackKey)
			return paddedKey
		}
		return []byte(fallbackKey)[:n]
	}
	return b
}
