package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration so main stays lean.
type Config struct {
	Addr      string
	StaticDir string

	// Mail relay. AdminEmail may legitimately be unset: the dispatcher
	// surfaces that per request instead of failing startup.
	AdminEmail  string
	RelayURL    string
	RelayAPIKey string
	MailFrom    string
	MailTimeout time.Duration

	// Rate limiting.
	RateLimitMax    int
	RateLimitWindow time.Duration
	RedisURL        string

	LogLevel slog.Level
}

// FromEnv builds a Config from environment variables with defaults suited to
// running the widget server locally.
func FromEnv() Config {
	return Config{
		Addr:      getenvDefault("LISTEN_ADDR", ":5000"),
		StaticDir: getenvDefault("STATIC_DIR", "./public"),

		AdminEmail:  os.Getenv("ADMIN_EMAIL"),
		RelayURL:    getenvDefault("MAIL_RELAY_URL", "https://api.resend.com"),
		RelayAPIKey: os.Getenv("MAIL_API_KEY"),
		MailFrom:    getenvDefault("MAIL_FROM", "Library Catalog <no-reply@library-widget.local>"),
		MailTimeout: getenvDurationDefault("MAIL_TIMEOUT", 10*time.Second),

		RateLimitMax:    getenvIntDefault("RATE_LIMIT_MAX", 3),
		RateLimitWindow: getenvDurationDefault("RATE_LIMIT_WINDOW", 300*time.Second),
		RedisURL:        os.Getenv("RATE_LIMIT_REDIS_URL"),

		LogLevel: parseLogLevel(os.Getenv("LOG_LEVEL")),
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func parseLogLevel(v string) slog.Level {
	switch v {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
