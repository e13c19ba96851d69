// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jason-s-yu/kargo/internal/auth"
	"github.com/sirupsen/logrus"
)

// Config holds everything the server and historian read from the environment.
type Config struct {
	Port           string
	LogLevel       logrus.Level
	TokenTTL       time.Duration
	RedisAddr      string // empty disables activity publishing
	RedisDB        int
	ActivityQueue  string
	DatabaseURL    string // empty disables deal persistence
	AllowedOrigins []string
	MetricsNS      string
	OutboxSize     int

	// raw ed25519 key files; both empty means a fresh key per process
	JWTPrivateKeyPath string
	JWTPublicKeyPath  string

	HistorianBatchSize  int
	HistorianFlush      time.Duration
	HistorianMaxPending int
}

// Load reads the environment. Unset variables take their defaults; malformed
// ones are an error.
func Load() (Config, error) {
	cfg := Config{
		Port:          getEnv("PORT", "8080"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		ActivityQueue: getEnv("ACTIVITY_QUEUE_NAME", "kargo_activity"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		MetricsNS:     getEnv("METRICS_NAMESPACE", "kargo"),

		JWTPrivateKeyPath: os.Getenv("JWT_PRIVATE_KEY_PATH"),
		JWTPublicKeyPath:  os.Getenv("JWT_PUBLIC_KEY_PATH"),
	}
	if (cfg.JWTPrivateKeyPath == "") != (cfg.JWTPublicKeyPath == "") {
		return Config{}, fmt.Errorf("JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH must be set together")
	}

	var err error
	if cfg.LogLevel, err = logrus.ParseLevel(getEnv("LOG_LEVEL", "debug")); err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if cfg.TokenTTL, err = auth.ParseTokenExpireTime(os.Getenv("TOKEN_EXPIRE_TIME")); err != nil {
		return Config{}, fmt.Errorf("TOKEN_EXPIRE_TIME: %w", err)
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.OutboxSize, err = getEnvInt("OUTBOX_SIZE", 16); err != nil {
		return Config{}, err
	}
	if cfg.HistorianBatchSize, err = getEnvInt("HISTORIAN_BATCH_SIZE", 20); err != nil {
		return Config{}, err
	}
	flushMs, err := getEnvInt("HISTORIAN_FLUSH_MS", 500)
	if err != nil {
		return Config{}, err
	}
	cfg.HistorianFlush = time.Duration(flushMs) * time.Millisecond
	if cfg.HistorianMaxPending, err = getEnvInt("HISTORIAN_MAX_PENDING", 200); err != nil {
		return Config{}, err
	}

	for _, o := range strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	if cfg.OutboxSize < 1 {
		return Config{}, fmt.Errorf("OUTBOX_SIZE must be positive, got %d", cfg.OutboxSize)
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt parses an environment variable as an integer, else a default value.
func getEnvInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
