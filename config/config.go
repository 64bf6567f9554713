package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port              string `mapstructure:"PORT"`
	RedisURI          string `mapstructure:"REDIS_URI"`
	RedisPassword     string `mapstructure:"REDIS_PASSWORD"`
	RedisDB           int    `mapstructure:"REDIS_DB"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	PollDuration      int    `mapstructure:"POLL_DURATION"` // in seconds
	BroadcastCapacity int    `mapstructure:"BROADCAST_CAPACITY"`
	ClientOrigin      string `mapstructure:"CLIENT_ORIGIN"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	LogFormat         string `mapstructure:"LOG_FORMAT"`
}

// PollTTL is the lifetime of a poll document and of the tokens issued for it.
func (c Config) PollTTL() time.Duration {
	return time.Duration(c.PollDuration) * time.Second
}

// LoadEnv reads .env into the process environment. A missing file is
// reported but not fatal; the environment alone may be enough.
func LoadEnv() error {
	return godotenv.Load()
}

func GetEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

// Load reads the environment (after LoadEnv) into a Config and validates it.
func Load() (Config, error) {
	raw := map[string]string{
		"PORT":               GetEnv("PORT", "8080"),
		"REDIS_URI":          GetEnv("REDIS_URI", "localhost:6379"),
		"REDIS_PASSWORD":     GetEnv("REDIS_PASSWORD", ""),
		"REDIS_DB":           GetEnv("REDIS_DB", "0"),
		"JWT_SECRET":         GetEnv("JWT_SECRET", ""),
		"POLL_DURATION":      GetEnv("POLL_DURATION", "7200"),
		"BROADCAST_CAPACITY": GetEnv("BROADCAST_CAPACITY", "100"),
		"CLIENT_ORIGIN":      GetEnv("CLIENT_ORIGIN", ""),
		"LOG_LEVEL":          GetEnv("LOG_LEVEL", "info"),
		"LOG_FORMAT":         GetEnv("LOG_FORMAT", "text"),
	}

	var cfg Config
	if err := mapstructure.WeakDecode(raw, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET required")
	}
	if cfg.PollDuration <= 0 {
		return Config{}, errors.New("POLL_DURATION must be positive")
	}
	if cfg.BroadcastCapacity <= 0 {
		return Config{}, errors.New("BROADCAST_CAPACITY must be positive")
	}
	return cfg, nil
}
