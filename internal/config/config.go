package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	PGHost        string
	PGPort        int
	PGUser        string
	PGPassword    string
	PGDatabase    string
	MigrationsDir string

	RedisAddr    string
	KafkaBrokers []string
}

func Load() *Config {
	return &Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":5000"),
		RequestTimeout:  getDuration("REQUEST_TIMEOUT", 15*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		PGHost:          getEnv("PG_HOST", "localhost"),
		PGPort:          getInt("PG_PORT", 5432),
		PGUser:          getEnv("PG_USER", "storefront"),
		PGPassword:      getEnv("PG_PASSWORD", "storefront"),
		PGDatabase:      getEnv("PG_DATABASE", "storefront"),
		MigrationsDir:   getEnv("MIGRATIONS_DIR", "./migrations"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:    splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
