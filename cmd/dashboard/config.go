package main

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type config struct {
	Addr          string
	DefaultSymbol string

	BufferCapacity int
	AverageWindow  int
	StreamURL      string

	CacheTTL  time.Duration
	RedisAddr string

	LogLevel  string
	LogFormat string
	LogFile   string
}

// loadConfig reads configuration from a .env file, if present, and the
// process environment.
func loadConfig() config {
	_ = godotenv.Load()

	return config{
		Addr:           envStr("DASHBOARD_ADDR", ":8080"),
		DefaultSymbol:  envStr("DEFAULT_SYMBOL", ""),
		BufferCapacity: envInt("STREAM_BUFFER_CAPACITY", 600),
		AverageWindow:  envInt("STREAM_AVERAGE_WINDOW", 20),
		StreamURL:      envStr("BINANCE_STREAM_URL", ""),
		CacheTTL:       envDuration("SYMBOLS_CACHE_TTL", 30*time.Second),
		RedisAddr:      envStr("REDIS_ADDR", ""),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		LogFormat:      envStr("LOG_FORMAT", "text"),
		LogFile:        envStr("LOG_FILE", ""),
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
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
