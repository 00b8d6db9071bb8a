// Package config reads the server's knobs from the environment, falling
// back to the defaults the engine was designed around.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr              string
	TokenTTL          time.Duration
	DebounceWindow    time.Duration
	ArrivedThresholdM float64
	StaleThreshold    time.Duration
	DefaultSpeedMPS   float64
	LogLevel          string
}

func New() *Config {
	getEnv := func(key, def string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return def
	}

	getEnvInt := func(key string, def int) int {
		valStr := os.Getenv(key)
		if valStr == "" {
			return def
		}
		val, err := strconv.Atoi(valStr)
		if err != nil {
			return def
		}
		return val
	}

	getEnvFloat := func(key string, def float64) float64 {
		valStr := os.Getenv(key)
		if valStr == "" {
			return def
		}
		val, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return def
		}
		return val
	}

	return &Config{
		Addr:              getEnv("APP_ADDR", ":8081"),
		TokenTTL:          time.Duration(getEnvInt("APP_TOKEN_TTL_MINUTES", 240)) * time.Minute,
		DebounceWindow:    time.Duration(getEnvInt("APP_DEBOUNCE_MS", 1000)) * time.Millisecond,
		ArrivedThresholdM: getEnvFloat("APP_ARRIVED_THRESHOLD_M", 100),
		StaleThreshold:    time.Duration(getEnvInt("APP_STALE_THRESHOLD_S", 30)) * time.Second,
		DefaultSpeedMPS:   getEnvFloat("APP_DEFAULT_SPEED_MPS", 5.56),
		LogLevel:          getEnv("APP_LOG_LEVEL", "info"),
	}
}
