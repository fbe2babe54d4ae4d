package utils

import (
	"log"
	"os"
	"strconv"
	"time"
)

// SafeEnv returns the environment variable value for key, or fallback if empty.
func SafeEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

// EnvInt parses key as an int; unset or malformed values yield fallback.
func EnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("env: %s=%q is not an integer, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func EnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("env: %s=%q is not a number, using %v", key, v, fallback)
		return fallback
	}
	return f
}

// EnvDuration accepts Go durations ("90s", "2m").
func EnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("env: %s=%q is not a duration, using %s", key, v, fallback)
		return fallback
	}
	return d
}

func EnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
