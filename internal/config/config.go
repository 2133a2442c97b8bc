package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port string

	// MongoURI selects the managed backend. It may be an inline
	// mongodb:// URI or a path to a file containing one. Absence is a
	// supported first-class mode (local file backend), not an error.
	MongoURI string

	// DataFile is the local JSON document used when MongoDB is not
	// configured or not reachable.
	DataFile string

	AllowedOrigins string

	StoreHealthInterval time.Duration
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:                getEnv("PORT", "4000"),
		MongoURI:            getEnv("MONGODB_URI", ""),
		DataFile:            getEnv("DATA_FILE", "telemetry-data.json"),
		AllowedOrigins:      getEnv("ALLOWED_ORIGINS", ""),
		StoreHealthInterval: time.Duration(getIntEnv("STORE_HEALTH_INTERVAL_SECONDS", 30)) * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
