package config

import "os"

// Default configuration values.
const (
	DefaultAddr     = ":8080"
	DefaultLogLevel = "info"
	DefaultSTUN     = "stun:stun.l.google.com:19302"
)

// Config holds the server configuration. Values come from the environment
// (a .env file is loaded at startup when present) with hardcoded defaults
// as the fallback.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// PostgresDSN enables the session recorder's database backend when set.
	PostgresDSN string

	// RedisAddr enables the active-room mirror when set.
	RedisAddr string

	// RedisPassword is the optional redis auth password.
	RedisPassword string

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string

	// STUNServer is advertised to clients that ask for ICE defaults.
	STUNServer string
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		Addr:          getenv("HTTP_ADDR", DefaultAddr),
		PostgresDSN:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		LogLevel:      getenv("LOG_LEVEL", DefaultLogLevel),
		STUNServer:    getenv("STUN_SERVER", DefaultSTUN),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
