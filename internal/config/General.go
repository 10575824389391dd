package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// WebPort is the port the pricing service listens on.
	WebPort string
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string
	// LogFile, when set, receives a JSON copy of the console logs.
	LogFile string
	// BackendTimeout bounds every request sent to the remote API.
	BackendTimeout time.Duration
)

const (
	defaultWebPort               = "8080"
	defaultBackendTimeoutSeconds = 30
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// CIRCLE_API_URL is required; everything else falls back to a default.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	WebPort = getEnvOrDefault("WEB_PORT", defaultWebPort)
	LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	LogFile = getEnvOrDefault("LOG_FILE", "")

	timeoutSeconds, err := getEnvAsInt64OrDefault("BACKEND_TIMEOUT_SECONDS", defaultBackendTimeoutSeconds)
	if err != nil {
		return err
	}
	if timeoutSeconds <= 0 {
		return errors.New("environment variable BACKEND_TIMEOUT_SECONDS must be positive")
	}
	BackendTimeout = time.Duration(timeoutSeconds) * time.Second

	if err := LoadPricingConfig(); err != nil {
		return err
	}

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("WebPort", WebPort).
		Dur("BackendTimeout", BackendTimeout).
		Str("Currency", Pricing.Currency).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOrDefault retrieves a string environment variable, or fallback when unset.
func getEnvOrDefault(key, fallback string) string {
	if value, err := getEnv(key); err == nil {
		return value
	}
	return fallback
}

// getEnvAsInt64OrDefault retrieves an environment variable as an int64. Returns error if set but invalid.
func getEnvAsInt64OrDefault(key string, fallback int64) (int64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return fallback, nil
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int64, got: " + valueStr)
	}
	return value, nil
}
