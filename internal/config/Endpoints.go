package config

import (
	"errors"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// APIURL is the base URL of the remote money circle API (accounts, pools, contracts).
	APIURL string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	APIURL, err = getEnv("CIRCLE_API_URL")
	if err != nil {
		return err
	}

	parsed, err := url.Parse(APIURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return errors.New("environment variable CIRCLE_API_URL must be an absolute URL, got: " + APIURL)
	}
	APIURL = strings.TrimRight(APIURL, "/")

	log.Debug().
		Str("APIURL", APIURL).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}
