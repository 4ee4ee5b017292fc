package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the board server.
type Config struct {
	// Port is the HTTP server port.
	Port int

	// DatabasePath is the SQLite database file path.
	DatabasePath string

	// TenorAPIKey authenticates GIF searches against the Tenor API. When
	// empty, the /api/gifs endpoint always returns an empty result set.
	TenorAPIKey string

	// TenorAPIURL overrides the Tenor search endpoint (used in tests).
	TenorAPIURL string
}

// Load reads configuration from environment variables with sensible
// defaults. A .env file in the working directory is applied first if
// present.
func Load() (*Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		var err error
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "caboard.db"
	}

	return &Config{
		Port:         port,
		DatabasePath: dbPath,
		TenorAPIKey:  os.Getenv("TENOR_API_KEY"),
		TenorAPIURL:  os.Getenv("TENOR_API_URL"),
	}, nil
}
