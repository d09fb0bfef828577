package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Port     string
	Database DatabaseConfig
	Lookup   LookupConfig
	Export   ExportConfig
	Codes    CodesConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path        string
	BusyTimeout int // milliseconds
}

// LookupConfig holds the code lookup-table configuration
type LookupConfig struct {
	Path string
}

// ExportConfig holds ERP export configuration
type ExportConfig struct {
	Dir string
}

// CodesConfig holds product-code composition settings
type CodesConfig struct {
	// WeightClassWidth is the zero-padded width of the gramaje segment.
	// Deployed databases disagree on 3 vs 4 digits, so the width is fixed
	// per deployment instead of hard-coded.
	WeightClassWidth int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	width, err := strconv.Atoi(getEnv("GESTPROD_GRAMAJE_WIDTH", "3"))
	if err != nil || (width != 3 && width != 4) {
		return nil, fmt.Errorf("GESTPROD_GRAMAJE_WIDTH must be 3 or 4")
	}

	busy, err := strconv.Atoi(getEnv("GESTPROD_BUSY_TIMEOUT_MS", "5000"))
	if err != nil || busy < 0 {
		return nil, fmt.Errorf("GESTPROD_BUSY_TIMEOUT_MS must be a non-negative integer")
	}

	return &Config{
		Port: getEnv("PORT", "3211"),
		Database: DatabaseConfig{
			Path:        getEnv("GESTPROD_DB", "./produccion.db"),
			BusyTimeout: busy,
		},
		Lookup: LookupConfig{
			Path: getEnv("GESTPROD_LOOKUP", "./variablesCodProd.json"),
		},
		Export: ExportConfig{
			Dir: getEnv("GESTPROD_EXPORT_DIR", "."),
		},
		Codes: CodesConfig{
			WeightClassWidth: width,
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
