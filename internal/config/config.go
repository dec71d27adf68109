// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir          string  // Base directory for all databases (always absolute)
	LogLevel         string
	Port             int
	DevMode          bool
	RiskFreeRate     float64 // Annual risk-free rate for Sharpe ratio
	TargetVolatility float64 // Default annualized volatility target for Conservative portfolios
	SyntheticSeed    int64   // Seed for the synthetic market data provider
	Backup           *BackupConfig
}

// BackupConfig holds S3 database backup configuration.
// Backups are disabled when Bucket is empty.
type BackupConfig struct {
	Bucket string
	Region string
	Prefix string
}

// Enabled reports whether S3 backups are configured
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FUNDSIM_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		Port:             getEnvAsInt("FUNDSIM_PORT", 8001),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		RiskFreeRate:     getEnvAsFloat("RISK_FREE_RATE", 0.02),
		TargetVolatility: getEnvAsFloat("TARGET_VOLATILITY", 0.10),
		SyntheticSeed:    int64(getEnvAsInt("SYNTHETIC_SEED", 42)),
		Backup: &BackupConfig{
			Bucket: getEnv("BACKUP_S3_BUCKET", ""),
			Region: getEnv("BACKUP_S3_REGION", "eu-central-1"),
			Prefix: getEnv("BACKUP_S3_PREFIX", "fundsim"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.RiskFreeRate < 0 || c.RiskFreeRate > 1 {
		return fmt.Errorf("risk-free rate %.4f outside [0,1]", c.RiskFreeRate)
	}
	if c.TargetVolatility <= 0 || c.TargetVolatility > 1 {
		return fmt.Errorf("target volatility %.4f outside (0,1]", c.TargetVolatility)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
