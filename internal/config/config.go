package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	Upcy        UpcyConfig
	LogLevel    string
}

// UpcyConfig configures access to the UPCY platform API
type UpcyConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("UPCY_REQUEST_TIMEOUT_SECONDS", "10")
	viper.SetDefault("LOG_LEVEL", "info")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if .env doesn't exist, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	timeoutStr := getEnvOrViper("UPCY_REQUEST_TIMEOUT_SECONDS", "10")
	timeoutSeconds, err := strconv.Atoi(timeoutStr)
	if err != nil || timeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid UPCY_REQUEST_TIMEOUT_SECONDS: %q", timeoutStr)
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		Upcy: UpcyConfig{
			BaseURL:        getEnvOrViper("UPCY_API_BASE_URL", ""),
			RequestTimeout: time.Duration(timeoutSeconds) * time.Second,
		},
		LogLevel: getEnvOrViper("LOG_LEVEL", "info"),
	}

	// Validate required fields
	if cfg.Upcy.BaseURL == "" {
		return nil, fmt.Errorf("UPCY_API_BASE_URL is required")
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}
