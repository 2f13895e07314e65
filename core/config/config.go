// Package config loads store connection settings from environment variables
// and an optional .env file.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the settings needed to reach the document store.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// Load reads configuration from the environment, with .env as a fallback.
// MONGODB_URI is required; MONGODB_DATABASE and MONGODB_TIMEOUT (seconds)
// have defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetDefault("MONGODB_DATABASE", "griot")
	viper.SetDefault("MONGODB_TIMEOUT", 10)

	uri := viper.GetString("MONGODB_URI")
	if uri == "" {
		return nil, fmt.Errorf("MONGODB_URI is required")
	}

	return &Config{
		URI:            uri,
		Database:       viper.GetString("MONGODB_DATABASE"),
		ConnectTimeout: time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
	}, nil
}
