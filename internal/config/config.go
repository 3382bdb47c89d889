/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the collections service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort          string `mapstructure:"SERVER_PORT"`
	DatabaseURL         string `mapstructure:"DATABASE_URL"`
	RabbitMQURL         string `mapstructure:"RABBITMQ_URL"`
	BillstackAPIBaseURL string `mapstructure:"BILLSTACK_API_BASE_URL"`
	BillstackSecret     string `mapstructure:"BILLSTACK_SECRET"`
	BillstackIP1        string `mapstructure:"BILLSTACK_IP1"`
	BillstackIP2        string `mapstructure:"BILLSTACK_IP2"`
	JWTSecret           string `mapstructure:"JWT_SECRET"`
	InternalAPIKey      string `mapstructure:"INTERNAL_API_KEY"`
	SweepSchedule       string `mapstructure:"SWEEP_SCHEDULE"`
	PoolLowWater        int    `mapstructure:"POOL_LOW_WATER"`
	PoolBatchSize       int    `mapstructure:"POOL_BATCH_SIZE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("BILLSTACK_API_BASE_URL", "https://api.billstack.co")
	viper.SetDefault("SWEEP_SCHEDULE", "*/10 * * * *")
	viper.SetDefault("POOL_LOW_WATER", 5)
	viper.SetDefault("POOL_BATCH_SIZE", 5)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("BILLSTACK_API_BASE_URL")
	_ = viper.BindEnv("BILLSTACK_SECRET")
	_ = viper.BindEnv("BILLSTACK_IP1")
	_ = viper.BindEnv("BILLSTACK_IP2")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("INTERNAL_API_KEY")
	_ = viper.BindEnv("SWEEP_SCHEDULE")
	_ = viper.BindEnv("POOL_LOW_WATER")
	_ = viper.BindEnv("POOL_BATCH_SIZE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("failed to read config file; using environment values", "component", "config", "error", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.BillstackIP1 = strings.TrimSpace(config.BillstackIP1)
	config.BillstackIP2 = strings.TrimSpace(config.BillstackIP2)
	if config.PoolLowWater <= 0 {
		config.PoolLowWater = 5
	}
	if config.PoolBatchSize <= 0 {
		config.PoolBatchSize = 5
	}
	if strings.TrimSpace(config.SweepSchedule) == "" {
		config.SweepSchedule = "*/10 * * * *"
	}

	return
}
