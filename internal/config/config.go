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
	"log"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the transfer-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort               string `mapstructure:"SERVER_PORT"`
	SupabaseURL              string `mapstructure:"SUPABASE_URL"`
	SupabaseServiceKey       string `mapstructure:"SUPABASE_SERVICE_KEY"`
	SupabaseJWTSecret        string `mapstructure:"SUPABASE_JWT_SECRET"`
	RedisURL                 string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix     string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL              string `mapstructure:"RABBITMQ_URL"`
	PhoneHomeRegion          string `mapstructure:"PHONE_HOME_REGION"`
	SearchTimeoutSeconds     int    `mapstructure:"SEARCH_TIMEOUT_SECONDS"`
	SearchDebounceMillis     int    `mapstructure:"SEARCH_DEBOUNCE_MILLIS"`
	SearchRateLimitPerMinute int    `mapstructure:"SEARCH_RATE_LIMIT_PER_MINUTE"`
	MinTransferAmount        string `mapstructure:"MIN_TRANSFER_AMOUNT"`
	MaxNoteLength            int    `mapstructure:"MAX_NOTE_LENGTH"`
	TransactionListLimit     int    `mapstructure:"TRANSACTION_LIST_LIMIT"`
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
	viper.SetDefault("PHONE_HOME_REGION", "ZW")
	viper.SetDefault("SEARCH_TIMEOUT_SECONDS", 10)
	viper.SetDefault("SEARCH_DEBOUNCE_MILLIS", 400)
	viper.SetDefault("SEARCH_RATE_LIMIT_PER_MINUTE", 60)
	viper.SetDefault("MIN_TRANSFER_AMOUNT", "1.00")
	viper.SetDefault("MAX_NOTE_LENGTH", 200)
	viper.SetDefault("TRANSACTION_LIST_LIMIT", 50)
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "zimpay:rate_limit")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("SUPABASE_URL")
	_ = viper.BindEnv("SUPABASE_SERVICE_KEY")
	_ = viper.BindEnv("SUPABASE_JWT_SECRET")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("PHONE_HOME_REGION")
	_ = viper.BindEnv("SEARCH_TIMEOUT_SECONDS")
	_ = viper.BindEnv("SEARCH_DEBOUNCE_MILLIS")
	_ = viper.BindEnv("SEARCH_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("MIN_TRANSFER_AMOUNT")
	_ = viper.BindEnv("MAX_NOTE_LENGTH")
	_ = viper.BindEnv("TRANSACTION_LIST_LIMIT")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	config.SupabaseURL = strings.TrimSpace(config.SupabaseURL)
	config.SupabaseServiceKey = strings.TrimSpace(config.SupabaseServiceKey)
	config.SupabaseJWTSecret = strings.TrimSpace(config.SupabaseJWTSecret)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "zimpay:rate_limit"
	}

	if config.SearchTimeoutSeconds <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive search timeout configured; using default\" seconds=%d", config.SearchTimeoutSeconds)
		config.SearchTimeoutSeconds = 10
	}
	if config.SearchDebounceMillis <= 0 {
		config.SearchDebounceMillis = 400
	}
	if config.MaxNoteLength <= 0 {
		config.MaxNoteLength = 200
	}
	if config.TransactionListLimit <= 0 {
		config.TransactionListLimit = 50
	}

	if _, parseErr := decimal.NewFromString(strings.TrimSpace(config.MinTransferAmount)); parseErr != nil {
		log.Printf("level=warn component=config msg=\"invalid MIN_TRANSFER_AMOUNT; using 1.00\" value=%q err=%v", config.MinTransferAmount, parseErr)
		config.MinTransferAmount = "1.00"
	}

	return
}

// MinTransfer returns the minimum transfer amount as a decimal. LoadConfig
// guarantees the stored string parses.
func (c Config) MinTransfer() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(c.MinTransferAmount))
	if err != nil {
		return decimal.New(1, 0)
	}
	return d
}
