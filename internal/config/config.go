/**
 * @description
 * This package handles configuration for the ledger service. It uses Viper to
 * read environment variables, with an optional `.env` file for local
 * development, and applies defaults and sanity clamps after unmarshalling.
 *
 * @dependencies
 * - github.com/spf13/viper: configuration loading and env binding.
 */

package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds every runtime setting of the ledger service.
type Config struct {
	ServerPort            string `mapstructure:"SERVER_PORT"`
	DatabaseURL           string `mapstructure:"DATABASE_URL"`
	SessionJWTSecret      string `mapstructure:"SESSION_JWT_SECRET"`
	InternalAPIKey        string `mapstructure:"INTERNAL_API_KEY"`
	RabbitMQURL           string `mapstructure:"RABBITMQ_URL"`
	LedgerEventExchange   string `mapstructure:"LEDGER_EVENT_EXCHANGE"`
	RedisURL              string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix  string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	MutationRateLimit     int    `mapstructure:"MUTATION_RATE_LIMIT_PER_MINUTE"`
	ConflictRetryAttempts int    `mapstructure:"CONFLICT_RETRY_ATTEMPTS"`
}

// LoadConfig reads configuration from environment variables, looking for an
// optional .env file in the given path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LEDGER_EVENT_EXCHANGE", "ledger.events")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "ledger:rate_limit")
	viper.SetDefault("MUTATION_RATE_LIMIT_PER_MINUTE", 0)
	viper.SetDefault("CONFLICT_RETRY_ATTEMPTS", 3)

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("SESSION_JWT_SECRET")
	_ = viper.BindEnv("INTERNAL_API_KEY")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("LEDGER_EVENT_EXCHANGE")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("MUTATION_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("CONFLICT_RETRY_ATTEMPTS")

	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
		err = nil
	}

	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	config.DatabaseURL = strings.TrimSpace(config.DatabaseURL)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "ledger:rate_limit"
	}

	if config.ConflictRetryAttempts <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive conflict retry attempts; using default\" value=%d", config.ConflictRetryAttempts)
		config.ConflictRetryAttempts = 3
	}
	if config.MutationRateLimit < 0 {
		log.Printf("level=warn component=config msg=\"negative mutation rate limit; disabling\" value=%d", config.MutationRateLimit)
		config.MutationRateLimit = 0
	}

	return
}
