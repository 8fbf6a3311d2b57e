package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort  string `mapstructure:"APP_PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// MongoDB configuration.
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr          string `mapstructure:"REDIS_ADDR"`
	RedisPassword      string `mapstructure:"REDIS_PASSWORD"`
	RedisStateDB       int    `mapstructure:"REDIS_STATE_DB"`
	RedisCacheDB       int    `mapstructure:"REDIS_CACHE_DB"`
	RedisReminderQueue int    `mapstructure:"REDIS_REMINDER_QUEUE_DB"`

	// Dialogue engine configuration.
	// TZOffsetMinutes is the fixed UTC offset applied when combining a date
	// and a wall-clock time extracted from a message. It is not DST-aware;
	// the default is UTC-3 (America/Sao_Paulo, which no longer observes DST).
	TZOffsetMinutes int `mapstructure:"TZ_OFFSET_MINUTES"`
	// StateBackend selects where dialogue state lives: "redis" (default,
	// TTL-expired) or "mongo" (durable, stored with the conversation records).
	StateBackend      string `mapstructure:"STATE_BACKEND"`
	StateTTLMinutes   int    `mapstructure:"STATE_TTL_MINUTES"`
	DirectoryTTLSecs  int    `mapstructure:"DIRECTORY_TTL_SECONDS"`
	BookingWindowDays int    `mapstructure:"BOOKING_WINDOW_DAYS"`
	ReminderLeadMins  int    `mapstructure:"REMINDER_LEAD_MINUTES"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "agendly")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_STATE_DB", 0)
	viper.SetDefault("REDIS_CACHE_DB", 1)
	viper.SetDefault("REDIS_REMINDER_QUEUE_DB", 2)
	viper.SetDefault("TZ_OFFSET_MINUTES", -180)
	viper.SetDefault("STATE_BACKEND", "redis")
	viper.SetDefault("STATE_TTL_MINUTES", 60)
	viper.SetDefault("DIRECTORY_TTL_SECONDS", 300)
	viper.SetDefault("BOOKING_WINDOW_DAYS", 7)
	viper.SetDefault("REMINDER_LEAD_MINUTES", 120)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
