package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	NewRelic NewRelicConfig
	Matching MatchingConfig
	Notify   NotifyConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Migrate  bool
}

// DSN returns the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds the notification topic. Notifications go to the log when Brokers is empty.
type KafkaConfig struct {
	Brokers            []string
	NotificationsTopic string
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// MatchingConfig bounds provider searches.
type MatchingConfig struct {
	DefaultRadiusMeters float64
	MaxRadiusMeters     float64
	MaxResults          int
}

// NotifyConfig tunes the notification dispatcher.
type NotifyConfig struct {
	BufferSize      int
	Workers         int
	DeliveryTimeout time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second),
			CORSOrigins:     getListEnv("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "home_services"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Migrate:  getBoolEnv("DB_MIGRATE", false),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:            getListEnv("KAFKA_BROKERS", nil),
			NotificationsTopic: getEnv("KAFKA_NOTIFICATIONS_TOPIC", "booking-notifications"),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "home-services"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Matching: MatchingConfig{
			DefaultRadiusMeters: getFloatEnv("MATCH_DEFAULT_RADIUS_METERS", 10000),
			MaxRadiusMeters:     getFloatEnv("MATCH_MAX_RADIUS_METERS", 100000),
			MaxResults:          getIntEnv("MATCH_MAX_RESULTS", 20),
		},
		Notify: NotifyConfig{
			BufferSize:      getIntEnv("NOTIFY_BUFFER_SIZE", 1024),
			Workers:         getIntEnv("NOTIFY_WORKERS", 2),
			DeliveryTimeout: getDurationEnv("NOTIFY_DELIVERY_TIMEOUT", 2*time.Second),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}
	if c.Matching.DefaultRadiusMeters <= 0 {
		errs = append(errs, fmt.Errorf("MATCH_DEFAULT_RADIUS_METERS must be positive, got %v", c.Matching.DefaultRadiusMeters))
	}
	if c.Matching.MaxRadiusMeters < c.Matching.DefaultRadiusMeters {
		errs = append(errs, fmt.Errorf("MATCH_MAX_RADIUS_METERS (%v) is below the default radius (%v)",
			c.Matching.MaxRadiusMeters, c.Matching.DefaultRadiusMeters))
	}
	if c.Matching.MaxResults <= 0 {
		errs = append(errs, fmt.Errorf("MATCH_MAX_RESULTS must be positive, got %d", c.Matching.MaxResults))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.NotificationsTopic == "" {
		errs = append(errs, errors.New("KAFKA_NOTIFICATIONS_TOPIC is required when KAFKA_BROKERS is set"))
	}
	if c.NewRelic.Enabled && c.NewRelic.LicenseKey == "" {
		errs = append(errs, errors.New("NEW_RELIC_LICENSE_KEY is required when NEW_RELIC_ENABLED is true"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated value, dropping empty items.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
