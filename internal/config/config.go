package config

import (
	"os"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Nepse     NepseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Scheduler SchedulerConfig

	// ScrapeSecret is the shared secret required by every scrape endpoint.
	// An empty value is a configuration error surfaced at request time.
	ScrapeSecret string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// NepseConfig holds upstream exchange client configuration
type NepseConfig struct {
	BaseURL string
}

// RedisConfig holds Redis configuration for the ingestion lock.
// An empty Addr disables locking.
type RedisConfig struct {
	Addr string
}

// KafkaConfig holds Kafka configuration. Empty brokers disable event publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// SchedulerConfig holds the cron schedule for the daily scrape
type SchedulerConfig struct {
	ScrapeSpec string
	TimeZone   string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "nepsedata"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Nepse: NepseConfig{
			BaseURL: getEnv("NEPSE_BASE_URL", "https://www.nepalstock.com.np/api"),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", ""),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "nepse-ingestion-events"),
		},
		Scheduler: SchedulerConfig{
			// 15:30 local time, shortly after the NEPSE close.
			ScrapeSpec: getEnv("SCRAPE_CRON", "30 15 * * *"),
			TimeZone:   getEnv("SCRAPE_TZ", "Asia/Kathmandu"),
		},
		ScrapeSecret: getEnv("SCRAPE_SECRET_KEY", ""),
	}
}

// ConnectionString returns the PostgreSQL connection string.
// DATABASE_URL takes precedence over the individual DB_* variables.
func (d *DatabaseConfig) ConnectionString() string {
	if d.URL != "" {
		return d.URL
	}
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
