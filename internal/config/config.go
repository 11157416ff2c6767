// Package config reads newsbot settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

const (
	BackendSQL   = "sql"
	BackendMongo = "mongo"
)

type Config struct {
	DatabaseDriver    string
	DatabaseURL       string
	SubscriberBackend string
	MongoURI          string
	MongoDatabase     string
	TelegramBotToken  string
	NewsSourceURL     string
	FetchInterval     time.Duration
	FetchTimeout      time.Duration
	PageSize          int
	NotifyWorkers     int
	NotifyRate        float64
	CommandRate       float64
	CommandBurst      int
	NATSUrl           string
	RedisAddr         string
	Port              string
	BaseURL           string
}

// Load reads the configuration from the environment and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseDriver:    getEnv("DATABASE_DRIVER", "postgres"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		SubscriberBackend: getEnv("SUBSCRIBER_BACKEND", BackendSQL),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnv("MONGO_DATABASE", "newsbot"),
		TelegramBotToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		NewsSourceURL:     getEnv("NEWS_SOURCE_URL", "https://www.nur.kz/latest/"),
		FetchInterval:     getDurationEnv("FETCH_INTERVAL", "60s"),
		FetchTimeout:      getDurationEnv("FETCH_TIMEOUT", "30s"),
		PageSize:          getIntEnv("PAGE_SIZE", 1),
		NotifyWorkers:     getIntEnv("NOTIFY_WORKERS", 4),
		NotifyRate:        getFloatEnv("NOTIFY_RATE", 25),
		CommandRate:       getFloatEnv("COMMAND_RATE", 1),
		CommandBurst:      getIntEnv("COMMAND_BURST", 5),
		NATSUrl:           getEnv("NATS_URL", ""),
		RedisAddr:         getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		Port:              getEnv("PORT", "8080"),
		BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Printf("Config loaded - Driver: %s, Subscribers: %s, FetchInterval: %v, PageSize: %d, Workers: %d",
		cfg.DatabaseDriver, cfg.SubscriberBackend, cfg.FetchInterval, cfg.PageSize, cfg.NotifyWorkers)
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.SubscriberBackend {
	case BackendSQL, BackendMongo:
	default:
		return fmt.Errorf("unsupported SUBSCRIBER_BACKEND %q", c.SubscriberBackend)
	}
	if c.FetchInterval <= 0 {
		return errors.New("FETCH_INTERVAL must be positive")
	}
	if c.PageSize < 1 {
		return errors.New("PAGE_SIZE must be at least 1")
	}
	return nil
}

// RequireBotToken fails when the binary needs the bot and no token is set.
func (c *Config) RequireBotToken() error {
	if c.TelegramBotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Printf("Ignoring invalid %s=%q", key, value)
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Printf("Ignoring invalid %s=%q", key, value)
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Ignoring invalid %s=%q", key, value)
	}
	return defaultValue
}
