package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaFeedTopic   string
	KafkaStatusTopic string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize int

	// Row store configuration.
	StoreBaseURL string
	StoreAPIKey  string
	StoreTimeout time.Duration

	// Bound on the anonymous-submitter local cooldown cache.
	AnonCooldownSize int
}

// Load reads configuration from a .env file (if present) and environment
// variables, applying defaults where unset.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	storeTimeout, err := envDuration("STORE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	batchSize, err := envInt("BATCH_SIZE", 50)
	if err != nil {
		return nil, err
	}
	anonCooldownSize, err := envInt("ANON_COOLDOWN_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:     parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaFeedTopic:   envOrDefault("KAFKA_FEED_TOPIC", "light-row-feed"),
		KafkaStatusTopic: envOrDefault("KAFKA_STATUS_TOPIC", "light-status-changes"),
		KafkaGroupID:     envOrDefault("KAFKA_GROUP_ID", "lightwatch-engine"),
		HTTPAddr:         envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,
		BatchSize:        batchSize,
		StoreBaseURL:     envOrDefault("STORE_BASE_URL", "http://localhost:3000"),
		StoreAPIKey:      os.Getenv("STORE_API_KEY"),
		StoreTimeout:     storeTimeout,
		AnonCooldownSize: anonCooldownSize,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaFeedTopic == "" {
		return nil, errors.New("KAFKA_FEED_TOPIC is required")
	}
	if cfg.KafkaStatusTopic == "" {
		return nil, errors.New("KAFKA_STATUS_TOPIC is required")
	}
	if cfg.StoreBaseURL == "" {
		return nil, errors.New("STORE_BASE_URL is required")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
