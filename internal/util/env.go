package util

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/OFFIS-RIT/chronograph/pkg/logger"
)

func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using system environment variables")
	}
}

func GetEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return ""
	}
	return value
}

func GetEnvString(key string, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	return value
}

func GetEnvNumeric(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func GetEnvBool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	if value == "true" || value == "false" {
		return value == "true"
	}
	return defaultValue
}

type RabbitMQConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Exchange string
}

// Enabled reports whether a broker is configured.
func (c RabbitMQConfig) Enabled() bool {
	return c.Host != ""
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.User, c.Password, c.Host, c.Port)
}

type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

type Config struct {
	Debug            bool
	DatabaseURL      string
	DatabaseMaxConns int
	RabbitMQ         RabbitMQConfig
	S3               S3Config
	UpdateMaxTries   int
	QueryParallelism int
}

// LoadConfig reads the process configuration from the environment. Only
// DATABASE_URL is required.
func LoadConfig() (Config, error) {
	cfg := Config{
		Debug:            GetEnvBool("DEBUG", false),
		DatabaseURL:      GetEnv("DATABASE_URL"),
		DatabaseMaxConns: GetEnvNumeric("DATABASE_MAX_CONNS", 10),
		RabbitMQ: RabbitMQConfig{
			User:     GetEnv("RABBITMQ_USER"),
			Password: GetEnv("RABBITMQ_PASSWORD"),
			Host:     GetEnv("RABBITMQ_HOST"),
			Port:     GetEnvString("RABBITMQ_PORT", "5672"),
			Exchange: GetEnvString("EVENT_EXCHANGE", "graph_events"),
		},
		S3: S3Config{
			Region:    GetEnvString("AWS_REGION", "us-east-1"),
			Endpoint:  GetEnv("AWS_ENDPOINT"),
			AccessKey: GetEnv("AWS_ACCESS_KEY"),
			SecretKey: GetEnv("AWS_SECRET_KEY"),
			Bucket:    GetEnvString("AWS_BUCKET", "chronograph"),
		},
		UpdateMaxTries:   GetEnvNumeric("UPDATE_MAX_TRIES", 3),
		QueryParallelism: GetEnvNumeric("QUERY_PARALLELISM", 4),
	}

	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.DatabaseMaxConns <= 0 {
		return cfg, fmt.Errorf("DATABASE_MAX_CONNS must be positive, got %d", cfg.DatabaseMaxConns)
	}
	if cfg.QueryParallelism <= 0 {
		cfg.QueryParallelism = 1
	}
	if cfg.UpdateMaxTries <= 0 {
		cfg.UpdateMaxTries = 1
	}
	return cfg, nil
}
