package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StoreDynamoDB = "dynamodb"
	StoreBadger   = "badger"

	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress   string        `yaml:"server_address"`
	Environment     string        `yaml:"environment"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Note store
	StoreDriver      string `yaml:"store_driver"`
	TableName        string `yaml:"table_name"`
	GSI1Name         string `yaml:"gsi1_name"`
	GSI2Name         string `yaml:"gsi2_name"`
	AWSRegion        string `yaml:"aws_region"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint"`
	BadgerPath       string `yaml:"badger_path"`

	// Collection cache
	CacheDriver string        `yaml:"cache_driver"`
	RedisURL    string        `yaml:"redis_url"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`

	// Events
	EventBusName string `yaml:"event_bus_name"`
	EnableEvents bool   `yaml:"enable_events"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Resilience
	BreakerMaxFailures int `yaml:"breaker_max_failures"`

	// Feature flags
	EnableMetrics      bool     `yaml:"enable_metrics"`
	EnableTracing      bool     `yaml:"enable_tracing"`
	EnableCORS         bool     `yaml:"enable_cors"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	// File the YAML layer was read from, empty when none.
	File string `yaml:"-"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ServerAddress:      ":8080",
		Environment:        "development",
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		StoreDriver:        StoreMemory,
		TableName:          "quick-notes",
		GSI1Name:           "GSI1",
		GSI2Name:           "GSI2",
		AWSRegion:          "us-west-2",
		BadgerPath:         "./data/notes",
		CacheDriver:        CacheMemory,
		CacheTTL:           5 * time.Minute,
		EventBusName:       "quick-notes-events",
		LogLevel:           "info",
		BreakerMaxFailures: 5,
		EnableCORS:         true,
		CORSAllowedOrigins: []string{"*"},
	}
}

// LoadConfig builds the configuration from defaults, the YAML file named by
// CONFIG_FILE and environment variables, in increasing priority.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

// ReadFile decodes a YAML file over a copy of c.
func (c *Config) ReadFile(path string) (*Config, error) {
	next := *c
	next.CORSAllowedOrigins = append([]string(nil), c.CORSAllowedOrigins...)
	if err := next.loadFile(path); err != nil {
		return nil, err
	}
	return &next, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.File = path
	return nil
}

func (c *Config) applyEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.ReadTimeout = getEnvDuration("READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = getEnvDuration("WRITE_TIMEOUT", c.WriteTimeout)
	c.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	c.StoreDriver = getEnv("STORE_DRIVER", c.StoreDriver)
	c.TableName = getEnv("TABLE_NAME", c.TableName)
	c.GSI1Name = getEnv("GSI1_NAME", c.GSI1Name)
	c.GSI2Name = getEnv("GSI2_NAME", c.GSI2Name)
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.DynamoDBEndpoint = getEnv("DYNAMODB_ENDPOINT", c.DynamoDBEndpoint)
	c.BadgerPath = getEnv("BADGER_PATH", c.BadgerPath)

	c.CacheDriver = getEnv("CACHE_DRIVER", c.CacheDriver)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.CacheTTL = getEnvDuration("CACHE_TTL", c.CacheTTL)

	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)
	c.EnableEvents = getEnvBool("ENABLE_EVENTS", c.EnableEvents)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.BreakerMaxFailures = getEnvInt("BREAKER_MAX_FAILURES", c.BreakerMaxFailures)

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.CORSAllowedOrigins = splitList(origins)
	}
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StoreDynamoDB:
		if c.TableName == "" {
			return fmt.Errorf("TABLE_NAME is required for the dynamodb store")
		}
	case StoreBadger:
		if c.BadgerPath == "" {
			return fmt.Errorf("BADGER_PATH is required for the badger store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.CacheDriver {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis cache")
		}
	default:
		return fmt.Errorf("unknown CACHE_DRIVER %q", c.CacheDriver)
	}

	if _, err := c.Level(); err != nil {
		return err
	}
	if c.EnableEvents && c.EventBusName == "" {
		return fmt.Errorf("EVENT_BUS_NAME is required when events are enabled")
	}
	if c.BreakerMaxFailures < 1 {
		return fmt.Errorf("BREAKER_MAX_FAILURES must be at least 1")
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zap.InfoLevel, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsLambda reports whether the process runs inside AWS Lambda.
func IsLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
