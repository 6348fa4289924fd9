package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "github.com/joho/godotenv/autoload"
)

// Header constants.
const (
	HEADER_KEY_X_USER_ID    = "X-User-Id"
	HEADER_KEY_X_CLIENT_ID  = "X-Client-Id"
	HEADER_KEY_X_PUBLIC_KEY = "X-Public-Key"
)

const (
	ENV_KEY_APP_ENV   = "APP_ENV"
	ENV_KEY_PORT      = "PORT"
	ENV_KEY_LOG_LEVEL = "LOG_LEVEL"

	ENV_KEY_DB_DRIVER               = "DB_DRIVER"
	ENV_KEY_DB_HOST                 = "DB_HOST"
	ENV_KEY_DB_PORT                 = "DB_PORT"
	ENV_KEY_DB_USER                 = "DB_USER"
	ENV_KEY_DB_PASSWORD             = "DB_PASSWORD"
	ENV_KEY_DB_DATABASE             = "DB_DATABASE"
	ENV_KEY_DB_PATH                 = "DB_PATH"
	ENV_KEY_DB_MAX_OPEN_CONNECTIONS = "DB_MAX_OPEN_CONNECTIONS"

	ENV_KEY_REDIS_HOST     = "REDIS_HOST"
	ENV_KEY_REDIS_PORT     = "REDIS_PORT"
	ENV_KEY_REDIS_PASSWORD = "REDIS_PASSWORD"

	ENV_KEY_JWT_ISSUER     = "JWT_ISSUER"
	ENV_KEY_JWT_AUDIENCE   = "JWT_AUDIENCE"
	ENV_KEY_JWT_PUBLIC_KEY = "JWT_PUBLIC_KEY"

	ENV_KEY_EVENTING_BASE_URL                 = "EVENTING_BASE_URL"
	ENV_KEY_EVENTING_FUNCTION_KEY_HEADER_NAME = "EVENTING_FUNCTION_KEY_HEADER_NAME"
	ENV_KEY_EVENTING_FUNCTION_KEY             = "EVENTING_FUNCTION_KEY"
	ENV_KEY_EVENTING_MODE                     = "EVENTING_MODE"
	ENV_KEY_EVENTING_MAX_RETRIES              = "EVENTING_MAX_RETRIES"
	ENV_KEY_EVENTING_BUFFER_SIZE              = "EVENTING_BUFFER_SIZE"
	ENV_KEY_EVENTING_RATE_LIMIT               = "EVENTING_RATE_LIMIT"

	ENV_KEY_WORKER_CONCURRENCY = "WORKER_CONCURRENCY"

	ENV_KEY_OTEL_EXPORTER_OTLP_ENDPOINT = "OTEL_EXPORTER_OTLP_ENDPOINT"
	ENV_KEY_OTEL_SERVICE_NAME           = "OTEL_SERVICE_NAME"

	ENV_KEY_FEATURE_PREFIX = "FEATURE_"
)

const (
	ApiName = "aiof-asset"

	EventingModeInProcess = "inprocess"
	EventingModeQueue     = "queue"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type ContextKey uint

const (
	_ ContextKey = iota
	CTX_KEY_TENANT
)

type Config struct {
	AppEnv   string
	Port     int
	LogLevel string

	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Eventing EventingConfig
	Features Features

	WorkerConcurrency int

	OtelEndpoint    string
	OtelServiceName string
}

type DBConfig struct {
	Driver             string
	Host               string
	Port               string
	User               string
	Password           string
	Database           string
	Path               string
	MaxOpenConnections int
}

// DSN returns the postgres connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.User, c.Password, c.Host, c.Port, c.Database)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// Addr returns host:port, or an empty string when redis is not configured.
func (c RedisConfig) Addr() string {
	if c.Host == "" {
		return ""
	}
	port := c.Port
	if port == "" {
		port = "6379"
	}
	return c.Host + ":" + port
}

type JWTConfig struct {
	Issuer    string
	Audience  string
	PublicKey string
}

type EventingConfig struct {
	BaseURL               string
	FunctionKeyHeaderName string
	FunctionKey           string
	Mode                  string
	MaxRetries            int
	BufferSize            int
	RateLimit             float64
}

func (c Config) IsLocal() bool {
	return c.AppEnv == "local"
}

// Load reads the process environment once. The returned value is handed to
// constructors; nothing in the module reads the environment after startup.
func Load() (Config, error) {
	cfg := Config{
		AppEnv:   getenv(ENV_KEY_APP_ENV, "local"),
		LogLevel: getenv(ENV_KEY_LOG_LEVEL, "INFO"),
		DB: DBConfig{
			Driver:   getenv(ENV_KEY_DB_DRIVER, DriverPostgres),
			Host:     os.Getenv(ENV_KEY_DB_HOST),
			Port:     getenv(ENV_KEY_DB_PORT, "5432"),
			User:     os.Getenv(ENV_KEY_DB_USER),
			Password: os.Getenv(ENV_KEY_DB_PASSWORD),
			Database: os.Getenv(ENV_KEY_DB_DATABASE),
			Path:     getenv(ENV_KEY_DB_PATH, "./data/aiof-asset.db"),
		},
		Redis: RedisConfig{
			Host:     os.Getenv(ENV_KEY_REDIS_HOST),
			Port:     os.Getenv(ENV_KEY_REDIS_PORT),
			Password: os.Getenv(ENV_KEY_REDIS_PASSWORD),
		},
		JWT: JWTConfig{
			Issuer:    os.Getenv(ENV_KEY_JWT_ISSUER),
			Audience:  os.Getenv(ENV_KEY_JWT_AUDIENCE),
			PublicKey: os.Getenv(ENV_KEY_JWT_PUBLIC_KEY),
		},
		Eventing: EventingConfig{
			BaseURL:               os.Getenv(ENV_KEY_EVENTING_BASE_URL),
			FunctionKeyHeaderName: getenv(ENV_KEY_EVENTING_FUNCTION_KEY_HEADER_NAME, "x-functions-key"),
			FunctionKey:           os.Getenv(ENV_KEY_EVENTING_FUNCTION_KEY),
			Mode:                  getenv(ENV_KEY_EVENTING_MODE, EventingModeInProcess),
		},
		Features:        FeaturesFromEnv(os.Environ()),
		OtelEndpoint:    os.Getenv(ENV_KEY_OTEL_EXPORTER_OTLP_ENDPOINT),
		OtelServiceName: getenv(ENV_KEY_OTEL_SERVICE_NAME, ApiName),
	}

	var err error
	if cfg.Port, err = getint(ENV_KEY_PORT, 8080); err != nil {
		return Config{}, err
	}
	if cfg.DB.MaxOpenConnections, err = getint(ENV_KEY_DB_MAX_OPEN_CONNECTIONS, 0); err != nil {
		return Config{}, err
	}
	if cfg.Eventing.MaxRetries, err = getint(ENV_KEY_EVENTING_MAX_RETRIES, 3); err != nil {
		return Config{}, err
	}
	if cfg.Eventing.BufferSize, err = getint(ENV_KEY_EVENTING_BUFFER_SIZE, 256); err != nil {
		return Config{}, err
	}
	if cfg.WorkerConcurrency, err = getint(ENV_KEY_WORKER_CONCURRENCY, 10); err != nil {
		return Config{}, err
	}
	if v := os.Getenv(ENV_KEY_EVENTING_RATE_LIMIT); v != "" {
		if cfg.Eventing.RateLimit, err = strconv.ParseFloat(v, 64); err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", ENV_KEY_EVENTING_RATE_LIMIT, err)
		}
	}

	switch cfg.Eventing.Mode {
	case EventingModeInProcess, EventingModeQueue:
	default:
		return Config{}, fmt.Errorf("invalid %s: %q", ENV_KEY_EVENTING_MODE, cfg.Eventing.Mode)
	}
	switch cfg.DB.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return Config{}, fmt.Errorf("invalid %s: %q", ENV_KEY_DB_DRIVER, cfg.DB.Driver)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// Feature flag names.
const (
	FeatureEventing = "Eventing"
)

// Features holds the enabled state of named feature flags, keyed by
// upper-cased flag name.
type Features map[string]bool

// FeaturesFromEnv collects FEATURE_<NAME>=true|false pairs from environ.
func FeaturesFromEnv(environ []string) Features {
	f := Features{}
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, ENV_KEY_FEATURE_PREFIX) {
			continue
		}
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			continue
		}
		f[strings.TrimPrefix(k, ENV_KEY_FEATURE_PREFIX)] = enabled
	}
	return f
}

func (f Features) IsEnabled(_ context.Context, flag string) bool {
	return f[strings.ToUpper(flag)]
}
