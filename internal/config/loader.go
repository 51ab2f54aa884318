package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// ConfigPathEnv names the variable consulted when no -config flag is given.
const ConfigPathEnv = "RESERVATIONS_CONFIG"

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config captures file and environment driven configuration for the reservation service.
type Config struct {
	Env          string `yaml:"env" env:"RESERVATIONS_ENV" env-default:"local"`
	WeekTimezone string `yaml:"week_timezone" env:"RESERVATIONS_WEEK_TIMEZONE" env-default:"UTC"`
	SeedFile     string `yaml:"seed_file" env:"RESERVATIONS_SEED_FILE"`
	HTTPServer   `yaml:"http_server"`
	Storage      `yaml:"storage"`
	Auth         `yaml:"auth"`
	Redis        `yaml:"redis"`
	RabbitMQ     `yaml:"rabbitmq"`

	weekLocation *time.Location
}

type HTTPServer struct {
	Address         string        `yaml:"address" env:"RESERVATIONS_HTTP_ADDRESS" env-default:"localhost:8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"RESERVATIONS_HTTP_READ_TIMEOUT" env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"RESERVATIONS_HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"RESERVATIONS_HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"RESERVATIONS_HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type Storage struct {
	Driver      string `yaml:"driver" env:"RESERVATIONS_STORAGE_DRIVER" env-default:"sqlite"`
	SQLiteDSN   string `yaml:"sqlite_dsn" env:"RESERVATIONS_SQLITE_DSN" env-default:"file:reservations.db"`
	PostgresDSN string `yaml:"postgres_dsn" env:"RESERVATIONS_POSTGRES_DSN"`
}

type Auth struct {
	Secret   string        `yaml:"secret" env:"RESERVATIONS_AUTH_SECRET" env-required:"true"`
	TokenTTL time.Duration `yaml:"token_ttl" env:"RESERVATIONS_AUTH_TOKEN_TTL" env-default:"12h"`
	Required bool          `yaml:"required" env:"RESERVATIONS_AUTH_REQUIRED" env-default:"false"`
}

// Redis is optional; an empty address keeps the admission lock in process.
type Redis struct {
	Address  string        `yaml:"address" env:"RESERVATIONS_REDIS_ADDRESS"`
	Password string        `yaml:"password" env:"RESERVATIONS_REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"RESERVATIONS_REDIS_DB" env-default:"0"`
	LockTTL  time.Duration `yaml:"lock_ttl" env:"RESERVATIONS_REDIS_LOCK_TTL" env-default:"10s"`
}

// RabbitMQ is optional; an empty URL disables event publishing.
type RabbitMQ struct {
	URL       string `yaml:"url" env:"RESERVATIONS_RABBITMQ_URL"`
	QueueName string `yaml:"queue_name" env:"RESERVATIONS_RABBITMQ_QUEUE" env-default:"reservation_events"`
}

// Load reads an optional .env file, then the YAML file at path (when not
// empty), then the process environment, and validates the result.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = strings.TrimSpace(os.Getenv(ConfigPathEnv))
	}

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field rules cleanenv cannot express.
func (c *Config) Validate() error {
	invalid := make([]string, 0, 4)

	switch c.Env {
	case "local", "dev", "prod":
	default:
		invalid = append(invalid, "env must be local, dev or prod")
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.Storage.SQLiteDSN) == "" {
			invalid = append(invalid, "storage.sqlite_dsn is required for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Storage.PostgresDSN) == "" {
			invalid = append(invalid, "storage.postgres_dsn is required for the postgres driver")
		}
	default:
		invalid = append(invalid, fmt.Sprintf("storage.driver %q is not one of memory, sqlite, postgres", c.Storage.Driver))
	}

	loc, err := time.LoadLocation(c.WeekTimezone)
	if err != nil {
		invalid = append(invalid, fmt.Sprintf("week_timezone %q: %v", c.WeekTimezone, err))
	} else {
		c.weekLocation = loc
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"http_server.read_timeout", c.HTTPServer.ReadTimeout},
		{"http_server.write_timeout", c.HTTPServer.WriteTimeout},
		{"http_server.idle_timeout", c.HTTPServer.IdleTimeout},
		{"http_server.shutdown_timeout", c.HTTPServer.ShutdownTimeout},
		{"auth.token_ttl", c.Auth.TokenTTL},
		{"redis.lock_ttl", c.Redis.LockTTL},
	}
	for _, d := range durations {
		if d.value <= 0 {
			invalid = append(invalid, d.name+" must be positive")
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(invalid, "; "))
	}
	return nil
}

// WeekLocation returns the zone whose Monday midnight starts the booking week.
func (c Config) WeekLocation() *time.Location {
	if c.weekLocation != nil {
		return c.weekLocation
	}
	return time.UTC
}
