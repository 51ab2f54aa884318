package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// unsetEnv clears key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset %s: %v", key, err)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	unsetEnv(t, ConfigPathEnv)
	unsetEnv(t, "RESERVATIONS_STORAGE_DRIVER")
	unsetEnv(t, "RESERVATIONS_WEEK_TIMEZONE")
	unsetEnv(t, "RESERVATIONS_POSTGRES_DSN")
	unsetEnv(t, "RESERVATIONS_ENV")

	t.Run("applies defaults from the environment", func(t *testing.T) {
		t.Setenv("RESERVATIONS_AUTH_SECRET", "super-secret")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.Env != "local" || cfg.HTTPServer.Address != "localhost:8080" {
			t.Fatalf("unexpected defaults: %+v", cfg)
		}
		if cfg.Storage.Driver != DriverSQLite || cfg.Storage.SQLiteDSN != "file:reservations.db" {
			t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
		}
		if cfg.Auth.Secret != "super-secret" || cfg.Auth.TokenTTL != 12*time.Hour || cfg.Auth.Required {
			t.Fatalf("unexpected auth config: %+v", cfg.Auth)
		}
		if cfg.WeekLocation() != time.UTC {
			t.Fatalf("expected UTC week location, got %v", cfg.WeekLocation())
		}
		if cfg.RabbitMQ.QueueName != "reservation_events" || cfg.Redis.LockTTL != 10*time.Second {
			t.Fatalf("unexpected optional defaults: %+v %+v", cfg.RabbitMQ, cfg.Redis)
		}
	})

	t.Run("requires an auth secret", func(t *testing.T) {
		unsetEnv(t, "RESERVATIONS_AUTH_SECRET")

		if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "is required") {
			t.Fatalf("expected missing secret error, got %v", err)
		}
	})

	t.Run("reads a yaml file and lets the environment override it", func(t *testing.T) {
		unsetEnv(t, "RESERVATIONS_AUTH_SECRET")
		t.Setenv("RESERVATIONS_HTTP_ADDRESS", ":9090")

		path := writeConfig(t, `
env: prod
week_timezone: Europe/Istanbul
http_server:
  address: ":7000"
  read_timeout: 3s
storage:
  driver: memory
auth:
  secret: from-file
  required: true
  token_ttl: 30m
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.Env != "prod" || cfg.Storage.Driver != DriverMemory {
			t.Fatalf("expected file values, got %+v", cfg)
		}
		if cfg.HTTPServer.Address != ":9090" {
			t.Fatalf("expected environment override, got %q", cfg.HTTPServer.Address)
		}
		if cfg.HTTPServer.ReadTimeout != 3*time.Second || cfg.HTTPServer.WriteTimeout != 10*time.Second {
			t.Fatalf("unexpected timeouts: %+v", cfg.HTTPServer)
		}
		if !cfg.Auth.Required || cfg.Auth.TokenTTL != 30*time.Minute || cfg.Auth.Secret != "from-file" {
			t.Fatalf("unexpected auth: %+v", cfg.Auth)
		}
		if cfg.WeekLocation().String() != "Europe/Istanbul" {
			t.Fatalf("unexpected week location %v", cfg.WeekLocation())
		}
	})

	t.Run("uses the config path variable", func(t *testing.T) {
		t.Setenv(ConfigPathEnv, writeConfig(t, "auth:\n  secret: s\nstorage:\n  driver: memory\n"))

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.Storage.Driver != DriverMemory {
			t.Fatalf("expected file from %s to be read", ConfigPathEnv)
		}
	})

	t.Run("reports missing files", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Fatalf("expected error for missing file")
		}
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			Env:          "local",
			WeekTimezone: "UTC",
			HTTPServer:   HTTPServer{ReadTimeout: time.Second, WriteTimeout: time.Second, IdleTimeout: time.Second, ShutdownTimeout: time.Second},
			Storage:      Storage{Driver: DriverSQLite, SQLiteDSN: "file:x.db"},
			Auth:         Auth{Secret: "s", TokenTTL: time.Hour},
			Redis:        Redis{LockTTL: time.Second},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown env", mutate: func(c *Config) { c.Env = "staging" }, want: "env must be"},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "mysql" }, want: `"mysql"`},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Storage.Driver = DriverPostgres }, want: "postgres_dsn is required"},
		{name: "sqlite without dsn", mutate: func(c *Config) { c.Storage.SQLiteDSN = " " }, want: "sqlite_dsn is required"},
		{name: "bad timezone", mutate: func(c *Config) { c.WeekTimezone = "Mars/Olympus" }, want: "week_timezone"},
		{name: "zero token ttl", mutate: func(c *Config) { c.Auth.TokenTTL = 0 }, want: "auth.token_ttl must be positive"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
