package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/training-reservations/internal/application"
	"github.com/example/training-reservations/internal/config"
	httptransport "github.com/example/training-reservations/internal/http"
	"github.com/example/training-reservations/internal/lock"
	"github.com/example/training-reservations/internal/logging"
	"github.com/example/training-reservations/internal/notify"
	"github.com/example/training-reservations/internal/persistence"
	"github.com/example/training-reservations/internal/persistence/memory"
	"github.com/example/training-reservations/internal/persistence/postgres"
	"github.com/example/training-reservations/internal/persistence/sqlite"
	"github.com/example/training-reservations/internal/seed"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file (defaults to $"+config.ConfigPathEnv+")")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "reservations:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, logOutput io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.NewWithWriter(cfg.Env, logOutput)
	logger.Info("starting reservation service", "env", cfg.Env, "storage", cfg.Storage.Driver)

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise service", "error", err)
		return err
	}
	defer app.Close()

	server := &http.Server{
		Addr:              cfg.HTTPServer.Address,
		Handler:           app.Handler,
		ReadHeaderTimeout: cfg.HTTPServer.ReadTimeout,
		ReadTimeout:       cfg.HTTPServer.ReadTimeout,
		WriteTimeout:      cfg.HTTPServer.WriteTimeout,
		IdleTimeout:       cfg.HTTPServer.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("reservation API listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("server encountered error", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("failed to shutdown server", "error", err)
		return err
	}
	logger.Info("reservation API stopped")
	return nil
}

// app holds the wired service graph.
type app struct {
	Handler      http.Handler
	Storage      persistence.Storage
	Reservations *application.ReservationService

	closers []func() error
	logger  *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Storage, err = openStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Storage.Close)

	if err = a.Storage.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	if cfg.SeedFile != "" {
		file, lerr := seed.Load(cfg.SeedFile)
		if lerr != nil {
			return nil, lerr
		}
		if _, err = seed.NewSeeder(a.Storage, uuid.NewString, time.Now, logger).Apply(ctx, file); err != nil {
			return nil, fmt.Errorf("seed users: %w", err)
		}
	}

	locker, err := newLocker(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, err
	}
	if closer, ok := locker.(interface{ Close() error }); ok {
		a.closers = append(a.closers, closer.Close)
	}

	var events application.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		publisher, perr := notify.NewRabbitMQ(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
		if perr != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", perr)
		}
		a.closers = append(a.closers, func() error { publisher.Close(); return nil })
		events = publisher
		logger.Info("publishing reservation events", "queue", cfg.RabbitMQ.QueueName)
	}

	a.Reservations = application.NewReservationServiceWithLogger(
		newReservationRepositoryAdapter(a.Storage),
		uuid.NewString,
		time.Now,
		logger,
	).WithLocker(locker).WithEventPublisher(events).WithWeekLocation(cfg.WeekLocation())

	userService := application.NewUserServiceWithLogger(newUserRepositoryAdapter(a.Storage), logger)
	tokens := application.NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL, time.Now)
	authService := application.NewAuthServiceWithLogger(newCredentialStoreAdapter(a.Storage), nil, tokens, logger)

	a.Handler = httptransport.NewRouter(httptransport.RouterConfig{
		Reservations: httptransport.NewReservationHandler(a.Reservations, logger),
		Users:        httptransport.NewUserHandler(userService, logger),
		Auth:         httptransport.NewAuthHandler(authService, logger),
		Health:       httptransport.NewHealthHandler(a.Storage, logger),
		Tokens:       authService,
		AuthRequired: cfg.Auth.Required,
		Logger:       logger,
	})
	return a, nil
}

// Close releases resources in reverse acquisition order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to release resource", "error", err)
		}
	}
	a.closers = nil
}

func openStorage(ctx context.Context, cfg config.Storage) (persistence.Storage, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.Open(), nil
	case config.DriverSQLite:
		storage, err := sqlite.Open(ctx, cfg.SQLiteDSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return storage, nil
	case config.DriverPostgres:
		storage, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return storage, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func newLocker(ctx context.Context, cfg config.Redis, logger *slog.Logger) (application.AdmissionLocker, error) {
	if cfg.Address == "" {
		return application.NewLocalLocker(), nil
	}
	locker, err := lock.New(ctx, cfg.Address, cfg.Password, cfg.DB, cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("using redis admission lock", "address", cfg.Address)
	return locker.OnLost(func(key string, err error) {
		logger.Warn("admission lock expired before release", "key", key, "error", err)
	}), nil
}
