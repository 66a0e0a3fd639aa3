package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/parkwatch"
	parkwatchhttp "github.com/dukerupert/parkwatch/http"
	"github.com/dukerupert/parkwatch/internal/migrations"
	"github.com/dukerupert/parkwatch/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
)

func main() {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	ctx := context.Background()
	if err := run(ctx, os.Stdout, os.Stderr, os.Args, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point for the application, designed for testability.
// It accepts all external dependencies (IO, args, env) as parameters.
func run(
	ctx context.Context,
	stdout, stderr io.Writer,
	args []string,
	getenv func(string) string,
) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := LoadConfig(getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Configure logger
	logger := newLogger(stderr, cfg)
	slog.SetDefault(logger)
	logger.Debug("application configuration",
		slog.String("environment", cfg.Environment),
		slog.String("addr", cfg.Addr()))
	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	// Create database connection pool
	pool, err := newDatabasePool(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating database pool: %w", err)
	}
	defer pool.Close()

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	// Run migrations
	if err := runMigrations(sqlDB, logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	db := postgres.NewDB(sqlDB, logger)

	// Initialize services
	services, err := initServices(ctx, db, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing services: %w", err)
	}
	defer services.LoginLimiter.Shutdown()

	if err := bootstrapAdmin(ctx, services.UserService, cfg, logger); err != nil {
		return fmt.Errorf("bootstrapping admin: %w", err)
	}

	// Start background work
	if err := services.WorkerPool.Start(ctx, []string{parkwatch.QueueDistricts}); err != nil {
		return fmt.Errorf("starting worker pool: %w", err)
	}
	go sweepSessions(ctx, services.SessionService, time.Hour, logger)

	uploadsPath := ""
	if cfg.StorageProvider == "" || cfg.StorageProvider == "local" {
		uploadsPath = cfg.StorageLocalPath
	}

	// Create HTTP server
	server := parkwatchhttp.NewServer(parkwatchhttp.Config{
		Addr:             cfg.Addr(),
		Logger:           logger,
		SessionDuration:  cfg.SessionDuration,
		SessionSecure:    cfg.SessionSecure,
		IngestAPIKey:     cfg.IngestAPIKey,
		CORSOrigins:      cfg.CORSOrigins,
		UploadsPath:      uploadsPath,
		ReadTimeout:      cfg.ReadTimeout,
		WriteTimeout:     cfg.WriteTimeout,
		UserService:      services.UserService,
		SessionService:   services.SessionService,
		IncidentService:  services.IncidentService,
		FineService:      services.FineService,
		AuditService:     services.AuditService,
		AnalyticsService: services.AnalyticsService,
		FileStorage:      services.FileStorage,
		EmailService:     services.EmailService,
		Queue:            services.Queue,
		DB:               db,
		Metrics:          services.Metrics,
		LoginLimiter:     services.LoginLimiter,
	})

	if err := server.Open(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("shutdown signal received")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Close(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.String("error", err.Error()))
	}
	if err := services.WorkerPool.Stop(); err != nil {
		logger.Error("worker pool shutdown", slog.String("error", err.Error()))
	}

	logger.Info("server exited gracefully")
	return nil
}

// newLogger creates a configured slog.Logger based on environment.
func newLogger(w io.Writer, cfg *Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.String("time", a.Value.Time().Format(time.RFC3339Nano))
				}
				return a
			},
		})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// newDatabasePool creates a configured pgxpool connection pool.
func newDatabasePool(ctx context.Context, cfg *Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger.Debug("connecting to database", slog.String("host", cfg.DBHost), slog.String("name", cfg.DBName))

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MinConns = int32(cfg.DBMinConns)
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("database connection pool established")
	return pool, nil
}

// runMigrations runs database migrations using goose.
func runMigrations(db *sql.DB, logger *slog.Logger) error {
	logger.Info("running database migrations...")

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("database migrations completed")
	return nil
}
