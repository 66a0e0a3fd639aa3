package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/parkwatch"
	"github.com/dukerupert/parkwatch/internal/district"
	"github.com/dukerupert/parkwatch/internal/email"
	"github.com/dukerupert/parkwatch/internal/middleware"
	"github.com/dukerupert/parkwatch/internal/queue"
	"github.com/dukerupert/parkwatch/internal/session"
	"github.com/dukerupert/parkwatch/internal/storage"
	"github.com/dukerupert/parkwatch/mapbox"
	"github.com/dukerupert/parkwatch/postgres"
)

// Services holds all application services.
type Services struct {
	DB *postgres.DB

	UserService      parkwatch.UserService
	SessionService   *session.CachedSessionService
	IncidentService  parkwatch.IncidentService
	FineService      parkwatch.FineService
	AuditService     parkwatch.AuditService
	AnalyticsService parkwatch.AnalyticsService

	FileStorage  parkwatch.FileStorage
	EmailService parkwatch.EmailService
	Queue        parkwatch.Queue
	Resolver     *district.Resolver
	WorkerPool   *queue.WorkerPool

	Metrics      *middleware.Metrics
	LoginLimiter *middleware.RateLimiter
}

// initServices initializes all application services.
func initServices(ctx context.Context, db *postgres.DB, cfg *Config, logger *slog.Logger) (*Services, error) {
	metrics := middleware.NewMetrics()

	// Initialize file storage
	fileStorage, err := initFileStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("file storage initialized", slog.String("provider", cfg.StorageProvider))

	// Initialize email service
	emailService := email.NewEmailService(logger, parkwatch.EmailConfig{
		Provider:             cfg.EmailProvider,
		FromAddress:          cfg.EmailFromAddress,
		DashboardURL:         cfg.EmailDashboardURL,
		PostmarkServerToken:  cfg.EmailPostmarkToken,
		PostmarkAccountToken: cfg.EmailPostmarkAccount,
	})
	logger.Info("email service initialized", slog.String("provider", cfg.EmailProvider))

	// Initialize district resolution
	resolver := initResolver(cfg, logger, metrics)

	// Initialize queue and workers
	q := postgres.NewQueue(db.SQL(), logger)
	pool := queue.NewWorkerPool(q, logger, parkwatch.QueueConfig{
		WorkerCount:      cfg.WorkerCount,
		PollInterval:     cfg.WorkerPollInterval,
		JobTimeout:       cfg.WorkerJobTimeout,
		ShutdownTimeout:  10 * time.Second,
		CleanupInterval:  time.Hour,
		CleanupRetention: 7 * 24 * time.Hour,
	})
	pool.OnJobDone = metrics.RecordJob
	queue.NewDistrictHandlers(db.IncidentService, resolver, q, logger).Register(pool)
	logger.Info("queue initialized", slog.Int("workers", cfg.WorkerCount))

	limiter := middleware.NewRateLimiter(logger, middleware.RateLimitConfig{
		Rate:            cfg.LoginRateLimit / 60,
		Burst:           cfg.LoginRateBurst,
		CleanupInterval: 5 * time.Minute,
		IdleTimeout:     10 * time.Minute,
	})

	return &Services{
		DB:               db,
		UserService:      db.UserService,
		SessionService:   session.NewCachedSessionService(db.SessionService, cfg.SessionCacheTTL),
		IncidentService:  db.IncidentService,
		FineService:      db.FineService,
		AuditService:     db.AuditService,
		AnalyticsService: db.AnalyticsService,
		FileStorage:      fileStorage,
		EmailService:     emailService,
		Queue:            q,
		Resolver:         resolver,
		WorkerPool:       pool,
		Metrics:          metrics,
		LoginLimiter:     limiter,
	}, nil
}

// initFileStorage creates the appropriate file storage implementation.
func initFileStorage(ctx context.Context, cfg *Config, logger *slog.Logger) (parkwatch.FileStorage, error) {
	logger.Debug("storage service configuration",
		slog.String("provider", cfg.StorageProvider),
		slog.String("local_path", cfg.StorageLocalPath),
		slog.String("s3_bucket", cfg.StorageS3Bucket),
		slog.String("s3_region", cfg.StorageS3Region))

	return storage.NewFileStorage(ctx, logger, parkwatch.StorageConfig{
		Provider:  cfg.StorageProvider,
		LocalPath: cfg.StorageLocalPath,
		LocalURL:  cfg.StorageLocalURL,
		S3Bucket:  cfg.StorageS3Bucket,
		S3Region:  cfg.StorageS3Region,
		S3BaseURL: cfg.StorageS3BaseURL,
	})
}

// initResolver wires the Mapbox geocoder and the district cache. Without a
// token the resolver runs on address matching alone.
func initResolver(cfg *Config, logger *slog.Logger, metrics *middleware.Metrics) *district.Resolver {
	var geocoder parkwatch.Geocoder
	if cfg.MapboxToken != "" {
		geocoder = mapbox.NewClient(cfg.MapboxBaseURL, cfg.MapboxToken)
	}

	cache := district.NewCache(district.CacheConfig{
		TTL:      cfg.DistrictCacheTTL,
		Capacity: cfg.DistrictCacheCapacity,
	})

	resolver := district.NewResolver(geocoder, cache, logger)
	resolver.OnResolve = metrics.RecordDistrictLookup
	logger.Info("district resolver initialized",
		slog.Bool("geocoder", geocoder != nil),
		slog.Duration("cache_ttl", cfg.DistrictCacheTTL),
		slog.Int("cache_capacity", cfg.DistrictCacheCapacity))
	return resolver
}

// bootstrapAdmin creates the configured admin when no user has its email.
func bootstrapAdmin(ctx context.Context, users parkwatch.UserService, cfg *Config, logger *slog.Logger) error {
	if cfg.BootstrapAdminEmail == "" {
		return nil
	}

	_, err := users.FindUserByEmail(ctx, cfg.BootstrapAdminEmail)
	if err == nil {
		return nil
	}
	if !parkwatch.IsErrorCode(err, parkwatch.ENOTFOUND) {
		return err
	}

	admin := &parkwatch.User{
		Name:    cfg.BootstrapAdminName,
		Email:   cfg.BootstrapAdminEmail,
		IsAdmin: true,
	}
	if err := users.CreateUser(ctx, admin, cfg.BootstrapAdminPassword); err != nil {
		return err
	}
	logger.Info("bootstrap admin created", slog.Int64("user_id", admin.ID), slog.String("email", admin.Email))
	return nil
}

// sweepSessions deletes expired sessions until ctx ends.
func sweepSessions(ctx context.Context, sessions parkwatch.SessionService, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpiredSessions(ctx)
			if err != nil {
				logger.Error("failed to delete expired sessions", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				logger.Info("deleted expired sessions", slog.Int("count", n))
			}
		}
	}
}
