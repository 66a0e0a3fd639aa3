// Package http exposes the parkwatch services as a JSON API over Echo.
package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dukerupert/parkwatch"
	"github.com/dukerupert/parkwatch/internal/middleware"
	"github.com/dukerupert/parkwatch/internal/validation"
	"github.com/labstack/echo/v4"
)

// Pinger reports database reachability for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP server with its dependencies.
type Server struct {
	echo   *echo.Echo
	ln     net.Listener
	server *http.Server
	logger *slog.Logger

	Addr string

	SessionDuration time.Duration
	SessionSecure   bool

	// IngestAPIKey, when set, must accompany camera ingestion requests in
	// the X-API-Key header.
	IngestAPIKey string

	CORSOrigins []string

	// UploadsPath, when set, is served under /uploads for local photo
	// storage.
	UploadsPath string

	userService      parkwatch.UserService
	sessionService   parkwatch.SessionService
	incidentService  parkwatch.IncidentService
	fineService      parkwatch.FineService
	auditService     parkwatch.AuditService
	analyticsService parkwatch.AnalyticsService

	fileStorage  parkwatch.FileStorage
	emailService parkwatch.EmailService
	queue        parkwatch.Queue
	db           Pinger

	metrics      *middleware.Metrics
	loginLimiter *middleware.RateLimiter

	// Now is the clock used for photo keys.
	Now func() time.Time
}

// Config holds the configuration for creating a new Server.
type Config struct {
	Addr   string
	Logger *slog.Logger

	SessionDuration time.Duration
	SessionSecure   bool
	IngestAPIKey    string
	CORSOrigins     []string
	UploadsPath     string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	UserService      parkwatch.UserService
	SessionService   parkwatch.SessionService
	IncidentService  parkwatch.IncidentService
	FineService      parkwatch.FineService
	AuditService     parkwatch.AuditService
	AnalyticsService parkwatch.AnalyticsService

	FileStorage  parkwatch.FileStorage
	EmailService parkwatch.EmailService
	Queue        parkwatch.Queue
	DB           Pinger

	// Metrics and LoginLimiter are optional.
	Metrics      *middleware.Metrics
	LoginLimiter *middleware.RateLimiter
}

func NewServer(cfg Config) *Server {
	s := &Server{
		Addr:             cfg.Addr,
		logger:           cfg.Logger,
		SessionDuration:  cfg.SessionDuration,
		SessionSecure:    cfg.SessionSecure,
		IngestAPIKey:     cfg.IngestAPIKey,
		CORSOrigins:      cfg.CORSOrigins,
		UploadsPath:      cfg.UploadsPath,
		userService:      cfg.UserService,
		sessionService:   cfg.SessionService,
		incidentService:  cfg.IncidentService,
		fineService:      cfg.FineService,
		auditService:     cfg.AuditService,
		analyticsService: cfg.AnalyticsService,
		fileStorage:      cfg.FileStorage,
		emailService:     cfg.EmailService,
		queue:            cfg.Queue,
		db:               cfg.DB,
		metrics:          cfg.Metrics,
		loginLimiter:     cfg.LoginLimiter,
		Now:              time.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.SessionDuration == 0 {
		s.SessionDuration = parkwatch.DefaultSessionDuration
	}
	if len(s.CORSOrigins) == 0 {
		s.CORSOrigins = []string{"*"}
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Validator = validation.NewValidator()

	s.server = &http.Server{
		Handler:      s.echo,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	s.registerMiddleware()
	s.registerRoutes()

	return s
}

// ServeHTTP lets tests drive the server without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Open binds Addr and serves in the background.
func (s *Server) Open() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(s.ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	s.logger.Info("server started", slog.String("addr", s.ln.Addr().String()))
	return nil
}

// Close stops accepting connections and waits for in-flight requests up to
// the deadline of ctx.
func (s *Server) Close(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) URL() string {
	if s.ln == nil {
		return ""
	}
	return "http://" + s.ln.Addr().String()
}
