package http

import (
	"github.com/labstack/echo/v4"
)

func (s *Server) registerRoutes() {
	// Health checks
	s.echo.GET("/health", s.handleHealthCheck)
	s.echo.GET("/health/live", s.handleLivenessCheck)
	s.echo.GET("/health/ready", s.handleReadinessCheck)

	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	if s.UploadsPath != "" {
		s.echo.Static("/uploads", s.UploadsPath)
	}

	api := s.echo.Group("/api")

	// Incidents. The static paths are registered before :id so they win.
	incidents := api.Group("/incidents")
	incidents.GET("", s.handleListIncidents)
	incidents.GET("/stats", s.handleIncidentStats)
	incidents.GET("/analytics", s.handleAnalytics)
	incidents.GET("/status/:status", s.handleIncidentsByStatus)
	incidents.GET("/:id", s.handleGetIncident)
	incidents.POST("", s.handleCreateIncident, s.RequireIngestKey())
	incidents.POST("/photos", s.handleUploadPhoto, s.RequireIngestKey())
	incidents.PUT("/:id", s.handleUpdateIncident, s.RequireAuth())
	incidents.DELETE("/:id", s.handleDeleteIncident, s.RequireAuth(), s.RequireAdmin())

	// Fines
	fines := api.Group("/fines")
	fines.GET("", s.handleListFines)
	fines.GET("/:id", s.handleGetFine)
	fines.POST("", s.handleCreateFine, s.RequireAuth(), s.RequireAdmin())
	fines.PUT("/:id", s.handleUpdateFine, s.RequireAuth(), s.RequireAdmin())
	fines.DELETE("/:id", s.handleDeleteFine, s.RequireAuth(), s.RequireAdmin())

	// Auth
	auth := api.Group("/auth")
	if s.loginLimiter != nil {
		auth.POST("/login", s.handleLogin, s.loginLimiter.Middleware())
	} else {
		auth.POST("/login", s.handleLogin)
	}
	auth.POST("/logout", s.handleLogout, s.OptionalAuth())
	auth.GET("/check", s.handleCheckAuth, s.OptionalAuth())
	auth.POST("/register", s.handleRegister, s.OptionalAuth())

	// Admin
	admin := api.Group("/admin", s.RequireAuth(), s.RequireAdmin())
	admin.GET("/users-history", s.handleUserHistory)
	admin.GET("/users/:id/activity", s.handleUserActivity)
	admin.POST("/actions", s.handleRecordAction)
	admin.GET("/users", s.handleListUsers)
	admin.GET("/users/:id", s.handleGetUser)
	admin.PUT("/users/:id", s.handleUpdateUser)
	admin.DELETE("/users/:id", s.handleDeleteUser)
	admin.POST("/districts/backfill", s.handleDistrictBackfill)
}
