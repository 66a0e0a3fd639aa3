package main

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Host         string
	Port         int
	Environment  string
	LogLevel     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string

	// Database settings
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBMaxConns int
	DBMinConns int

	// Session settings
	SessionDuration time.Duration
	SessionCacheTTL time.Duration
	SessionSecure   bool

	// Geocoding settings
	MapboxToken           string
	MapboxBaseURL         string
	DistrictCacheTTL      time.Duration
	DistrictCacheCapacity int

	// Storage settings
	StorageProvider  string
	StorageLocalPath string
	StorageLocalURL  string
	StorageS3Bucket  string
	StorageS3Region  string
	StorageS3BaseURL string

	// Email settings
	EmailProvider        string
	EmailPostmarkToken   string
	EmailPostmarkAccount string
	EmailFromAddress     string
	EmailDashboardURL    string

	// Queue settings
	WorkerCount        int
	WorkerPollInterval time.Duration
	WorkerJobTimeout   time.Duration

	// Login rate limit, in attempts per minute
	LoginRateLimit float64
	LoginRateBurst int

	IngestAPIKey string

	// Bootstrap admin, created at startup when missing
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
	BootstrapAdminName     string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		// Server settings
		Host:         envString(getenv, "SERVER_HOST", "localhost"),
		Port:         envInt(getenv, "SERVER_PORT", 5000),
		Environment:  envString(getenv, "ENVIRONMENT", "dev"),
		LogLevel:     envString(getenv, "LOG_LEVEL", "info"),
		ReadTimeout:  envDuration(getenv, "SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout: envDuration(getenv, "SERVER_WRITE_TIMEOUT", 15*time.Second),
		CORSOrigins:  envList(getenv, "CORS_ORIGINS", []string{"*"}),

		// Database settings
		DBHost:     envString(getenv, "DB_HOST", "localhost"),
		DBPort:     envString(getenv, "DB_PORT", "5432"),
		DBUser:     getenv("DB_USER"),
		DBPassword: getenv("DB_PASSWORD"),
		DBName:     getenv("DB_NAME"),
		DBSSLMode:  envString(getenv, "DB_SSLMODE", "disable"),
		DBMaxConns: envInt(getenv, "DB_MAX_CONNS", 25),
		DBMinConns: envInt(getenv, "DB_MIN_CONNS", 2),

		// Session settings
		SessionDuration: envDuration(getenv, "SESSION_DURATION", 24*time.Hour),
		SessionCacheTTL: envDuration(getenv, "SESSION_CACHE_TTL", time.Minute),

		// Geocoding settings
		MapboxToken:           getenv("MAPBOX_ACCESS_TOKEN"),
		MapboxBaseURL:         envString(getenv, "MAPBOX_BASE_URL", "https://api.mapbox.com"),
		DistrictCacheTTL:      envDuration(getenv, "DISTRICT_CACHE_TTL", 24*time.Hour),
		DistrictCacheCapacity: envInt(getenv, "DISTRICT_CACHE_CAPACITY", 10000),

		// Storage settings
		StorageProvider:  envString(getenv, "STORAGE_PROVIDER", "local"),
		StorageLocalPath: envString(getenv, "STORAGE_LOCAL_PATH", "./uploads"),
		StorageLocalURL:  envString(getenv, "STORAGE_LOCAL_URL", "http://localhost:5000/uploads"),
		StorageS3Bucket:  getenv("STORAGE_S3_BUCKET"),
		StorageS3Region:  envString(getenv, "STORAGE_S3_REGION", "eu-central-1"),
		StorageS3BaseURL: getenv("STORAGE_S3_BASE_URL"),

		// Email settings
		EmailProvider:        envString(getenv, "EMAIL_PROVIDER", "log"),
		EmailPostmarkToken:   getenv("POSTMARK_SERVER_TOKEN"),
		EmailPostmarkAccount: getenv("POSTMARK_ACCOUNT_TOKEN"),
		EmailFromAddress:     envString(getenv, "EMAIL_FROM", "noreply@parkwatch.local"),
		EmailDashboardURL:    envString(getenv, "EMAIL_DASHBOARD_URL", "http://localhost:3000"),

		// Queue settings
		WorkerCount:        envInt(getenv, "WORKER_COUNT", 2),
		WorkerPollInterval: envDuration(getenv, "WORKER_POLL_INTERVAL", time.Second),
		WorkerJobTimeout:   envDuration(getenv, "WORKER_JOB_TIMEOUT", 30*time.Second),

		LoginRateLimit: envFloat(getenv, "LOGIN_RATE_LIMIT", 5),
		LoginRateBurst: envInt(getenv, "LOGIN_RATE_BURST", 10),

		IngestAPIKey: getenv("INGEST_API_KEY"),

		BootstrapAdminEmail:    getenv("BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapAdminPassword: getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		BootstrapAdminName:     envString(getenv, "BOOTSTRAP_ADMIN_NAME", "Administrator"),
	}

	// Session cookies are Secure in production unless overridden.
	cfg.SessionSecure = envBool(getenv, "SESSION_SECURE", cfg.IsProduction())

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "prod" || c.Environment == "production"
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseURL returns the PostgreSQL connection string.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

// validate rejects configurations the daemon cannot start with.
func (c *Config) validate() error {
	var errs []error
	if c.DBUser == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DBName == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT %d out of range", c.Port))
	}
	if c.StorageProvider == "s3" && c.StorageS3Bucket == "" {
		errs = append(errs, errors.New("STORAGE_S3_BUCKET is required for the s3 storage provider"))
	}
	if c.EmailProvider == "postmark" && c.EmailPostmarkToken == "" {
		errs = append(errs, errors.New("POSTMARK_SERVER_TOKEN is required for the postmark email provider"))
	}
	if (c.BootstrapAdminEmail == "") != (c.BootstrapAdminPassword == "") {
		errs = append(errs, errors.New("BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}

// Warnings lists settings that are allowed but degrade the service.
func (c *Config) Warnings() []string {
	var out []string
	if c.MapboxToken == "" {
		out = append(out, "MAPBOX_ACCESS_TOKEN not set, districts resolve from addresses only")
	}
	if c.IsProduction() {
		if c.IngestAPIKey == "" {
			out = append(out, "INGEST_API_KEY not set, incident ingestion is unauthenticated")
		}
		if len(c.CORSOrigins) == 1 && c.CORSOrigins[0] == "*" {
			out = append(out, "CORS_ORIGINS allows every origin")
		}
	}
	return out
}

// Helper functions for loading environment variables with defaults.

func envString(getenv func(string) string, key, defaultValue string) string {
	if value := getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(getenv func(string) string, key string, defaultValue int) int {
	if value := getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func envFloat(getenv func(string) string, key string, defaultValue float64) float64 {
	if value := getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func envBool(getenv func(string) string, key string, defaultValue bool) bool {
	if value := getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func envDuration(getenv func(string) string, key string, defaultValue time.Duration) time.Duration {
	if value := getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// envList splits a comma separated value, dropping blanks.
func envList(getenv func(string) string, key string, defaultValue []string) []string {
	value := getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
