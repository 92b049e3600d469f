package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage and database drivers selectable at startup.
const (
	DriverPostgres = "postgres"
	DriverMinIO    = "minio"
	DriverMemory   = "memory"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Driver             string
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	ApplicationName    string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	ConnMaxIdleTimeSec int
}

// PoolConfig is the connection pool shape for a DatabaseConfig. Zero
// values leave the database/sql defaults in place.
type PoolConfig struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// Pool returns the pool settings of c.
func (c DatabaseConfig) Pool() PoolConfig {
	return PoolConfig{
		MaxOpen:     max(c.MaxOpenConns, 0),
		MaxIdle:     max(c.MaxIdleConns, 0),
		MaxLifetime: time.Duration(max(c.ConnMaxLifetimeSec, 0)) * time.Second,
		MaxIdleTime: time.Duration(max(c.ConnMaxIdleTimeSec, 0)) * time.Second,
	}
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Driver    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// PaneConfig holds the upload and lifetime rules for panes.
type PaneConfig struct {
	TTLHours          int
	MaxSizeMB         int
	AllowedExtensions []string
	FrontendURL       string
	// FrameAncestors is the CSP frame-ancestors list for served documents.
	FrameAncestors string
}

// TTL returns the configured pane lifetime.
func (c PaneConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// MaxSizeBytes returns the upload ceiling in bytes.
func (c PaneConfig) MaxSizeBytes() int64 {
	return int64(c.MaxSizeMB) * 1024 * 1024
}

// SweepConfig controls the expiration sweeper.
type SweepConfig struct {
	Interval   time.Duration
	BatchSize  int
	CleanupKey string
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
	// TokenTTL is the lifetime of tokens minted by panesctl.
	TokenTTL time.Duration
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Env      string
	LogLevel string
	AppHost  string
	Port     string
	Database DatabaseConfig
	MinIO    MinIOConfig
	Pane     PaneConfig
	Sweep    SweepConfig
	Auth     AuthConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", ""),
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"), // default only for non-sensitive value
		Database: DatabaseConfig{
			Driver:             getEnv("DB_DRIVER", DriverPostgres),
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			ApplicationName:    getEnv("DB_APPLICATION_NAME", "panes"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			ConnMaxIdleTimeSec: getEnvInt("DB_CONN_MAX_IDLE_TIME_SEC", 60),
		},
		MinIO: MinIOConfig{
			Driver:    getEnv("STORAGE_DRIVER", DriverMinIO),
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Pane: PaneConfig{
			TTLHours:          getEnvInt("PANE_TTL_HOURS", 72),
			MaxSizeMB:         getEnvInt("PANE_MAX_SIZE_MB", 5),
			AllowedExtensions: getEnvList("PANE_ALLOWED_EXTENSIONS", []string{"html", "htm"}),
			FrontendURL:       strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
			FrameAncestors:    getEnv("PANE_FRAME_ANCESTORS", ""),
		},
		Sweep: SweepConfig{
			Interval:   getEnvDuration("SWEEP_INTERVAL", 15*time.Minute),
			BatchSize:  getEnvInt("SWEEP_BATCH_SIZE", 100),
			CleanupKey: getEnv("CLEANUP_API_KEY", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			JWTIssuer: getEnv("AUTH_JWT_ISSUER", "panes"),
			TokenTTL:  getEnvDuration("AUTH_TOKEN_TTL", 24*time.Hour),
		},
	}
}

// Validate rejects settings the pane service cannot run with.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Pane.TTLHours <= 0 {
		errs = append(errs, errors.New("PANE_TTL_HOURS must be positive"))
	}
	if c.Pane.MaxSizeMB <= 0 {
		errs = append(errs, errors.New("PANE_MAX_SIZE_MB must be positive"))
	}
	if len(c.Pane.AllowedExtensions) == 0 {
		errs = append(errs, errors.New("PANE_ALLOWED_EXTENSIONS must not be empty"))
	}
	if c.Sweep.BatchSize <= 0 {
		errs = append(errs, errors.New("SWEEP_BATCH_SIZE must be positive"))
	}
	if c.Sweep.Interval <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must be positive"))
	}
	if c.IsProduction() && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required in production"))
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		errs = append(errs, errors.New("DB_DRIVER must be postgres or memory"))
	}
	switch c.MinIO.Driver {
	case DriverMinIO, DriverMemory:
	default:
		errs = append(errs, errors.New("STORAGE_DRIVER must be minio or memory"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the app runs in a production environment.
func (c *AppConfig) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

// getEnvList splits a comma-separated value, lowercasing and trimming
// entries and dropping a leading dot (".html" and "html" are the same).
func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(part)), ".")
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
