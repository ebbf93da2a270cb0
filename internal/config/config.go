package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Storage backend: "supabase" or "minio"
	StorageBackend string

	// Supabase
	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseBucket     string

	// MinIO / S3-compatible (local development)
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Public base URL prepended to filenames to build gallery image URLs.
	// This is the CDN/site domain, not the storage provider's native URL.
	PublicBaseURL string

	// Database
	DatabaseURL string

	// Upload policy
	MaxUploadBytes int64

	// Reconciler
	ReconcileInterval time.Duration
	OrphanGracePeriod time.Duration

	// Admin auth. Empty disables the guard (local development).
	AdminJWTSecret string

	// Server
	Port        string
	Environment string
	BaseURL     string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := &Config{
		StorageBackend: getEnv("STORAGE_BACKEND", "supabase"),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseBucket:     getEnv("SUPABASE_STORAGE_BUCKET", "gallery"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:    getEnv("MINIO_BUCKET", "gallery"),
		MinioUseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",

		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 25<<20),

		ReconcileInterval: getEnvDuration("RECONCILE_INTERVAL", time.Hour),
		OrphanGracePeriod: getEnvDuration("ORPHAN_GRACE_PERIOD", 15*time.Minute),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.PublicBaseURL == "" {
		return fmt.Errorf("PUBLIC_BASE_URL is required")
	}
	switch c.StorageBackend {
	case "supabase":
		if c.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required when STORAGE_BACKEND=supabase")
		}
		if c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_SERVICE_KEY is required when STORAGE_BACKEND=supabase")
		}
	case "minio":
		if c.MinioEndpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is required when STORAGE_BACKEND=minio")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (want \"supabase\" or \"minio\")", c.StorageBackend)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
		log.Printf("Warning: invalid %s=%q, using default %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Warning: invalid %s=%q, using default %s", key, value, defaultValue)
	}
	return defaultValue
}
