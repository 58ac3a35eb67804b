// Package config loads the catalog service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends
const (
	StorageBackendLocal = "local"
	StorageBackendMinIO = "minio"
)

// Config represents the application configuration
type Config struct {
	Environment string
	Port        string
	Host        string
	DatabaseURL string
	Storage     StorageConfig
	CORS        CORSConfig
	Logging     *LoggingConfig
	Server      *ServerConfig
}

// StorageConfig holds product image storage configuration.
// UploadDir is used by the local backend; the MinIO fields by the minio backend.
type StorageConfig struct {
	Backend        string
	UploadDir      string
	MaxFileSize    int64
	MaxRequestSize int64
	AllowedTypes   []string

	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
	Region          string
}

// CORSConfig lists origins allowed to call the API from a browser
type CORSConfig struct {
	AllowedOrigins []string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultAllowedTypes are the upload content types accepted for product images
var DefaultAllowedTypes = []string{"image/jpeg", "image/png", "image/gif", "application/pdf"}

// Load creates a new configuration from environment variables with validation
func Load() (*Config, error) {
	useSSL, _ := strconv.ParseBool(getEnv("STORAGE_USE_SSL", "false"))

	config := &Config{
		Environment: getEnv("GO_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		Host:        getEnv("HOST", "localhost"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Storage: StorageConfig{
			Backend:         strings.ToLower(getEnv("STORAGE_BACKEND", StorageBackendLocal)),
			UploadDir:       getEnv("UPLOAD_DIR", "uploads"),
			MaxFileSize:     parseSize(getEnv("MAX_FILE_SIZE", "10MB")),
			MaxRequestSize:  parseSize(getEnv("MAX_REQUEST_SIZE", "15MB")),
			AllowedTypes:    parseList(getEnv("ALLOWED_FILE_TYPES", strings.Join(DefaultAllowedTypes, ","))),
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "product-images"),
			UseSSL:          useSSL,
			Region:          getEnv("STORAGE_REGION", "us-east-1"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
		Logging: &LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Server: &ServerConfig{
			ReadTimeout:     parseDuration(getEnv("READ_TIMEOUT", "15s")),
			WriteTimeout:    parseDuration(getEnv("WRITE_TIMEOUT", "15s")),
			IdleTimeout:     parseDuration(getEnv("IDLE_TIMEOUT", "60s")),
			ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "30s")),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Address returns the host:port the HTTP server listens on
func (c *Config) Address() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseSize parses size strings like "10MB", "512KB" or "2048" into bytes.
// Unparseable input yields 0 so that validation reports it.
func parseSize(sizeStr string) int64 {
	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(sizeStr, "GB"):
		multiplier = 1024 * 1024 * 1024
		sizeStr = strings.TrimSuffix(sizeStr, "GB")
	case strings.HasSuffix(sizeStr, "MB"):
		multiplier = 1024 * 1024
		sizeStr = strings.TrimSuffix(sizeStr, "MB")
	case strings.HasSuffix(sizeStr, "KB"):
		multiplier = 1024
		sizeStr = strings.TrimSuffix(sizeStr, "KB")
	case strings.HasSuffix(sizeStr, "B"):
		sizeStr = strings.TrimSuffix(sizeStr, "B")
	}

	num, err := strconv.ParseInt(strings.TrimSpace(sizeStr), 10, 64)
	if err != nil || num < 0 {
		return 0
	}
	return num * multiplier
}

func parseDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

// parseList parses comma-separated strings into slices
func parseList(listStr string) []string {
	if listStr == "" {
		return []string{}
	}

	items := strings.Split(listStr, ",")
	result := make([]string, 0, len(items))

	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// MustLoad loads configuration and panics on error
func MustLoad() *Config {
	config, err := Load()
	if err != nil {
		panic(err)
	}
	return config
}
