package config

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}

	messages := make([]string, 0, len(ve))
	for _, err := range ve {
		messages = append(messages, err.Error())
	}

	return fmt.Sprintf("configuration validation failed: %s", strings.Join(messages, "; "))
}

// Has checks if ValidationErrors contains any errors
func (ve ValidationErrors) Has() bool {
	return len(ve) > 0
}

// Fields returns the names of the fields that failed validation
func (ve ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(ve))
	for _, err := range ve {
		fields = append(fields, err.Field)
	}
	return fields
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var validationErrors ValidationErrors

	validationErrors = append(validationErrors, c.validateServer()...)
	validationErrors = append(validationErrors, c.validateDatabase()...)
	validationErrors = append(validationErrors, c.validateStorage()...)

	if c.Logging != nil {
		validationErrors = append(validationErrors, c.validateLogging()...)
	}

	if c.Server != nil {
		validationErrors = append(validationErrors, c.validateServerTimeouts()...)
	}

	if validationErrors.Has() {
		return validationErrors
	}

	return nil
}

func (c *Config) validateServer() ValidationErrors {
	var errors ValidationErrors

	if c.Port == "" {
		errors = append(errors, ValidationError{
			Field:   "port",
			Value:   c.Port,
			Message: "port cannot be empty",
		})
	} else if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, ValidationError{
			Field:   "port",
			Value:   c.Port,
			Message: "port must be a valid integer",
		})
	} else if port < 1 || port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "port",
			Value:   c.Port,
			Message: "port must be between 1 and 65535",
		})
	}

	validEnvs := []string{"development", "production", "test", "staging"}
	if c.Environment != "" && !slices.Contains(validEnvs, c.Environment) {
		errors = append(errors, ValidationError{
			Field:   "environment",
			Value:   c.Environment,
			Message: "environment must be one of: development, production, test, staging",
		})
	}

	return errors
}

func (c *Config) validateDatabase() ValidationErrors {
	var errors ValidationErrors

	// Tests run against sqlmock or testcontainers and may leave the URL empty
	if c.DatabaseURL == "" {
		if c.Environment != "test" {
			errors = append(errors, ValidationError{
				Field:   "database_url",
				Value:   c.DatabaseURL,
				Message: "database URL is required for non-test environments",
			})
		}
		return errors
	}

	parsedURL, err := url.Parse(c.DatabaseURL)
	if err != nil {
		return append(errors, ValidationError{
			Field:   "database_url",
			Value:   c.DatabaseURL,
			Message: "database URL must be a valid URL",
		})
	}

	if parsedURL.Scheme != "postgres" && parsedURL.Scheme != "postgresql" {
		errors = append(errors, ValidationError{
			Field:   "database_url",
			Value:   parsedURL.Scheme,
			Message: "database URL must use postgres or postgresql scheme",
		})
	}

	if parsedURL.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "database_url",
			Value:   c.DatabaseURL,
			Message: "database URL must include host",
		})
	}

	if parsedURL.Path == "" || parsedURL.Path == "/" {
		errors = append(errors, ValidationError{
			Field:   "database_url",
			Value:   c.DatabaseURL,
			Message: "database URL must include database name",
		})
	}

	return errors
}

func (c *Config) validateStorage() ValidationErrors {
	var errors ValidationErrors
	s := c.Storage

	switch s.Backend {
	case StorageBackendLocal:
		if strings.TrimSpace(s.UploadDir) == "" {
			errors = append(errors, ValidationError{
				Field:   "storage.upload_dir",
				Value:   s.UploadDir,
				Message: "upload directory cannot be empty",
			})
		}
	case StorageBackendMinIO:
		errors = append(errors, c.validateObjectStorage()...)
	default:
		errors = append(errors, ValidationError{
			Field:   "storage.backend",
			Value:   s.Backend,
			Message: "storage backend must be either 'local' or 'minio'",
		})
	}

	if s.MaxFileSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "storage.max_file_size",
			Value:   s.MaxFileSize,
			Message: "max file size must be greater than 0",
		})
	}

	if s.MaxRequestSize < s.MaxFileSize {
		errors = append(errors, ValidationError{
			Field:   "storage.max_request_size",
			Value:   s.MaxRequestSize,
			Message: "max request size cannot be smaller than max file size",
		})
	}

	if len(s.AllowedTypes) == 0 {
		errors = append(errors, ValidationError{
			Field:   "storage.allowed_types",
			Value:   s.AllowedTypes,
			Message: "at least one allowed content type is required",
		})
	}

	return errors
}

func (c *Config) validateObjectStorage() ValidationErrors {
	var errors ValidationErrors
	s := c.Storage

	if s.Endpoint == "" {
		errors = append(errors, ValidationError{
			Field:   "storage.endpoint",
			Value:   s.Endpoint,
			Message: "storage endpoint cannot be empty",
		})
	}

	if !isValidBucketName(s.BucketName) {
		errors = append(errors, ValidationError{
			Field:   "storage.bucket_name",
			Value:   s.BucketName,
			Message: "storage bucket name must be 3-63 characters, lowercase alphanumeric and hyphens only",
		})
	}

	if c.Environment == "production" {
		if s.AccessKeyID == "" || s.AccessKeyID == "minioadmin" {
			errors = append(errors, ValidationError{
				Field:   "storage.access_key_id",
				Value:   s.AccessKeyID,
				Message: "storage access key ID must be set for production environment",
			})
		}

		if s.SecretAccessKey == "" || s.SecretAccessKey == "minioadmin" {
			errors = append(errors, ValidationError{
				Field:   "storage.secret_access_key",
				Value:   "[REDACTED]",
				Message: "storage secret access key must be set for production environment",
			})
		}
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: "logging level must be one of: debug, info, warn, error",
		})
	}

	if !slices.Contains([]string{"json", "text", "console"}, strings.ToLower(c.Logging.Format)) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: "logging format must be one of: json, text, console",
		})
	}

	return errors
}

func (c *Config) validateServerTimeouts() ValidationErrors {
	var errors ValidationErrors

	check := func(field string, value time.Duration, upper time.Duration) {
		switch {
		case value <= 0:
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   value,
				Message: "timeout must be greater than 0",
			})
		case upper > 0 && value > upper:
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   value,
				Message: fmt.Sprintf("timeout should not exceed %s", upper),
			})
		}
	}

	check("server.read_timeout", c.Server.ReadTimeout, 5*time.Minute)
	check("server.write_timeout", c.Server.WriteTimeout, 5*time.Minute)
	check("server.idle_timeout", c.Server.IdleTimeout, 0)
	check("server.shutdown_timeout", c.Server.ShutdownTimeout, 2*time.Minute)

	return errors
}

// isValidBucketName validates S3/MinIO bucket naming rules
func isValidBucketName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}

	if !isLowerAlphaNum(name[0]) || !isLowerAlphaNum(name[len(name)-1]) {
		return false
	}

	for i := 0; i < len(name); i++ {
		b := name[i]
		if !isLowerAlphaNum(b) && b != '-' {
			return false
		}
		if i > 0 && b == '-' && name[i-1] == '-' {
			return false
		}
	}

	return true
}

func isLowerAlphaNum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
