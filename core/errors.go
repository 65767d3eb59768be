package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the request-level taxonomy. Handlers map these to
// response codes with errors.Is.
var (
	// ErrValidation marks caller mistakes: empty text, no usable files,
	// a non-positive chapter number, an unknown upload format.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a lookup for a row that does not exist.
	ErrNotFound = errors.New("not found")
)

// ValidationError wraps ErrValidation with the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a ValidationError for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConfigError represents a configuration-related error with actionable instructions.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeMissingConfig = "MISSING_CONFIG"
	ErrCodeInvalidValue  = "INVALID_VALUE"
	ErrCodeStorageAccess = "STORAGE_ACCESS"
)

// ErrMissingConfig returns an error for missing required configuration
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in your .env file", varName),
	}
}

// ErrStorageAccess returns an error for an unusable storage location
func ErrStorageAccess(path string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeStorageAccess,
		Message: fmt.Sprintf("Cannot use storage path %s: %s", path, reason),
		Action:  "Check STORAGE_ROOT and DATABASE_PATH point at writable directories",
	}
}

// IsConfigError checks if an error is a ConfigError and returns it if so
func IsConfigError(err error) (*ConfigError, bool) {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr, true
	}
	return nil, false
}
