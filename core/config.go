// Package core provides configuration loading, environment parsing,
// and the shared error taxonomy for the library backend.
package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	// DefaultAITimeoutSeconds is the external model request timeout.
	// Kept short so a slow backend degrades to the extractive fallback
	// instead of blocking the caller.
	DefaultAITimeoutSeconds = 10

	// DefaultCacheTTLDays is the summary cache retention. 0 disables expiry.
	DefaultCacheTTLDays = 0

	// DefaultCleanupIntervalHours is how often the expired-summary sweep runs.
	DefaultCleanupIntervalHours = 24

	// DefaultMaxSentences is the summary length used when the caller
	// provides a non-positive or unparseable value.
	DefaultMaxSentences = 3

	// DefaultPDFExtractDPI is the rasterization resolution for PDF page
	// extraction.
	DefaultPDFExtractDPI = 150

	// DefaultPort is the HTTP listen port.
	DefaultPort = 8080
)

// Config holds all configuration values for the backend.
// It is loaded once at startup; nothing re-reads the environment per call.
type Config struct {
	// External model (OpenAI-compatible) configuration
	UseOpenAI     bool
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	AITimeout     time.Duration

	// Summary cache configuration
	CacheTTLDays    int
	CleanupInterval time.Duration

	// Storage configuration
	DatabasePath   string
	MigrationsPath string
	StorageRoot    string

	// Chapter ingestion configuration
	PDFExtractDPI int

	// Server configuration
	Port    int
	LogFile string
	DevMode bool
}

// fileOverrides mirrors the optional library.yaml config file.
// Only fields present in the file override the environment.
type fileOverrides struct {
	OpenAIModel   string `yaml:"openai_model"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	CacheTTLDays  *int   `yaml:"cache_ttl_days"`
	StorageRoot   string `yaml:"storage_root"`
	DatabasePath  string `yaml:"database_path"`
	Port          *int   `yaml:"port"`
	PDFExtractDPI *int   `yaml:"pdf_extract_dpi"`
}

// LoadConfig loads configuration from environment variables with sensible
// defaults, then applies overrides from library.yaml if the file exists in
// the working directory.
//
// Example:
//
//	config, err := core.LoadConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfig() (*Config, error) {
	config := &Config{
		UseOpenAI:     ParseBoolEnv("USE_OPENAI", false),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:   GetEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		AITimeout:     ParseDurationEnv("AI_TIMEOUT_SECONDS", DefaultAITimeoutSeconds),

		CacheTTLDays:    ParseIntEnv("SUMMARY_CACHE_TTL_DAYS", DefaultCacheTTLDays),
		CleanupInterval: time.Duration(ParseIntEnv("CLEANUP_INTERVAL_HOURS", DefaultCleanupIntervalHours)) * time.Hour,

		DatabasePath:   GetEnvOrDefault("DATABASE_PATH", filepath.Join("data", "library.db")),
		MigrationsPath: GetEnvOrDefault("MIGRATIONS_PATH", "file://db/migrations"),
		StorageRoot:    GetEnvOrDefault("STORAGE_ROOT", filepath.Join("data", "chapters")),

		PDFExtractDPI: ParseIntEnv("PDF_EXTRACT_DPI", DefaultPDFExtractDPI),

		Port:    ParseIntEnv("PORT", DefaultPort),
		LogFile: GetEnvOrDefault("LOG_FILE", "library.log"),
		DevMode: ParseBoolEnv("DEV_MODE", false),
	}

	if err := applyFileOverrides(config, "library.yaml"); err != nil {
		return nil, err
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyFileOverrides merges values from an optional YAML config file.
// A missing file is not an error; a malformed one is.
func applyFileOverrides(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var overrides fileOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if overrides.OpenAIModel != "" {
		config.OpenAIModel = overrides.OpenAIModel
	}
	if overrides.OpenAIBaseURL != "" {
		config.OpenAIBaseURL = overrides.OpenAIBaseURL
	}
	if overrides.CacheTTLDays != nil {
		config.CacheTTLDays = *overrides.CacheTTLDays
	}
	if overrides.StorageRoot != "" {
		config.StorageRoot = overrides.StorageRoot
	}
	if overrides.DatabasePath != "" {
		config.DatabasePath = overrides.DatabasePath
	}
	if overrides.Port != nil {
		config.Port = *overrides.Port
	}
	if overrides.PDFExtractDPI != nil {
		config.PDFExtractDPI = *overrides.PDFExtractDPI
	}

	return nil
}

// validateConfig rejects configurations that cannot possibly work.
// Soft problems, like USE_OPENAI=true without an API key, are left to the
// startup validation suite and reported as warnings: the summary pipeline
// still functions on the extractive fallback.
func validateConfig(config *Config) error {
	if config.DatabasePath == "" {
		return ErrMissingConfig("DATABASE_PATH")
	}
	if config.StorageRoot == "" {
		return ErrMissingConfig("STORAGE_ROOT")
	}
	if config.Port <= 0 || config.Port > 65535 {
		return &ConfigError{
			Code:    ErrCodeInvalidValue,
			Message: fmt.Sprintf("Invalid PORT value: %d", config.Port),
			Action:  "Set PORT to a value between 1 and 65535",
		}
	}
	if config.PDFExtractDPI <= 0 {
		config.PDFExtractDPI = DefaultPDFExtractDPI
	}
	if config.AITimeout <= 0 {
		config.AITimeout = DefaultAITimeoutSeconds * time.Second
	}
	return nil
}

// AIEnabled reports whether the external model tier should be attempted.
func (c *Config) AIEnabled() bool {
	return c.UseOpenAI && c.OpenAIAPIKey != ""
}
