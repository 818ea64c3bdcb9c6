// Package config provides YAML-based configuration with .env and
// environment variable overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/leasecheck/backend/internal/filepolicy"
	"gopkg.in/yaml.v3"
)

// AppConfig represents the root configuration structure
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Upload   UploadConfig   `yaml:"upload"`
	Intake   IntakeConfig   `yaml:"intake"`
	Security SecurityConfig `yaml:"security"`
	Advanced AdvancedConfig `yaml:"advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `yaml:"port" env:"PORT"`
	BindAddress  string `yaml:"bindAddress" env:"BIND_ADDRESS"`
	EnableCORS   bool   `yaml:"enableCors" env:"ENABLE_CORS"`
	AllowOrigins string `yaml:"allowOrigins" env:"ALLOW_ORIGINS"`
	ReadTimeout  int    `yaml:"readTimeoutSeconds"`
	WriteTimeout int    `yaml:"writeTimeoutSeconds"`
	IdleTimeout  int    `yaml:"idleTimeoutSeconds"`
	BodyLimit    string `yaml:"bodyLimit,omitempty" env:"BODY_LIMIT"` // empty derives it from upload.maxFileSizeMB
}

// StorageConfig contains document storage settings
type StorageConfig struct {
	Backend          string   `yaml:"backend" env:"STORAGE_BACKEND"` // "local" or "s3"
	DataDirectory    string   `yaml:"dataDirectory" env:"DATA_DIR"`
	UploadsDirectory string   `yaml:"uploadsDirectory" env:"UPLOADS_DIR"`
	S3               S3Config `yaml:"s3"`
}

// S3Config configures the S3 backend
type S3Config struct {
	Bucket          string `yaml:"bucket" env:"S3_BUCKET"`
	Prefix          string `yaml:"prefix" env:"S3_PREFIX"`
	Region          string `yaml:"region" env:"AWS_REGION"`
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT"`
	AccessKeyID     string `yaml:"accessKeyId" env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secretAccessKey" env:"AWS_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `yaml:"usePathStyle" env:"S3_USE_PATH_STYLE"`
}

// UploadConfig contains the upload endpoint settings
type UploadConfig struct {
	MaxFileSizeMB int    `yaml:"maxFileSizeMB" env:"MAX_FILE_SIZE_MB"`
	RedirectPath  string `yaml:"redirectPath" env:"UPLOAD_REDIRECT_PATH"`
}

// IntakeConfig contains intake job settings
type IntakeConfig struct {
	Catalog                string `yaml:"catalog" env:"INTAKE_CATALOG"` // "duckdb" or "memory"
	CatalogPath            string `yaml:"catalogPath" env:"CATALOG_PATH"`
	JobRetentionMinutes    int    `yaml:"jobRetentionMinutes"`
	CleanupIntervalMinutes int    `yaml:"cleanupIntervalMinutes"`
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	AllowFileDeletion bool   `yaml:"allowFileDeletion" env:"ALLOW_FILE_DELETION"`
	CSRFCookieName    string `yaml:"csrfCookieName"`
	CSRFCookieSecure  bool   `yaml:"csrfCookieSecure" env:"CSRF_COOKIE_SECURE"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `yaml:"logLevel" env:"LOG_LEVEL"`
	LogFormat            string `yaml:"logFormat" env:"LOG_FORMAT"` // "text" or "json"
	EnableRequestLogging bool   `yaml:"enableRequestLogging"`
	EnableMetrics        bool   `yaml:"enableMetrics" env:"ENABLE_METRICS"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   false,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
		},
		Storage: StorageConfig{
			Backend:          "local",
			DataDirectory:    "./data",
			UploadsDirectory: "./data/uploads",
			S3: S3Config{
				Prefix: "leases/",
				Region: "us-east-1",
			},
		},
		Upload: UploadConfig{
			MaxFileSizeMB: 10,
			RedirectPath:  "/reviewing-lease",
		},
		Intake: IntakeConfig{
			Catalog:                "duckdb",
			CatalogPath:            "./data/intake.duckdb",
			JobRetentionMinutes:    60,
			CleanupIntervalMinutes: 5,
		},
		Security: SecurityConfig{
			AllowFileDeletion: false,
			CSRFCookieName:    "_csrf",
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			LogFormat:            "text",
			EnableRequestLogging: true,
			EnableMetrics:        true,
		},
	}
}

// LoadConfig loads configuration from a YAML file, writing the defaults
// there on first run. A .env file beside the config is loaded into the
// environment before overrides are applied.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	configDir := filepath.Dir(configPath)
	envFile := filepath.Join(configDir, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := config.applyEnvironmentOverrides(); err != nil {
		return nil, err
	}

	config.resolvePaths(configDir)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to a YAML file
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Lease upload service configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides lets environment variables override config values
func (c *AppConfig) applyEnvironmentOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	for _, p := range []*string{
		&c.Storage.DataDirectory,
		&c.Storage.UploadsDirectory,
		&c.Intake.CatalogPath,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
}

// Validate rejects settings the server cannot start with
func (c *AppConfig) Validate() error {
	switch c.Storage.Backend {
	case "local":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage backend s3 requires a bucket")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Intake.Catalog {
	case "duckdb", "memory":
	default:
		return fmt.Errorf("unknown intake catalog %q", c.Intake.Catalog)
	}

	if c.Intake.CleanupIntervalMinutes <= 0 || c.Intake.JobRetentionMinutes <= 0 {
		return fmt.Errorf("intake cleanup interval and job retention must be positive")
	}

	if c.Upload.MaxFileSizeMB <= 0 {
		return fmt.Errorf("maxFileSizeMB must be positive, got %d", c.Upload.MaxFileSizeMB)
	}
	return nil
}

// Policy returns the document policy with the configured size ceiling
func (c *AppConfig) Policy() filepolicy.Policy {
	p := filepolicy.Default()
	p.MaxSizeBytes = int64(c.Upload.MaxFileSizeMB) * 1024 * 1024
	return p
}

// multipartOverheadMB is the headroom the request body limit leaves above
// the document ceiling for multipart framing.
const multipartOverheadMB = 2

// GetBodyLimit returns the request body limit for echo's BodyLimit
// middleware: the explicit setting, or the document ceiling plus multipart
// headroom.
func (c *AppConfig) GetBodyLimit() string {
	if c.Server.BodyLimit != "" {
		return c.Server.BodyLimit
	}
	return fmt.Sprintf("%dM", c.Upload.MaxFileSizeMB+multipartOverheadMB)
}

// SlogLevel maps LogLevel to a slog level, defaulting to info
func (c *AppConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Advanced.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetUploadDir returns the absolute uploads directory path
func (c *AppConfig) GetUploadDir() string {
	return c.Storage.UploadsDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{c.Storage.DataDirectory}
	if c.Storage.Backend == "local" {
		dirs = append(dirs, c.Storage.UploadsDirectory)
	}
	if c.Intake.Catalog == "duckdb" && c.Intake.CatalogPath != "" {
		dirs = append(dirs, filepath.Dir(c.Intake.CatalogPath))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
