package core

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator"
	"github.com/jo-hoe/gogallery/internal/database"
	"github.com/jo-hoe/gogallery/internal/upload"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable that overrides the config file.
const EnvPrefix = "GALLERY_"

// DefaultMaxRequestBytes fits eight files at the per-file limit.
const DefaultMaxRequestBytes = 8 * upload.MaxFileSize

type Database struct {
	Type             string `yaml:"type" env:"TYPE" validate:"required,oneof=sqlite redis memory"`
	ConnectionString string `yaml:"connectionString" env:"CONNECTION"`
}

type Upload struct {
	MaxFileSizeBytes int64         `yaml:"maxFileSizeBytes" env:"MAX_FILE_SIZE" validate:"gte=0"`
	SpoolDir         string        `yaml:"spoolDir" env:"SPOOL_DIR"`
	TickInterval     time.Duration `yaml:"tickInterval" env:"TICK_INTERVAL" validate:"gte=0"`
	MaxIncrement     float64       `yaml:"maxIncrement" env:"MAX_INCREMENT" validate:"gte=0,lte=100"`

	// SessionIdleTimeout closes upload dialogs nobody touched for that long.
	SessionIdleTimeout time.Duration `yaml:"sessionIdleTimeout" env:"SESSION_IDLE_TIMEOUT" validate:"gte=0"`

	// MaxRequestBytes caps a whole multipart upload request.
	MaxRequestBytes int64 `yaml:"maxRequestBytes" env:"MAX_REQUEST_SIZE" validate:"gte=0"`
}

type Tracing struct {
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	ServiceName string `yaml:"serviceName" env:"SERVICE_NAME"`
}

type ServiceConfig struct {
	Port     int      `yaml:"port" env:"PORT" validate:"gte=0,lte=65535"`
	LogLevel string   `yaml:"logLevel" env:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	Database Database `yaml:"database" envPrefix:"DATABASE_"`
	Upload   Upload   `yaml:"upload" envPrefix:"UPLOAD_"`
	Tracing  Tracing  `yaml:"tracing" envPrefix:"OTEL_"`
}

// DefaultConfig is used for values neither the file nor the environment set.
func DefaultConfig() ServiceConfig {
	return ServiceConfig{
		Port:     8080,
		LogLevel: "info",
		Database: Database{
			Type:             database.TypeSQLite,
			ConnectionString: "gallery.db",
		},
		Upload: Upload{
			MaxFileSizeBytes:   upload.MaxFileSize,
			TickInterval:       upload.DefaultTickInterval,
			MaxIncrement:       upload.DefaultMaxIncrement,
			SessionIdleTimeout: upload.DefaultIdleTimeout,
			MaxRequestBytes:    DefaultMaxRequestBytes,
		},
		Tracing: Tracing{ServiceName: "gogallery"},
	}
}

// LoadConfig loads configuration from the specified YAML file and applies
// GALLERY_* environment overrides.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML on top of the defaults
	config := DefaultConfig()
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := env.ParseWithOptions(&config, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// UploadOptions translates the upload section for the upload pipeline.
func (c *ServiceConfig) UploadOptions() upload.Options {
	return upload.Options{
		MaxFileSize:  c.Upload.MaxFileSizeBytes,
		SpoolDir:     c.Upload.SpoolDir,
		TickInterval: c.Upload.TickInterval,
		MaxIncrement: c.Upload.MaxIncrement,
		IdleTimeout:  c.Upload.SessionIdleTimeout,
	}
}

// UploadBodyLimit is the request body limit for upload routes in the form
// echo's BodyLimit middleware expects.
func (c *ServiceConfig) UploadBodyLimit() string {
	limit := c.Upload.MaxRequestBytes
	if limit <= 0 {
		limit = DefaultMaxRequestBytes
	}
	return strconv.FormatInt(limit, 10)
}

// ConfigureLogging installs the default slog logger at the configured level.
func ConfigureLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
