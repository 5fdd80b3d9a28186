package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	return configPath
}

func TestLoadConfig_Success(t *testing.T) {
	configPath := writeConfig(t, `port: 9090
logLevel: debug
database:
  type: redis
  connectionString: "redis://localhost:6379/0"
upload:
  maxFileSizeBytes: 1024
  tickInterval: 50ms
  maxIncrement: 30
  sessionIdleTimeout: 5m
  maxRequestBytes: 4096
`)

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != 9090 {
		t.Errorf("Expected port to be 9090, got %d", config.Port)
	}
	if config.Database.Type != "redis" {
		t.Errorf("Expected database type redis, got '%s'", config.Database.Type)
	}
	if config.Database.ConnectionString != "redis://localhost:6379/0" {
		t.Errorf("Unexpected connectionString '%s'", config.Database.ConnectionString)
	}
	if config.Upload.TickInterval != 50*time.Millisecond {
		t.Errorf("Expected tick interval 50ms, got %v", config.Upload.TickInterval)
	}

	opts := config.UploadOptions()
	if opts.MaxFileSize != 1024 || opts.MaxIncrement != 30 || opts.IdleTimeout != 5*time.Minute {
		t.Errorf("Unexpected upload options %+v", opts)
	}
	if limit := config.UploadBodyLimit(); limit != "4096" {
		t.Errorf("Expected body limit 4096, got '%s'", limit)
	}
}

func TestUploadBodyLimit_Default(t *testing.T) {
	config := DefaultConfig()
	config.Upload.MaxRequestBytes = 0
	if limit := config.UploadBodyLimit(); limit != "83886080" {
		t.Errorf("Expected default body limit 83886080, got '%s'", limit)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, "port: 8081\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	defaults := DefaultConfig()
	if config.Database != defaults.Database {
		t.Errorf("Expected default database %+v, got %+v", defaults.Database, config.Database)
	}
	if config.Upload != defaults.Upload {
		t.Errorf("Expected default upload %+v, got %+v", defaults.Upload, config.Upload)
	}
	if config.Tracing.ServiceName != "gogallery" {
		t.Errorf("Expected default service name, got '%s'", config.Tracing.ServiceName)
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("GALLERY_PORT", "7070")
	t.Setenv("GALLERY_DATABASE_TYPE", "memory")
	t.Setenv("GALLERY_UPLOAD_TICK_INTERVAL", "1s")
	t.Setenv("GALLERY_UPLOAD_SESSION_IDLE_TIMEOUT", "2m")
	t.Setenv("GALLERY_OTEL_ENDPOINT", "http://collector:4318/v1/traces")

	config, err := LoadConfig(writeConfig(t, "port: 8080\ndatabase:\n  type: sqlite\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Port != 7070 {
		t.Errorf("Expected env port 7070, got %d", config.Port)
	}
	if config.Database.Type != "memory" {
		t.Errorf("Expected env database type memory, got '%s'", config.Database.Type)
	}
	if config.Upload.TickInterval != time.Second {
		t.Errorf("Expected env tick interval 1s, got %v", config.Upload.TickInterval)
	}
	if config.Upload.SessionIdleTimeout != 2*time.Minute {
		t.Errorf("Expected env idle timeout 2m, got %v", config.Upload.SessionIdleTimeout)
	}
	if config.Tracing.Endpoint != "http://collector:4318/v1/traces" {
		t.Errorf("Unexpected tracing endpoint '%s'", config.Tracing.Endpoint)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown database", content: "database:\n  type: postgres\n"},
		{name: "port out of range", content: "port: 70000\n"},
		{name: "bad log level", content: "logLevel: chatty\n"},
		{name: "malformed yaml", content: "port: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if config != nil {
				t.Error("Expected config to be nil on error")
			}
		})
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	// Test with a non-existent file
	nonExistentPath := "/path/that/does/not/exist/config.yaml"

	config, err := LoadConfig(nonExistentPath)

	// Expect an error
	if err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}

	// Config should be nil
	if config != nil {
		t.Error("Expected config to be nil when file doesn't exist")
	}
}
