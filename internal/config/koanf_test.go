// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	// Platforms are opt-in
	if cfg.PhoneBurner.Enabled {
		t.Errorf("PhoneBurner.Enabled should be false by default")
	}
	if cfg.PhoneBurner.BaseURL != "https://www.phoneburner.com/rest/1" {
		t.Errorf("PhoneBurner.BaseURL = %q, want https://www.phoneburner.com/rest/1", cfg.PhoneBurner.BaseURL)
	}
	if cfg.PhoneBurner.RequestDelay != 500*time.Millisecond {
		t.Errorf("PhoneBurner.RequestDelay = %v, want 500ms", cfg.PhoneBurner.RequestDelay)
	}
	if cfg.PhoneBurner.PageSize != 100 {
		t.Errorf("PhoneBurner.PageSize = %d, want 100", cfg.PhoneBurner.PageSize)
	}
	if cfg.Airtable.Enabled {
		t.Errorf("Airtable.Enabled should be false by default")
	}
	if cfg.Airtable.BaseURL != "https://api.airtable.com/v0" {
		t.Errorf("Airtable.BaseURL = %q, want https://api.airtable.com/v0", cfg.Airtable.BaseURL)
	}

	// Sync engine defaults
	if cfg.Sync.BatchSize != 200 {
		t.Errorf("Sync.BatchSize = %d, want 200", cfg.Sync.BatchSize)
	}
	if cfg.Sync.Budget != 45*time.Second {
		t.Errorf("Sync.Budget = %v, want 45s", cfg.Sync.Budget)
	}
	if cfg.Sync.LockTimeout != 30*time.Second {
		t.Errorf("Sync.LockTimeout = %v, want 30s", cfg.Sync.LockTimeout)
	}
	if cfg.Sync.DispositionTalkThreshold != 60*time.Second {
		t.Errorf("Sync.DispositionTalkThreshold = %v, want 60s", cfg.Sync.DispositionTalkThreshold)
	}
	if cfg.Sync.DefaultWorkspace != "default" {
		t.Errorf("Sync.DefaultWorkspace = %q, want default", cfg.Sync.DefaultWorkspace)
	}

	// Queue defaults (enabled)
	if !cfg.Queue.Enabled {
		t.Errorf("Queue.Enabled should be true by default")
	}
	if cfg.Queue.URL != "nats://127.0.0.1:4222" {
		t.Errorf("Queue.URL = %q, want nats://127.0.0.1:4222", cfg.Queue.URL)
	}
	if cfg.Queue.MaxMemory != 1<<30 {
		t.Errorf("Queue.MaxMemory = %d, want 1GB", cfg.Queue.MaxMemory)
	}
	if cfg.Queue.DuplicateWindow != 2*time.Minute {
		t.Errorf("Queue.DuplicateWindow = %v, want 2m", cfg.Queue.DuplicateWindow)
	}
	if cfg.Queue.DurableName != "prospectus-sync" {
		t.Errorf("Queue.DurableName = %q, want prospectus-sync", cfg.Queue.DurableName)
	}

	// Database defaults
	if cfg.Database.Path != "/data/prospectus.duckdb" {
		t.Errorf("Database.Path = %q, want /data/prospectus.duckdb", cfg.Database.Path)
	}
	if cfg.Database.MaxMemory != "2GB" {
		t.Errorf("Database.MaxMemory = %q, want 2GB", cfg.Database.MaxMemory)
	}

	// Server defaults
	if cfg.Server.Port != 8484 {
		t.Errorf("Server.Port = %d, want 8484", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}

	// Security defaults
	if cfg.Security.AuthMode != "jwt" {
		t.Errorf("Security.AuthMode = %q, want jwt", cfg.Security.AuthMode)
	}
	if len(cfg.Security.CORSOrigins) != 1 || cfg.Security.CORSOrigins[0] != "*" {
		t.Errorf("Security.CORSOrigins = %v, want [*]", cfg.Security.CORSOrigins)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
}

// TestEnvTransformFunc verifies environment variable name transformations
func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// PhoneBurner
		{"PROSPECTUS_PHONEBURNER_ENABLED", "phoneburner.enabled"},
		{"PROSPECTUS_PHONEBURNER_API_KEY", "phoneburner.api_key"},
		{"PROSPECTUS_PHONEBURNER_REQUEST_DELAY", "phoneburner.request_delay"},
		{"PROSPECTUS_PHONEBURNER_RETRY_BASE_DELAY", "phoneburner.retry_base_delay"},

		// Airtable
		{"PROSPECTUS_AIRTABLE_API_KEY", "airtable.api_key"},
		{"PROSPECTUS_AIRTABLE_BASE_ID", "airtable.base_id"},
		{"PROSPECTUS_AIRTABLE_METRICS_TABLE", "airtable.metrics_table"},

		// Database
		{"PROSPECTUS_DUCKDB_PATH", "database.path"},
		{"PROSPECTUS_DUCKDB_MAX_MEMORY", "database.max_memory"},

		// Sync
		{"PROSPECTUS_SYNC_BATCH_SIZE", "sync.batch_size"},
		{"PROSPECTUS_SYNC_BUDGET", "sync.budget"},
		{"PROSPECTUS_SYNC_LOCK_TIMEOUT", "sync.lock_timeout"},
		{"PROSPECTUS_SYNC_DISPOSITION_TALK_THRESHOLD", "sync.disposition_talk_threshold"},

		// Queue
		{"PROSPECTUS_QUEUE_ENABLED", "queue.enabled"},
		{"PROSPECTUS_NATS_URL", "queue.url"},
		{"PROSPECTUS_NATS_EMBEDDED", "queue.embedded_server"},
		{"PROSPECTUS_QUEUE_DUPLICATE_WINDOW", "queue.duplicate_window"},

		// Scheduler
		{"PROSPECTUS_SCHEDULER_INTERVAL", "scheduler.interval"},

		// Server
		{"PROSPECTUS_HTTP_PORT", "server.port"},
		{"PROSPECTUS_HTTP_HOST", "server.host"},
		{"PROSPECTUS_ENVIRONMENT", "server.environment"},

		// Security
		{"PROSPECTUS_AUTH_MODE", "security.auth_mode"},
		{"PROSPECTUS_JWT_SECRET", "security.jwt_secret"},
		{"PROSPECTUS_ADMIN_USERNAME", "security.admin_username"},
		{"PROSPECTUS_RATE_LIMIT_REQUESTS", "security.rate_limit_reqs"},
		{"PROSPECTUS_CORS_ORIGINS", "security.cors_origins"},

		// Logging
		{"PROSPECTUS_LOG_LEVEL", "logging.level"},

		// Unknown (should return empty)
		{"PROSPECTUS_RANDOM_VAR", ""},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := envTransformFunc(tt.input)
			if result != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// TestFindConfigFile verifies config file discovery
func TestFindConfigFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	defer func() {
		if err := os.Chdir(origDir); err != nil {
			t.Errorf("Failed to restore working directory: %v", err)
		}
	}()

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	t.Run("no config file exists", func(t *testing.T) {
		os.Unsetenv(ConfigPathEnvVar)
		result := findConfigFile()
		if result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})

	t.Run("config.yaml exists", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("test: true"), 0644); err != nil {
			t.Fatalf("Failed to create config file: %v", err)
		}
		defer os.Remove(configPath)

		os.Unsetenv(ConfigPathEnvVar)
		result := findConfigFile()
		if result != "config.yaml" {
			t.Errorf("findConfigFile() = %q, want config.yaml", result)
		}
	})

	t.Run("PROSPECTUS_CONFIG_PATH takes precedence", func(t *testing.T) {
		customPath := filepath.Join(tmpDir, "custom_config.yaml")
		if err := os.WriteFile(customPath, []byte("test: true"), 0644); err != nil {
			t.Fatalf("Failed to create custom config file: %v", err)
		}
		defer os.Remove(customPath)

		os.Setenv(ConfigPathEnvVar, customPath)
		defer os.Unsetenv(ConfigPathEnvVar)

		result := findConfigFile()
		if result != customPath {
			t.Errorf("findConfigFile() = %q, want %q", result, customPath)
		}
	})

	t.Run("PROSPECTUS_CONFIG_PATH with non-existent file", func(t *testing.T) {
		os.Setenv(ConfigPathEnvVar, "/non/existent/config.yaml")
		defer os.Unsetenv(ConfigPathEnvVar)

		result := findConfigFile()
		if result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})
}

// TestLoadWithKoanfEnvVars tests loading configuration from environment variables
func TestLoadWithKoanfEnvVars(t *testing.T) {
	os.Clearenv()

	os.Setenv("PROSPECTUS_AUTH_MODE", "none")
	os.Setenv("PROSPECTUS_PHONEBURNER_ENABLED", "true")
	os.Setenv("PROSPECTUS_PHONEBURNER_API_KEY", "pb_test_key_12345")

	// Custom values to override defaults
	os.Setenv("PROSPECTUS_HTTP_PORT", "9000")
	os.Setenv("PROSPECTUS_LOG_LEVEL", "debug")
	os.Setenv("PROSPECTUS_SYNC_BATCH_SIZE", "300")
	os.Setenv("PROSPECTUS_SYNC_BUDGET", "40s")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if !cfg.PhoneBurner.Enabled {
		t.Errorf("PhoneBurner.Enabled = false, want true")
	}
	if cfg.PhoneBurner.APIKey != "pb_test_key_12345" {
		t.Errorf("PhoneBurner.APIKey = %q, want pb_test_key_12345", cfg.PhoneBurner.APIKey)
	}

	// Verify custom overrides
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Sync.BatchSize != 300 {
		t.Errorf("Sync.BatchSize = %d, want 300", cfg.Sync.BatchSize)
	}
	if cfg.Sync.Budget != 40*time.Second {
		t.Errorf("Sync.Budget = %v, want 40s", cfg.Sync.Budget)
	}

	// Verify defaults are still applied for unset values
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0 (default)", cfg.Server.Host)
	}
	if cfg.PhoneBurner.RequestDelay != 500*time.Millisecond {
		t.Errorf("PhoneBurner.RequestDelay = %v, want 500ms (default)", cfg.PhoneBurner.RequestDelay)
	}
}

// TestLoadWithKoanfConfigFile tests loading configuration from a YAML file
func TestLoadWithKoanfConfigFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	configContent := `
phoneburner:
  enabled: true
  api_key: "config_file_key"
  page_size: 50

server:
  port: 8888
  host: "127.0.0.1"

security:
  auth_mode: "none"

logging:
  level: "warn"
`
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	os.Clearenv()
	os.Setenv(ConfigPathEnvVar, configPath)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if !cfg.PhoneBurner.Enabled {
		t.Errorf("PhoneBurner.Enabled = false, want true (from file)")
	}
	if cfg.PhoneBurner.APIKey != "config_file_key" {
		t.Errorf("PhoneBurner.APIKey = %q, want config_file_key", cfg.PhoneBurner.APIKey)
	}
	if cfg.PhoneBurner.PageSize != 50 {
		t.Errorf("PhoneBurner.PageSize = %d, want 50", cfg.PhoneBurner.PageSize)
	}
	if cfg.Server.Port != 8888 {
		t.Errorf("Server.Port = %d, want 8888", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}

	// Defaults fill the gaps
	if cfg.Sync.BatchSize != 200 {
		t.Errorf("Sync.BatchSize = %d, want 200 (default)", cfg.Sync.BatchSize)
	}
}

// TestLoadWithKoanfPrecedence verifies env vars override the config file
func TestLoadWithKoanfPrecedence(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	configContent := `
server:
  port: 8888

security:
  auth_mode: "none"
`
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	os.Clearenv()
	os.Setenv(ConfigPathEnvVar, configPath)
	os.Setenv("PROSPECTUS_HTTP_PORT", "9001")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9001 {
		t.Errorf("Server.Port = %d, want 9001 (env overrides file)", cfg.Server.Port)
	}
}

// TestProcessSliceFields verifies comma-separated env values become slices
func TestProcessSliceFields(t *testing.T) {
	os.Clearenv()
	os.Setenv("PROSPECTUS_AUTH_MODE", "none")
	os.Setenv("PROSPECTUS_CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.Security.CORSOrigins) != len(want) {
		t.Fatalf("CORSOrigins = %v, want %v", cfg.Security.CORSOrigins, want)
	}
	for i, origin := range want {
		if cfg.Security.CORSOrigins[i] != origin {
			t.Errorf("CORSOrigins[%d] = %q, want %q", i, cfg.Security.CORSOrigins[i], origin)
		}
	}
}
