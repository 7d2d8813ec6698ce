// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/prospectus/config.yaml",
	"/etc/prospectus/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "PROSPECTUS_CONFIG_PATH"

// envPrefix scopes which environment variables are considered at all.
const envPrefix = "PROSPECTUS_"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		PhoneBurner: PhoneBurnerConfig{
			Enabled:        false, // Platforms are opt-in; connections can also be added via API
			BaseURL:        "https://www.phoneburner.com/rest/1",
			APIKey:         "",
			PageSize:       100,
			RequestDelay:   500 * time.Millisecond,
			MaxRetries:     3,
			RetryBaseDelay: 2 * time.Second,
			Timeout:        30 * time.Second,
		},
		Airtable: AirtableConfig{
			Enabled:       false,
			BaseURL:       "https://api.airtable.com/v0",
			APIKey:        "",
			BaseID:        "",
			MetricsTable:  "Daily Metrics",
			PageSize:      100,
			RequestDelay:  250 * time.Millisecond, // Airtable allows 5 req/s per base
			MaxRetries:    3,
			RetryWaitTime: 500 * time.Millisecond,
			Timeout:       30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/prospectus.duckdb",
			MaxMemory: "2GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Sync: SyncConfig{
			DefaultWorkspace:         "default",
			BatchSize:                200,
			Budget:                   45 * time.Second, // Headroom under the 60s invocation limit
			LockTimeout:              30 * time.Second,
			LinkerBatchSize:          500,
			DispositionTalkThreshold: 60 * time.Second,
		},
		Queue: QueueConfig{
			Enabled:                    true,
			URL:                        "nats://127.0.0.1:4222",
			EmbeddedServer:             true,
			StoreDir:                   "/data/nats/jetstream",
			MaxMemory:                  1 << 30,  // 1GB
			MaxStore:                   10 << 30, // 10GB
			DuplicateWindow:            2 * time.Minute,
			DurableName:                "prospectus-sync",
			DedupDir:                   "/data/queue-dedup",
			RouterRetryCount:           3,
			RouterRetryInitialInterval: 100 * time.Millisecond,
			RouterCloseTimeout:         30 * time.Second,
			PoisonTopic:                "sync.poison",
		},
		Scheduler: SchedulerConfig{
			Enabled:    true,
			Interval:   5 * time.Minute,
			StaleAfter: time.Hour,
		},
		Server: ServerConfig{
			Port:        8484,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development", // Set PROSPECTUS_ENVIRONMENT=production for production checks
		},
		API: APIConfig{
			DefaultPageSize:   20,
			MaxPageSize:       100,
			AnalyticsCacheTTL: 30 * time.Second,
		},
		Security: SecurityConfig{
			AuthMode:          "jwt",
			JWTSecret:         "",
			SessionTimeout:    24 * time.Hour,
			AdminUsername:     "",
			AdminPassword:     "",
			RateLimitReqs:     100,
			RateLimitWindow:   1 * time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// A local .env file is loaded into the process environment first (development
// convenience; absence is not an error), so its values flow through the env
// layer like any other variable.
func LoadWithKoanf() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// Transform environment variable names to koanf paths:
	// PROSPECTUS_PHONEBURNER_API_KEY -> phoneburner.api_key
	// PROSPECTUS_HTTP_PORT -> server.port
	envProvider := env.Provider(envPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	// Unmarshal into Config struct
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	// Check environment variable first
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	// Search default paths
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// This is necessary because env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// If it's already a slice (from YAML file), skip
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		// If it's a string, split by comma
		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envTransformFunc transforms PROSPECTUS_* environment variable names to
// koanf config paths. The prefix is stripped and the remainder mapped
// explicitly; unmapped variables are skipped so unrelated environment
// noise never pollutes the config.
//
// Examples:
//   - PROSPECTUS_PHONEBURNER_API_KEY -> phoneburner.api_key
//   - PROSPECTUS_DUCKDB_PATH -> database.path
//   - PROSPECTUS_HTTP_PORT -> server.port
//   - PROSPECTUS_SYNC_BUDGET -> sync.budget
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	envMappings := map[string]string{
		// PhoneBurner mappings
		"phoneburner_enabled":          "phoneburner.enabled",
		"phoneburner_base_url":         "phoneburner.base_url",
		"phoneburner_api_key":          "phoneburner.api_key",
		"phoneburner_page_size":        "phoneburner.page_size",
		"phoneburner_request_delay":    "phoneburner.request_delay",
		"phoneburner_max_retries":      "phoneburner.max_retries",
		"phoneburner_retry_base_delay": "phoneburner.retry_base_delay",
		"phoneburner_timeout":          "phoneburner.timeout",

		// Airtable mappings
		"airtable_enabled":         "airtable.enabled",
		"airtable_base_url":        "airtable.base_url",
		"airtable_api_key":         "airtable.api_key",
		"airtable_base_id":         "airtable.base_id",
		"airtable_metrics_table":   "airtable.metrics_table",
		"airtable_page_size":       "airtable.page_size",
		"airtable_request_delay":   "airtable.request_delay",
		"airtable_max_retries":     "airtable.max_retries",
		"airtable_retry_wait_time": "airtable.retry_wait_time",
		"airtable_timeout":         "airtable.timeout",

		// Database mappings
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		// Sync engine mappings
		"sync_default_workspace":          "sync.default_workspace",
		"sync_batch_size":                 "sync.batch_size",
		"sync_budget":                     "sync.budget",
		"sync_lock_timeout":               "sync.lock_timeout",
		"sync_linker_batch_size":          "sync.linker_batch_size",
		"sync_disposition_talk_threshold": "sync.disposition_talk_threshold",

		// Queue mappings
		"queue_enabled":               "queue.enabled",
		"nats_url":                    "queue.url",
		"nats_embedded":               "queue.embedded_server",
		"nats_store_dir":              "queue.store_dir",
		"nats_max_memory":             "queue.max_memory",
		"nats_max_store":              "queue.max_store",
		"queue_duplicate_window":      "queue.duplicate_window",
		"queue_durable_name":          "queue.durable_name",
		"queue_dedup_dir":             "queue.dedup_dir",
		"queue_router_retry_count":    "queue.router_retry_count",
		"queue_router_retry_interval": "queue.router_retry_initial_interval",
		"queue_router_close_timeout":  "queue.router_close_timeout",
		"queue_poison_topic":          "queue.poison_topic",

		// Scheduler mappings
		"scheduler_enabled":     "scheduler.enabled",
		"scheduler_interval":    "scheduler.interval",
		"scheduler_stale_after": "scheduler.stale_after",

		// Server mappings
		"http_port":    "server.port",
		"http_host":    "server.host",
		"http_timeout": "server.timeout",
		"environment":  "server.environment",

		// API mappings
		"api_default_page_size":   "api.default_page_size",
		"api_max_page_size":       "api.max_page_size",
		"api_analytics_cache_ttl": "api.analytics_cache_ttl",

		// Security mappings
		"auth_mode":           "security.auth_mode",
		"jwt_secret":          "security.jwt_secret",
		"session_timeout":     "security.session_timeout",
		"admin_username":      "security.admin_username",
		"admin_password":      "security.admin_password",
		"rate_limit_requests": "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"disable_rate_limit":  "security.rate_limit_disabled",
		"cors_origins":        "security.cors_origins",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	return ""
}
