// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package config

import (
	"time"
)

// Config holds all application configuration loaded from defaults, an optional
// YAML config file, and PROSPECTUS_* environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting via PROSPECTUS_* variables
//
// Configuration Categories:
//
//  1. Platforms:
//     - PhoneBurner: Dialer platform (contacts, dial sessions, call detail)
//     - Airtable: Tabular source for externally maintained daily metrics
//
//  2. Infrastructure:
//     - Database: DuckDB analytics store (path, memory, threads)
//     - Queue: Embedded NATS JetStream continuation queue
//     - Sync: Engine tuning (batch size, time budget, lock timeout)
//     - Scheduler: Periodic sync enqueueing
//     - Server: HTTP server (port, host, timeout, environment)
//
//  3. API & Security:
//     - API: Pagination and analytics cache settings
//     - Security: JWT auth, admin credential, rate limiting, CORS
//
//  4. Observability:
//     - Logging: zerolog level and output format
//
// Example - Load configuration:
//
//	cfg, err := config.LoadWithKoanf()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	// cfg.PhoneBurner.APIKey, cfg.Database.Path, etc. are now populated
//
// Validation:
// LoadWithKoanf validates all required fields and returns an error if:
//   - A platform is enabled without credentials (PROSPECTUS_PHONEBURNER_API_KEY)
//   - Values are out of bounds (sync batch size, budget vs. runtime limit)
//   - Authentication is enabled but credentials are incomplete or placeholders
//
// Thread Safety:
// Config is immutable after load and safe for concurrent read access.
type Config struct {
	PhoneBurner PhoneBurnerConfig `koanf:"phoneburner"` // Optional: dialer platform connection
	Airtable    AirtableConfig    `koanf:"airtable"`    // Optional: tabular metrics source
	Database    DatabaseConfig    `koanf:"database"`
	Sync        SyncConfig        `koanf:"sync"`
	Queue       QueueConfig       `koanf:"queue"`
	Scheduler   SchedulerConfig   `koanf:"scheduler"`
	Server      ServerConfig      `koanf:"server"`
	API         APIConfig         `koanf:"api"`
	Security    SecurityConfig    `koanf:"security"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// PhoneBurnerConfig holds the PhoneBurner REST API connection settings.
// When enabled, a bootstrap SyncConnection is seeded for the default
// workspace at startup; additional workspaces are managed through the
// connections API.
//
// Environment Variables:
//   - PROSPECTUS_PHONEBURNER_ENABLED: Enable the integration (default: false)
//   - PROSPECTUS_PHONEBURNER_BASE_URL: API base URL (default: https://www.phoneburner.com/rest/1)
//   - PROSPECTUS_PHONEBURNER_API_KEY: Bearer token from the PhoneBurner developer console
//   - PROSPECTUS_PHONEBURNER_PAGE_SIZE: Records per page request (default: 100)
//   - PROSPECTUS_PHONEBURNER_REQUEST_DELAY: Fixed delay before every request (default: 500ms)
//   - PROSPECTUS_PHONEBURNER_MAX_RETRIES: Retry bound for transient failures (default: 3)
//   - PROSPECTUS_PHONEBURNER_RETRY_BASE_DELAY: Base for 429 exponential backoff (default: 2s)
//   - PROSPECTUS_PHONEBURNER_TIMEOUT: Per-request HTTP timeout (default: 30s)
type PhoneBurnerConfig struct {
	Enabled        bool          `koanf:"enabled"`          // Master toggle for the PhoneBurner integration
	BaseURL        string        `koanf:"base_url"`         // API base URL, no trailing slash
	APIKey         string        `koanf:"api_key"`          // Bearer token
	PageSize       int           `koanf:"page_size"`        // Requested page size for list endpoints
	RequestDelay   time.Duration `koanf:"request_delay"`    // Minimum spacing between any two requests
	MaxRetries     int           `koanf:"max_retries"`      // Bounded retries for 429/transient failures
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"` // Doubles per attempt on 429 responses
	Timeout        time.Duration `koanf:"timeout"`          // Per-request timeout
}

// AirtableConfig holds the Airtable REST API connection settings.
// Airtable supplies externally maintained daily metric tables via
// offset-token pagination.
//
// Environment Variables:
//   - PROSPECTUS_AIRTABLE_ENABLED: Enable the integration (default: false)
//   - PROSPECTUS_AIRTABLE_BASE_URL: API base URL (default: https://api.airtable.com/v0)
//   - PROSPECTUS_AIRTABLE_API_KEY: Personal access token
//   - PROSPECTUS_AIRTABLE_BASE_ID: Base identifier (appXXXXXXXXXXXXXX)
//   - PROSPECTUS_AIRTABLE_METRICS_TABLE: Table holding daily metrics (default: Daily Metrics)
//   - PROSPECTUS_AIRTABLE_PAGE_SIZE: Records per page request (default: 100)
//   - PROSPECTUS_AIRTABLE_REQUEST_DELAY: Fixed delay before every request (default: 250ms)
//   - PROSPECTUS_AIRTABLE_MAX_RETRIES: Retry bound for 429/5xx (default: 3)
//   - PROSPECTUS_AIRTABLE_RETRY_WAIT_TIME: Minimum wait between retries (default: 500ms)
//   - PROSPECTUS_AIRTABLE_TIMEOUT: Per-request HTTP timeout (default: 30s)
type AirtableConfig struct {
	Enabled       bool          `koanf:"enabled"`
	BaseURL       string        `koanf:"base_url"`
	APIKey        string        `koanf:"api_key"`
	BaseID        string        `koanf:"base_id"`
	MetricsTable  string        `koanf:"metrics_table"`
	PageSize      int           `koanf:"page_size"`
	RequestDelay  time.Duration `koanf:"request_delay"`
	MaxRetries    int           `koanf:"max_retries"`
	RetryWaitTime time.Duration `koanf:"retry_wait_time"` // Backoff floor; Retry-After can raise it
	Timeout       time.Duration `koanf:"timeout"`
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // Number of DuckDB threads (0 = use NumCPU)
}

// SyncConfig holds sync engine tuning.
//
// The budget MUST stay below the runtime execution limit (60s) with enough
// headroom to persist progress and publish a continuation message before the
// invocation is killed. Batch size bounds follow the upsert writer contract:
// large enough to amortize statement overhead, small enough that a single
// failed batch loses little work.
//
// Environment Variables:
//   - PROSPECTUS_SYNC_DEFAULT_WORKSPACE: Workspace seeded from env platform config (default: default)
//   - PROSPECTUS_SYNC_BATCH_SIZE: Upsert batch size, 100-500 (default: 200)
//   - PROSPECTUS_SYNC_BUDGET: Wall-clock budget per invocation (default: 45s)
//   - PROSPECTUS_SYNC_LOCK_TIMEOUT: Heartbeat staleness cutoff (default: 30s)
//   - PROSPECTUS_SYNC_LINKER_BATCH_SIZE: Rows linked per linker pass (default: 500)
//   - PROSPECTUS_SYNC_DISPOSITION_TALK_THRESHOLD: Talk time treating "send email"
//     outcomes as conversations (default: 60s)
type SyncConfig struct {
	DefaultWorkspace         string        `koanf:"default_workspace"`
	BatchSize                int           `koanf:"batch_size"`
	Budget                   time.Duration `koanf:"budget"`
	LockTimeout              time.Duration `koanf:"lock_timeout"`
	LinkerBatchSize          int           `koanf:"linker_batch_size"`
	DispositionTalkThreshold time.Duration `koanf:"disposition_talk_threshold"`
}

// QueueConfig holds the continuation queue settings (embedded NATS JetStream
// via Watermill). When disabled, interrupted syncs resume on the next
// scheduler tick or manual run instead of immediately.
//
// Environment Variables:
//   - PROSPECTUS_QUEUE_ENABLED: Enable the continuation queue (default: true)
//   - PROSPECTUS_NATS_URL: NATS connection URL (default: nats://127.0.0.1:4222)
//   - PROSPECTUS_NATS_EMBEDDED: Run an embedded NATS server (default: true)
//   - PROSPECTUS_NATS_STORE_DIR: JetStream storage directory (default: /data/nats/jetstream)
//   - PROSPECTUS_NATS_MAX_MEMORY: JetStream memory cap in bytes (default: 1GB)
//   - PROSPECTUS_NATS_MAX_STORE: JetStream disk cap in bytes (default: 10GB)
//   - PROSPECTUS_QUEUE_DUPLICATE_WINDOW: JetStream msg-id dedup window (default: 2m)
//   - PROSPECTUS_QUEUE_DURABLE_NAME: Durable consumer name (default: prospectus-sync)
//   - PROSPECTUS_QUEUE_DEDUP_DIR: Badger store for processed-message records (default: /data/queue-dedup)
//   - PROSPECTUS_QUEUE_ROUTER_RETRY_COUNT: Handler retries before poison (default: 3)
//   - PROSPECTUS_QUEUE_ROUTER_RETRY_INTERVAL: Initial retry backoff (default: 100ms)
//   - PROSPECTUS_QUEUE_ROUTER_CLOSE_TIMEOUT: Graceful router shutdown bound (default: 30s)
//   - PROSPECTUS_QUEUE_POISON_TOPIC: Topic for permanently failed messages (default: sync.poison)
type QueueConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`

	// DuplicateWindow is the JetStream server-side msg-id suppression window.
	// Continuations for the same workspace within this window collapse to one.
	DuplicateWindow time.Duration `koanf:"duplicate_window"`

	// DurableName is the consumer durable name for resume tracking.
	DurableName string `koanf:"durable_name"`

	// DedupDir is the BadgerDB directory recording processed message IDs,
	// covering redeliveries that outlive the JetStream duplicate window.
	DedupDir string `koanf:"dedup_dir"`

	// Router middleware settings (Watermill Router).
	RouterRetryCount           int           `koanf:"router_retry_count"`
	RouterRetryInitialInterval time.Duration `koanf:"router_retry_initial_interval"`
	RouterCloseTimeout         time.Duration `koanf:"router_close_timeout"`
	PoisonTopic                string        `koanf:"poison_topic"`
}

// SchedulerConfig holds the periodic sync enqueuer settings.
//
// Environment Variables:
//   - PROSPECTUS_SCHEDULER_ENABLED: Enable scheduled syncs (default: true)
//   - PROSPECTUS_SCHEDULER_INTERVAL: Tick interval (default: 5m)
//   - PROSPECTUS_SCHEDULER_STALE_AFTER: Re-sync connections whose last sync is older (default: 1h)
type SchedulerConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Interval   time.Duration `koanf:"interval"`
	StaleAfter time.Duration `koanf:"stale_after"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // "development", "staging", "production" (default: "development")
}

// APIConfig holds API pagination and response cache settings
type APIConfig struct {
	DefaultPageSize   int           `koanf:"default_page_size"`
	MaxPageSize       int           `koanf:"max_page_size"`
	AnalyticsCacheTTL time.Duration `koanf:"analytics_cache_ttl"` // Dashboard aggregate response cache (default: 30s)
}

// SecurityConfig holds authentication and API protection settings.
//
// Environment Variables:
//   - PROSPECTUS_AUTH_MODE: "jwt" or "none" (default: jwt)
//   - PROSPECTUS_JWT_SECRET: HS256 signing secret, min 32 chars (required for jwt mode)
//   - PROSPECTUS_SESSION_TIMEOUT: JWT token lifetime (default: 24h)
//   - PROSPECTUS_ADMIN_USERNAME: Dashboard admin username (required for jwt mode)
//   - PROSPECTUS_ADMIN_PASSWORD: Dashboard admin password (required for jwt mode)
//   - PROSPECTUS_RATE_LIMIT_REQUESTS: Requests per window (default: 100)
//   - PROSPECTUS_RATE_LIMIT_WINDOW: Rate limit window (default: 1m)
//   - PROSPECTUS_DISABLE_RATE_LIMIT: Disable API rate limiting (default: false)
//   - PROSPECTUS_CORS_ORIGINS: Comma-separated allowed origins (default: *)
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"`
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPassword     string        `koanf:"admin_password"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - PROSPECTUS_LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - PROSPECTUS_LOG_FORMAT: json, console (default: json)
//   - PROSPECTUS_LOG_CALLER: include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
