// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validatePhoneBurner(); err != nil {
		return err
	}

	if err := c.validateAirtable(); err != nil {
		return err
	}

	if err := c.validateSync(); err != nil {
		return err
	}

	if err := c.validateQueue(); err != nil {
		return err
	}

	if err := c.validateScheduler(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validatePhoneBurner validates PhoneBurner configuration (only if enabled)
func (c *Config) validatePhoneBurner() error {
	if !c.PhoneBurner.Enabled {
		return nil
	}

	if c.PhoneBurner.BaseURL == "" {
		return fmt.Errorf("PROSPECTUS_PHONEBURNER_BASE_URL is required when PROSPECTUS_PHONEBURNER_ENABLED=true")
	}
	if err := validateHTTPURL(c.PhoneBurner.BaseURL, "PROSPECTUS_PHONEBURNER_BASE_URL"); err != nil {
		return fmt.Errorf("PROSPECTUS_PHONEBURNER_BASE_URL is invalid: %w", err)
	}
	if c.PhoneBurner.APIKey == "" {
		return fmt.Errorf("PROSPECTUS_PHONEBURNER_API_KEY is required when PROSPECTUS_PHONEBURNER_ENABLED=true")
	}
	return c.validatePlatformTuning("PHONEBURNER", c.PhoneBurner.PageSize, c.PhoneBurner.RequestDelay, c.PhoneBurner.MaxRetries)
}

// validateAirtable validates Airtable configuration (only if enabled)
func (c *Config) validateAirtable() error {
	if !c.Airtable.Enabled {
		return nil
	}

	if c.Airtable.APIKey == "" {
		return fmt.Errorf("PROSPECTUS_AIRTABLE_API_KEY is required when PROSPECTUS_AIRTABLE_ENABLED=true")
	}
	if c.Airtable.BaseID == "" {
		return fmt.Errorf("PROSPECTUS_AIRTABLE_BASE_ID is required when PROSPECTUS_AIRTABLE_ENABLED=true")
	}
	if c.Airtable.MetricsTable == "" {
		return fmt.Errorf("PROSPECTUS_AIRTABLE_METRICS_TABLE must not be empty")
	}
	return c.validatePlatformTuning("AIRTABLE", c.Airtable.PageSize, c.Airtable.RequestDelay, c.Airtable.MaxRetries)
}

// Platform client tuning bounds
const (
	minPlatformPageSize = 1
	maxPlatformPageSize = 500
	maxRequestDelay     = 10 * time.Second
	maxClientRetries    = 10
)

// validatePlatformTuning validates the shared client tuning knobs for a platform.
func (c *Config) validatePlatformTuning(platform string, pageSize int, delay time.Duration, retries int) error {
	if pageSize < minPlatformPageSize || pageSize > maxPlatformPageSize {
		return fmt.Errorf("PROSPECTUS_%s_PAGE_SIZE must be between %d and %d", platform, minPlatformPageSize, maxPlatformPageSize)
	}
	if delay < 0 || delay > maxRequestDelay {
		return fmt.Errorf("PROSPECTUS_%s_REQUEST_DELAY must be between 0 and %v", platform, maxRequestDelay)
	}
	if retries < 0 || retries > maxClientRetries {
		return fmt.Errorf("PROSPECTUS_%s_MAX_RETRIES must be between 0 and %d", platform, maxClientRetries)
	}
	return nil
}

// Sync engine bounds. The batch size window comes from the upsert writer
// contract; the budget ceiling leaves persistence headroom under the 60s
// invocation limit.
const (
	minSyncBatchSize = 100
	maxSyncBatchSize = 500
	minSyncBudget    = time.Second
	maxSyncBudget    = 55 * time.Second
	minLockTimeout   = 5 * time.Second
	maxLockTimeout   = 10 * time.Minute
	maxLinkerBatch   = 10000
)

// validateSync validates sync engine bounds
func (c *Config) validateSync() error {
	if c.Sync.DefaultWorkspace == "" {
		return fmt.Errorf("PROSPECTUS_SYNC_DEFAULT_WORKSPACE must not be empty")
	}
	if c.Sync.BatchSize < minSyncBatchSize || c.Sync.BatchSize > maxSyncBatchSize {
		return fmt.Errorf("PROSPECTUS_SYNC_BATCH_SIZE must be between %d and %d", minSyncBatchSize, maxSyncBatchSize)
	}
	if c.Sync.Budget < minSyncBudget || c.Sync.Budget > maxSyncBudget {
		return fmt.Errorf("PROSPECTUS_SYNC_BUDGET must be between %v and %v", minSyncBudget, maxSyncBudget)
	}
	if c.Sync.LockTimeout < minLockTimeout || c.Sync.LockTimeout > maxLockTimeout {
		return fmt.Errorf("PROSPECTUS_SYNC_LOCK_TIMEOUT must be between %v and %v", minLockTimeout, maxLockTimeout)
	}
	if c.Sync.LinkerBatchSize < 1 || c.Sync.LinkerBatchSize > maxLinkerBatch {
		return fmt.Errorf("PROSPECTUS_SYNC_LINKER_BATCH_SIZE must be between 1 and %d", maxLinkerBatch)
	}
	if c.Sync.DispositionTalkThreshold < 0 {
		return fmt.Errorf("PROSPECTUS_SYNC_DISPOSITION_TALK_THRESHOLD must be non-negative")
	}
	return nil
}

// Queue limit constants
const (
	queueMinMemory    = 64 * 1024 * 1024  // 64MB
	queueMinStore     = 100 * 1024 * 1024 // 100MB
	queueMinDupWindow = 30 * time.Second
	queueMaxDupWindow = time.Hour
)

// validateQueue validates continuation queue configuration (only if enabled)
func (c *Config) validateQueue() error {
	if !c.Queue.Enabled {
		return nil
	}

	if err := validateNATSURL(c.Queue.URL); err != nil {
		return fmt.Errorf("PROSPECTUS_NATS_URL is invalid: %w", err)
	}
	if c.Queue.MaxMemory < queueMinMemory {
		return fmt.Errorf("PROSPECTUS_NATS_MAX_MEMORY must be at least 64MB (67108864 bytes)")
	}
	if c.Queue.MaxStore < queueMinStore {
		return fmt.Errorf("PROSPECTUS_NATS_MAX_STORE must be at least 100MB (104857600 bytes)")
	}
	if c.Queue.DuplicateWindow < queueMinDupWindow || c.Queue.DuplicateWindow > queueMaxDupWindow {
		return fmt.Errorf("PROSPECTUS_QUEUE_DUPLICATE_WINDOW must be between %v and %v", queueMinDupWindow, queueMaxDupWindow)
	}
	if c.Queue.DurableName == "" {
		return fmt.Errorf("PROSPECTUS_QUEUE_DURABLE_NAME must not be empty")
	}
	if c.Queue.RouterRetryCount < 0 || c.Queue.RouterRetryCount > 100 {
		return fmt.Errorf("PROSPECTUS_QUEUE_ROUTER_RETRY_COUNT must be between 0 and 100")
	}
	return nil
}

// validateScheduler validates scheduler configuration (only if enabled)
func (c *Config) validateScheduler() error {
	if !c.Scheduler.Enabled {
		return nil
	}

	if c.Scheduler.Interval < time.Minute || c.Scheduler.Interval > 24*time.Hour {
		return fmt.Errorf("PROSPECTUS_SCHEDULER_INTERVAL must be between 1m and 24h")
	}
	if c.Scheduler.StaleAfter < c.Scheduler.Interval {
		return fmt.Errorf("PROSPECTUS_SCHEDULER_STALE_AFTER must be at least the scheduler interval")
	}
	return nil
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PROSPECTUS_HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

// validateSecurity validates security configuration
func (c *Config) validateSecurity() error {
	if err := c.validateAuthMode(); err != nil {
		return err
	}

	if err := c.validateCORS(); err != nil {
		return err
	}

	if err := c.validateRateLimits(); err != nil {
		return err
	}

	if c.Security.AuthMode == "jwt" {
		return c.validateJWTAuth()
	}
	return nil
}

// validAuthModes defines the allowed authentication modes
var validAuthModes = map[string]bool{
	"none": true,
	"jwt":  true,
}

// validateAuthMode checks if auth mode is valid and appropriate for the environment.
// AUTH_MODE=none is refused in production to prevent accidentally deploying an
// open dashboard holding customer contact data.
func (c *Config) validateAuthMode() error {
	if !validAuthModes[c.Security.AuthMode] {
		return fmt.Errorf("PROSPECTUS_AUTH_MODE must be one of: none, jwt")
	}

	if c.Security.AuthMode == "none" && c.IsProduction() {
		return fmt.Errorf("PROSPECTUS_AUTH_MODE=none is not allowed when PROSPECTUS_ENVIRONMENT=production. " +
			"Either set PROSPECTUS_AUTH_MODE=jwt or use PROSPECTUS_ENVIRONMENT=development for testing purposes")
	}

	return nil
}

// validateCORS rejects wildcard CORS in production with authentication enabled:
// any origin could replay stolen tokens against protected endpoints.
func (c *Config) validateCORS() error {
	if c.Security.AuthMode != "none" && c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("PROSPECTUS_CORS_ORIGINS=* (wildcard) is not allowed in production with authentication enabled. " +
			"Set specific origins: PROSPECTUS_CORS_ORIGINS=https://dashboard.example.com " +
			"or use PROSPECTUS_ENVIRONMENT=development for testing purposes")
	}
	return nil
}

// hasWildcardCORS checks if CORS is configured with wildcard origins
func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if CORS configuration has security concerns
// that should be logged at startup
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.AuthMode != "none" && c.hasWildcardCORS()
}

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

// validateRateLimits validates rate limiting configuration bounds
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}

	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("PROSPECTUS_RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("PROSPECTUS_RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// validateJWTAuth validates JWT authentication configuration
func (c *Config) validateJWTAuth() error {
	if err := c.validateJWTSecret(); err != nil {
		return err
	}
	return c.validateAdminCredentials()
}

// validateJWTSecret validates the JWT secret configuration
func (c *Config) validateJWTSecret() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("PROSPECTUS_JWT_SECRET is required when PROSPECTUS_AUTH_MODE is jwt")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("PROSPECTUS_JWT_SECRET must be at least 32 characters for security")
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return fmt.Errorf("PROSPECTUS_JWT_SECRET contains a placeholder value - generate a secure secret with: openssl rand -base64 32")
	}
	return nil
}

// validateAdminCredentials validates admin username and password
func (c *Config) validateAdminCredentials() error {
	if c.Security.AdminUsername == "" {
		return fmt.Errorf("PROSPECTUS_ADMIN_USERNAME is required when PROSPECTUS_AUTH_MODE is jwt")
	}
	return c.validateAdminPassword()
}

// validateAdminPassword validates the admin password configuration
func (c *Config) validateAdminPassword() error {
	if c.Security.AdminPassword == "" {
		return fmt.Errorf("PROSPECTUS_ADMIN_PASSWORD is required when PROSPECTUS_AUTH_MODE is jwt")
	}
	if containsPlaceholder(c.Security.AdminPassword) {
		return fmt.Errorf("PROSPECTUS_ADMIN_PASSWORD contains a placeholder value - set a secure password")
	}
	policy := DefaultPasswordPolicy()
	if err := policy.ValidateWithError(c.Security.AdminPassword, c.Security.AdminUsername); err != nil {
		return fmt.Errorf("PROSPECTUS_ADMIN_PASSWORD: %w", err)
	}
	return nil
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment returns true if the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("PROSPECTUS_LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("PROSPECTUS_LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// placeholderPatterns defines common placeholder patterns that indicate
// the user forgot to set a real value. This prevents accidental deployment
// with insecure default credentials.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"YOUR_PASSWORD",
	"PLACEHOLDER",
	"TODO",
	"FIXME",
	"XXX",
	"EXAMPLE",
}

// containsPlaceholder checks if a value contains common placeholder patterns
func containsPlaceholder(value string) bool {
	upperValue := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upperValue, pattern) {
			return true
		}
	}
	return false
}
