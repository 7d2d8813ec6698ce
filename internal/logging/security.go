// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package logging

import (
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// SecurityLogger provides audit logging for authentication events with
// automatic credential masking.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates an audit logger tagged component=auth.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{
		logger: With().Str("component", "auth").Logger(),
	}
}

// LogLoginSuccess records a successful dashboard login.
func (l *SecurityLogger) LogLoginSuccess(username, ip string) {
	l.logger.Info().
		Str("event", "login_success").
		Str("username", SanitizeUsername(username)).
		Str("ip", ip).
		Msg("login succeeded")
}

// LogLoginFailure records a failed dashboard login attempt.
func (l *SecurityLogger) LogLoginFailure(username, ip, reason string) {
	l.logger.Warn().
		Str("event", "login_failure").
		Str("username", SanitizeUsername(username)).
		Str("ip", ip).
		Str("reason", reason).
		Msg("login failed")
}

// credentialParams are query parameter names whose values must never reach
// the logs. The platform clients log every request URL, so this list covers
// both remote APIs' credential-carrying parameters.
var credentialParams = map[string]bool{
	"api_key":       true,
	"apikey":        true,
	"access_token":  true,
	"token":         true,
	"authorization": true,
	"client_secret": true,
}

// SanitizeURL masks credential-carrying query parameters in a request URL
// before it is logged. Unparseable input is returned as-is minus its query
// string.
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			return raw[:i] + "?***"
		}
		return raw
	}

	q := u.Query()
	changed := false
	for key := range q {
		if credentialParams[strings.ToLower(key)] {
			q.Set(key, "***")
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// SanitizeAPIKey masks a platform credential, keeping only the first and
// last 4 characters.
// Example: "pb_live_8f3a9c2e71d40b65" -> "pb_l...0b65"
func SanitizeAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 12 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// SanitizeUsername masks a username, keeping the first 2 characters.
// Example: "johndoe" -> "jo***"
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}
	if len(username) <= 2 {
		return "***"
	}
	return username[:2] + "***"
}

// SanitizeEmail masks a contact email's local part.
// Example: "jane.roe@example.com" -> "ja***@example.com"
func SanitizeEmail(email string) string {
	if email == "" {
		return ""
	}

	atIndex := strings.Index(email, "@")
	if atIndex <= 0 {
		return "***"
	}

	localPart := email[:atIndex]
	domain := email[atIndex:]

	if len(localPart) <= 2 {
		return "***" + domain
	}
	return localPart[:2] + "***" + domain
}
