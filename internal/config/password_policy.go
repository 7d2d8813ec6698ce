// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// PasswordPolicy defines requirements for the admin credential. The dashboard
// has exactly one configured login, so the policy can afford to be strict.
type PasswordPolicy struct {
	// MinLength is the minimum password length.
	MinLength int

	// RequireUppercase requires at least one uppercase letter
	RequireUppercase bool

	// RequireLowercase requires at least one lowercase letter
	RequireLowercase bool

	// RequireDigit requires at least one digit
	RequireDigit bool

	// MaxConsecutiveRepeats is the maximum allowed consecutive repeated characters (0 = disabled)
	MaxConsecutiveRepeats int

	// ForbidCommonPasswords blocks common/breached passwords
	ForbidCommonPasswords bool

	// ForbidUsernameSimilarity prevents passwords containing the username
	ForbidUsernameSimilarity bool
}

// DefaultPasswordPolicy returns the policy applied to the configured admin password.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:                12,
		RequireUppercase:         true,
		RequireLowercase:         true,
		RequireDigit:             true,
		MaxConsecutiveRepeats:    3,
		ForbidCommonPasswords:    true,
		ForbidUsernameSimilarity: true,
	}
}

// Validate checks a password against the policy and returns every violation.
func (p PasswordPolicy) Validate(password, username string) []string {
	var violations []string

	if len(password) < p.MinLength {
		violations = append(violations,
			fmt.Sprintf("password must be at least %d characters (got %d)", p.MinLength, len(password)))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if p.RequireUppercase && !hasUpper {
		violations = append(violations, "password must contain at least one uppercase letter")
	}
	if p.RequireLowercase && !hasLower {
		violations = append(violations, "password must contain at least one lowercase letter")
	}
	if p.RequireDigit && !hasDigit {
		violations = append(violations, "password must contain at least one digit")
	}

	if p.MaxConsecutiveRepeats > 0 && maxConsecutiveRepeats(password) > p.MaxConsecutiveRepeats {
		violations = append(violations,
			fmt.Sprintf("password cannot have more than %d consecutive repeated characters", p.MaxConsecutiveRepeats))
	}

	if p.ForbidCommonPasswords && isCommonPassword(password) {
		violations = append(violations, "password is too common and easily guessable")
	}

	if p.ForbidUsernameSimilarity && username != "" && isSimilarToUsername(password, username) {
		violations = append(violations, "password is too similar to username")
	}

	return violations
}

// ValidateWithError is a convenience method that returns an error if validation fails.
func (p PasswordPolicy) ValidateWithError(password, username string) error {
	violations := p.Validate(password, username)
	if len(violations) > 0 {
		return errors.New(strings.Join(violations, "; "))
	}
	return nil
}

// maxConsecutiveRepeats returns the maximum number of consecutive repeated characters.
func maxConsecutiveRepeats(password string) int {
	if len(password) == 0 {
		return 0
	}
	maxRepeats := 1
	currentRepeats := 1
	var lastRune rune
	for i, r := range password {
		if i > 0 && r == lastRune {
			currentRepeats++
			if currentRepeats > maxRepeats {
				maxRepeats = currentRepeats
			}
		} else {
			currentRepeats = 1
		}
		lastRune = r
	}
	return maxRepeats
}

// isCommonPassword checks if the password is in a list of common passwords,
// including product-adjacent terms a sales team might reach for.
func isCommonPassword(password string) bool {
	lower := strings.ToLower(password)
	commonPasswords := map[string]bool{
		"123456":        true,
		"password":      true,
		"123456789":     true,
		"12345678":      true,
		"12345":         true,
		"1234567":       true,
		"1234567890":    true,
		"qwerty":        true,
		"abc123":        true,
		"password1":     true,
		"password123":   true,
		"admin":         true,
		"admin123":      true,
		"letmein":       true,
		"welcome":       true,
		"welcome1":      true,
		"welcome123":    true,
		"qwerty123":     true,
		"passw0rd":      true,
		"p@ssw0rd":      true,
		"p@ssword":      true,
		"pa55word":      true,
		"password1!":    true,
		"iloveyou":      true,
		"trustno1":      true,
		"111111":        true,
		"000000":        true,
		"654321":        true,
		"123123":        true,
		"123321":        true,
		"11111111":      true,
		"qwertyuiop":    true,
		"asdfghjkl":     true,
		"zxcvbnm":       true,
		"1qaz2wsx":      true,
		"qazwsx":        true,
		"abcd1234":      true,
		"1q2w3e4r":      true,
		"987654321":     true,
		"changeme":      true,
		"default":       true,
		"test":          true,
		"test123":       true,
		"testing":       true,
		"testing123":    true,
		"guest":         true,
		"root":          true,
		"toor":          true,
		"pass":          true,
		"temp":          true,
		"server":        true,
		"database":      true,
		"administrator": true,
		"sysadmin":      true,
		"prospectus":    true,
		"phoneburner":   true,
		"airtable":      true,
		"sales":         true,
		"sales123":      true,
		"dialer":        true,
		"outbound":      true,
		"pipeline":      true,
		"crm":           true,
		"admin@123":     true,
		"root123":       true,
		"server123":     true,
		"password@123":  true,
	}
	return commonPasswords[lower]
}

// isSimilarToUsername checks if the password is too similar to the username.
func isSimilarToUsername(password, username string) bool {
	lowerPass := strings.ToLower(password)
	lowerUser := strings.ToLower(username)

	// Direct match or substring
	if strings.Contains(lowerPass, lowerUser) || strings.Contains(lowerUser, lowerPass) {
		return true
	}

	// Reverse of username
	if strings.Contains(lowerPass, reverseString(lowerUser)) {
		return true
	}

	// Username with common leetspeak substitutions
	substitutions := map[rune]rune{
		'a': '@', 'e': '3', 'i': '1', 'o': '0', 's': '$', 't': '7',
	}
	substituted := strings.Map(func(r rune) rune {
		if sub, ok := substitutions[r]; ok {
			return sub
		}
		return r
	}, lowerUser)
	return strings.Contains(lowerPass, substituted)
}

// reverseString reverses a string.
func reverseString(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
