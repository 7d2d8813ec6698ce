// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/outboundlabs/prospectus/internal/config"
	"github.com/outboundlabs/prospectus/internal/logging"
)

// Claims are the JWT claims issued to the dashboard admin.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AuthManager issues and validates dashboard tokens against the single
// configured admin credential. The password is bcrypt-hashed once at
// startup so login never handles the plaintext beyond the compare.
//
// With AuthMode "none" the manager is nil and the Authenticate middleware
// passes everything through; main logs a prominent warning in that mode.
type AuthManager struct {
	secret        []byte
	timeout       time.Duration
	adminUsername string
	adminHash     []byte
	security      *logging.SecurityLogger
}

// NewAuthManager builds the manager from security config. It enforces the
// minimum secret and password lengths up front so a misconfigured
// deployment fails at startup, not at first login.
func NewAuthManager(cfg *config.SecurityConfig) (*AuthManager, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if cfg.AdminUsername == "" {
		return nil, fmt.Errorf("admin username is required")
	}
	if len(cfg.AdminPassword) < 8 {
		return nil, fmt.Errorf("admin password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), 12)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}

	return &AuthManager{
		secret:        []byte(cfg.JWTSecret),
		timeout:       cfg.SessionTimeout,
		adminUsername: cfg.AdminUsername,
		adminHash:     hash,
		security:      logging.NewSecurityLogger(),
	}, nil
}

// Login validates the credential pair and returns a signed token. bcrypt's
// compare is constant-time; the username check mirrors that by always
// running the hash comparison even on a username mismatch.
func (m *AuthManager) Login(username, password, remoteIP string) (string, error) {
	usernameOK := username == m.adminUsername
	passwordErr := bcrypt.CompareHashAndPassword(m.adminHash, []byte(password))

	if !usernameOK || passwordErr != nil {
		m.security.LogLoginFailure(username, remoteIP, "invalid credentials")
		return "", fmt.Errorf("invalid username or password")
	}

	token, err := m.generateToken(username)
	if err != nil {
		return "", err
	}
	m.security.LogLoginSuccess(username, remoteIP)
	return token, nil
}

func (m *AuthManager) generateToken(username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: username,
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.timeout)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a token string, enforcing the HS256
// signing method.
func (m *AuthManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// Authenticate is the chi middleware guarding /api/v1. A nil manager
// (auth mode "none") passes every request through.
func (m *AuthManager) Authenticate() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				NewResponseWriter(w).Error(http.StatusUnauthorized, ErrCodeAuthentication,
					"missing or malformed authorization header")
				return
			}

			if _, err := m.ValidateToken(strings.TrimPrefix(header, "Bearer ")); err != nil {
				NewResponseWriter(w).Error(http.StatusUnauthorized, ErrCodeAuthentication,
					"invalid or expired token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
