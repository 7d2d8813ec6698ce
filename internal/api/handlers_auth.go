// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package api

import (
	"net"
	"net/http"

	"github.com/goccy/go-json"
)

// LoginRequest is the dashboard login payload.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// AuthHandler serves the login endpoint. It is separate from Handler so
// the router can wire it up only when JWT mode is enabled.
type AuthHandler struct {
	manager  *AuthManager
	validate requestValidator
}

type requestValidator interface {
	Struct(s interface{}) error
}

// NewAuthHandler creates the login handler.
func NewAuthHandler(manager *AuthManager, validate requestValidator) *AuthHandler {
	return &AuthHandler{manager: manager, validate: validate}
}

// Login handles POST /api/v1/auth/login.
//
// @Summary Dashboard login
// @Description Validates the admin credential and returns a JWT bearer token.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} models.APIResponse{data=LoginResponse}
// @Failure 400 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.Error(http.StatusBadRequest, ErrCodeValidation, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		rw.Error(http.StatusBadRequest, ErrCodeValidation, "username and password are required")
		return
	}

	token, err := h.manager.Login(req.Username, req.Password, remoteIP(r))
	if err != nil {
		rw.Error(http.StatusUnauthorized, ErrCodeAuthentication, "invalid username or password")
		return
	}

	rw.Success(LoginResponse{Token: token, Username: req.Username, Role: "admin"})
}

// remoteIP extracts the client IP for the security audit log. RealIP
// middleware has already folded X-Forwarded-For into RemoteAddr.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
