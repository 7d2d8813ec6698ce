// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// Router assembles the HTTP surface: handlers plus the middleware stack.
type Router struct {
	handler     *Handler
	authHandler *AuthHandler // nil in auth mode "none"
	auth        *AuthManager // nil in auth mode "none"
	mw          *ChiMiddleware
}

// NewRouter creates the router. auth and authHandler are nil when auth
// mode is "none"; every /api/v1 route is then unprotected.
func NewRouter(handler *Handler, auth *AuthManager, mw *ChiMiddleware) *Router {
	r := &Router{handler: handler, auth: auth, mw: mw}
	if auth != nil {
		r.authHandler = NewAuthHandler(auth, handler.validate)
	}
	return r
}

// Setup builds the chi handler tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global stack, applied to every route. CORS stays global so OPTIONS
	// preflights are answered before rate limits and auth.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.mw.CORS())

	// Probes: permissive limits for monitor poll loops, no auth.
	r.Group(func(r chi.Router) {
		r.Use(router.mw.RateLimitCustom(RateLimitHealth))
		r.Get("/health", router.handler.Health)
		r.Get("/ready", router.handler.Ready)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
	))

	// Login: strictest rate limit, obviously unauthenticated.
	if router.authHandler != nil {
		r.Route("/api/v1/auth", func(r chi.Router) {
			r.Use(SecurityHeaders())
			r.With(router.mw.RateLimitCustom(RateLimitLogin)).Post("/login", router.authHandler.Login)
		})
	}

	// Sync control: expensive operations, tight limit.
	r.Route("/api/v1/sync", func(r chi.Router) {
		r.Use(router.mw.RateLimitCustom(RateLimitSync))
		r.Use(SecurityHeaders())
		r.Use(RequestLogger())
		r.Use(router.auth.Authenticate())

		r.Post("/run", router.handler.SyncRun)
		r.Get("/status", router.handler.SyncStatus)
		r.Post("/reset", router.handler.SyncReset)
	})

	// Connection management and leads: default limit.
	r.Route("/api/v1/connections", func(r chi.Router) {
		r.Use(router.mw.RateLimit())
		r.Use(SecurityHeaders())
		r.Use(RequestLogger())
		r.Use(router.auth.Authenticate())

		r.Get("/", router.handler.ConnectionsList)
		r.Post("/", router.handler.ConnectionsCreate)
		r.Put("/active", router.handler.ConnectionsSetActive)
		r.Delete("/", router.handler.ConnectionsDelete)
	})

	r.Route("/api/v1/leads", func(r chi.Router) {
		r.Use(router.mw.RateLimit())
		r.Use(SecurityHeaders())
		r.Use(RequestLogger())
		r.Use(router.auth.Authenticate())

		r.Get("/", router.handler.LeadsList)
	})

	// Analytics: read-heavy and cached, permissive limit.
	r.Route("/api/v1/analytics", func(r chi.Router) {
		r.Use(router.mw.RateLimitCustom(RateLimitAnalytics))
		r.Use(SecurityHeaders())
		r.Use(RequestLogger())
		r.Use(router.auth.Authenticate())

		r.Get("/summary", router.handler.AnalyticsSummary)
		r.Get("/calls-by-day", router.handler.AnalyticsCallsByDay)
		r.Get("/dispositions", router.handler.AnalyticsDispositions)
		r.Get("/top-contacts", router.handler.AnalyticsTopContacts)
	})

	return r
}
