// Package api is the HTTP transport for the license server: the two
// extension-facing endpoints, the Stripe webhook consumer, and the
// operational endpoints.
package api

import (
	"log/slog"
	"net/http"

	"github.com/goldstargamingtv-droid/twitch-ad-crusher/pkg/health"
	"github.com/goldstargamingtv-droid/twitch-ad-crusher/pkg/licensing"
	"github.com/goldstargamingtv-droid/twitch-ad-crusher/pkg/metrics"
)

// Server handles HTTP requests for license lookup, validation, and issuance.
type Server struct {
	svc           *licensing.Service
	store         licensing.LicenseStore
	webhookSecret string
	adminToken    string
	logger        *slog.Logger
	metrics       *metrics.Registry
	health        *health.Checker
}

// NewServer creates a new API server
func NewServer(svc *licensing.Service, store licensing.LicenseStore, webhookSecret, adminToken string, logger *slog.Logger, reg *metrics.Registry) *Server {
	hc := health.NewChecker()
	hc.RegisterCheck("database", health.PingFunc("database", store.Ping))

	return &Server{
		svc:           svc,
		store:         store,
		webhookSecret: webhookSecret,
		adminToken:    adminToken,
		logger:        logger,
		metrics:       reg,
		health:        hc,
	}
}

// Routes builds the full handler chain
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.requestIDMiddleware(s.metricsMiddleware(mux))
}

// RegisterRoutes registers all routes with the provided ServeMux
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Extension-facing endpoints: POST-only, permissive CORS
	mux.Handle("/check-email", s.clientEndpoint(s.handleCheckEmail))
	mux.Handle("/validate", s.clientEndpoint(s.handleValidate))

	// Payment provider webhook
	mux.HandleFunc("/stripe/webhook", s.handleStripeWebhook)

	// Operational endpoints
	mux.HandleFunc("/health", s.health.HTTPHandler())
	mux.Handle("/metrics", s.metrics.Handler())

	// Admin endpoints
	mux.Handle("/licenses", s.requireAdmin(http.HandlerFunc(s.handleListLicenses)))
}
