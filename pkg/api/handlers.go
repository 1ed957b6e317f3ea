package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/goldstargamingtv-droid/twitch-ad-crusher/pkg/licensing"
	"github.com/goldstargamingtv-droid/twitch-ad-crusher/pkg/stripe"
)

// maxWebhookBody bounds the raw webhook payload read for signature
// verification. Stripe events are a few KB.
const maxWebhookBody = 256 * 1024

var validate = validator.New()

type checkEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type checkEmailResponse struct {
	Found      bool   `json:"found"`
	LicenseKey string `json:"licenseKey,omitempty"`
	Email      string `json:"email,omitempty"`
	Error      string `json:"error,omitempty"`
}

type validateRequest struct {
	Email      string `json:"email" validate:"required,email"`
	LicenseKey string `json:"licenseKey" validate:"required"`
}

type licenseInfo struct {
	Email     string               `json:"email"`
	CreatedAt time.Time            `json:"createdAt"`
	ExpiresAt *time.Time           `json:"expiresAt,omitempty"`
	Features  licensing.FeatureSet `json:"features"`
}

type validateResponse struct {
	Valid   bool         `json:"valid"`
	License *licenseInfo `json:"license,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// handleCheckEmail looks up an active license by email. Used by the
// extension for auto-unlock polling after purchase.
func (s *Server) handleCheckEmail(w http.ResponseWriter, r *http.Request) {
	var req checkEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, checkEmailResponse{Error: "Invalid request"})
		return
	}

	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, checkEmailResponse{Error: validationMessage(err, "Email is required")})
		return
	}

	result, err := s.svc.Lookup(r.Context(), req.Email)
	if err != nil {
		s.logger.Error("check-email failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, checkEmailResponse{Error: "Server error"})
		return
	}

	if !result.Found {
		s.metrics.LookupsTotal.WithLabelValues("not_found").Inc()
		writeJSON(w, http.StatusOK, checkEmailResponse{Found: false, Error: result.Reason})
		return
	}

	s.metrics.LookupsTotal.WithLabelValues("found").Inc()
	writeJSON(w, http.StatusOK, checkEmailResponse{
		Found:      true,
		LicenseKey: result.License.Key,
		Email:      result.License.Email,
	})
}

// handleValidate checks a submitted (email, key) pair before the extension
// unlocks paid features.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, validateResponse{Error: "Invalid request"})
		return
	}

	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, validateResponse{Error: validationMessage(err, "Email and license key are required")})
		return
	}

	result, err := s.svc.Validate(r.Context(), req.Email, req.LicenseKey)
	if err != nil {
		s.logger.Error("validate failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, validateResponse{Error: "Server error"})
		return
	}

	if !result.Valid {
		s.metrics.ValidationsTotal.WithLabelValues("invalid", reasonLabel(result.Reason)).Inc()
		writeJSON(w, http.StatusOK, validateResponse{Valid: false, Error: result.Reason})
		return
	}

	s.metrics.ValidationsTotal.WithLabelValues("valid", "none").Inc()
	writeJSON(w, http.StatusOK, validateResponse{
		Valid: true,
		License: &licenseInfo{
			Email:     result.License.Email,
			CreatedAt: result.License.CreatedAt,
			ExpiresAt: result.License.ExpiresAt,
			Features:  result.Features,
		},
	})
}

// handleStripeWebhook consumes signed payment events. The signature is
// verified against the raw body before anything else happens; an invalid
// signature is rejected without touching the store.
func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Error reading request"})
		return
	}

	event, err := stripe.ConstructEvent(body, r.Header.Get(stripe.SignatureHeader), s.webhookSecret)
	if err != nil {
		// Security boundary: do not log the payload.
		s.logger.Error("webhook signature verification failed", "error", err)
		s.metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Webhook signature verification failed"})
		return
	}

	s.logger.Info("received stripe webhook", "type", event.Type, "event_id", event.ID)

	switch event.Type {
	case stripe.EventCheckoutCompleted:
		s.handleCheckoutCompleted(w, r, event)
		return
	case stripe.EventSubscriptionUpdated:
		s.handleSubscriptionEvent(w, r, event, false)
		return
	case stripe.EventSubscriptionDeleted:
		s.handleSubscriptionEvent(w, r, event, true)
		return
	default:
		s.logger.Info("unhandled event type", "type", event.Type)
		s.metrics.WebhookEvents.WithLabelValues(event.Type, "ignored").Inc()
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// handleCheckoutCompleted issues a license for a completed purchase
func (s *Server) handleCheckoutCompleted(w http.ResponseWriter, r *http.Request, event *stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		s.logger.Error("error parsing checkout session", "error", err)
		s.metrics.WebhookEvents.WithLabelValues(event.Type, "malformed").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed event payload"})
		return
	}

	_, created, err := s.svc.IssueLicense(r.Context(), licensing.Checkout{
		Email:      session.Email(),
		PaymentID:  session.PaymentIntent,
		CustomerID: session.Customer,
		Amount:     session.AmountTotal,
		Currency:   session.Currency,
	})

	switch {
	case errors.Is(err, licensing.ErrMissingEmail):
		s.logger.Error("no email found in checkout session", "event_id", event.ID)
		s.metrics.WebhookEvents.WithLabelValues(event.Type, "malformed").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No email found"})
		return
	case err != nil:
		// Persistence-class failure: report it so Stripe redelivers.
		s.logger.Error("error creating license", "error", err)
		s.metrics.WebhookEvents.WithLabelValues(event.Type, "failed").Inc()
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to create license"})
		return
	}

	if created {
		s.metrics.LicensesIssued.Inc()
		s.metrics.WebhookEvents.WithLabelValues(event.Type, "issued").Inc()
	} else {
		s.metrics.WebhookEvents.WithLabelValues(event.Type, "duplicate").Inc()
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// handleSubscriptionEvent flips license state on subscription lifecycle
// changes. A missing license is acknowledged, not failed: the customer may
// never have completed checkout.
func (s *Server) handleSubscriptionEvent(w http.ResponseWriter, r *http.Request, event *stripe.Event, deleted bool) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		s.logger.Error("error parsing subscription", "error", err)
		s.metrics.WebhookEvents.WithLabelValues(event.Type, "malformed").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed event payload"})
		return
	}

	active := !deleted && sub.Status == "active"

	err := s.svc.SetActiveByCustomer(r.Context(), sub.Customer, active)
	switch {
	case errors.Is(err, licensing.ErrLicenseNotFound):
		s.logger.Warn("license not found for customer", "customer_id", sub.Customer)
		s.metrics.WebhookEvents.WithLabelValues(event.Type, "ignored").Inc()
	case err != nil:
		s.logger.Error("error updating license", "error", err)
		s.metrics.WebhookEvents.WithLabelValues(event.Type, "failed").Inc()
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to update license"})
		return
	default:
		s.metrics.WebhookEvents.WithLabelValues(event.Type, "updated").Inc()
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// handleListLicenses lists all licenses (admin endpoint)
func (s *Server) handleListLicenses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	licenses, err := s.store.ListLicenses(r.Context())
	if err != nil {
		s.logger.Error("error listing licenses", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"licenses": licenses,
		"count":    len(licenses),
	})
}

// validationMessage maps a validator failure to the contractual client
// message, with a clearer message for malformed emails.
func validationMessage(err error, requiredMsg string) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, ve := range verrs {
			if ve.Tag() == "email" {
				return "Invalid email address"
			}
		}
	}
	return requiredMsg
}

// reasonLabel maps client-facing rejection reasons to low-cardinality
// metric labels.
func reasonLabel(reason string) string {
	switch reason {
	case licensing.ReasonNoMatch:
		return "no_match"
	case licensing.ReasonDeactivated:
		return "deactivated"
	case licensing.ReasonExpired:
		return "expired"
	default:
		return "other"
	}
}
