package licensing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// Product is the metadata tag stamped on every issued license.
const Product = "twitch-ad-crusher-pro"

// Rejection reasons surfaced to clients. Each lifecycle check has its own
// reason so failures stay distinguishable in logs.
const (
	ReasonNoMatch     = "Invalid license key or email"
	ReasonDeactivated = "License has been deactivated"
	ReasonExpired     = "License has expired"
)

// Checkout carries the payment-completed event fields the issuance
// workflow consumes.
type Checkout struct {
	Email      string
	PaymentID  string
	CustomerID string
	Amount     int64
	Currency   string
}

// LookupResult is the outcome of a lookup-by-email request.
type LookupResult struct {
	Found   bool
	Reason  string // set when not found for a business reason, e.g. expiry
	License *License
}

// ValidationResult is the verdict on a submitted (email, key) pair.
type ValidationResult struct {
	Valid    bool
	Reason   string
	License  *License
	Features FeatureSet
}

// Service implements license issuance, lookup, and validation on top of a
// LicenseStore. Collaborators are injected so the core runs without network
// access in tests.
type Service struct {
	store  LicenseStore
	mailer Mailer
	logger *slog.Logger
}

// NewService creates a license service
func NewService(store LicenseStore, mailer Mailer, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		mailer: mailer,
		logger: logger,
	}
}

// IssueLicense mints a license for a completed checkout. Issuance is
// idempotent on the payment ID: a redelivered event returns the existing
// license with created=false and writes nothing.
func (s *Service) IssueLicense(ctx context.Context, checkout Checkout) (license *License, created bool, err error) {
	email := NormalizeEmail(checkout.Email)
	if email == "" {
		return nil, false, ErrMissingEmail
	}

	if checkout.PaymentID != "" {
		existing, err := s.store.GetLicenseByPaymentID(ctx, checkout.PaymentID)
		if err == nil {
			s.logger.Info("license already issued for payment",
				"payment_id", checkout.PaymentID,
				"email", existing.Email,
			)
			return existing, false, nil
		}
		if !errors.Is(err, ErrLicenseNotFound) {
			return nil, false, fmt.Errorf("idempotency lookup failed: %w", err)
		}
	}

	key, err := UniqueKey(ctx, s.store.KeyExists)
	if err != nil {
		return nil, false, err
	}

	id, err := GenerateLicenseID()
	if err != nil {
		return nil, false, err
	}

	license = &License{
		ID:         id,
		Email:      email,
		Key:        key,
		IsActive:   true,
		PaymentID:  checkout.PaymentID,
		CustomerID: checkout.CustomerID,
		CreatedAt:  time.Now().UTC(),
		Metadata: map[string]string{
			"product":  Product,
			"amount":   strconv.FormatInt(checkout.Amount, 10),
			"currency": checkout.Currency,
		},
	}

	if err := s.store.CreateLicense(ctx, license); err != nil {
		return nil, false, fmt.Errorf("failed to persist license: %w", err)
	}

	s.logger.Info("license created", "email", license.Email, "payment_id", license.PaymentID)

	// Out-of-band delivery: a mailer failure never fails the issuance.
	if err := s.mailer.SendLicense(license); err != nil {
		s.logger.Error("failed to send license email", "email", license.Email, "error", err)
	}

	return license, true, nil
}

// Lookup returns the active, non-expired license for an email, marking
// first activation as a one-time side effect.
func (s *Service) Lookup(ctx context.Context, email string) (*LookupResult, error) {
	email = NormalizeEmail(email)

	license, err := s.store.GetActiveLicenseByEmail(ctx, email)
	if errors.Is(err, ErrLicenseNotFound) {
		return &LookupResult{Found: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("license lookup failed: %w", err)
	}

	// An expired license must never be reported as found.
	if license.IsExpired() {
		return &LookupResult{Found: false, Reason: ReasonExpired}, nil
	}

	if err := s.markActivated(ctx, license); err != nil {
		return nil, err
	}

	return &LookupResult{Found: true, License: license}, nil
}

// Validate checks a submitted (email, key) pair. Checks run in order:
// existence, active, not expired; each failure carries a distinct reason.
func (s *Service) Validate(ctx context.Context, email, key string) (*ValidationResult, error) {
	email = NormalizeEmail(email)
	key = NormalizeKey(key)

	license, err := s.store.GetLicenseByEmailAndKey(ctx, email, key)
	if errors.Is(err, ErrLicenseNotFound) {
		s.logger.Info("license validation failed", "reason", "no_match", "email", email)
		return &ValidationResult{Valid: false, Reason: ReasonNoMatch}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("license validation failed: %w", err)
	}

	if !license.IsActive {
		s.logger.Info("license validation failed", "reason", "deactivated", "email", email)
		return &ValidationResult{Valid: false, Reason: ReasonDeactivated}, nil
	}

	if license.IsExpired() {
		s.logger.Info("license validation failed", "reason", "expired", "email", email)
		return &ValidationResult{Valid: false, Reason: ReasonExpired}, nil
	}

	if err := s.markActivated(ctx, license); err != nil {
		return nil, err
	}

	s.logger.Info("license validated", "email", email)

	return &ValidationResult{
		Valid:    true,
		License:  license,
		Features: ProFeatures(),
	}, nil
}

// SetActiveByCustomer flips the revocation flag on the license belonging to
// a Stripe customer. Driven by subscription lifecycle events.
func (s *Service) SetActiveByCustomer(ctx context.Context, customerID string, active bool) error {
	license, err := s.store.GetLicenseByCustomer(ctx, customerID)
	if err != nil {
		return err
	}

	if license.IsActive == active {
		return nil
	}

	if err := s.store.SetActive(ctx, license.ID, active); err != nil {
		return fmt.Errorf("failed to update license state: %w", err)
	}

	s.logger.Info("license state changed", "email", license.Email, "active", active)
	return nil
}

// markActivated records the first successful access. The store guarantees
// the timestamp is set at most once.
func (s *Service) markActivated(ctx context.Context, license *License) error {
	if license.Activated() {
		return nil
	}

	now := time.Now().UTC()
	if err := s.store.MarkActivated(ctx, license.ID, now); err != nil {
		return fmt.Errorf("failed to mark activation: %w", err)
	}
	license.ActivatedAt = &now

	s.logger.Info("license activated", "email", license.Email)
	return nil
}
