package licensing

import (
	"context"
	"time"
)

// LicenseStore defines the interface for license persistence.
//
// Lookups that match no record return ErrLicenseNotFound so callers can
// distinguish a miss from a store failure.
type LicenseStore interface {
	CreateLicense(ctx context.Context, license *License) error

	GetLicense(ctx context.Context, id string) (*License, error)

	// GetActiveLicenseByEmail returns the most recently created license
	// with is_active=true for the given (normalized) email.
	GetActiveLicenseByEmail(ctx context.Context, email string) (*License, error)

	// GetLicenseByEmailAndKey matches both fields exactly regardless of
	// active state; lifecycle checks belong to the caller.
	GetLicenseByEmailAndKey(ctx context.Context, email, key string) (*License, error)

	// GetLicenseByPaymentID is the issuance idempotency lookup.
	GetLicenseByPaymentID(ctx context.Context, paymentID string) (*License, error)

	GetLicenseByCustomer(ctx context.Context, customerID string) (*License, error)

	// KeyExists is the membership check behind the uniqueness resolver.
	KeyExists(ctx context.Context, key string) (bool, error)

	// MarkActivated sets activated_at to the given time only if it is
	// still unset. Once set it is never overwritten or cleared.
	MarkActivated(ctx context.Context, id string, at time.Time) error

	// SetActive flips the administrative revocation flag.
	SetActive(ctx context.Context, id string, active bool) error

	// SetExpiry sets or clears the expiry timestamp.
	SetExpiry(ctx context.Context, id string, at *time.Time) error

	ListLicenses(ctx context.Context) ([]*License, error)
	Ping(ctx context.Context) error
	Close() error
}
