package licensing

import "errors"

var (
	// ErrMissingEmail is returned when a checkout event carries no customer email.
	ErrMissingEmail = errors.New("no customer email in checkout event")

	// ErrLicenseNotFound is returned by store lookups that match no record.
	ErrLicenseNotFound = errors.New("license not found")

	// ErrKeyExhausted is returned when the uniqueness retry bound is hit
	// without finding a collision-free key. Callers must treat it as a
	// persistence-class failure so the payment provider redelivers the event.
	ErrKeyExhausted = errors.New("license key generation attempts exhausted")
)
