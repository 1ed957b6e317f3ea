package licensing

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// License represents a Twitch Ad Crusher Pro license
type License struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	Key         string            `json:"licenseKey"`
	IsActive    bool              `json:"isActive"`
	PaymentID   string            `json:"paymentId,omitempty"`   // Stripe payment intent ID
	CustomerID  string            `json:"customerId,omitempty"`  // Stripe customer ID
	CreatedAt   time.Time         `json:"createdAt"`
	ExpiresAt   *time.Time        `json:"expiresAt,omitempty"`   // nil means perpetual
	ActivatedAt *time.Time        `json:"activatedAt,omitempty"` // set once, on first successful access
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// GenerateLicenseID creates a unique license ID.
// Returns an error if random generation fails.
func GenerateLicenseID() (string, error) {
	randomBytes := make([]byte, 16)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate license ID: %w", err)
	}
	return "lic_" + hex.EncodeToString(randomBytes), nil
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeKey uppercases and trims a submitted license key.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// IsExpired checks if a license has expired
func (l *License) IsExpired() bool {
	if l.ExpiresAt == nil {
		return false // No expiration
	}
	return time.Now().After(*l.ExpiresAt)
}

// Activated reports whether the one-time activation timestamp has been set.
func (l *License) Activated() bool {
	return l.ActivatedAt != nil
}
