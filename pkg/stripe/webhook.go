// Package stripe implements the minimal slice of the Stripe webhook
// protocol the license server consumes: signature verification with the
// shared endpoint secret and decoding of the event envelope.
package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Event types the license server reacts to.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// DefaultTolerance is how far a signed timestamp may drift from now before
// the signature is rejected as a replay.
const DefaultTolerance = 5 * time.Minute

// SignatureHeader is the header Stripe signs webhook deliveries with.
const SignatureHeader = "Stripe-Signature"

// ErrInvalidSignature is returned for any signature verification failure.
// The cause is deliberately not distinguished to callers.
var ErrInvalidSignature = errors.New("webhook signature verification failed")

// Event is the webhook envelope.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData wraps the event payload object.
type EventData struct {
	Object json.RawMessage `json:"object"`
}

// CheckoutSession is the checkout.session.completed payload object.
type CheckoutSession struct {
	CustomerEmail   string            `json:"customer_email"`
	CustomerDetails *CustomerDetails  `json:"customer_details"`
	Customer        string            `json:"customer"`
	PaymentIntent   string            `json:"payment_intent"`
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency"`
	Metadata        map[string]string `json:"metadata"`
}

// CustomerDetails carries the buyer details block of a checkout session.
type CustomerDetails struct {
	Email string `json:"email"`
}

// Email returns the purchaser email, preferring customer_details.
func (s *CheckoutSession) Email() string {
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		return s.CustomerDetails.Email
	}
	return s.CustomerEmail
}

// Subscription is the customer.subscription.* payload object.
type Subscription struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Status   string `json:"status"`
}

// ConstructEvent verifies the signature header against the raw payload and,
// only on success, decodes the event envelope. Payload contents are never
// trusted before verification.
func ConstructEvent(payload []byte, header, secret string) (*Event, error) {
	if err := VerifySignature(payload, header, secret, DefaultTolerance, time.Now()); err != nil {
		return nil, err
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to parse webhook event: %w", err)
	}
	return &event, nil
}

// VerifySignature checks a Stripe-Signature header (t=...,v1=... scheme)
// against the raw payload. The signed payload is "<t>.<body>"; any v1
// candidate may match. A zero tolerance disables the timestamp check.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	if tolerance > 0 {
		ts := time.Unix(timestamp, 0)
		if ts.Before(now.Add(-tolerance)) || ts.After(now.Add(tolerance)) {
			return ErrInvalidSignature
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range signatures {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, decoded) {
			return nil
		}
	}

	return ErrInvalidSignature
}

// SignPayload produces a Stripe-Signature header value for the payload,
// for constructing valid deliveries in tests.
func SignPayload(payload []byte, secret string, at time.Time) string {
	timestamp := strconv.FormatInt(at.Unix(), 10)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)

	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

// parseSignatureHeader splits "t=<unix>,v1=<hex>[,v1=<hex>...]".
func parseSignatureHeader(header string) (int64, []string, error) {
	if header == "" {
		return 0, nil, ErrInvalidSignature
	}

	var timestamp int64 = -1
	var signatures []string

	for _, pair := range strings.Split(header, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			continue
		}
		switch parts[0] {
		case "t":
			ts, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return 0, nil, ErrInvalidSignature
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, parts[1])
		}
	}

	if timestamp < 0 || len(signatures) == 0 {
		return 0, nil, ErrInvalidSignature
	}
	return timestamp, signatures, nil
}
