package licensing

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
)

// KeyAlphabet is the fixed set of characters license keys are drawn from.
// Visually ambiguous glyphs (0/O/1/I) are excluded so keys stay typeable.
const KeyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	keyGroups   = 3
	keyGroupLen = 4

	// MaxKeyAttempts bounds the uniqueness retry loop. On exhaustion key
	// generation fails loudly with ErrKeyExhausted instead of risking a
	// duplicate key.
	MaxKeyAttempts = 8
)

// GenerateKey produces a candidate license key in XXXX-XXXX-XXXX format,
// each character drawn uniformly at random from KeyAlphabet.
func GenerateKey() (string, error) {
	randomBytes := make([]byte, keyGroups*keyGroupLen)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate license key: %w", err)
	}

	var b strings.Builder
	for i, rb := range randomBytes {
		if i > 0 && i%keyGroupLen == 0 {
			b.WriteByte('-')
		}
		// len(KeyAlphabet) is 32, so masking keeps the draw uniform
		b.WriteByte(KeyAlphabet[rb&31])
	}
	return b.String(), nil
}

// ValidKeyFormat checks that a key matches the XXXX-XXXX-XXXX format and
// uses only characters from KeyAlphabet.
func ValidKeyFormat(key string) bool {
	parts := strings.Split(key, "-")
	if len(parts) != keyGroups {
		return false
	}
	for _, part := range parts {
		if len(part) != keyGroupLen {
			return false
		}
		for i := 0; i < len(part); i++ {
			if !strings.ContainsRune(KeyAlphabet, rune(part[i])) {
				return false
			}
		}
	}
	return true
}

// ExistsFunc reports whether a candidate key is already taken.
type ExistsFunc func(ctx context.Context, key string) (bool, error)

// UniqueKey generates candidate keys until one passes the membership check,
// bounded at MaxKeyAttempts. A check failure aborts immediately with that
// error; exhausting the bound returns ErrKeyExhausted.
func UniqueKey(ctx context.Context, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < MaxKeyAttempts; attempt++ {
		key, err := GenerateKey()
		if err != nil {
			return "", err
		}

		taken, err := exists(ctx, key)
		if err != nil {
			return "", fmt.Errorf("uniqueness check failed: %w", err)
		}
		if !taken {
			return key, nil
		}
	}
	return "", ErrKeyExhausted
}
