package licensing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	if !ValidKeyFormat(key) {
		t.Errorf("Generated key failed format validation: %s", key)
	}

	if len(key) != keyGroups*keyGroupLen+keyGroups-1 {
		t.Errorf("Key has wrong length: %s", key)
	}
}

func TestGenerateKeyAlphabet(t *testing.T) {
	// The alphabet excludes 0/O/1/I; generated keys must never contain them
	for i := 0; i < 200; i++ {
		key, err := GenerateKey()
		if err != nil {
			t.Fatalf("GenerateKey() error = %v", err)
		}
		if strings.ContainsAny(key, "0O1I") {
			t.Fatalf("Key contains ambiguous character: %s", key)
		}
	}
}

func TestValidKeyFormat(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		valid bool
	}{
		{"Valid key", "ABCD-EFGH-JKLM", true},
		{"Valid digits", "2345-6789-WXYZ", true},
		{"Lowercase", "abcd-efgh-jklm", false},
		{"Ambiguous zero", "ABC0-EFGH-JKLM", false},
		{"Ambiguous letter O", "ABCO-EFGH-JKLM", false},
		{"Too few groups", "ABCD-EFGH", false},
		{"Too many groups", "ABCD-EFGH-JKLM-NPQR", false},
		{"Short group", "ABC-EFGH-JKLM", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidKeyFormat(tt.key); got != tt.valid {
				t.Errorf("ValidKeyFormat(%s) = %v, want %v", tt.key, got, tt.valid)
			}
		})
	}
}

// TestKeyFormatProperty verifies key format invariants hold for every
// generated key, not just a fixed sample.
func TestKeyFormatProperty(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("generated keys always pass format validation", prop.ForAll(
		func(_ uint64) bool {
			key, err := GenerateKey()
			if err != nil {
				return false
			}
			return ValidKeyFormat(key)
		},
		gen.UInt64(),
	))

	properties.Property("every key character comes from the fixed alphabet", prop.ForAll(
		func(_ uint64) bool {
			key, err := GenerateKey()
			if err != nil {
				return false
			}
			for _, c := range strings.ReplaceAll(key, "-", "") {
				if !strings.ContainsRune(KeyAlphabet, c) {
					return false
				}
			}
			return true
		},
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

func TestUniqueKeyFirstAttempt(t *testing.T) {
	calls := 0
	exists := func(_ context.Context, _ string) (bool, error) {
		calls++
		return false, nil
	}

	key, err := UniqueKey(context.Background(), exists)
	if err != nil {
		t.Fatalf("UniqueKey() error = %v", err)
	}
	if !ValidKeyFormat(key) {
		t.Errorf("UniqueKey() returned malformed key: %s", key)
	}
	if calls != 1 {
		t.Errorf("exists called %d times, want 1", calls)
	}
}

func TestUniqueKeyRetriesOnCollision(t *testing.T) {
	// First two candidates collide, the third is free
	calls := 0
	exists := func(_ context.Context, _ string) (bool, error) {
		calls++
		return calls <= 2, nil
	}

	key, err := UniqueKey(context.Background(), exists)
	if err != nil {
		t.Fatalf("UniqueKey() error = %v", err)
	}
	if key == "" {
		t.Error("UniqueKey() returned empty key")
	}
	if calls != 3 {
		t.Errorf("exists called %d times, want 3", calls)
	}
}

func TestUniqueKeyExhaustion(t *testing.T) {
	calls := 0
	exists := func(_ context.Context, _ string) (bool, error) {
		calls++
		return true, nil // every candidate collides
	}

	_, err := UniqueKey(context.Background(), exists)
	if !errors.Is(err, ErrKeyExhausted) {
		t.Fatalf("UniqueKey() error = %v, want ErrKeyExhausted", err)
	}
	if calls != MaxKeyAttempts {
		t.Errorf("exists called %d times, want %d", calls, MaxKeyAttempts)
	}
}

func TestUniqueKeyCheckFailure(t *testing.T) {
	checkErr := errors.New("connection refused")
	exists := func(_ context.Context, _ string) (bool, error) {
		return false, checkErr
	}

	_, err := UniqueKey(context.Background(), exists)
	if !errors.Is(err, checkErr) {
		t.Fatalf("UniqueKey() error = %v, want wrapped check error", err)
	}
	if errors.Is(err, ErrKeyExhausted) {
		t.Error("check failure must not be reported as exhaustion")
	}
}

func BenchmarkGenerateKey(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := GenerateKey(); err != nil {
			b.Fatal(err)
		}
	}
}
