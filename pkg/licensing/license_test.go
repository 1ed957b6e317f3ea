package licensing

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateLicenseID(t *testing.T) {
	id, err := GenerateLicenseID()
	if err != nil {
		t.Fatalf("GenerateLicenseID() error = %v", err)
	}

	if !strings.HasPrefix(id, "lic_") {
		t.Errorf("ID missing lic_ prefix: %s", id)
	}
	if len(id) != 4+32 {
		t.Errorf("ID has wrong length: %s", id)
	}

	other, err := GenerateLicenseID()
	if err != nil {
		t.Fatalf("GenerateLicenseID() error = %v", err)
	}
	if id == other {
		t.Error("consecutive IDs collided")
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{"Lowercase passthrough", "user@example.com", "user@example.com"},
		{"Uppercase", "USER@EXAMPLE.COM", "user@example.com"},
		{"Mixed with whitespace", "  User@Example.Com ", "user@example.com"},
		{"Empty", "", ""},
		{"Whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeEmail(tt.email); got != tt.want {
				t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.email, got, tt.want)
			}
		})
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"Uppercase passthrough", "ABCD-EFGH-JKLM", "ABCD-EFGH-JKLM"},
		{"Lowercase", "abcd-efgh-jklm", "ABCD-EFGH-JKLM"},
		{"Whitespace", " abcd-efgh-jklm ", "ABCD-EFGH-JKLM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeKey(tt.key); got != tt.want {
				t.Errorf("NormalizeKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestLicenseIsExpired(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name    string
		license *License
		want    bool
	}{
		{"Perpetual", &License{ExpiresAt: nil}, false},
		{"Future expiry", &License{ExpiresAt: &future}, false},
		{"Past expiry", &License{ExpiresAt: &past}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.license.IsExpired(); got != tt.want {
				t.Errorf("License.IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLicenseActivated(t *testing.T) {
	now := time.Now()

	if (&License{}).Activated() {
		t.Error("fresh license reported as activated")
	}
	if !(&License{ActivatedAt: &now}).Activated() {
		t.Error("activated license reported as not activated")
	}
}
