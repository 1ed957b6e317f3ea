package licensing

import (
	"log/slog"
	"strings"
	"testing"
)

func TestSMTPMailerRequiresConfiguration(t *testing.T) {
	mailer := NewSMTPMailer(&EmailConfig{})

	err := mailer.SendLicense(&License{Email: "a@example.com", Key: "AAAA-BBBB-CCCC"})
	if err == nil {
		t.Fatal("SendLicense() succeeded without SMTP configuration")
	}
}

func TestEmailConfigIsConfigured(t *testing.T) {
	complete := &EmailConfig{
		SMTPHost:     "smtp.example.com",
		SMTPPort:     "587",
		SMTPUsername: "user",
		SMTPPassword: "pass",
		FromEmail:    "licenses@example.com",
	}
	if !complete.IsConfigured() {
		t.Error("complete config reported as unconfigured")
	}

	partial := &EmailConfig{SMTPHost: "smtp.example.com"}
	if partial.IsConfigured() {
		t.Error("partial config reported as configured")
	}
}

func TestLogMailer(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	mailer := NewLogMailer(logger)
	err := mailer.SendLicense(&License{Email: "a@example.com", Key: "AAAA-BBBB-CCCC"})
	if err != nil {
		t.Fatalf("SendLicense() error = %v", err)
	}

	// The key must be recoverable from the log line
	if !strings.Contains(buf.String(), "AAAA-BBBB-CCCC") {
		t.Error("log output missing license key")
	}
}

func TestGenerateLicenseEmailHTML(t *testing.T) {
	license := &License{
		Email: "a@example.com",
		Key:   "AAAA-BBBB-CCCC",
	}

	html, err := generateLicenseEmailHTML(license)
	if err != nil {
		t.Fatalf("generateLicenseEmailHTML() error = %v", err)
	}

	for _, want := range []string{"AAAA-BBBB-CCCC", "a@example.com", "Twitch Ad Crusher"} {
		if !strings.Contains(html, want) {
			t.Errorf("email body missing %q", want)
		}
	}
}
