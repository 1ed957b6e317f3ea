package licensing

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"os"
)

// Mailer delivers a freshly issued license to its purchaser. Delivery is
// out-of-band: issuance never fails because of a mailer error.
type Mailer interface {
	SendLicense(license *License) error
}

// EmailConfig holds SMTP configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

// LoadEmailConfigFromEnv loads email configuration from environment variables
func LoadEmailConfigFromEnv() *EmailConfig {
	return &EmailConfig{
		SMTPHost:     os.Getenv("SMTP_HOST"),     // e.g., smtp.sendgrid.net, smtp.mailgun.org
		SMTPPort:     os.Getenv("SMTP_PORT"),     // usually 587
		SMTPUsername: os.Getenv("SMTP_USERNAME"), // API key for SendGrid, username for others
		SMTPPassword: os.Getenv("SMTP_PASSWORD"), // API key or password
		FromEmail:    os.Getenv("FROM_EMAIL"),    // e.g., licenses@adcrusher.app
		FromName:     os.Getenv("FROM_NAME"),     // e.g., Twitch Ad Crusher
	}
}

// IsConfigured checks if email is properly configured
func (c *EmailConfig) IsConfigured() bool {
	return c.SMTPHost != "" && c.SMTPPort != "" && c.SMTPUsername != "" && c.SMTPPassword != "" && c.FromEmail != ""
}

// SMTPMailer sends license emails over SMTP
type SMTPMailer struct {
	config *EmailConfig
}

// NewSMTPMailer creates a mailer for the given SMTP configuration
func NewSMTPMailer(config *EmailConfig) *SMTPMailer {
	return &SMTPMailer{config: config}
}

// SendLicense sends a license key to a customer
func (m *SMTPMailer) SendLicense(license *License) error {
	if !m.config.IsConfigured() {
		return fmt.Errorf("email not configured (set SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD, FROM_EMAIL)")
	}

	subject := "Your Twitch Ad Crusher Pro License"
	body, err := generateLicenseEmailHTML(license)
	if err != nil {
		return fmt.Errorf("failed to generate email: %w", err)
	}

	from := m.config.FromEmail
	if m.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.config.FromName, m.config.FromEmail)
	}

	headers := make(map[string]string)
	headers["From"] = from
	headers["To"] = license.Email
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"

	message := ""
	for k, v := range headers {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	message += "\r\n" + body

	auth := smtp.PlainAuth("", m.config.SMTPUsername, m.config.SMTPPassword, m.config.SMTPHost)
	addr := fmt.Sprintf("%s:%s", m.config.SMTPHost, m.config.SMTPPort)

	if err := smtp.SendMail(addr, auth, m.config.FromEmail, []string{license.Email}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// LogMailer logs the license instead of delivering it. Used when SMTP is not
// configured; the purchaser can still recover the key via /check-email.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a log-only mailer
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendLicense logs the license key for the operator to deliver manually
func (m *LogMailer) SendLicense(license *License) error {
	m.logger.Info("license email skipped (SMTP not configured)",
		"email", license.Email,
		"license_key", license.Key,
	)
	return nil
}

// generateLicenseEmailHTML creates HTML email content for a license
func generateLicenseEmailHTML(license *License) (string, error) {
	tmpl := `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
        }
        .header {
            background: #9147ff;
            color: white;
            padding: 30px;
            border-radius: 8px 8px 0 0;
            text-align: center;
        }
        .content {
            background: #f9f9f9;
            padding: 30px;
            border-radius: 0 0 8px 8px;
        }
        .license-key {
            background: #fff;
            border: 2px solid #9147ff;
            border-radius: 8px;
            padding: 20px;
            margin: 20px 0;
            font-family: 'Courier New', monospace;
            font-size: 24px;
            font-weight: bold;
            text-align: center;
            color: #9147ff;
            letter-spacing: 2px;
        }
        .footer {
            margin-top: 30px;
            padding-top: 20px;
            border-top: 1px solid #ddd;
            font-size: 12px;
            color: #666;
            text-align: center;
        }
    </style>
</head>
<body>
    <div class="header">
        <h1>Thanks for purchasing Twitch Ad Crusher Pro!</h1>
    </div>

    <div class="content">
        <p>Your license key is:</p>

        <div class="license-key">
            {{.Key}}
        </div>

        <p>To activate:</p>
        <ol>
            <li>Click the Twitch Ad Crusher extension icon</li>
            <li>Click "Upgrade to Pro"</li>
            <li>Enter your email and license key</li>
            <li>Click "Activate License"</li>
        </ol>

        <p>Enjoy ad-free Twitch!</p>
    </div>

    <div class="footer">
        <p>This email was sent to {{.Email}} because you purchased a Twitch Ad Crusher Pro license.</p>
    </div>
</body>
</html>`

	t, err := template.New("license").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, license); err != nil {
		return "", err
	}

	return buf.String(), nil
}
