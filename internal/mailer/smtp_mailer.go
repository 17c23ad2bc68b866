package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/meridianhq/authcore/internal/delivery"
	"github.com/meridianhq/authcore/internal/identity"
)

// SMTPConfig is the single system-wide outbound mail configuration,
// sourced from env vars by cmd/emailworker. There is no per-tenant SMTP
// config in this design (see DESIGN.md) -- every tenant's outbox rows
// are sent through the same relay.
type SMTPConfig struct {
	Host    string
	Port    int
	User    string
	Pass    string
	From    string
	TLSMode string // "starttls" or "tls"
}

// SMTPMailer implements delivery.Mailer over a real SMTP relay. It is
// the production collaborator for internal/delivery.Worker; tests
// substitute a fake.
type SMTPMailer struct {
	Config SMTPConfig
	Logger *slog.Logger
}

// NewSMTPMailer validates the config up front (SSRF + address checks) and
// returns a ready-to-use mailer.
func NewSMTPMailer(config SMTPConfig, logger *slog.Logger) (*SMTPMailer, error) {
	if err := ValidateSMTPConfig(config.Host, config.Port); err != nil {
		return nil, fmt.Errorf("invalid SMTP configuration: %w", err)
	}
	if _, err := sanitizeEmailAddress(config.From); err != nil {
		return nil, fmt.Errorf("invalid From address: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPMailer{Config: config, Logger: logger}, nil
}

var _ delivery.Mailer = (*SMTPMailer)(nil)

// Send delivers the outbox row via SMTP. Re-validates the configured
// host on every call (DNS rebinding defense-in-depth), not just at
// construction time.
func (m *SMTPMailer) Send(ctx context.Context, row identity.EmailQueueRow) error {
	logger := m.Logger.With("tenant_id", row.TenantID, "template", row.TemplateID, "email_id", row.ID)

	if err := ValidateSMTPConfig(m.Config.Host, m.Config.Port); err != nil {
		logger.Error("ssrf_attempt_blocked", "host", m.Config.Host, "error", err)
		return fmt.Errorf("SMTP configuration failed validation")
	}

	toAddr, err := sanitizeEmailAddress(row.Recipient)
	if err != nil {
		logger.Warn("invalid_recipient_address", "error", err)
		return &delivery.HardBounceError{Reason: "invalid_recipient_address"}
	}

	fromAddr, err := sanitizeEmailAddress(m.Config.From)
	if err != nil {
		logger.Error("invalid_from_address", "error", err)
		return fmt.Errorf("SMTP configuration error")
	}

	message := m.buildMessage(fromAddr, toAddr, row)

	serverAddr := fmt.Sprintf("%s:%d", m.Config.Host, m.Config.Port)
	dialer := &net.Dialer{Timeout: 5 * time.Second}

	var conn net.Conn
	if m.Config.TLSMode == "tls" {
		tlsConfig := &tls.Config{ServerName: m.Config.Host, MinVersion: tls.VersionTLS12}
		conn, err = tls.DialWithDialer(dialer, "tcp", serverAddr, tlsConfig)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", serverAddr)
	}
	if err != nil {
		logger.Error("smtp_connect_failed", "host", m.Config.Host, "error", err)
		return fmt.Errorf("SMTP connection failed")
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.Config.Host)
	if err != nil {
		logger.Error("smtp_client_create_failed", "error", err)
		return fmt.Errorf("SMTP protocol error")
	}
	defer client.Quit()

	if m.Config.TLSMode == "starttls" {
		tlsConfig := &tls.Config{ServerName: m.Config.Host, MinVersion: tls.VersionTLS12}
		if err := client.StartTLS(tlsConfig); err != nil {
			logger.Error("starttls_failed", "error", err)
			return fmt.Errorf("SMTP TLS upgrade failed")
		}
	}

	if m.Config.User != "" {
		auth := smtp.PlainAuth("", m.Config.User, m.Config.Pass, m.Config.Host)
		if err := client.Auth(auth); err != nil {
			logger.Error("smtp_auth_failed", "user", m.Config.User, "error", err)
			return fmt.Errorf("SMTP authentication failed")
		}
	}

	if err := client.Mail(fromAddr); err != nil {
		return fmt.Errorf("SMTP MAIL command failed: %w", err)
	}
	if err := client.Rcpt(toAddr); err != nil {
		return fmt.Errorf("SMTP RCPT command failed: %w", err)
	}
	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA command failed: %w", err)
	}
	if _, err := writer.Write(message); err != nil {
		return fmt.Errorf("failed to write email data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize email: %w", err)
	}

	logger.Info("email_sent")
	return nil
}

// buildMessage constructs an RFC 5322 compliant plain-text message.
func (m *SMTPMailer) buildMessage(from, to string, row identity.EmailQueueRow) []byte {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subjectFor(row.TemplateID)))
	msg.WriteString(fmt.Sprintf("Message-ID: <%s@%s>\r\n", row.ID, m.Config.Host))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(bodyFor(row.TemplateID, row.Payload))
	return []byte(msg.String())
}

func subjectFor(templateID string) string {
	subjects := map[string]string{
		"otp_code":               "Your verification code",
		"password_reset":         "Reset your password",
		"email_verification":     "Verify your email address",
		"mfa_enabled":            "Two-factor authentication enabled",
		"mfa_disabled":           "Two-factor authentication disabled",
		"webhook_endpoint_added": "New webhook endpoint registered",
	}
	if subject, ok := subjects[templateID]; ok {
		return subject
	}
	return "Notification"
}

func bodyFor(templateID string, payload map[string]string) string {
	var body strings.Builder
	body.WriteString("Hello,\n\n")

	switch templateID {
	case "otp_code":
		body.WriteString(fmt.Sprintf("Your verification code is: %s\n\n", payload["code"]))
		body.WriteString("This code expires in 10 minutes.\n\n")
	case "password_reset":
		link := payload["app_url"] + "/auth/reset?token=" + payload["token"]
		body.WriteString("You requested a password reset.\n\n")
		body.WriteString(fmt.Sprintf("Reset your password: %s\n\n", link))
		body.WriteString("This link expires in 1 hour.\n\n")
	case "email_verification":
		link := payload["app_url"] + "/auth/verify?token=" + payload["token"]
		body.WriteString(fmt.Sprintf("Verify your email address: %s\n\n", link))
	default:
		body.WriteString("This is a notification from the system.\n\n")
	}

	body.WriteString("Thank you.")
	return body.String()
}

// sanitizeEmailAddress validates and normalizes an address, rejecting
// CRLF injection attempts in either the address or the display name.
func sanitizeEmailAddress(addr string) (string, error) {
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return "", fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(parsed.Address, "\r\n") || strings.ContainsAny(parsed.Name, "\r\n") {
		return "", fmt.Errorf("CRLF injection detected in email address")
	}
	return parsed.String(), nil
}
