package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSMTPMailer_RejectsPrivateHost(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: 587, From: "noreply@example.com"}, nil)
	assert.Error(t, err)
}

func TestNewSMTPMailer_RejectsInvalidFrom(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{Host: "smtp.sendgrid.net", Port: 587, From: "not-an-address"}, nil)
	assert.Error(t, err)
}

func TestNewSMTPMailer_AcceptsValidConfig(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.sendgrid.net", Port: 587, From: "Auth Core <noreply@example.com>", TLSMode: "starttls"}, nil)
	assert.NoError(t, err)
	assert.NotNil(t, m)
}

func TestBodyFor_KnownTemplates(t *testing.T) {
	otp := bodyFor("otp_code", map[string]string{"code": "123456"})
	assert.Contains(t, otp, "123456")

	reset := bodyFor("password_reset", map[string]string{"app_url": "https://app.example.com", "token": "abc"})
	assert.Contains(t, reset, "https://app.example.com/auth/reset?token=abc")
}

func TestBodyFor_UnknownTemplateFallsBackToGenericNotification(t *testing.T) {
	body := bodyFor("something_unregistered", map[string]string{})
	assert.Contains(t, body, "notification")
}

func TestSubjectFor_UnknownTemplateFallsBackToGeneric(t *testing.T) {
	assert.Equal(t, "Notification", subjectFor("something_unregistered"))
	assert.Equal(t, "Reset your password", subjectFor("password_reset"))
}

func TestSanitizeEmailAddress_RejectsCRLFInjection(t *testing.T) {
	_, err := sanitizeEmailAddress("victim@example.com\r\nBcc: attacker@evil.com")
	assert.Error(t, err)
}

func TestSanitizeEmailAddress_AcceptsDisplayName(t *testing.T) {
	addr, err := sanitizeEmailAddress("Auth Core <noreply@example.com>")
	assert.NoError(t, err)
	assert.Contains(t, addr, "noreply@example.com")
}
