package authcrypto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotp_GenerateAndValidateRoundTrip(t *testing.T) {
	secret, err := GenerateTotpSecret()
	require.NoError(t, err)

	now := time.Now()
	code, err := GenerateTotpCode(secret, now.Unix())
	require.NoError(t, err)

	assert.True(t, ValidateTotpCode(secret, code, 1, now))
}

func TestTotp_RejectsWrongLength(t *testing.T) {
	secret, err := GenerateTotpSecret()
	require.NoError(t, err)
	assert.False(t, ValidateTotpCode(secret, "12345", 1, time.Now()))
	assert.False(t, ValidateTotpCode(secret, "1234567", 1, time.Now()))
	assert.False(t, ValidateTotpCode(secret, "12a456", 1, time.Now()))
}

func TestTotp_EmptySecretNeverPanics(t *testing.T) {
	assert.False(t, ValidateTotpCode("", "123456", 1, time.Now()))
}

func TestBuildOtpAuthUrl(t *testing.T) {
	url := BuildOtpAuthUrl("JBSWY3DPEHPK3PXP", "user@example.com", "Meridian Auth")
	assert.Contains(t, url, "otpauth://totp/Meridian%20Auth:user@example.com")
	assert.Contains(t, url, "algorithm=SHA1")
	assert.Contains(t, url, "digits=6")
	assert.Contains(t, url, "period=30")
	assert.Contains(t, url, "secret=JBSWY3DPEHPK3PXP")
}
