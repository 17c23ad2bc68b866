package authcrypto

// GenerateNumericCode returns a cryptographically random n-digit decimal
// string, used for out-of-band OTP delivery (spec.md section 4.6.2) where
// a TOTP/HOTP device isn't in play. Reuses the same rejection-sampled
// randDigit draw as the backup-code generator for a uniform distribution.
func GenerateNumericCode(n int) (string, error) {
	digits := make([]byte, n)
	for i := range digits {
		d, err := randDigit()
		if err != nil {
			return "", err
		}
		digits[i] = backupCodeDigits[d]
	}
	return string(digits), nil
}
