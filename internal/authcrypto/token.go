package authcrypto

import "encoding/base64"

// GenerateSecureToken returns a URL-safe random token of nBytes entropy,
// used for refresh tokens, password-reset tokens, and OAuth state.
func GenerateSecureToken(nBytes int) (string, error) {
	b, err := readFull(SystemRand, nBytes)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
