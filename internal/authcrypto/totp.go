package authcrypto

import (
	"encoding/base32"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/meridianhq/authcore/internal/errs"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// totpSecretBytes gives >=160 bits of entropy (spec.md section 4.1).
const totpSecretBytes = 20

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

// GenerateTotpSecret returns a canonical RFC 4648 Base32 secret (A-Z, 2-7,
// optional '=' padding) drawn from a cryptographic RNG.
func GenerateTotpSecret() (string, error) {
	raw, err := readFull(SystemRand, totpSecretBytes)
	if err != nil {
		return "", err
	}
	return base32.StdEncoding.EncodeToString(raw), nil
}

// GenerateTotpCode computes the RFC 6238 code (HMAC-SHA1, 30s step, 6
// digits, dynamic truncation) for the given secret at unixTime.
func GenerateTotpCode(secret string, unixTime int64) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, time.Unix(unixTime, 0), totp.ValidateOpts{
		Period:    30,
		Skew:      0,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", errs.New(errs.KindCryptoError, "totp generation failed")
	}
	return code, nil
}

// ValidateTotpCode accepts any of the codes for steps [now-window,
// now+window] (+-30s per step by default, window=1). Rejects any code whose
// format is not exactly six decimal digits. Never errors: an empty secret
// or malformed code simply returns false.
func ValidateTotpCode(secret string, code string, window uint, now time.Time) bool {
	if !sixDigits.MatchString(code) {
		return false
	}
	if secret == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, now, totp.ValidateOpts{
		Period:    30,
		Skew:      window,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return ok
}

// BuildOtpAuthUrl constructs the otpauth:// URL per spec.md section 6, with
// percent-encoded labels and the required algorithm/digits/period params.
// Only ':' and spaces inside the issuer/account labels are percent-encoded
// (matching otpauth convention); the separating ':' between issuer and
// account stays literal.
func BuildOtpAuthUrl(secret, account, issuer string) string {
	label := fmt.Sprintf("%s:%s", escapeLabelPart(issuer), escapeLabelPart(account))
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("algorithm", "SHA1")
	v.Set("digits", "6")
	v.Set("period", "30")
	return fmt.Sprintf("otpauth://totp/%s?%s", label, v.Encode())
}

func escapeLabelPart(s string) string {
	replacer := strings.NewReplacer(":", "%3A", " ", "%20")
	return replacer.Replace(s)
}
