package authcrypto

import (
	"bytes"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"

	"github.com/meridianhq/authcore/internal/errs"
)

// BuildTotpQrPng renders otpauthURL (from BuildOtpAuthUrl) as a square PNG
// QR code of the given pixel size, for display during 2FA enrollment.
// Takes the already-built otpauth URL directly instead of a *otp.Key,
// since this package issues the secret itself rather than
// delegating to pquerna/otp/totp.Generate.
func BuildTotpQrPng(otpauthURL string, size int) ([]byte, error) {
	code, err := qr.Encode(otpauthURL, qr.M, qr.Auto)
	if err != nil {
		return nil, errs.New(errs.KindCryptoError, "failed to encode qr code")
	}
	scaled, err := barcode.Scale(code, size, size)
	if err != nil {
		return nil, errs.New(errs.KindCryptoError, "failed to scale qr code")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, errs.New(errs.KindCryptoError, "failed to encode png")
	}
	return buf.Bytes(), nil
}
