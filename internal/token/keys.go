package token

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"math/big"

	"github.com/meridianhq/authcore/internal/errs"
)

// KeyPair is a single RSA signing key identified by a kid, generalizing a
// single hardcoded "sig-1" kid into a rotation-ready pair.
type KeyPair struct {
	Kid        string
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
}

// ParsePrivateKeyPEM parses a PKCS1 or PKCS8 RSA private key, returning
// an error instead of panicking on a bad key -- a library should not
// panic on untrusted input.
func ParsePrivateKeyPEM(kid, pemStr string) (*KeyPair, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, errs.New(errs.KindCryptoError, "failed to parse PEM block containing the private key")
	}

	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		key, err2 := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err2 != nil {
			return nil, errs.New(errs.KindCryptoError, "failed to parse RSA private key")
		}
		var ok bool
		priv, ok = key.(*rsa.PrivateKey)
		if !ok {
			return nil, errs.New(errs.KindCryptoError, "key is not an RSA private key")
		}
	}

	if priv.N.BitLen() < 4096 {
		return nil, errs.New(errs.KindCryptoError, "RSA key must be at least 4096 bits")
	}

	return &KeyPair{Kid: kid, PrivateKey: priv, PublicKey: &priv.PublicKey}, nil
}

// JWK converts the public half of kp to a JSON Web Key.
func (kp *KeyPair) JWK() JWK {
	eBuf := big.NewInt(int64(kp.PublicKey.E)).Bytes()
	return JWK{
		Kty: "RSA",
		Kid: kp.Kid,
		Use: "sig",
		N:   base64.RawURLEncoding.EncodeToString(kp.PublicKey.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(eBuf),
		Alg: "RS256",
	}
}

// KeySet holds the current signing key and, during a rotation window, the
// previous one so in-flight tokens still validate. The window lasts for as
// long as Previous is set; KeySet does not expire it after any fixed
// duration.
type KeySet struct {
	Current  *KeyPair
	Previous *KeyPair // nil outside a rotation window
}

// Lookup returns the public key for kid if it is the current or previous
// signing key, or nil if kid is unknown.
func (ks *KeySet) Lookup(kid string) *rsa.PublicKey {
	if ks.Current != nil && ks.Current.Kid == kid {
		return ks.Current.PublicKey
	}
	if ks.Previous != nil && ks.Previous.Kid == kid {
		return ks.Previous.PublicKey
	}
	return nil
}

// JWKS returns every public key still in the grace window.
func (ks *KeySet) JWKS() JWKS {
	jwks := JWKS{}
	if ks.Current != nil {
		jwks.Keys = append(jwks.Keys, ks.Current.JWK())
	}
	if ks.Previous != nil {
		jwks.Keys = append(jwks.Keys, ks.Previous.JWK())
	}
	return jwks
}
