// Command tokensmith mints and inspects the RSA signing keys C4
// (internal/token) consumes, replacing the old ad-hoc schema-dump tool
// this binary used to be. It has no rotate subcommand.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/meridianhq/authcore/internal/token"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "mint":
		mint(os.Args[2:])
	case "inspect":
		inspect(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tokensmith mint <kid> | tokensmith inspect <kid> <pem-file>")
}

// mint generates a fresh 4096-bit RSA key under the given kid and prints
// the PEM-encoded private key plus its public JWK.
func mint(args []string) {
	if len(args) != 1 {
		usage()
		os.Exit(1)
	}
	kid := args[0]

	privateKey, err := rsa.GenerateKey(rand.Reader, 4096)
	if err != nil {
		fmt.Fprintf(os.Stderr, "key generation failed: %v\n", err)
		os.Exit(1)
	}

	privBytes := x509.MarshalPKCS1PrivateKey(privateKey)
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: privBytes})

	kp := &token.KeyPair{Kid: kid, PrivateKey: privateKey, PublicKey: &privateKey.PublicKey}
	jwkJSON, err := json.MarshalIndent(kp.JWK(), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "jwk encoding failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("--- private key (set as JWT_PRIVATE_KEY, keep secret) ---")
	fmt.Print(string(privPEM))
	fmt.Println("--- public JWK (served at /.well-known/jwks.json) ---")
	fmt.Println(string(jwkJSON))
}

// inspect parses an existing PEM-encoded private key and prints its
// public JWK, so an operator can confirm what a deployed key's JWKS entry
// looks like without having the service emit it.
func inspect(args []string) {
	if len(args) != 2 {
		usage()
		os.Exit(1)
	}
	kid := args[0]
	path := args[1]

	pemBytes, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", path, err)
		os.Exit(1)
	}

	kp, err := token.ParsePrivateKeyPEM(kid, string(pemBytes))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse key: %v\n", err)
		os.Exit(1)
	}

	jwkJSON, err := json.MarshalIndent(kp.JWK(), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "jwk encoding failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(jwkJSON))
}
