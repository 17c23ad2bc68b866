package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

func main() {
	// Generate RSA Key. 4096 bits is the floor internal/token.ParsePrivateKeyPEM
	// enforces (spec.md section 4.4.1).
	privateKey, err := rsa.GenerateKey(rand.Reader, 4096)
	if err != nil {
		fmt.Printf("Failed to generate key: %v\n", err)
		os.Exit(1)
	}

	// Marshaling to PEM
	privBytes := x509.MarshalPKCS1PrivateKey(privateKey)
	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: privBytes,
	})

	fmt.Println("--- COPY BELOW TO .env.local ---")
	fmt.Printf("JWT_PRIVATE_KEY=\"%s\"\n", string(privPEM))
	fmt.Println("--------------------------------")
}
