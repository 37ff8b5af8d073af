package oidc

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// pkcePair is a PKCE verifier and its S256 challenge (RFC 7636).
type pkcePair struct {
	Verifier  string
	Challenge string
}

const verifierBytes = 48

// generatePKCE creates a verifier from CSPRNG bytes and derives the S256
// challenge. The 48 random bytes encode to a 64-character verifier, within
// the 43..128 range RFC 7636 requires.
func generatePKCE() (*pkcePair, error) {
	verifier, err := randomToken(verifierBytes)
	if err != nil {
		return nil, fmt.Errorf("generating PKCE verifier: %w", err)
	}
	sum := sha256.Sum256([]byte(verifier))
	return &pkcePair{
		Verifier:  verifier,
		Challenge: base64.RawURLEncoding.EncodeToString(sum[:]),
	}, nil
}

// randomToken returns n CSPRNG bytes as unpadded base64url.
func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
