// Package github implements the GitHub side of the desktop authorization flow:
// PKCE parameter generation, the loopback callback listener and the code-for-token exchange.
package github

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

const (
	// verifierBytes yields a 128 character base64url verifier, the RFC 7636 maximum.
	verifierBytes = 96
	// stateBytes yields a 43 character base64url state.
	stateBytes = 32
)

// PKCECodes holds the proof material for one authorization attempt.
// CodeVerifier must never leave the process except in the token exchange request.
type PKCECodes struct {
	// CodeVerifier is the cryptographically random string used to correlate
	// the authorization request to the token request.
	CodeVerifier string
	// CodeChallenge is the SHA256 hash of the code verifier, base64url-encoded.
	CodeChallenge string
	// State is the anti-CSRF nonce echoed back on the redirect. It is drawn
	// independently of the verifier.
	State string
}

// String hides the verifier and state so the codes can be passed to a logger safely.
func (p *PKCECodes) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("PKCECodes{challenge=%s}", p.CodeChallenge)
}

// GeneratePKCECodes generates a code verifier, its S256 challenge and an independent state
// following RFC 7636. It fails only when the system's secure random source is unavailable.
func GeneratePKCECodes() (*PKCECodes, error) {
	codeVerifier, err := randomURLSafe(verifierBytes)
	if err != nil {
		return nil, NewAuthenticationError(ErrPKCEGenerationFailed, fmt.Errorf("failed to generate code verifier: %w", err))
	}
	state, err := randomURLSafe(stateBytes)
	if err != nil {
		return nil, NewAuthenticationError(ErrPKCEGenerationFailed, fmt.Errorf("failed to generate state: %w", err))
	}

	return &PKCECodes{
		CodeVerifier:  codeVerifier,
		CodeChallenge: GenerateCodeChallenge(codeVerifier),
		State:         state,
	}, nil
}

// GenerateCodeChallenge creates a SHA256 hash of the code verifier
// and encodes it using URL-safe base64 encoding without padding.
func GenerateCodeChallenge(codeVerifier string) string {
	hash := sha256.Sum256([]byte(codeVerifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// VerifyChallenge reports whether challenge is the S256 derivation of verifier.
func VerifyChallenge(codeVerifier, challenge string) bool {
	expected := GenerateCodeChallenge(codeVerifier)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(challenge)) == 1
}

// StatesEqual compares two state values in constant time, byte for byte.
func StatesEqual(expected, received string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}

func randomURLSafe(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
