package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned for any identity/secret mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSecretTooShort rejects secrets shorter than four characters.
	ErrSecretTooShort = errors.New("secret must be at least 4 characters")
)

// Authenticator verifies an operator's identity and secret.
type Authenticator interface {
	Verify(ctx context.Context, identity, secret string) error
}

// CredentialAuthenticator checks a single configured identity against a
// bcrypt hash of its secret.
type CredentialAuthenticator struct {
	identity string
	hash     []byte
}

// NewCredentialAuthenticator builds an authenticator for identity. hash is a
// bcrypt hash as produced by HashSecret.
func NewCredentialAuthenticator(identity, hash string) *CredentialAuthenticator {
	return &CredentialAuthenticator{identity: strings.TrimSpace(identity), hash: []byte(hash)}
}

// Verify compares identity in constant time and the secret against the hash.
func (a *CredentialAuthenticator) Verify(_ context.Context, identity, secret string) error {
	if a == nil || a.identity == "" || len(a.hash) == 0 {
		return ErrInvalidCredentials
	}
	idMatch := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(identity)), []byte(a.identity)) == 1
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(secret)); err != nil || !idMatch {
		return ErrInvalidCredentials
	}
	return nil
}

// HashSecret returns the bcrypt hash to configure for secret.
func HashSecret(secret string) (string, error) {
	if len(secret) < 4 {
		return "", ErrSecretTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
