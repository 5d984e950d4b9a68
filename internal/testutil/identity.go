package testutil

import (
	"testing"
	"time"

	"drive-go/internal/identity"
)

// TestJWTSecret keys bearer tokens in tests.
const TestJWTSecret = "test-jwt-secret-test-jwt-secret!"

// NewTestVerifier creates a JWTVerifier keyed by TestJWTSecret.
func NewTestVerifier(t *testing.T) *identity.JWTVerifier {
	t.Helper()

	v, err := identity.NewJWTVerifier(identity.Config{Secret: TestJWTSecret, CacheSize: 16, CacheTTL: time.Minute})
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}
	return v
}

// MintToken issues a bearer token for subject, valid for an hour.
func MintToken(t *testing.T, v *identity.JWTVerifier, subject string) string {
	t.Helper()

	token, err := v.Issue(subject, time.Hour)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return token
}
