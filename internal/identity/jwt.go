// Package identity verifies the bearer tokens that carry a principal ID.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"drive-go/internal/drive"
)

// ErrInvalidSecretLength is returned for HMAC secrets shorter than 32 bytes.
var ErrInvalidSecretLength = errors.New("JWT secret must be at least 32 characters")

// Config holds the verifier's settings.
type Config struct {
	// Secret is the HMAC signing key. Must be at least 32 characters.
	Secret string

	// Issuer and Audience are checked when non-empty.
	Issuer   string
	Audience string

	// CacheSize bounds the number of remembered tokens; 0 disables the cache.
	CacheSize int
	CacheTTL  time.Duration
}

type cachedIdentity struct {
	subject   string
	expiresAt time.Time
}

// JWTVerifier checks HS256 tokens whose subject is the principal ID.
// Verified tokens are remembered for CacheTTL, but never past their expiry.
type JWTVerifier struct {
	config Config
	parser *jwt.Parser
	cache  *expirable.LRU[string, cachedIdentity]
	now    func() time.Time
}

// NewJWTVerifier creates a verifier for the given configuration.
func NewJWTVerifier(config Config) (*JWTVerifier, error) {
	return newJWTVerifier(config, time.Now)
}

// NewJWTVerifierWithClock creates a verifier that reads time from now.
func NewJWTVerifierWithClock(config Config, now func() time.Time) (*JWTVerifier, error) {
	return newJWTVerifier(config, now)
}

func newJWTVerifier(config Config, now func() time.Time) (*JWTVerifier, error) {
	if len(config.Secret) < 32 {
		return nil, ErrInvalidSecretLength
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	v := &JWTVerifier{
		config: config,
		parser: jwt.NewParser(opts...),
		now:    now,
	}
	if config.CacheSize > 0 && config.CacheTTL > 0 {
		v.cache = expirable.NewLRU[string, cachedIdentity](config.CacheSize, nil, config.CacheTTL)
	}
	return v, nil
}

// Verify returns the principal ID carried by token.
func (v *JWTVerifier) Verify(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: missing token", drive.ErrUnauthenticated)
	}

	key := cacheKey(token)
	if v.cache != nil {
		if id, ok := v.cache.Get(key); ok {
			if v.now().Before(id.expiresAt) {
				return id.subject, nil
			}
			v.cache.Remove(key)
		}
	}

	claims := &jwt.RegisteredClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(v.config.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: token has expired", drive.ErrUnauthenticated)
		}
		return "", fmt.Errorf("%w: invalid token", drive.ErrUnauthenticated)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", drive.ErrUnauthenticated)
	}

	if v.cache != nil {
		v.cache.Add(key, cachedIdentity{subject: claims.Subject, expiresAt: claims.ExpiresAt.Time})
	}
	return claims.Subject, nil
}

// Issue signs a token for subject valid for ttl, using the verifier's
// issuer and audience. It serves local tooling and tests.
func (v *JWTVerifier) Issue(subject string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := jwt.RegisteredClaims{
		Issuer:    v.config.Issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if v.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{v.config.Audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(v.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Compile-time check that JWTVerifier implements drive.Verifier interface
var _ drive.Verifier = (*JWTVerifier)(nil)
