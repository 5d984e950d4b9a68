package objectstore

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"drive-go/internal/drive"
)

const blobAudience = "drive-blob"

// URLSigner issues and checks the download URLs of stores served by this
// process. A URL carries an HS256 token whose subject is the object path.
type URLSigner struct {
	secret  []byte
	baseURL string
	now     func() time.Time
}

// NewURLSigner creates a signer for URLs under baseURL/blobs/.
func NewURLSigner(secret, baseURL string) *URLSigner {
	return &URLSigner{
		secret:  []byte(secret),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		now:     time.Now,
	}
}

// WithClock returns a copy of the signer that reads time from now.
func (s *URLSigner) WithClock(now func() time.Time) *URLSigner {
	c := *s
	c.now = now
	return &c
}

// URL returns the unsigned address of path.
func (s *URLSigner) URL(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/blobs/" + strings.Join(segments, "/")
}

// Sign returns the URL of path with a token valid for ttl.
func (s *URLSigner) Sign(path string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   path,
		Audience:  jwt.ClaimStrings{blobAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing url: %w", err)
	}
	return s.URL(path) + "?token=" + url.QueryEscape(token), nil
}

// Verify checks that token grants access to path now.
func (s *URLSigner) Verify(path, token string) error {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(blobAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: download url expired", drive.ErrForbidden)
		}
		return fmt.Errorf("%w: invalid download token", drive.ErrForbidden)
	}
	if claims.Subject != path {
		return fmt.Errorf("%w: download token is for another object", drive.ErrForbidden)
	}
	return nil
}
