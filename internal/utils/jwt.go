package utils // package utils provides helpers for token creation and password hashing

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token verification failures. Callers outside the auth core should treat
// all three as "unauthenticated"; the distinction is kept for logs.
var (
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrTokenExpired     = errors.New("token has expired")
	ErrMalformedToken   = errors.New("token is malformed")
)

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenService issues and verifies HS256 access tokens. Verification is
// purely computational: no store is consulted, so a token stays valid until
// it expires.
type TokenService struct {
	secret     []byte
	defaultTTL time.Duration
	now        func() time.Time
}

// NewTokenService returns a TokenService signing with secret. defaultTTL is
// used whenever Issue receives a non-positive ttl.
func NewTokenService(secret string, defaultTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// DefaultTTL is the lifetime applied when Issue is called with ttl <= 0.
func (s *TokenService) DefaultTTL() time.Duration { return s.defaultTTL }

// Issue builds and signs a token whose subject is subject. The claims are
// sub, iat and exp = now + ttl.
func (s *TokenService) Issue(subject string, ttl time.Duration) (AccessToken, error) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	now := s.now().UTC()
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: claims.ExpiresAt.Time}, nil
}

// Verify checks the token signature first and its expiry second, then
// returns the subject. Any change to the header, payload or signature text
// fails with ErrInvalidSignature; a token past exp fails with
// ErrTokenExpired; anything that is not a three-part JWT with a subject
// fails with ErrMalformedToken.
func (s *TokenService) Verify(raw string) (string, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return "", ErrMalformedToken
	}

	// Strict decoding rejects non-canonical trailing bits, so every edit of
	// the signature text changes the decoded bytes.
	sig, err := base64.RawURLEncoding.Strict().DecodeString(parts[2])
	if err != nil {
		return "", ErrInvalidSignature
	}
	if err := jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, s.secret); err != nil {
		return "", ErrInvalidSignature
	}

	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if _, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}); err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return "", ErrInvalidSignature
		default:
			return "", ErrMalformedToken
		}
	}
	if claims.Subject == "" {
		return "", ErrMalformedToken
	}
	return claims.Subject, nil
}
