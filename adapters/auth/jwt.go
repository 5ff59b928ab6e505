// Package auth verifies session tokens issued by the identity provider.
// Verification is stateless: only the shared HS256 secret is needed.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/artpar/documind/ports"
)

var (
	// ErrNoSecret is returned when verification is not configured.
	ErrNoSecret = errors.New("auth: jwt secret not configured")

	// ErrNoSubject is returned for tokens without a user id.
	ErrNoSubject = errors.New("auth: token has no subject")
)

// Claims are the session token claims used here.
// The user id is the standard "sub" claim.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenService verifies (and, for tests and tooling, issues) session tokens.
// Thread-safe and suitable for concurrent use.
type TokenService struct {
	secret     []byte
	audience   string
	expiration time.Duration
}

// NewTokenService creates a token service for an HS256 secret.
// audience is checked when non-empty.
func NewTokenService(secret, audience string, expiration time.Duration) *TokenService {
	if expiration == 0 {
		expiration = time.Hour
	}
	return &TokenService{
		secret:     []byte(secret),
		audience:   audience,
		expiration: expiration,
	}
}

// GenerateToken issues a token for userID.
func (s *TokenService) GenerateToken(userID, email string) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, ErrNoSecret
	}
	now := time.Now().UTC()
	expiresAt := now.Add(s.expiration)

	claims := Claims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken parses and verifies a token and returns its claims.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrNoSecret
	}

	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Verify returns the user id a valid token was issued for.
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", ErrNoSubject
	}
	return claims.Subject, nil
}

var _ ports.IdentityVerifier = (*TokenService)(nil)
