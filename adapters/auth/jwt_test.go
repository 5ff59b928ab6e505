package auth_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/artpar/documind/adapters/auth"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := auth.NewTokenService("test-secret", "authenticated", time.Hour)

	token, expiresAt, err := svc.GenerateToken("user-123", "user@example.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("token should have 3 parts, got %q", token)
	}
	if time.Until(expiresAt) < 59*time.Minute {
		t.Errorf("expiresAt too early: %v", expiresAt)
	}

	userID, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if userID != "user-123" {
		t.Errorf("userID = %s, want user-123", userID)
	}
}

func TestTokenService_Verify_Rejects(t *testing.T) {
	svc := auth.NewTokenService("test-secret", "authenticated", time.Hour)
	other := auth.NewTokenService("other-secret", "authenticated", time.Hour)
	wrongAud := auth.NewTokenService("test-secret", "anon", time.Hour)

	foreign, _, _ := other.GenerateToken("u1", "")
	anon, _, _ := wrongAud.GenerateToken("u1", "")
	noSub, _, _ := svc.GenerateToken("", "")

	expiredClaims := auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u1",
		Audience:  jwt.ClaimStrings{"authenticated"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, expiredClaims).SignedString([]byte("test-secret"))

	noExpClaims := auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:  "u1",
		Audience: jwt.ClaimStrings{"authenticated"},
	}}
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, noExpClaims).SignedString([]byte("test-secret"))

	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, expiredClaims).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"wrong audience", anon},
		{"no subject", noSub},
		{"expired", expired},
		{"no expiry", noExp},
		{"alg none", noneAlg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Verify(tt.token); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTokenService_NoSecret(t *testing.T) {
	svc := auth.NewTokenService("", "", 0)

	if _, _, err := svc.GenerateToken("u1", ""); !errors.Is(err, auth.ErrNoSecret) {
		t.Errorf("GenerateToken err = %v, want ErrNoSecret", err)
	}
	if _, err := svc.Verify("anything"); !errors.Is(err, auth.ErrNoSecret) {
		t.Errorf("Verify err = %v, want ErrNoSecret", err)
	}
}
