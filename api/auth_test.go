package api

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestBearerTokenFromStringSuccess(t *testing.T) {
	token, err := bearerTokenFromString("  Bearer header.payload.signature  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(token) != "header.payload.signature" {
		t.Fatalf("unexpected token content: %s", string(token))
	}
}

func TestBearerTokenFromStringMissing(t *testing.T) {
	if _, err := bearerTokenFromString("   "); err == nil || err.Error() != "missing authorization header" {
		t.Fatalf("expected missing header error, got %v", err)
	}
}

func TestBearerTokenFromStringManyPeriods(t *testing.T) {
	header := "Bearer " + strings.Repeat(".", 1000)
	if _, err := bearerTokenFromString(header); err == nil || err.Error() != "bad auth header" {
		t.Fatalf("expected bad auth header error, got %v", err)
	}
}

func TestBearerTokenFromStringWrongScheme(t *testing.T) {
	if _, err := bearerTokenFromString("Basic dXNlcjpwYXNz"); err == nil || err.Error() != "bad auth header" {
		t.Fatalf("expected bad auth header error, got %v", err)
	}
}

func signTestToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func newTestAuth(secret []byte) *Auth {
	return &Auth{
		Audience:   "api://boards",
		Issuer:     "https://issuer/",
		TestMode:   true,
		TestSecret: secret,
		parser:     jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

func TestUserIDFromBearerHS256(t *testing.T) {
	secret := []byte("test-secret")
	signed := signTestToken(t, secret, jwt.MapClaims{
		"sub": "user-123",
		"aud": "api://boards",
		"iss": "https://issuer/",
		"exp": time.Now().Add(5 * time.Minute).Unix(),
		"nbf": time.Now().Add(-time.Minute).Unix(),
		"iat": time.Now().Add(-time.Minute).Unix(),
	})

	auth := newTestAuth(secret)
	userID, err := auth.UserIDFromBearer([]byte(signed))
	if err != nil {
		t.Fatalf("unexpected error verifying token: %v", err)
	}
	if userID != "user-123" {
		t.Fatalf("unexpected user id: %s", userID)
	}
}

func TestUserIDFromBearerExpired(t *testing.T) {
	secret := []byte("test-secret")
	signed := signTestToken(t, secret, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(-5 * time.Minute).Unix(),
	})

	if _, err := newTestAuth(secret).UserIDFromBearer([]byte(signed)); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestUserIDFromBearerWrongAudience(t *testing.T) {
	secret := []byte("test-secret")
	signed := signTestToken(t, secret, jwt.MapClaims{
		"sub": "user-123",
		"aud": "api://other",
		"exp": time.Now().Add(5 * time.Minute).Unix(),
	})

	if _, err := newTestAuth(secret).UserIDFromBearer([]byte(signed)); err == nil {
		t.Fatalf("expected wrong audience to be rejected")
	}
}

func TestUserIDFromAuthHeaderEndToEnd(t *testing.T) {
	secret := []byte("test-secret")
	signed := signTestToken(t, secret, jwt.MapClaims{
		"sub": "user-456",
		"aud": "api://boards",
		"iss": "https://issuer/",
		"exp": time.Now().Add(5 * time.Minute).Unix(),
	})

	userID, err := newTestAuth(secret).UserIDFromAuthHeader("Bearer " + signed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "user-456" {
		t.Fatalf("unexpected user id: %s", userID)
	}
}
