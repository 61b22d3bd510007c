package session

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestDecodeToken_ValidToken_ReturnsClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	token := signToken(t, jwt.MapClaims{
		"exp":      exp.Unix(),
		"user_id":  float64(42),
		"username": "alice",
	})

	claims, err := DecodeToken(token)
	if err != nil {
		t.Fatalf("DecodeToken() error = %v, want nil", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Username != "alice" {
		t.Errorf("Username = %q, want %q", claims.Username, "alice")
	}
	if claims.ExpiresAt.Unix() != exp.Unix() {
		t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt.Unix(), exp.Unix())
	}
	if claims.Expired() {
		t.Error("Expired() = true for a token expiring in an hour")
	}
}

func TestDecodeToken_ExpiredToken_ClaimsReportExpired(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	claims, err := DecodeToken(token)
	if err != nil {
		t.Fatalf("DecodeToken() error = %v, want nil", err)
	}
	if !claims.Expired() {
		t.Error("Expired() = false for a token that lapsed a minute ago")
	}
}

func TestDecodeToken_MissingExpiry_ReturnsError(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"user_id": float64(1)})

	if _, err := DecodeToken(token); err == nil {
		t.Error("DecodeToken() error = nil, want missing expiry error")
	}
}

func TestDecodeToken_Garbage_ReturnsError(t *testing.T) {
	for _, token := range []string{"", "not-a-token", "a.b", strings.Repeat("x", 100)} {
		if _, err := DecodeToken(token); err == nil {
			t.Errorf("DecodeToken(%q) error = nil, want error", token)
		}
	}
}

func TestDecodeToken_UnknownSigningKey_StillDecodes(t *testing.T) {
	// Signature verification is the server's job; decoding must work with
	// tokens this client could never verify.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp":      time.Now().Add(time.Hour).Unix(),
		"username": "bob",
	})
	signed, err := token.SignedString([]byte("some-foreign-server-key"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}

	claims, err := DecodeToken(signed)
	if err != nil {
		t.Fatalf("DecodeToken() error = %v, want nil", err)
	}
	if claims.Username != "bob" {
		t.Errorf("Username = %q, want %q", claims.Username, "bob")
	}
}
