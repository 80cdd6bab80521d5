package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewCredential_RejectsEmpty(t *testing.T) {
	if _, err := NewCredential("   "); err != ErrEmptyToken {
		t.Fatalf("err = %v, want ErrEmptyToken", err)
	}
}

func TestNewCredential_StripsBearerPrefix(t *testing.T) {
	cred, err := NewCredential("Bearer abc123")
	if err != nil {
		t.Fatal(err)
	}
	if cred.Token() != "abc123" {
		t.Errorf("Token() = %q, want %q", cred.Token(), "abc123")
	}
	if cred.AuthorizationHeader() != "Bearer abc123" {
		t.Errorf("AuthorizationHeader() = %q", cred.AuthorizationHeader())
	}
}

func TestCredential_ExpiresAt_NonJWT(t *testing.T) {
	cred, err := NewCredential("opaque-token")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cred.ExpiresAt(); ok {
		t.Error("expected no expiry for opaque token")
	}
	if cred.ExpiresWithin(time.Hour) {
		t.Error("opaque token should not report imminent expiry")
	}
}

func TestCredential_ExpiresAt_JWT(t *testing.T) {
	expiry := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": expiry.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}

	cred, err := NewCredential(signed)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := cred.ExpiresAt()
	if !ok {
		t.Fatal("expected expiry to be readable")
	}
	if !got.Equal(expiry) {
		t.Errorf("ExpiresAt() = %v, want %v", got, expiry)
	}
	if !cred.ExpiresWithin(time.Hour) {
		t.Error("token expiring in 30m should report ExpiresWithin(1h)")
	}
	if cred.ExpiresWithin(time.Minute) {
		t.Error("token expiring in 30m should not report ExpiresWithin(1m)")
	}
}
