package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestBuildAndParseJWT(t *testing.T) {
	secret := []byte("test-jwt-secret-min-32-chars-xxxxxxxxxxxx")
	id := uuid.New()
	token, err := BuildJWT(secret, id, "ana@ampliar.local", time.Hour)
	if err != nil {
		t.Fatalf("BuildJWT: %v", err)
	}
	claims, err := ParseJWT(secret, token)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID != id.String() {
		t.Errorf("UserID = %q, want %q", claims.UserID, id.String())
	}
	if claims.Email != "ana@ampliar.local" {
		t.Errorf("Email = %q, want ana@ampliar.local", claims.Email)
	}
	if claims.Role != RolePsychologist {
		t.Errorf("Role = %q, want %q", claims.Role, RolePsychologist)
	}
}

func TestParseJWT_WrongSecret(t *testing.T) {
	token, err := BuildJWT([]byte("secret-one-min-32-chars-xxxxxxxxxxxxxx"), uuid.New(), "a@b.c", time.Hour)
	if err != nil {
		t.Fatalf("BuildJWT: %v", err)
	}
	if _, err := ParseJWT([]byte("secret-two-min-32-chars-xxxxxxxxxxxxxx"), token); err == nil {
		t.Error("expected error parsing token with wrong secret")
	}
}

func TestParseJWT_Expired(t *testing.T) {
	secret := []byte("test-jwt-secret-min-32-chars-xxxxxxxxxxxx")
	token, err := BuildJWT(secret, uuid.New(), "a@b.c", -time.Minute)
	if err != nil {
		t.Fatalf("BuildJWT: %v", err)
	}
	if _, err := ParseJWT(secret, token); err == nil {
		t.Error("expected error parsing expired token")
	}
}
