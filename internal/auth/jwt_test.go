package auth

import (
	"testing"
	"time"
)

func TestSignAndVerify_roundTripsRole(t *testing.T) {
	s := NewJWTService("test-secret")

	tok, err := s.SignToken("ops@lockerhub", RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := s.VerifyToken(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "ops@lockerhub" {
		t.Errorf("subject = %q", claims.Subject)
	}
	if !claims.IsAdmin() {
		t.Error("admin role should survive signing")
	}
}

func TestVerify_rejectsForeignSecretAndExpiry(t *testing.T) {
	s := NewJWTService("test-secret")
	other := NewJWTService("other-secret")

	tok, err := other.SignToken("someone", RoleAdmin, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.VerifyToken(tok); err == nil {
		t.Error("token signed with another secret must be rejected")
	}

	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := s.SignToken("someone", RoleUser, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	s.now = time.Now
	if _, err := s.VerifyToken(old); err == nil {
		t.Error("expired token must be rejected")
	}

	if _, err := s.VerifyToken("not.a.jwt"); err == nil {
		t.Error("garbage must be rejected")
	}
	if _, err := s.SignToken("", RoleUser, 0); err == nil {
		t.Error("empty subject must be rejected")
	}
}
