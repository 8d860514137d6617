package auth

import (
	"testing"
	"time"
)

func TestGenerateAndParse(t *testing.T) {
	svc := NewJWTService("secret")

	token, err := svc.GenerateToken("owner-1", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	got, err := svc.ParseAccountID(token)
	if err != nil {
		t.Fatalf("ParseAccountID: %v", err)
	}
	if got != "owner-1" {
		t.Fatalf("account id = %q, want owner-1", got)
	}
}

func TestParseRejectsForeignAndExpired(t *testing.T) {
	svc := NewJWTService("secret")

	foreign, err := NewJWTService("other").GenerateToken("owner-1", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := svc.ParseAccountID(foreign); err == nil {
		t.Fatalf("token signed with another key accepted")
	}

	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := svc.GenerateToken("owner-1", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	svc.now = time.Now
	if _, err := svc.ParseAccountID(expired); err == nil {
		t.Fatalf("expired token accepted")
	}
}

func TestGenerateRequiresAccount(t *testing.T) {
	if _, err := NewJWTService("secret").GenerateToken("", time.Hour); err == nil {
		t.Fatalf("empty account id accepted")
	}
}
