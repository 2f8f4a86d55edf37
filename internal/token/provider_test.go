package token

import (
	"testing"
	"time"
)

func newTestProvider(accessTTL, refreshTTL time.Duration) *Provider {
	return NewProvider("test-secret", "drox-api", accessTTL, refreshTTL)
}

func TestIssueAndValidateAccess(t *testing.T) {
	p := newTestProvider(15*time.Minute, time.Hour)
	raw, exp, err := p.IssueAccess("sess-1", "user-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if time.Until(exp) < 14*time.Minute {
		t.Errorf("expiresAt слишком близко: %v", exp)
	}
	userID, sessionID, err := p.ValidateAccess(raw)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if userID != "user-1" || sessionID != "sess-1" {
		t.Errorf("got (%q, %q), want (user-1, sess-1)", userID, sessionID)
	}
}

func TestIssueAndValidateRefresh(t *testing.T) {
	p := newTestProvider(time.Minute, time.Hour)
	raw, jti, _, err := p.IssueRefresh("sess-1", "user-1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if jti == "" {
		t.Fatal("jti пустой")
	}
	sessionID, gotJTI, userID, err := p.ValidateRefresh(raw)
	if err != nil {
		t.Fatalf("ValidateRefresh: %v", err)
	}
	if sessionID != "sess-1" || gotJTI != jti || userID != "user-1" {
		t.Errorf("got (%q, %q, %q)", sessionID, gotJTI, userID)
	}
}

func TestValidate_WrongType(t *testing.T) {
	p := newTestProvider(time.Minute, time.Hour)
	access, _, err := p.IssueAccess("sess-1", "user-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	// access-токен нельзя предъявить как refresh
	if _, _, _, err := p.ValidateRefresh(access); err == nil {
		t.Error("ValidateRefresh принял access-токен")
	}
	refresh, _, _, err := p.IssueRefresh("sess-1", "user-1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if _, _, err := p.ValidateAccess(refresh); err == nil {
		t.Error("ValidateAccess принял refresh-токен")
	}
}

func TestValidate_Expired(t *testing.T) {
	p := newTestProvider(-time.Minute, time.Hour)
	raw, _, err := p.IssueAccess("sess-1", "user-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, _, err := p.ValidateAccess(raw); err == nil {
		t.Error("просроченный токен прошёл проверку")
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	p := newTestProvider(time.Minute, time.Hour)
	other := NewProvider("other-secret", "drox-api", time.Minute, time.Hour)
	raw, _, err := p.IssueAccess("sess-1", "user-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, _, err := other.ValidateAccess(raw); err == nil {
		t.Error("токен с чужой подписью прошёл проверку")
	}
}

func TestHashRefreshToken_Deterministic(t *testing.T) {
	a := HashRefreshToken("tok")
	b := HashRefreshToken("tok")
	if a != b {
		t.Error("хэш не детерминирован")
	}
	if a == HashRefreshToken("tok2") {
		t.Error("разные токены дали один хэш")
	}
	if len(a) != 64 {
		t.Errorf("len(hash) = %d, want 64", len(a))
	}
}
