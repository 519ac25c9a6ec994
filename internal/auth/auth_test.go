package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("segredo1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "segredo1" {
		t.Fatal("HashPassword returned the plain text")
	}
	if !CheckPassword(hash, "segredo1") {
		t.Error("CheckPassword rejected the right password")
	}
	if CheckPassword(hash, "segredo2") {
		t.Error("CheckPassword accepted a wrong password")
	}
}

func TestHashPassword_TooShort(t *testing.T) {
	if _, err := HashPassword("12345"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("HashPassword(short) error = %v, want ErrPasswordTooShort", err)
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"admin", true},
		{"financial", true},
		{"purchasing", true},
		{"Admin", false},
		{"root", false},
		{"", false},
	}

	for _, tt := range tests {
		if _, ok := ParseRole(tt.input); ok != tt.ok {
			t.Errorf("ParseRole(%q) ok = %v, want %v", tt.input, ok, tt.ok)
		}
	}
}

func TestRandomToken(t *testing.T) {
	a, err := RandomToken(32)
	if err != nil {
		t.Fatalf("RandomToken: %v", err)
	}
	if len(a) != 64 {
		t.Errorf("len = %d, want 64 hex chars", len(a))
	}
	b, _ := RandomToken(32)
	if a == b {
		t.Error("two tokens are equal")
	}
}

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens("test-secret-value-123", time.Hour)
	id := uuid.New()

	signed, exp, err := tokens.Issue(id)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry %v is not in the future", exp)
	}

	got, err := tokens.Verify(signed)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != id {
		t.Errorf("Verify = %v, want %v", got, id)
	}
}

func TestTokens_Rejects(t *testing.T) {
	id := uuid.New()
	issuer := NewTokens("test-secret-value-123", time.Hour)
	signed, _, err := issuer.Issue(id)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokens("another-secret-value", time.Hour)
		if _, err := other.Verify(signed); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := issuer.Verify("not.a.token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		later := NewTokens("test-secret-value-123", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		if _, err := later.Verify(signed); !errors.Is(err, ErrTokenExpired) {
			t.Errorf("Verify error = %v, want ErrTokenExpired", err)
		}
	})
}

func TestPrincipalContext(t *testing.T) {
	if _, ok := PrincipalFrom(context.Background()); ok {
		t.Error("PrincipalFrom on empty context ok = true")
	}

	p := Principal{ID: uuid.New(), Role: RoleFinancial}
	got, ok := PrincipalFrom(WithPrincipal(context.Background(), p))
	if !ok || got.ID != p.ID {
		t.Errorf("PrincipalFrom = %+v, %v", got, ok)
	}
	if !got.Is(UploadRoles...) {
		t.Error("financial should be an upload role")
	}
	if got.Is(RoleAdmin) {
		t.Error("financial is not admin")
	}
}
