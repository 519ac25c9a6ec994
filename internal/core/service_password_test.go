package core

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/ledger/internal/auth"
)

var tokenInLink = regexp.MustCompile(`reset-password\?token=([0-9a-f]+)`)

// requestReset runs ForgotPassword and returns the token from the sent mail.
func requestReset(t *testing.T, env *testEnv, email string) string {
	t.Helper()
	sent, err := env.svc.ForgotPassword(context.Background(), email)
	if err != nil || !sent {
		t.Fatalf("ForgotPassword = %v, %v; want true, nil", sent, err)
	}
	msgs := env.mailer.Sent()
	if len(msgs) == 0 {
		t.Fatal("no mail sent")
	}
	m := tokenInLink.FindStringSubmatch(msgs[len(msgs)-1].Text)
	if m == nil {
		t.Fatalf("no reset link in mail body:\n%s", msgs[len(msgs)-1].Text)
	}
	return m[1]
}

func TestForgotPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "admin@example.com", auth.RoleAdmin)
	env.seedUser(t, "fin@example.com", auth.RoleFinancial)
	off := env.seedUser(t, "off@example.com", auth.RoleAdmin)
	u := env.q.Users[off.ID]
	u.IsActive = false
	env.q.Users[off.ID] = u

	sent, err := env.svc.ForgotPassword(ctx, "nobody@example.com")
	if err != nil || sent {
		t.Errorf("unknown email: ForgotPassword = %v, %v; want false, nil", sent, err)
	}

	_, err = env.svc.ForgotPassword(ctx, "fin@example.com")
	assertCode(t, err, ErrForbidden, "AUTH007")

	_, err = env.svc.ForgotPassword(ctx, "off@example.com")
	assertCode(t, err, ErrInvalidInput, "AUTH002")

	if n := len(env.mailer.Sent()); n != 0 {
		t.Fatalf("mails sent = %d, want 0", n)
	}

	token := requestReset(t, env, " Admin@Example.com ")
	if len(token) != 2*resetTokenBytes {
		t.Errorf("token length = %d, want %d", len(token), 2*resetTokenBytes)
	}
	msg := env.mailer.Sent()[0]
	if msg.To != "admin@example.com" {
		t.Errorf("To = %q", msg.To)
	}
	if !strings.Contains(msg.Text, "https://ledger.example.com/reset-password?token=") {
		t.Errorf("link does not use the public URL:\n%s", msg.Text)
	}

	requestReset(t, env, "admin@example.com")
	if n := env.q.ResetCount(); n != 1 {
		t.Errorf("reset tokens = %d after a second request, want 1", n)
	}
}

func TestForgotPassword_SendFailureDropsToken(t *testing.T) {
	env := newTestEnv(t)
	env.svc.mailer = failingMailer{}
	env.seedUser(t, "admin@example.com", auth.RoleAdmin)

	_, err := env.svc.ForgotPassword(context.Background(), "admin@example.com")
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := MapError(err).Code; got != "MAIL001" {
		t.Errorf("code = %s, want MAIL001", got)
	}
	if n := env.q.ResetCount(); n != 0 {
		t.Errorf("reset tokens = %d, want 0", n)
	}
}

func TestResetPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "admin@example.com", auth.RoleAdmin)
	token := requestReset(t, env, "admin@example.com")

	target, err := env.svc.ValidateResetToken(ctx, token)
	if err != nil {
		t.Fatalf("ValidateResetToken: %v", err)
	}
	if target.Email != "admin@example.com" {
		t.Errorf("target = %+v", target)
	}

	tests := []struct {
		name     string
		token    string
		password string
		confirm  string
		code     string
	}{
		{name: "missing confirm", token: token, password: "newpass1", code: "VAL002"},
		{name: "mismatch", token: token, password: "newpass1", confirm: "newpass2", code: "VAL004"},
		{name: "too short", token: token, password: "abc", confirm: "abc", code: "VAL003"},
		{name: "unknown token", token: "deadbeef", password: "newpass1", confirm: "newpass1", code: "AUTH006"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.ResetPassword(ctx, tt.token, tt.password, tt.confirm)
			assertCode(t, err, ErrInvalidInput, tt.code)
		})
	}

	if _, err := env.svc.ResetPassword(ctx, token, "newpass1", "newpass1"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, err := env.svc.Login(ctx, "admin@example.com", "newpass1", "admin"); err != nil {
		t.Errorf("Login with new password: %v", err)
	}

	_, err = env.svc.ResetPassword(ctx, token, "another1", "another1")
	assertCode(t, err, ErrInvalidInput, "AUTH006")
	_, err = env.svc.ValidateResetToken(ctx, token)
	assertCode(t, err, ErrInvalidInput, "AUTH006")
}

func TestResetToken_Expiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "admin@example.com", auth.RoleAdmin)
	token := requestReset(t, env, "admin@example.com")

	later := time.Now().Add(16 * time.Minute)
	env.svc.now = func() time.Time { return later }

	_, err := env.svc.ValidateResetToken(ctx, token)
	assertCode(t, err, ErrInvalidInput, "AUTH006")

	n, err := env.svc.purgeResetTokens(ctx)
	if err != nil {
		t.Fatalf("purgeResetTokens: %v", err)
	}
	if n != 1 || env.q.ResetCount() != 0 {
		t.Errorf("purged = %d, left = %d; want 1, 0", n, env.q.ResetCount())
	}
}
