package core

import (
	"context"
	"testing"
	"time"

	"github.com/JonMunkholm/ledger/internal/auth"
	"github.com/google/uuid"
)

func TestRequestRegistration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "taken@example.com", auth.RoleHR)

	valid := RegistrationRequest{Name: "Bia", Email: "Bia@Example.com", Password: "secret1", Role: "financial"}

	tests := []struct {
		name   string
		mutate func(*RegistrationRequest)
		code   string
	}{
		{name: "missing name", mutate: func(r *RegistrationRequest) { r.Name = "  " }, code: "VAL002"},
		{name: "unknown role", mutate: func(r *RegistrationRequest) { r.Role = "intern" }, code: "VAL005"},
		{name: "short password", mutate: func(r *RegistrationRequest) { r.Password = "abc" }, code: "VAL003"},
		{name: "email already a user", mutate: func(r *RegistrationRequest) { r.Email = "TAKEN@example.com" }, code: "USR002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := env.svc.RequestRegistration(ctx, in)
			assertCode(t, err, ErrInvalidInput, tt.code)
		})
	}

	req, err := env.svc.RequestRegistration(ctx, valid)
	if err != nil {
		t.Fatalf("RequestRegistration: %v", err)
	}
	if req.Email != "bia@example.com" || req.Status != StatusPending {
		t.Errorf("request = %+v", req)
	}
	stored := env.q.Pending[req.ID]
	if stored.PasswordHash == valid.Password || !auth.CheckPassword(stored.PasswordHash, valid.Password) {
		t.Error("stored password is not a bcrypt hash of the submitted one")
	}

	_, err = env.svc.RequestRegistration(ctx, valid)
	assertCode(t, err, ErrInvalidInput, "USR003")
}

func TestRequestRegistration_ReplacesReviewedRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, "admin@example.com", auth.RoleAdmin)

	in := RegistrationRequest{Name: "Caio", Email: "caio@example.com", Password: "secret1", Role: "hr"}
	first, err := env.svc.RequestRegistration(ctx, in)
	if err != nil {
		t.Fatalf("RequestRegistration: %v", err)
	}
	if _, err := env.svc.RejectRegistration(ctx, admin, first.ID, ""); err != nil {
		t.Fatalf("RejectRegistration: %v", err)
	}

	second, err := env.svc.RequestRegistration(ctx, in)
	if err != nil {
		t.Fatalf("second RequestRegistration: %v", err)
	}
	all, _ := env.svc.AllRegistrations(ctx, admin)
	if len(all) != 1 || all[0].ID != second.ID {
		t.Errorf("registrations = %+v, want only the new request", all)
	}
}

func TestApproveRegistration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, "admin@example.com", auth.RoleAdmin)
	hr := env.seedUser(t, "hr@example.com", auth.RoleHR)

	req, err := env.svc.RequestRegistration(ctx, RegistrationRequest{
		Name: "Davi", Email: "davi@example.com", Password: "chosen1", Role: "commercial",
	})
	if err != nil {
		t.Fatalf("RequestRegistration: %v", err)
	}

	_, err = env.svc.ApproveRegistration(ctx, hr, req.ID)
	assertCode(t, err, ErrForbidden, "AUTH005")

	u, err := env.svc.ApproveRegistration(ctx, admin, req.ID)
	if err != nil {
		t.Fatalf("ApproveRegistration: %v", err)
	}
	if !u.IsActive || u.Role != auth.RoleCommercial {
		t.Errorf("user = %+v", u)
	}
	if _, err := env.svc.Login(ctx, "davi@example.com", "chosen1", "commercial"); err != nil {
		t.Errorf("Login with registered password: %v", err)
	}

	reviewed := env.q.Pending[req.ID]
	if reviewed.Status != StatusApproved || reviewed.ReviewedBy == nil || *reviewed.ReviewedBy != admin.ID {
		t.Errorf("request after approval = %+v", reviewed)
	}

	_, err = env.svc.ApproveRegistration(ctx, admin, req.ID)
	assertCode(t, err, ErrInvalidInput, "USR004")

	_, err = env.svc.ApproveRegistration(ctx, admin, uuid.New())
	assertCode(t, err, ErrNotFound, "USR006")

	pending, err := env.svc.PendingRegistrations(ctx, admin)
	if err != nil {
		t.Fatalf("PendingRegistrations: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0", len(pending))
	}
}

func TestApproveRegistration_EmailTakenMeanwhile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, "admin@example.com", auth.RoleAdmin)

	req, err := env.svc.RequestRegistration(ctx, RegistrationRequest{
		Name: "Eva", Email: "eva@example.com", Password: "secret1", Role: "hr",
	})
	if err != nil {
		t.Fatalf("RequestRegistration: %v", err)
	}
	env.seedUser(t, "eva@example.com", auth.RoleHR)

	_, err = env.svc.ApproveRegistration(ctx, admin, req.ID)
	assertCode(t, err, ErrInvalidInput, "USR002")
	if got := env.q.Pending[req.ID].Status; got != StatusPending {
		t.Errorf("status = %s, want %s", got, StatusPending)
	}
}

func TestRejectRegistration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, "admin@example.com", auth.RoleAdmin)

	tests := []struct {
		name   string
		reason string
		want   string
	}{
		{name: "explicit reason", reason: "Unknown department", want: "Unknown department"},
		{name: "blank reason", reason: "   ", want: defaultRejectionReason},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := env.svc.RequestRegistration(ctx, RegistrationRequest{
				Name: "R", Email: "r" + string(rune('a'+i)) + "@example.com", Password: "secret1", Role: "hr",
			})
			if err != nil {
				t.Fatalf("RequestRegistration: %v", err)
			}
			got, err := env.svc.RejectRegistration(ctx, admin, req.ID, tt.reason)
			if err != nil {
				t.Fatalf("RejectRegistration: %v", err)
			}
			if got.Status != StatusRejected || got.RejectionReason != tt.want {
				t.Errorf("rejected = %+v, want reason %q", got, tt.want)
			}

			_, err = env.svc.RejectRegistration(ctx, admin, req.ID, "")
			assertCode(t, err, ErrInvalidInput, "USR004")
		})
	}
}

func TestCleanupRegistrations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, "admin@example.com", auth.RoleAdmin)

	open, _ := env.svc.RequestRegistration(ctx, RegistrationRequest{Name: "A", Email: "a@example.com", Password: "secret1", Role: "hr"})
	old, _ := env.svc.RequestRegistration(ctx, RegistrationRequest{Name: "B", Email: "b@example.com", Password: "secret1", Role: "hr"})
	if _, err := env.svc.RejectRegistration(ctx, admin, old.ID, ""); err != nil {
		t.Fatalf("RejectRegistration: %v", err)
	}

	n, err := env.svc.CleanupRegistrations(ctx, admin)
	if err != nil {
		t.Fatalf("CleanupRegistrations: %v", err)
	}
	if n != 0 {
		t.Errorf("removed = %d right after review, want 0", n)
	}

	later := time.Now().AddDate(0, 0, 31)
	env.svc.now = func() time.Time { return later }
	n, err = env.svc.CleanupRegistrations(ctx, admin)
	if err != nil {
		t.Fatalf("CleanupRegistrations: %v", err)
	}
	if n != 1 {
		t.Errorf("removed = %d, want 1", n)
	}
	if _, ok := env.q.Pending[open.ID]; !ok {
		t.Error("open request was purged")
	}
}

func TestDeleteRegistration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, "admin@example.com", auth.RoleAdmin)

	req, _ := env.svc.RequestRegistration(ctx, RegistrationRequest{Name: "A", Email: "a@example.com", Password: "secret1", Role: "hr"})
	if err := env.svc.DeleteRegistration(ctx, admin, req.ID); err != nil {
		t.Fatalf("DeleteRegistration: %v", err)
	}
	assertCode(t, env.svc.DeleteRegistration(ctx, admin, req.ID), ErrNotFound, "USR006")
}
