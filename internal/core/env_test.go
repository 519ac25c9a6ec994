package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JonMunkholm/ledger/internal/auth"
	"github.com/JonMunkholm/ledger/internal/config"
	db "github.com/JonMunkholm/ledger/internal/database"
	"github.com/JonMunkholm/ledger/internal/database/dbtest"
	"github.com/JonMunkholm/ledger/internal/events"
	"github.com/JonMunkholm/ledger/internal/mail"
	"github.com/google/uuid"
)

// failingMailer fails every Send.
type failingMailer struct{}

func (failingMailer) Open(context.Context) error               { return nil }
func (failingMailer) Send(context.Context, mail.Message) error { return errSMTP }
func (failingMailer) Close() error                             { return nil }

var errSMTP = errors.New("smtp: 554 rejected")

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{PublicURL: "https://ledger.example.com/"},
		Upload: config.UploadConfig{
			MaxConcurrent:   2,
			MaxWaitTime:     time.Second,
			Timeout:         time.Minute,
			RejectionSample: 5,
		},
		Security: config.SecurityConfig{
			JWTSecret:     "test-secret-0123456789",
			TokenTTL:      time.Hour,
			ResetTokenTTL: 15 * time.Minute,
		},
		Housekeeping: config.HousekeepingConfig{
			Timezone:             "UTC",
			RegistrationSchedule: "0 3 * * *",
			ResetTokenSchedule:   "*/30 * * * *",
			RetentionDays:        30,
		},
		Ledger: config.LedgerConfig{Timezone: "UTC"},
	}
}

type testEnv struct {
	svc    *Service
	q      *dbtest.Queries
	mailer *mail.LogMailer
	events *events.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, testConfig())
}

func newTestEnvWithConfig(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	q := dbtest.NewQueries()
	m := &mail.LogMailer{}
	if err := m.Open(context.Background()); err != nil {
		t.Fatalf("open mailer: %v", err)
	}
	rec := &events.Recorder{}
	svc, err := New(cfg, Deps{Queries: q, Mailer: m, Events: rec})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &testEnv{svc: svc, q: q, mailer: m, events: rec}
}

// seedUser stores an active user with password "secret1".
func (e *testEnv) seedUser(t *testing.T, email string, role auth.Role) auth.Principal {
	t.Helper()
	hash, err := auth.HashPassword("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u, err := e.q.CreateUser(context.Background(), db.CreateUserParams{
		ID: uuid.New(), Name: "User " + string(role), Email: email, PasswordHash: hash, Role: string(role), IsActive: true,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return principal(u)
}
