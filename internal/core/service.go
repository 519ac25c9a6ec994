package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/ledger/internal/auth"
	"github.com/JonMunkholm/ledger/internal/config"
	db "github.com/JonMunkholm/ledger/internal/database"
	"github.com/JonMunkholm/ledger/internal/events"
	"github.com/JonMunkholm/ledger/internal/ledger"
	"github.com/JonMunkholm/ledger/internal/mail"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxFunc runs fn inside one database transaction, committing when fn
// returns nil.
type TxFunc func(ctx context.Context, fn func(q db.Querier) error) error

// Deps are the collaborators a Service is built from.
type Deps struct {
	Queries db.Querier
	InTx    TxFunc
	Ping    func(ctx context.Context) error
	Mailer  mail.Mailer
	Events  events.Publisher
}

// Service holds the business operations behind the HTTP API and the admin
// CLI: ledger ingestion and queries, accounts, registration requests and
// password resets.
type Service struct {
	queries  db.Querier
	inTx     TxFunc
	ping     func(ctx context.Context) error
	mailer   mail.Mailer
	events   events.Publisher
	cfg      *config.Config
	ingester *ledger.Ingester
	dates    ledger.DateNormalizer
	limiter  *UploadLimiter
	tokens   *auth.Tokens
	now      func() time.Time
}

// NewService wires a Service to a Postgres pool.
func NewService(pool *pgxpool.Pool, cfg *config.Config, mailer mail.Mailer, publisher events.Publisher) (*Service, error) {
	return New(cfg, Deps{
		Queries: db.New(pool),
		InTx:    poolTx(pool),
		Ping:    pool.Ping,
		Mailer:  mailer,
		Events:  publisher,
	})
}

// New builds a Service from explicit dependencies.
func New(cfg *config.Config, deps Deps) (*Service, error) {
	aliases, err := ledger.LoadAliases(cfg.Ledger.AliasFile)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Ledger.Location()
	if err != nil {
		return nil, fmt.Errorf("ledger timezone: %w", err)
	}

	s := &Service{
		queries: deps.Queries,
		inTx:    deps.InTx,
		ping:    deps.Ping,
		mailer:  deps.Mailer,
		events:  deps.Events,
		cfg:     cfg,
		dates:   ledger.DateNormalizer{Location: loc},
		limiter: NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		tokens:  auth.NewTokens(cfg.Security.JWTSecret, cfg.Security.TokenTTL),
		now:     time.Now,
	}
	if s.inTx == nil {
		s.inTx = func(ctx context.Context, fn func(db.Querier) error) error { return fn(s.queries) }
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.mailer == nil {
		s.mailer = &mail.LogMailer{}
	}

	s.ingester = ledger.NewIngester(ledgerStore{q: s.queries},
		ledger.WithMapper(ledger.NewMapper(aliases, s.dates)),
		ledger.WithRejectionSample(cfg.Upload.RejectionSample),
		ledger.WithClock(func() time.Time { return s.now() }),
	)
	return s, nil
}

func poolTx(pool *pgxpool.Pool) TxFunc {
	return func(ctx context.Context, fn func(db.Querier) error) error {
		return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			return fn(db.New(tx))
		})
	}
}

// Tokens exposes the session token issuer to the HTTP layer.
func (s *Service) Tokens() *auth.Tokens {
	return s.tokens
}

// UploadLimiterStatus reports upload slot usage.
func (s *Service) UploadLimiterStatus() UploadLimiterStatus {
	return s.limiter.Status()
}

// WaitForUploads blocks until in-flight ingestions finish or ctx ends.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Health pings the database.
func (s *Service) Health(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
