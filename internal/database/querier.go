package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Querier interface {
	CountLedgerEntries(ctx context.Context) (int64, error)
	CountLedgerEntriesUploadedBetween(ctx context.Context, from, to *time.Time) (int64, error)
	CreatePasswordReset(ctx context.Context, arg CreatePasswordResetParams) (PasswordReset, error)
	CreatePendingUser(ctx context.Context, arg CreatePendingUserParams) (PendingUser, error)
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	DeleteAllLedgerEntries(ctx context.Context) (int64, error)
	DeleteLedgerEntry(ctx context.Context, id uuid.UUID) (int64, error)
	DeletePasswordReset(ctx context.Context, id uuid.UUID) error
	DeletePasswordResetsForUser(ctx context.Context, userID uuid.UUID) error
	DeletePendingUser(ctx context.Context, id uuid.UUID) (int64, error)
	DeletePendingUsersByEmail(ctx context.Context, email string) (int64, error)
	DeleteProcessedPendingUsersBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteProcessedPendingUsersByEmail(ctx context.Context, email string) (int64, error)
	DeleteStalePasswordResets(ctx context.Context, now time.Time) (int64, error)
	DeleteUser(ctx context.Context, id uuid.UUID) (int64, error)
	GetLedgerEntry(ctx context.Context, id uuid.UUID) (LedgerEntry, error)
	GetLedgerEntryByDate(ctx context.Context, entryDate string) (LedgerEntry, error)
	GetPendingUser(ctx context.Context, id uuid.UUID) (PendingUser, error)
	GetUsablePasswordReset(ctx context.Context, token string, now time.Time) (PasswordReset, error)
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	HasOpenPendingUser(ctx context.Context, email string) (bool, error)
	ListAllLedgerEntries(ctx context.Context) ([]LedgerEntry, error)
	ListAllPendingUsers(ctx context.Context) ([]PendingUser, error)
	ListLedgerEntries(ctx context.Context, arg ListLedgerEntriesParams) ([]LedgerEntryWithUploader, error)
	ListLedgerEntriesUploadedSince(ctx context.Context, since time.Time) ([]LedgerEntry, error)
	ListPendingUsersByStatus(ctx context.Context, status string) ([]PendingUser, error)
	ListUsers(ctx context.Context) ([]User, error)
	MarkPasswordResetUsed(ctx context.Context, id uuid.UUID) (bool, error)
	ReviewPendingUser(ctx context.Context, arg ReviewPendingUserParams) (PendingUser, error)
	TouchUserLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error)
	UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpsertLedgerEntry(ctx context.Context, arg UpsertLedgerEntryParams) (entry LedgerEntry, inserted bool, err error)
	UserExistsByEmail(ctx context.Context, email string) (bool, error)
}

var _ Querier = (*Queries)(nil)
