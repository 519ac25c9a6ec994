// Package dbtest provides an in-memory database.Querier for tests.
package dbtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/ledger/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const statusPending = "pending"

// Queries is an in-memory database.Querier with the same not-found and
// unique-violation errors Postgres returns.
//
// The maps are exported so tests can arrange and inspect state. Touch them
// only while no query is running.
type Queries struct {
	mu      sync.Mutex
	Users   map[uuid.UUID]database.User
	Pending map[uuid.UUID]database.PendingUser
	Resets  map[uuid.UUID]database.PasswordReset
	Entries map[string]database.LedgerEntry
}

var _ database.Querier = (*Queries)(nil)

func NewQueries() *Queries {
	return &Queries{
		Users:   map[uuid.UUID]database.User{},
		Pending: map[uuid.UUID]database.PendingUser{},
		Resets:  map[uuid.UUID]database.PasswordReset{},
		Entries: map[string]database.LedgerEntry{},
	}
}

// ErrUnique is returned on a duplicate email.
var ErrUnique = &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}

// Ledger entries.

func (f *Queries) UpsertLedgerEntry(_ context.Context, arg database.UpsertLedgerEntryParams) (database.LedgerEntry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, found := f.Entries[arg.EntryDate]
	e := database.LedgerEntry{
		ID:                arg.ID,
		EntryDate:         arg.EntryDate,
		SortDate:          arg.SortDate,
		ReceivableVp:      arg.ReceivableVp,
		PayableVp:         arg.PayableVp,
		ReceivableTgn:     arg.ReceivableTgn,
		PayableTgn:        arg.PayableTgn,
		TotalReceivable:   arg.TotalReceivable,
		TotalPayable:      arg.TotalPayable,
		DailyBalance:      arg.DailyBalance,
		CumulativeBalance: arg.CumulativeBalance,
		UploadedBy:        arg.UploadedBy,
		SourceFileName:    arg.SourceFileName,
		UploadedAt:        arg.UploadedAt,
		CreatedAt:         arg.UploadedAt,
		UpdatedAt:         arg.UploadedAt,
	}
	if found {
		e.ID = existing.ID
		e.CreatedAt = existing.CreatedAt
	}
	f.Entries[arg.EntryDate] = e
	return e, !found, nil
}

func (f *Queries) GetLedgerEntryByDate(_ context.Context, date string) (database.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.Entries[date]
	if !ok {
		return database.LedgerEntry{}, pgx.ErrNoRows
	}
	return e, nil
}

func (f *Queries) GetLedgerEntry(_ context.Context, id uuid.UUID) (database.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.Entries {
		if e.ID == id {
			return e, nil
		}
	}
	return database.LedgerEntry{}, pgx.ErrNoRows
}

func (f *Queries) CountLedgerEntries(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.Entries)), nil
}

func (f *Queries) DeleteAllLedgerEntries(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.Entries))
	f.Entries = map[string]database.LedgerEntry{}
	return n, nil
}

func (f *Queries) DeleteLedgerEntry(_ context.Context, id uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, e := range f.Entries {
		if e.ID == id {
			delete(f.Entries, k)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *Queries) sortedEntries(keep func(database.LedgerEntry) bool) []database.LedgerEntry {
	var out []database.LedgerEntry
	for _, e := range f.Entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].SortDate, out[j].SortDate
		switch {
		case a == nil && b == nil:
			return out[i].EntryDate < out[j].EntryDate
		case a == nil:
			return true
		case b == nil:
			return false
		case !a.Equal(*b):
			return a.Before(*b)
		}
		return out[i].EntryDate < out[j].EntryDate
	})
	return out
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func (f *Queries) ListLedgerEntries(_ context.Context, arg database.ListLedgerEntriesParams) ([]database.LedgerEntryWithUploader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.sortedEntries(func(e database.LedgerEntry) bool { return inRange(e.UploadedAt, arg.UploadedFrom, arg.UploadedTo) })
	var out []database.LedgerEntryWithUploader
	for i := int(arg.Offset); i < len(all) && len(out) < int(arg.Limit); i++ {
		u := f.Users[all[i].UploadedBy]
		out = append(out, database.LedgerEntryWithUploader{LedgerEntry: all[i], UploaderName: u.Name, UploaderEmail: u.Email})
	}
	return out, nil
}

func (f *Queries) CountLedgerEntriesUploadedBetween(_ context.Context, from, to *time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.sortedEntries(func(e database.LedgerEntry) bool { return inRange(e.UploadedAt, from, to) }))), nil
}

func (f *Queries) ListLedgerEntriesUploadedSince(_ context.Context, since time.Time) ([]database.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedEntries(func(e database.LedgerEntry) bool { return !e.UploadedAt.Before(since) }), nil
}

func (f *Queries) ListAllLedgerEntries(context.Context) ([]database.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedEntries(func(database.LedgerEntry) bool { return true }), nil
}

// Users.

func (f *Queries) CreateUser(_ context.Context, arg database.CreateUserParams) (database.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.Users {
		if u.Email == arg.Email {
			return database.User{}, ErrUnique
		}
	}
	now := time.Now()
	u := database.User{
		ID: arg.ID, Name: arg.Name, Email: arg.Email, PasswordHash: arg.PasswordHash,
		Role: arg.Role, Department: arg.Department, Position: arg.Position, IsActive: arg.IsActive,
		CreatedAt: now, UpdatedAt: now,
	}
	f.Users[u.ID] = u
	return u, nil
}

func (f *Queries) GetUser(_ context.Context, id uuid.UUID) (database.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.Users[id]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *Queries) GetUserByEmail(_ context.Context, email string) (database.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.Users {
		if u.Email == email {
			return u, nil
		}
	}
	return database.User{}, pgx.ErrNoRows
}

func (f *Queries) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.GetUserByEmail(ctx, email)
	return err == nil, nil
}

func (f *Queries) ListUsers(context.Context) ([]database.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]database.User, 0, len(f.Users))
	for _, u := range f.Users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *Queries) UpdateUser(_ context.Context, arg database.UpdateUserParams) (database.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.Users[arg.ID]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	for id, other := range f.Users {
		if id != arg.ID && other.Email == arg.Email {
			return database.User{}, ErrUnique
		}
	}
	u.Name, u.Email, u.Role = arg.Name, arg.Email, arg.Role
	u.Department, u.Position, u.IsActive = arg.Department, arg.Position, arg.IsActive
	f.Users[u.ID] = u
	return u, nil
}

func (f *Queries) UpdateUserPassword(_ context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.Users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.PasswordHash = hash
	f.Users[id] = u
	return nil
}

func (f *Queries) TouchUserLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.Users[id]
	u.LastLogin = &at
	f.Users[id] = u
	return nil
}

func (f *Queries) DeleteUser(_ context.Context, id uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Users[id]; !ok {
		return 0, nil
	}
	delete(f.Users, id)
	for rid, r := range f.Resets {
		if r.UserID == id {
			delete(f.Resets, rid)
		}
	}
	return 1, nil
}

// Registration requests.

func (f *Queries) CreatePendingUser(_ context.Context, arg database.CreatePendingUserParams) (database.PendingUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := database.PendingUser{
		ID: arg.ID, Name: arg.Name, Email: arg.Email, PasswordHash: arg.PasswordHash,
		Role: arg.Role, Status: statusPending, RequestedAt: time.Now(),
	}
	f.Pending[p.ID] = p
	return p, nil
}

func (f *Queries) GetPendingUser(_ context.Context, id uuid.UUID) (database.PendingUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Pending[id]
	if !ok {
		return database.PendingUser{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *Queries) HasOpenPendingUser(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.Pending {
		if p.Email == email && p.Status == statusPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *Queries) listPending(keep func(database.PendingUser) bool) []database.PendingUser {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []database.PendingUser
	for _, p := range f.Pending {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out
}

func (f *Queries) ListPendingUsersByStatus(_ context.Context, status string) ([]database.PendingUser, error) {
	return f.listPending(func(p database.PendingUser) bool { return p.Status == status }), nil
}

func (f *Queries) ListAllPendingUsers(context.Context) ([]database.PendingUser, error) {
	return f.listPending(func(database.PendingUser) bool { return true }), nil
}

func (f *Queries) ReviewPendingUser(_ context.Context, arg database.ReviewPendingUserParams) (database.PendingUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Pending[arg.ID]
	if !ok || p.Status != statusPending {
		return database.PendingUser{}, pgx.ErrNoRows
	}
	reviewedAt, reviewedBy := arg.ReviewedAt, arg.ReviewedBy
	p.Status, p.ReviewedAt, p.ReviewedBy, p.RejectionReason = arg.Status, &reviewedAt, &reviewedBy, arg.RejectionReason
	f.Pending[p.ID] = p
	return p, nil
}

func (f *Queries) deletePending(keep func(database.PendingUser) bool) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, p := range f.Pending {
		if keep(p) {
			delete(f.Pending, id)
			n++
		}
	}
	return n
}

func (f *Queries) DeletePendingUser(_ context.Context, id uuid.UUID) (int64, error) {
	return f.deletePending(func(p database.PendingUser) bool { return p.ID == id }), nil
}

func (f *Queries) DeletePendingUsersByEmail(_ context.Context, email string) (int64, error) {
	return f.deletePending(func(p database.PendingUser) bool { return p.Email == email }), nil
}

func (f *Queries) DeleteProcessedPendingUsersByEmail(_ context.Context, email string) (int64, error) {
	return f.deletePending(func(p database.PendingUser) bool { return p.Email == email && p.Status != statusPending }), nil
}

func (f *Queries) DeleteProcessedPendingUsersBefore(_ context.Context, cutoff time.Time) (int64, error) {
	return f.deletePending(func(p database.PendingUser) bool {
		return p.Status != statusPending && p.ReviewedAt != nil && p.ReviewedAt.Before(cutoff)
	}), nil
}

// Password resets.

func (f *Queries) CreatePasswordReset(_ context.Context, arg database.CreatePasswordResetParams) (database.PasswordReset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := database.PasswordReset{ID: arg.ID, UserID: arg.UserID, Email: arg.Email, Token: arg.Token, ExpiresAt: arg.ExpiresAt, CreatedAt: time.Now()}
	f.Resets[r.ID] = r
	return r, nil
}

func (f *Queries) GetUsablePasswordReset(_ context.Context, token string, now time.Time) (database.PasswordReset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.Resets {
		if r.Token == token && !r.Used && r.ExpiresAt.After(now) {
			return r, nil
		}
	}
	return database.PasswordReset{}, pgx.ErrNoRows
}

func (f *Queries) MarkPasswordResetUsed(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.Resets[id]
	if !ok || r.Used {
		return false, nil
	}
	r.Used = true
	f.Resets[id] = r
	return true, nil
}

func (f *Queries) DeletePasswordReset(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Resets, id)
	return nil
}

func (f *Queries) DeletePasswordResetsForUser(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.Resets {
		if r.UserID == userID {
			delete(f.Resets, id)
		}
	}
	return nil
}

func (f *Queries) DeleteStalePasswordResets(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, r := range f.Resets {
		if r.Used || !r.ExpiresAt.After(now) {
			delete(f.Resets, id)
			n++
		}
	}
	return n, nil
}

// ResetCount returns the number of stored reset tokens.
func (f *Queries) ResetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Resets)
}
