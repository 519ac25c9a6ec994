package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const pendingUserColumns = `id, name, email, password_hash, role, status, requested_at, reviewed_at, reviewed_by, rejection_reason`

func scanPendingUser(row pgx.Row) (PendingUser, error) {
	var i PendingUser
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.PasswordHash,
		&i.Role,
		&i.Status,
		&i.RequestedAt,
		&i.ReviewedAt,
		&i.ReviewedBy,
		&i.RejectionReason,
	)
	return i, err
}

func (q *Queries) collectPendingUsers(ctx context.Context, sql string, args ...any) ([]PendingUser, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PendingUser
	for rows.Next() {
		i, err := scanPendingUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createPendingUser = `
INSERT INTO pending_users (id, name, email, password_hash, role, status)
VALUES ($1, $2, $3, $4, $5, 'pending')
RETURNING ` + pendingUserColumns

type CreatePendingUserParams struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
}

func (q *Queries) CreatePendingUser(ctx context.Context, arg CreatePendingUserParams) (PendingUser, error) {
	return scanPendingUser(q.db.QueryRow(ctx, createPendingUser,
		arg.ID, arg.Name, arg.Email, arg.PasswordHash, arg.Role))
}

const getPendingUser = `SELECT ` + pendingUserColumns + ` FROM pending_users WHERE id = $1`

func (q *Queries) GetPendingUser(ctx context.Context, id uuid.UUID) (PendingUser, error) {
	return scanPendingUser(q.db.QueryRow(ctx, getPendingUser, id))
}

const hasOpenPendingUser = `SELECT EXISTS (SELECT 1 FROM pending_users WHERE email = $1 AND status = 'pending')`

func (q *Queries) HasOpenPendingUser(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, hasOpenPendingUser, email).Scan(&exists)
	return exists, err
}

const listPendingUsersByStatus = `
SELECT ` + pendingUserColumns + ` FROM pending_users WHERE status = $1 ORDER BY requested_at DESC`

func (q *Queries) ListPendingUsersByStatus(ctx context.Context, status string) ([]PendingUser, error) {
	return q.collectPendingUsers(ctx, listPendingUsersByStatus, status)
}

const listAllPendingUsers = `SELECT ` + pendingUserColumns + ` FROM pending_users ORDER BY requested_at DESC`

func (q *Queries) ListAllPendingUsers(ctx context.Context) ([]PendingUser, error) {
	return q.collectPendingUsers(ctx, listAllPendingUsers)
}

const reviewPendingUser = `
UPDATE pending_users SET status = $2, reviewed_at = $3, reviewed_by = $4, rejection_reason = $5
WHERE id = $1 AND status = 'pending'
RETURNING ` + pendingUserColumns

type ReviewPendingUserParams struct {
	ID              uuid.UUID
	Status          string
	ReviewedAt      time.Time
	ReviewedBy      uuid.UUID
	RejectionReason string
}

// ReviewPendingUser moves a pending request to approved or rejected. It
// matches nothing, and returns pgx.ErrNoRows, when the request was already
// reviewed.
func (q *Queries) ReviewPendingUser(ctx context.Context, arg ReviewPendingUserParams) (PendingUser, error) {
	return scanPendingUser(q.db.QueryRow(ctx, reviewPendingUser,
		arg.ID, arg.Status, arg.ReviewedAt, arg.ReviewedBy, arg.RejectionReason))
}

const deletePendingUser = `DELETE FROM pending_users WHERE id = $1`

func (q *Queries) DeletePendingUser(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deletePendingUser, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deletePendingUsersByEmail = `DELETE FROM pending_users WHERE email = $1`

func (q *Queries) DeletePendingUsersByEmail(ctx context.Context, email string) (int64, error) {
	tag, err := q.db.Exec(ctx, deletePendingUsersByEmail, email)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteProcessedPendingUsersByEmail = `DELETE FROM pending_users WHERE email = $1 AND status <> 'pending'`

func (q *Queries) DeleteProcessedPendingUsersByEmail(ctx context.Context, email string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteProcessedPendingUsersByEmail, email)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteProcessedPendingUsersBefore = `
DELETE FROM pending_users WHERE status <> 'pending' AND reviewed_at < $1`

func (q *Queries) DeleteProcessedPendingUsersBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteProcessedPendingUsersBefore, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
