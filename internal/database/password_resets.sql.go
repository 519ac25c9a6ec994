package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const passwordResetColumns = `id, user_id, email, token, expires_at, used, created_at`

const createPasswordReset = `
INSERT INTO password_resets (id, user_id, email, token, expires_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + passwordResetColumns

type CreatePasswordResetParams struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Email     string
	Token     string
	ExpiresAt time.Time
}

func (q *Queries) CreatePasswordReset(ctx context.Context, arg CreatePasswordResetParams) (PasswordReset, error) {
	var i PasswordReset
	err := q.db.QueryRow(ctx, createPasswordReset,
		arg.ID, arg.UserID, arg.Email, arg.Token, arg.ExpiresAt,
	).Scan(&i.ID, &i.UserID, &i.Email, &i.Token, &i.ExpiresAt, &i.Used, &i.CreatedAt)
	return i, err
}

const getUsablePasswordReset = `
SELECT ` + passwordResetColumns + ` FROM password_resets
WHERE token = $1 AND used = FALSE AND expires_at > $2`

// GetUsablePasswordReset returns the reset for token if it is unused and
// not expired at now.
func (q *Queries) GetUsablePasswordReset(ctx context.Context, token string, now time.Time) (PasswordReset, error) {
	var i PasswordReset
	err := q.db.QueryRow(ctx, getUsablePasswordReset, token, now).
		Scan(&i.ID, &i.UserID, &i.Email, &i.Token, &i.ExpiresAt, &i.Used, &i.CreatedAt)
	return i, err
}

const markPasswordResetUsed = `UPDATE password_resets SET used = TRUE WHERE id = $1 AND used = FALSE`

// MarkPasswordResetUsed flags a reset as consumed. It reports false when the
// reset was already used.
func (q *Queries) MarkPasswordResetUsed(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := q.db.Exec(ctx, markPasswordResetUsed, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

const deletePasswordReset = `DELETE FROM password_resets WHERE id = $1`

func (q *Queries) DeletePasswordReset(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deletePasswordReset, id)
	return err
}

const deletePasswordResetsForUser = `DELETE FROM password_resets WHERE user_id = $1`

func (q *Queries) DeletePasswordResetsForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deletePasswordResetsForUser, userID)
	return err
}

const deleteStalePasswordResets = `DELETE FROM password_resets WHERE used = TRUE OR expires_at <= $1`

func (q *Queries) DeleteStalePasswordResets(ctx context.Context, now time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteStalePasswordResets, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
