package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const ledgerEntryColumns = `id, entry_date, sort_date, receivable_vp, payable_vp, receivable_tgn, payable_tgn,
    total_receivable, total_payable, daily_balance, cumulative_balance,
    uploaded_by, source_file_name, uploaded_at, created_at, updated_at`

func scanLedgerEntry(row pgx.Row, extra ...any) (LedgerEntry, error) {
	var i LedgerEntry
	dest := []any{
		&i.ID,
		&i.EntryDate,
		&i.SortDate,
		&i.ReceivableVp,
		&i.PayableVp,
		&i.ReceivableTgn,
		&i.PayableTgn,
		&i.TotalReceivable,
		&i.TotalPayable,
		&i.DailyBalance,
		&i.CumulativeBalance,
		&i.UploadedBy,
		&i.SourceFileName,
		&i.UploadedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return i, err
}

const upsertLedgerEntry = `
INSERT INTO ledger_entries (
    id, entry_date, sort_date, receivable_vp, payable_vp, receivable_tgn, payable_tgn,
    total_receivable, total_payable, daily_balance, cumulative_balance,
    uploaded_by, source_file_name, uploaded_at, created_at, updated_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14, $14
)
ON CONFLICT (entry_date) DO UPDATE SET
    sort_date          = EXCLUDED.sort_date,
    receivable_vp      = EXCLUDED.receivable_vp,
    payable_vp         = EXCLUDED.payable_vp,
    receivable_tgn     = EXCLUDED.receivable_tgn,
    payable_tgn        = EXCLUDED.payable_tgn,
    total_receivable   = EXCLUDED.total_receivable,
    total_payable      = EXCLUDED.total_payable,
    daily_balance      = EXCLUDED.daily_balance,
    cumulative_balance = EXCLUDED.cumulative_balance,
    uploaded_by        = EXCLUDED.uploaded_by,
    source_file_name   = EXCLUDED.source_file_name,
    uploaded_at        = EXCLUDED.uploaded_at,
    updated_at         = EXCLUDED.uploaded_at
RETURNING ` + ledgerEntryColumns + `, (xmax = 0) AS inserted`

type UpsertLedgerEntryParams struct {
	ID                uuid.UUID
	EntryDate         string
	SortDate          *time.Time
	ReceivableVp      float64
	PayableVp         float64
	ReceivableTgn     float64
	PayableTgn        float64
	TotalReceivable   float64
	TotalPayable      float64
	DailyBalance      float64
	CumulativeBalance float64
	UploadedBy        uuid.UUID
	SourceFileName    string
	UploadedAt        time.Time
}

// UpsertLedgerEntry inserts or overwrites the entry for a date in a single
// statement. inserted is true when the row did not exist before. ID is used
// only on insert.
func (q *Queries) UpsertLedgerEntry(ctx context.Context, arg UpsertLedgerEntryParams) (entry LedgerEntry, inserted bool, err error) {
	row := q.db.QueryRow(ctx, upsertLedgerEntry,
		arg.ID,
		arg.EntryDate,
		arg.SortDate,
		arg.ReceivableVp,
		arg.PayableVp,
		arg.ReceivableTgn,
		arg.PayableTgn,
		arg.TotalReceivable,
		arg.TotalPayable,
		arg.DailyBalance,
		arg.CumulativeBalance,
		arg.UploadedBy,
		arg.SourceFileName,
		arg.UploadedAt,
	)
	entry, err = scanLedgerEntry(row, &inserted)
	return entry, inserted, err
}

const getLedgerEntryByDate = `SELECT ` + ledgerEntryColumns + ` FROM ledger_entries WHERE entry_date = $1`

func (q *Queries) GetLedgerEntryByDate(ctx context.Context, entryDate string) (LedgerEntry, error) {
	return scanLedgerEntry(q.db.QueryRow(ctx, getLedgerEntryByDate, entryDate))
}

const getLedgerEntry = `SELECT ` + ledgerEntryColumns + ` FROM ledger_entries WHERE id = $1`

func (q *Queries) GetLedgerEntry(ctx context.Context, id uuid.UUID) (LedgerEntry, error) {
	return scanLedgerEntry(q.db.QueryRow(ctx, getLedgerEntry, id))
}

const countLedgerEntries = `SELECT count(*) FROM ledger_entries`

func (q *Queries) CountLedgerEntries(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countLedgerEntries).Scan(&n)
	return n, err
}

const deleteLedgerEntry = `DELETE FROM ledger_entries WHERE id = $1`

func (q *Queries) DeleteLedgerEntry(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteLedgerEntry, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteAllLedgerEntries = `DELETE FROM ledger_entries`

func (q *Queries) DeleteAllLedgerEntries(ctx context.Context) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteAllLedgerEntries)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// LedgerEntryWithUploader is a ledger entry joined with its uploader. The
// uploader fields are empty when the user has since been deleted.
type LedgerEntryWithUploader struct {
	LedgerEntry
	UploaderName  string
	UploaderEmail string
}

// Entries whose key is not a real calendar date sort first, by key.
const listLedgerEntries = `
SELECT e.id, e.entry_date, e.sort_date, e.receivable_vp, e.payable_vp, e.receivable_tgn, e.payable_tgn,
    e.total_receivable, e.total_payable, e.daily_balance, e.cumulative_balance,
    e.uploaded_by, e.source_file_name, e.uploaded_at, e.created_at, e.updated_at,
    COALESCE(u.name, ''), COALESCE(u.email, '')
FROM ledger_entries e
LEFT JOIN users u ON u.id = e.uploaded_by
WHERE ($1::timestamptz IS NULL OR e.uploaded_at >= $1)
  AND ($2::timestamptz IS NULL OR e.uploaded_at <= $2)
ORDER BY e.sort_date ASC NULLS FIRST, e.entry_date ASC
LIMIT $3 OFFSET $4`

type ListLedgerEntriesParams struct {
	UploadedFrom *time.Time
	UploadedTo   *time.Time
	Limit        int32
	Offset       int32
}

func (q *Queries) ListLedgerEntries(ctx context.Context, arg ListLedgerEntriesParams) ([]LedgerEntryWithUploader, error) {
	rows, err := q.db.Query(ctx, listLedgerEntries, arg.UploadedFrom, arg.UploadedTo, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []LedgerEntryWithUploader
	for rows.Next() {
		var i LedgerEntryWithUploader
		entry, err := scanLedgerEntry(rows, &i.UploaderName, &i.UploaderEmail)
		if err != nil {
			return nil, err
		}
		i.LedgerEntry = entry
		items = append(items, i)
	}
	return items, rows.Err()
}

const countLedgerEntriesUploadedBetween = `
SELECT count(*) FROM ledger_entries
WHERE ($1::timestamptz IS NULL OR uploaded_at >= $1)
  AND ($2::timestamptz IS NULL OR uploaded_at <= $2)`

func (q *Queries) CountLedgerEntriesUploadedBetween(ctx context.Context, from, to *time.Time) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countLedgerEntriesUploadedBetween, from, to).Scan(&n)
	return n, err
}

const listLedgerEntriesUploadedSince = `
SELECT ` + ledgerEntryColumns + ` FROM ledger_entries
WHERE uploaded_at >= $1
ORDER BY sort_date ASC NULLS FIRST, entry_date ASC`

func (q *Queries) ListLedgerEntriesUploadedSince(ctx context.Context, since time.Time) ([]LedgerEntry, error) {
	return q.collectLedgerEntries(ctx, listLedgerEntriesUploadedSince, since)
}

const listAllLedgerEntries = `
SELECT ` + ledgerEntryColumns + ` FROM ledger_entries
ORDER BY sort_date ASC NULLS FIRST, entry_date ASC`

func (q *Queries) ListAllLedgerEntries(ctx context.Context) ([]LedgerEntry, error) {
	return q.collectLedgerEntries(ctx, listAllLedgerEntries)
}

func (q *Queries) collectLedgerEntries(ctx context.Context, sql string, args ...any) ([]LedgerEntry, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []LedgerEntry
	for rows.Next() {
		i, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
