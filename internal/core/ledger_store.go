package core

// ledger_store.go adapts the generated queries to ledger.Store, the
// persistence capability the ingestion pipeline writes through.

import (
	"context"
	"time"

	db "github.com/JonMunkholm/ledger/internal/database"
	"github.com/JonMunkholm/ledger/internal/ledger"
	"github.com/google/uuid"
)

type ledgerStore struct {
	q db.Querier
}

var _ ledger.Store = ledgerStore{}

func (s ledgerStore) FindByDate(ctx context.Context, date string) (ledger.Entry, error) {
	row, err := s.q.GetLedgerEntryByDate(ctx, date)
	if err != nil {
		if db.IsNotFound(err) {
			return ledger.Entry{}, ledger.ErrEntryNotFound
		}
		return ledger.Entry{}, err
	}
	return entryFromRow(row), nil
}

// UpsertByDate relies on the entry_date unique constraint, so two uploads
// racing on one date still leave a single row.
func (s ledgerStore) UpsertByDate(ctx context.Context, c ledger.Candidate, uploadedAt time.Time) (ledger.UpsertResult, error) {
	params := db.UpsertLedgerEntryParams{
		ID:                uuid.New(),
		EntryDate:         c.Date,
		ReceivableVp:      c.Amounts.ReceivableVP,
		PayableVp:         c.Amounts.PayableVP,
		ReceivableTgn:     c.Amounts.ReceivableTGN,
		PayableTgn:        c.Amounts.PayableTGN,
		TotalReceivable:   c.Amounts.TotalReceivable,
		TotalPayable:      c.Amounts.TotalPayable,
		DailyBalance:      c.Amounts.DailyBalance,
		CumulativeBalance: c.Amounts.CumulativeBalance,
		UploadedBy:        c.UploadedBy,
		SourceFileName:    c.SourceFileName,
		UploadedAt:        uploadedAt,
	}
	if t, ok := ledger.DateSortKey(c.Date); ok {
		params.SortDate = &t
	}

	row, inserted, err := s.q.UpsertLedgerEntry(ctx, params)
	if err != nil {
		return ledger.UpsertResult{}, err
	}
	return ledger.UpsertResult{Entry: entryFromRow(row), Created: inserted}, nil
}

func (s ledgerStore) Count(ctx context.Context) (int64, error) {
	return s.q.CountLedgerEntries(ctx)
}

func entryFromRow(r db.LedgerEntry) ledger.Entry {
	return ledger.Entry{
		ID:   r.ID,
		Date: r.EntryDate,
		Amounts: ledger.Amounts{
			ReceivableVP:      r.ReceivableVp,
			PayableVP:         r.PayableVp,
			ReceivableTGN:     r.ReceivableTgn,
			PayableTGN:        r.PayableTgn,
			TotalReceivable:   r.TotalReceivable,
			TotalPayable:      r.TotalPayable,
			DailyBalance:      r.DailyBalance,
			CumulativeBalance: r.CumulativeBalance,
		},
		UploadedBy:     r.UploadedBy,
		SourceFileName: r.SourceFileName,
		UploadedAt:     r.UploadedAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}
