package core

import (
	"context"
	"errors"
	"io"
	"math"
	"time"

	"github.com/JonMunkholm/ledger/internal/auth"
	db "github.com/JonMunkholm/ledger/internal/database"
	"github.com/JonMunkholm/ledger/internal/events"
	"github.com/JonMunkholm/ledger/internal/ledger"
	"github.com/JonMunkholm/ledger/internal/logging"
	"github.com/google/uuid"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 1000

	DefaultAnalyticsPeriod = 30
)

// UploadLedger ingests one ledger file on behalf of p.
//
// The caller's context only bounds the wait for an upload slot. Once a slot
// is held the ingestion runs detached from the client, limited by the upload
// timeout, so a dropped connection never abandons half a file. Dates the
// timeout left unwritten come back as persistence failures in the report.
func (s *Service) UploadLedger(ctx context.Context, p auth.Principal, fileName string, data []byte) (*ledger.Report, error) {
	if !p.Is(auth.UploadRoles...) {
		return nil, forbidden("AUTH005")
	}

	var report *ledger.Report
	err := s.limiter.Do(ctx, func() error {
		uploadID := uuid.NewString()
		runCtx := logging.WithUploadID(context.WithoutCancel(ctx), uploadID)
		runCtx, cancel := context.WithTimeout(runCtx, s.cfg.Upload.Timeout)
		defer cancel()

		var err error
		report, err = s.ingester.Ingest(runCtx, data, p.ID, fileName)
		if report != nil {
			s.publishUploadCompleted(context.WithoutCancel(runCtx), uploadID, report)
		}
		return err
	})
	return report, err
}

// IngestFile streams r through the pipeline for the admin CLI. It bypasses
// role checks and the upload limiter.
func (s *Service) IngestFile(ctx context.Context, uploadedBy uuid.UUID, fileName string, r io.Reader) (*ledger.Report, error) {
	uploadID := uuid.NewString()
	ctx = logging.WithUploadID(ctx, uploadID)
	report, err := s.ingester.IngestReader(ctx, r, uploadedBy, fileName)
	if report != nil {
		s.publishUploadCompleted(ctx, uploadID, report)
	}
	return report, err
}

func (s *Service) publishUploadCompleted(ctx context.Context, uploadID string, r *ledger.Report) {
	ev := events.UploadCompleted{
		Type:        events.TypeUploadCompleted,
		UploadID:    uploadID,
		FileName:    r.FileName,
		UploadedBy:  r.UploadedBy,
		UploadedAt:  r.UploadedAt,
		RowsParsed:  r.RowsParsed,
		Accepted:    r.RowsAccepted,
		Rejected:    r.RowsRejected,
		Created:     r.Created,
		Updated:     r.Updated,
		UniqueDates: r.UniqueDates,
	}
	if err := s.events.Publish(ctx, uploadID, ev); err != nil {
		logging.FromContext(ctx).Warn("publish upload event", "error", err)
	}
}

// Uploader identifies who last wrote an entry. Both fields are empty when
// that user has been deleted.
type Uploader struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// EntryView is a ledger entry as the API returns it.
type EntryView struct {
	ledger.Entry
	Formatted map[ledger.Field]string `json:"formatted"`
	Uploader  Uploader                `json:"uploader"`
}

// ListEntriesParams selects one page of entries. The optional bounds filter
// on upload time, inclusive.
type ListEntriesParams struct {
	Page         int
	Limit        int
	UploadedFrom *time.Time
	UploadedTo   *time.Time
}

// Pagination describes the page returned and the size of the result set.
type Pagination struct {
	Page       int   `json:"currentPage"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type EntryPage struct {
	Entries    []EntryView `json:"clientData"`
	Pagination Pagination  `json:"pagination"`
}

// ListEntries returns entries in chronological order of their date key.
func (s *Service) ListEntries(ctx context.Context, p ListEntriesParams) (EntryPage, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}

	total, err := s.queries.CountLedgerEntriesUploadedBetween(ctx, p.UploadedFrom, p.UploadedTo)
	if err != nil {
		return EntryPage{}, err
	}
	rows, err := s.queries.ListLedgerEntries(ctx, db.ListLedgerEntriesParams{
		UploadedFrom: p.UploadedFrom,
		UploadedTo:   p.UploadedTo,
		Limit:        int32(p.Limit),
		Offset:       int32((p.Page - 1) * p.Limit),
	})
	if err != nil {
		return EntryPage{}, err
	}

	views := make([]EntryView, 0, len(rows))
	for _, r := range rows {
		e := entryFromRow(r.LedgerEntry)
		views = append(views, EntryView{
			Entry:     e,
			Formatted: e.Amounts.Formatted(),
			Uploader:  Uploader{ID: r.UploadedBy, Name: r.UploaderName, Email: r.UploaderEmail},
		})
	}

	return EntryPage{
		Entries: views,
		Pagination: Pagination{
			Page:       p.Page,
			Limit:      p.Limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(p.Limit))),
		},
	}, nil
}

// EntryByDate looks up one entry by any date spelling the ingester accepts.
func (s *Service) EntryByDate(ctx context.Context, raw string) (ledger.Entry, error) {
	date, err := s.dates.Normalize(raw)
	if err != nil {
		return ledger.Entry{}, invalid("VAL001")
	}
	e, err := ledgerStore{q: s.queries}.FindByDate(ctx, date)
	if errors.Is(err, ledger.ErrEntryNotFound) {
		return ledger.Entry{}, notFound("DB008")
	}
	return e, err
}

// DeleteEntry removes one entry. Only administrators may delete.
func (s *Service) DeleteEntry(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if !p.Is(auth.RoleAdmin) {
		return forbidden("AUTH005")
	}
	n, err := s.queries.DeleteLedgerEntry(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound("DB008")
	}
	logging.FromContext(ctx).Info("ledger entry deleted", "id", id, "by", p.ID)
	return nil
}

// ResetLedger deletes every ledger entry. It is reachable only from the
// admin CLI.
func (s *Service) ResetLedger(ctx context.Context) (int64, error) {
	n, err := s.queries.DeleteAllLedgerEntries(ctx)
	if err != nil {
		return 0, err
	}
	logging.FromContext(ctx).Warn("ledger reset", "deleted", n)
	return n, nil
}

// AnalyticsPoint is the chart data for one date.
type AnalyticsPoint struct {
	Date              string  `json:"date"`
	TotalReceivable   float64 `json:"totalReceivable"`
	TotalPayable      float64 `json:"totalPayable"`
	DailyBalance      float64 `json:"dailyBalance"`
	CumulativeBalance float64 `json:"cumulativeBalance"`
	Count             int     `json:"count"`
}

// Analytics returns per-date totals for entries uploaded within the last
// periodDays days, in chronological order.
func (s *Service) Analytics(ctx context.Context, periodDays int) ([]AnalyticsPoint, error) {
	if periodDays <= 0 {
		periodDays = DefaultAnalyticsPeriod
	}
	since := s.now().AddDate(0, 0, -periodDays)

	rows, err := s.queries.ListLedgerEntriesUploadedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	return analyticsPoints(rows), nil
}

// analyticsPoints folds rows into one point per date. Rows arrive sorted, and
// the cumulative balance of a date is the last one seen.
func analyticsPoints(rows []db.LedgerEntry) []AnalyticsPoint {
	points := []AnalyticsPoint{}
	index := make(map[string]int, len(rows))
	for _, r := range rows {
		i, ok := index[r.EntryDate]
		if !ok {
			i = len(points)
			index[r.EntryDate] = i
			points = append(points, AnalyticsPoint{Date: r.EntryDate})
		}
		pt := &points[i]
		pt.TotalReceivable += r.TotalReceivable
		pt.TotalPayable += r.TotalPayable
		pt.DailyBalance += r.DailyBalance
		pt.CumulativeBalance = r.CumulativeBalance
		pt.Count++
	}
	return points
}
