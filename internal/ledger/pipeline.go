package ledger

// pipeline.go runs an upload end to end: detect, stream, map, deduplicate by
// date and upsert.

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/ledger/internal/logging"
	"github.com/google/uuid"
)

// DefaultRejectionSample is how many rejections a Report carries in full.
const DefaultRejectionSample = 5

var (
	// ErrEmptyUpload is returned before any work when the upload has no bytes.
	ErrEmptyUpload = errors.New("no file uploaded or file is empty")

	// ErrReadInput wraps failures reading the upload itself.
	ErrReadInput = errors.New("failed to read upload")
)

// Report summarizes one ingestion. RowsAccepted + RowsRejected always equals
// RowsParsed; rows skipped as headerless are counted in neither.
type Report struct {
	FileName       string      `json:"fileName"`
	UploadedBy     uuid.UUID   `json:"uploadedBy"`
	UploadedAt     time.Time   `json:"uploadedAt"`
	Separator      string      `json:"separator"`
	RowsParsed     int         `json:"totalRecords"`
	RowsAccepted   int         `json:"acceptedRecords"`
	RowsRejected   int         `json:"rejectedRecords"`
	RowsSkipped    int         `json:"skippedRecords"`
	Created        int         `json:"created"`
	Updated        int         `json:"updated"`
	PersistFailed  int         `json:"persistFailures"`
	UniqueDates    []string    `json:"uniqueDates"`
	Errors         []Rejection `json:"errors"`
	ErrorCount     int         `json:"errorCount"`
	EntriesInStore int64       `json:"entriesInStore"`
}

// Saved is the number of dates written, created or updated.
func (r *Report) Saved() int {
	return r.Created + r.Updated
}

// Summary is the one-line message shown to the uploader.
func (r *Report) Summary() string {
	msg := fmt.Sprintf("CSV file processed successfully. %d records processed (%d created, %d updated)",
		r.Saved(), r.Created, r.Updated)
	if r.ErrorCount > 0 {
		msg += fmt.Sprintf(", %d rows had errors", r.ErrorCount)
	}
	return msg
}

func (r *Report) reject(rej Rejection, sample int) {
	r.ErrorCount++
	if len(r.Errors) < sample {
		r.Errors = append(r.Errors, rej)
	}
}

// Ingester runs the ingestion pipeline against a Store.
type Ingester struct {
	store  Store
	mapper *Mapper
	sample int
	now    func() time.Time
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithMapper replaces the default mapper.
func WithMapper(m *Mapper) Option {
	return func(in *Ingester) { in.mapper = m }
}

// WithRejectionSample sets how many rejections a Report keeps in full.
func WithRejectionSample(n int) Option {
	return func(in *Ingester) {
		if n > 0 {
			in.sample = n
		}
	}
}

// WithClock sets the time source used for uploaded-at timestamps.
func WithClock(now func() time.Time) Option {
	return func(in *Ingester) { in.now = now }
}

// NewIngester creates an Ingester writing to store.
func NewIngester(store Store, opts ...Option) *Ingester {
	in := &Ingester{
		store:  store,
		mapper: DefaultMapper(),
		sample: DefaultRejectionSample,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// IngestReader buffers r fully and ingests it.
func (in *Ingester) IngestReader(ctx context.Context, r io.Reader, uploadedBy uuid.UUID, fileName string) (*Report, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadInput, err)
	}
	return in.Ingest(ctx, raw, uploadedBy, fileName)
}

// Ingest parses raw as a delimited file and upserts one entry per date.
//
// Bad rows and failed writes are recorded in the Report and never stop the
// run. The returned error is non-nil only for empty input or when the input
// itself cannot be read. Upserts run one date at a time. When ctx ends
// between dates the dates already written stay written and every remaining
// date is reported as a persistence failure.
func (in *Ingester) Ingest(ctx context.Context, raw []byte, uploadedBy uuid.UUID, fileName string) (*Report, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyUpload
	}

	log := logging.WithFields(ctx, "file", fileName, "uploaded_by", uploadedBy)
	data := PrepareInput(raw)
	sep := DetectSeparator(data)
	report := &Report{
		FileName:    fileName,
		UploadedBy:  uploadedBy,
		UploadedAt:  in.now(),
		Separator:   SeparatorName(sep),
		UniqueDates: []string{},
		Errors:      []Rejection{},
	}

	winners, order, err := in.collect(ctx, data, sep, uploadedBy, fileName, report)
	if err != nil {
		return nil, err
	}

	for i, date := range order {
		if err := ctx.Err(); err != nil {
			log.Warn("ingestion stopped before all dates were written",
				"written", report.Saved(), "remaining", len(order)-i, "error", err)
			for _, rest := range order[i:] {
				report.PersistFailed++
				report.reject(Rejection{
					Kind:   RejectPersist,
					Line:   winners[rest].Line,
					Date:   rest,
					Reason: fmt.Sprintf("not written: %v", err),
				}, in.sample)
			}
			break
		}

		c := winners[date]
		res, err := in.store.UpsertByDate(ctx, c, report.UploadedAt)
		if err != nil {
			report.PersistFailed++
			report.reject(Rejection{
				Kind:   RejectPersist,
				Line:   c.Line,
				Date:   date,
				Reason: fmt.Sprintf("failed to save entry for %s: %v", date, err),
			}, in.sample)
			log.Error("ledger upsert failed", "date", date, "error", err)
			continue
		}
		if res.Created {
			report.Created++
		} else {
			report.Updated++
		}
	}

	if n, err := in.store.Count(ctx); err == nil {
		report.EntriesInStore = n
	} else {
		log.Warn("count ledger entries", "error", err)
	}

	log.Info("ledger ingestion complete",
		"separator", report.Separator,
		"rows", report.RowsParsed,
		"accepted", report.RowsAccepted,
		"rejected", report.RowsRejected,
		"created", report.Created,
		"updated", report.Updated,
		"persist_failures", report.PersistFailed)

	return report, nil
}

// collect streams every row through the mapper and keeps, for each date, the
// last candidate seen. order lists dates by first appearance.
func (in *Ingester) collect(ctx context.Context, data []byte, sep rune, uploadedBy uuid.UUID, fileName string, report *Report) (map[string]Candidate, []string, error) {
	winners := make(map[string]Candidate)
	var order []string

	rr := NewRowReader(bytes.NewReader(data), sep)
	for {
		row, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if IsRecordError(err) {
				report.RowsParsed++
				report.RowsRejected++
				report.reject(recordRejection(err), in.sample)
				continue
			}
			return nil, nil, fmt.Errorf("%w: %w", ErrReadInput, err)
		}

		res := in.mapRow(ctx, row, uploadedBy, fileName)
		switch res.Status {
		case RowSkipped:
			report.RowsSkipped++
			continue
		case RowRejected:
			report.RowsParsed++
			report.RowsRejected++
			report.reject(res.Rejection, in.sample)
		case RowAccepted:
			report.RowsParsed++
			report.RowsAccepted++
			date := res.Candidate.Date
			if _, seen := winners[date]; !seen {
				order = append(order, date)
			}
			winners[date] = res.Candidate
		}
	}

	report.UniqueDates = append(report.UniqueDates, order...)
	return winners, order, nil
}

// mapRow runs the mapper and turns a panic into a rejection of that row.
func (in *Ingester) mapRow(ctx context.Context, row Row, uploadedBy uuid.UUID, fileName string) (res RowResult) {
	defer func() {
		if p := recover(); p != nil {
			logging.FromContext(ctx).Error("panic mapping row", "file", fileName, "line", row.Line, "panic", p)
			res = RowResult{
				Status: RowRejected,
				Rejection: Rejection{
					Kind:    RejectRow,
					Line:    row.Line,
					Reason:  fmt.Sprintf("error processing row %d: %v", row.Line, p),
					Raw:     row.Raw(),
					Columns: row.Keys(),
				},
			}
		}
	}()
	return in.mapper.Map(row, uploadedBy, fileName)
}

func recordRejection(err error) Rejection {
	rej := Rejection{Kind: RejectRow, Reason: err.Error()}
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		rej.Line = pe.StartLine
		rej.Reason = fmt.Sprintf("malformed record at line %d: %v", pe.StartLine, pe.Err)
	}
	return rej
}
