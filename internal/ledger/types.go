package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrEntryNotFound is returned by Store.FindByDate when no entry exists for a date.
var ErrEntryNotFound = errors.New("ledger entry not found")

// Field identifies one of the eight amount columns of a ledger entry.
type Field string

const (
	FieldReceivableVP      Field = "receivable_vp"
	FieldPayableVP         Field = "payable_vp"
	FieldReceivableTGN     Field = "receivable_tgn"
	FieldPayableTGN        Field = "payable_tgn"
	FieldTotalReceivable   Field = "total_receivable"
	FieldTotalPayable      Field = "total_payable"
	FieldDailyBalance      Field = "daily_balance"
	FieldCumulativeBalance Field = "cumulative_balance"
)

// AmountFields lists the amount columns in their canonical order.
var AmountFields = []Field{
	FieldReceivableVP,
	FieldPayableVP,
	FieldReceivableTGN,
	FieldPayableTGN,
	FieldTotalReceivable,
	FieldTotalPayable,
	FieldDailyBalance,
	FieldCumulativeBalance,
}

// Amounts holds the eight numeric values of a ledger entry. Zero is the
// default for every field; there is no null.
type Amounts struct {
	ReceivableVP      float64 `json:"receivableVp"`
	PayableVP         float64 `json:"payableVp"`
	ReceivableTGN     float64 `json:"receivableTgn"`
	PayableTGN        float64 `json:"payableTgn"`
	TotalReceivable   float64 `json:"totalReceivable"`
	TotalPayable      float64 `json:"totalPayable"`
	DailyBalance      float64 `json:"dailyBalance"`
	CumulativeBalance float64 `json:"cumulativeBalance"`
}

// Get returns the value of a single field.
func (a Amounts) Get(f Field) float64 {
	switch f {
	case FieldReceivableVP:
		return a.ReceivableVP
	case FieldPayableVP:
		return a.PayableVP
	case FieldReceivableTGN:
		return a.ReceivableTGN
	case FieldPayableTGN:
		return a.PayableTGN
	case FieldTotalReceivable:
		return a.TotalReceivable
	case FieldTotalPayable:
		return a.TotalPayable
	case FieldDailyBalance:
		return a.DailyBalance
	case FieldCumulativeBalance:
		return a.CumulativeBalance
	}
	return 0
}

// Set assigns the value of a single field. Unknown fields are ignored.
func (a *Amounts) Set(f Field, v float64) {
	switch f {
	case FieldReceivableVP:
		a.ReceivableVP = v
	case FieldPayableVP:
		a.PayableVP = v
	case FieldReceivableTGN:
		a.ReceivableTGN = v
	case FieldPayableTGN:
		a.PayableTGN = v
	case FieldTotalReceivable:
		a.TotalReceivable = v
	case FieldTotalPayable:
		a.TotalPayable = v
	case FieldDailyBalance:
		a.DailyBalance = v
	case FieldCumulativeBalance:
		a.CumulativeBalance = v
	}
}

// Formatted returns every amount as a BRL display string keyed by field.
func (a Amounts) Formatted() map[Field]string {
	out := make(map[Field]string, len(AmountFields))
	for _, f := range AmountFields {
		out[f] = FormatBRL(a.Get(f))
	}
	return out
}

// Entry is a persisted daily snapshot. Date is the canonical DD/MM/YYYY key
// and is unique across all entries.
type Entry struct {
	ID   uuid.UUID `json:"id"`
	Date string    `json:"date"`
	Amounts
	UploadedBy     uuid.UUID `json:"uploadedBy"`
	SourceFileName string    `json:"fileName"`
	UploadedAt     time.Time `json:"uploadedAt"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Candidate is a mapped row that has not been deduplicated or persisted yet.
type Candidate struct {
	Line           int
	Date           string
	Amounts        Amounts
	UploadedBy     uuid.UUID
	SourceFileName string
}

// UpsertResult reports what UpsertByDate did.
type UpsertResult struct {
	Entry   Entry
	Created bool
}

// Store is the persistence capability the pipeline writes through.
//
// UpsertByDate must be atomic with respect to the date key: concurrent calls
// for the same date leave exactly one entry, holding the values of whichever
// call committed last.
type Store interface {
	FindByDate(ctx context.Context, date string) (Entry, error)
	UpsertByDate(ctx context.Context, c Candidate, uploadedAt time.Time) (UpsertResult, error)
	Count(ctx context.Context) (int64, error)
}

// RowStatus is the outcome of mapping one row.
type RowStatus int

const (
	RowAccepted RowStatus = iota
	RowRejected
	RowSkipped // headerless parser artifact, not counted anywhere
)

// RowResult carries either a candidate or a rejection, depending on Status.
type RowResult struct {
	Status    RowStatus
	Candidate Candidate
	Rejection Rejection
}

// RejectionKind separates bad rows from failed writes.
type RejectionKind string

const (
	RejectRow     RejectionKind = "row"
	RejectPersist RejectionKind = "persistence"
)

// Rejection describes one row or date that did not make it into storage.
type Rejection struct {
	Kind    RejectionKind     `json:"kind"`
	Line    int               `json:"line,omitempty"`
	Date    string            `json:"date,omitempty"`
	Reason  string            `json:"error"`
	Raw     map[string]string `json:"originalData,omitempty"`
	Columns []string          `json:"availableColumns,omitempty"`
}
