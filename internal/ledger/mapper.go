package ledger

// mapper.go turns one parsed row into a ledger candidate or a rejection.

import (
	"fmt"

	"github.com/google/uuid"
)

// Mapper maps rows to candidates. It has no side effects and is safe for
// concurrent use.
type Mapper struct {
	aliases AliasSet
	dates   DateNormalizer
}

// NewMapper returns a Mapper using the given aliases and date normalizer.
func NewMapper(aliases AliasSet, dates DateNormalizer) *Mapper {
	return &Mapper{aliases: aliases, dates: dates}
}

// DefaultMapper uses the default aliases and the local timezone.
func DefaultMapper() *Mapper {
	return NewMapper(DefaultAliases(), DateNormalizer{})
}

// Map converts a row. Rows made only of placeholder keys are skipped. A row
// whose date cannot be found or read is rejected with the raw record
// attached. Every other row is accepted, with unreadable amounts set to 0.
func (m *Mapper) Map(row Row, uploadedBy uuid.UUID, fileName string) RowResult {
	if row.HeaderlessOnly() {
		return RowResult{Status: RowSkipped}
	}

	rawDate, _ := m.findDate(row)
	date, err := m.dates.Normalize(rawDate)
	if err != nil {
		shown := rawDate
		if shown == "" {
			shown = "MISSING"
		}
		return RowResult{
			Status: RowRejected,
			Rejection: Rejection{
				Kind:    RejectRow,
				Line:    row.Line,
				Reason:  fmt.Sprintf("invalid or missing date in row %d, original date value: %q", row.Line, shown),
				Raw:     row.Raw(),
				Columns: row.Keys(),
			},
		}
	}

	c := Candidate{
		Line:           row.Line,
		Date:           date,
		UploadedBy:     uploadedBy,
		SourceFileName: fileName,
	}
	for _, f := range AmountFields {
		c.Amounts.Set(f, ParseCurrency(ResolveColumn(row, m.aliases.Fields[f])))
	}
	return RowResult{Status: RowAccepted, Candidate: c}
}

// findDate looks for the date under the date aliases first and then in the
// first cell, in file order, that contains something shaped like a date.
func (m *Mapper) findDate(row Row) (string, bool) {
	if v, ok := firstNonEmpty(row, m.aliases.Date); ok {
		return v, true
	}
	for _, k := range row.keys {
		v := row.values[k]
		if dateLike.MatchString(v) {
			return v, true
		}
	}
	return "", false
}
