package ledger

// reader.go streams delimited records out of an upload as ordered rows.
//
// Input preparation handles the two artifacts spreadsheet exports carry:
//
//   - a UTF-8 byte order mark in front of the first header
//   - Windows-1252 text from older Excel versions, decoded to UTF-8

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// PrepareInput strips a UTF-8 BOM and converts non UTF-8 input from
// Windows-1252. Valid UTF-8 input is returned unchanged apart from the BOM.
func PrepareInput(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return bytes.ToValidUTF8(data, []byte("?"))
	}
	return decoded
}

// RowReader yields one Row per record. The first record is the header.
// Header cells that are empty after trimming, and cells beyond the header's
// width, get placeholder keys ("_<index>").
type RowReader struct {
	csv    *csv.Reader
	header []string
}

// NewRowReader reads delimited records separated by sep.
func NewRowReader(r io.Reader, sep rune) *RowReader {
	cr := csv.NewReader(r)
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return &RowReader{csv: cr}
}

// Header returns the normalized header keys, or nil before the first call to
// Next.
func (rr *RowReader) Header() []string {
	return rr.header
}

// Next returns the next data row. It returns io.EOF when the input is
// exhausted. A *csv.ParseError means only that record was malformed and
// reading may continue; any other error is fatal.
func (rr *RowReader) Next() (Row, error) {
	if rr.header == nil {
		rec, err := rr.csv.Read()
		if err != nil {
			return Row{}, err
		}
		rr.header = headerKeys(rec)
	}

	rec, err := rr.csv.Read()
	if err != nil {
		return Row{}, err
	}

	line, _ := rr.csv.FieldPos(0)
	keys := rr.header
	if len(rec) > len(keys) {
		keys = make([]string, len(rec))
		copy(keys, rr.header)
		for i := len(rr.header); i < len(rec); i++ {
			keys[i] = PlaceholderKey(i)
		}
	}
	return NewRow(line, keys, rec), nil
}

// IsRecordError reports whether err affects a single record only.
func IsRecordError(err error) bool {
	var pe *csv.ParseError
	return errors.As(err, &pe)
}

func headerKeys(rec []string) []string {
	keys := make([]string, len(rec))
	for i, h := range rec {
		h = strings.TrimSpace(h)
		if h == "" {
			h = PlaceholderKey(i)
		}
		keys[i] = h
	}
	return keys
}
