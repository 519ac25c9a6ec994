package ledger

// date.go normalizes the date formats found in uploaded files to the
// canonical DD/MM/YYYY key.

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrUnparseableDate is returned when a value matches none of the known
// formats.
var ErrUnparseableDate = errors.New("unparseable date")

var (
	slashDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	dashDate  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`)
	isoDate   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)

	// dateLike finds a date anywhere inside a cell. It is used to locate the
	// date column when none of the date aliases are present.
	dateLike = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{4}`)
)

// zonedLayouts carry their own offset; the result is converted to the
// normalizer's location before the calendar fields are read.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.UnixDate,
	"Mon Jan 2 2006 15:04:05 GMT-0700",
}

// localLayouts have no offset and are read as wall-clock time in the
// normalizer's location.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006/1/2",
	"2006/01/02 15:04:05",
	"2006.01.02",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"Mon Jan 2 2006",
	"Mon, Jan 2, 2006",
	"Monday, January 2, 2006",
	time.ANSIC,
}

// DateNormalizer converts raw date cells to DD/MM/YYYY.
//
// The three numeric patterns are rewritten textually and do not depend on
// Location. Everything else goes through generic layout parsing and the
// calendar fields are read in Location, so a timestamp near midnight UTC can
// land on a different day depending on where the server runs. A nil
// Location means time.Local.
type DateNormalizer struct {
	Location *time.Location
}

func (n DateNormalizer) location() *time.Location {
	if n.Location == nil {
		return time.Local
	}
	return n.Location
}

// Normalize returns the canonical date for raw, or ErrUnparseableDate.
//
// Day and month ranges are not checked for the numeric patterns: "31/02/2024"
// normalizes to itself.
func (n DateNormalizer) Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrUnparseableDate
	}

	if m := slashDate.FindStringSubmatch(s); m != nil {
		return canonical(m[1], m[2], m[3]), nil
	}
	if m := dashDate.FindStringSubmatch(s); m != nil {
		return canonical(m[1], m[2], m[3]), nil
	}
	if m := isoDate.FindStringSubmatch(s); m != nil {
		return canonical(m[3], m[2], m[1]), nil
	}

	loc := n.location()
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc).Format("02/01/2006"), nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.Format("02/01/2006"), nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnparseableDate, raw)
}

// DateSortKey parses a canonical DD/MM/YYYY key into a calendar date for
// chronological ordering. ok is false for keys that are not real dates, such
// as "31/02/2024".
func DateSortKey(date string) (t time.Time, ok bool) {
	t, err := time.Parse("02/01/2006", date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func canonical(day, month, year string) string {
	return pad2(day) + "/" + pad2(month) + "/" + year
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
