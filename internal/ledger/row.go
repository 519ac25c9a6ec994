package ledger

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// placeholderKey matches the keys the reader invents for cells without a
// header name: "_0", "_1", ...
var placeholderKey = regexp.MustCompile(`^_\d+$`)

var separatorRun = regexp.MustCompile(`[\s_\-]+`)

// PlaceholderKey returns the generated key for the column at index i.
func PlaceholderKey(i int) string {
	return "_" + strconv.Itoa(i)
}

// Row is one parsed record: an ordered header to value mapping plus the line
// it started on. Keys keep file order; a repeated header keeps its first
// position and its last value.
type Row struct {
	Line   int
	keys   []string
	values map[string]string
	folded map[string]string
}

// NewRow builds a row from parallel key and value slices. Keys beyond the
// values are dropped, as are values beyond the keys.
func NewRow(line int, keys, values []string) Row {
	n := min(len(keys), len(values))
	r := Row{
		Line:   line,
		keys:   make([]string, 0, n),
		values: make(map[string]string, n),
		folded: make(map[string]string, n),
	}
	for i := 0; i < n; i++ {
		k := keys[i]
		if _, seen := r.values[k]; !seen {
			r.keys = append(r.keys, k)
			f := FoldHeader(k)
			if _, taken := r.folded[f]; !taken {
				r.folded[f] = k
			}
		}
		r.values[k] = values[i]
	}
	return r
}

// Keys returns the header keys in file order.
func (r Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Get returns the value under an exact header key.
func (r Row) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Lookup finds a value by header name, first exactly and then by the folded
// form of the name, so "Saldo Diário" answers a lookup for "SALDO_DIARIO".
func (r Row) Lookup(name string) (string, bool) {
	if v, ok := r.values[name]; ok {
		return v, true
	}
	if k, ok := r.folded[FoldHeader(name)]; ok {
		return r.values[k], true
	}
	return "", false
}

// Raw returns a copy of the row as a plain map.
func (r Row) Raw() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// HeaderlessOnly reports whether every key is a generated placeholder. Such
// rows come from files without a header line and are skipped.
func (r Row) HeaderlessOnly() bool {
	if len(r.keys) == 0 {
		return false
	}
	for _, k := range r.keys {
		if !placeholderKey.MatchString(k) {
			return false
		}
	}
	return true
}

// FoldHeader reduces a header name to a comparison form: accents removed,
// upper case, and runs of spaces, underscores or dashes collapsed to a single
// space.
func FoldHeader(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToUpper(folded)
	folded = separatorRun.ReplaceAllString(folded, " ")
	return strings.TrimSpace(folded)
}
