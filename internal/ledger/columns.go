package ledger

// columns.go holds the header aliases used to find each field in a row.

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AliasSet lists, per field, the header names that may carry it. Order is
// priority: the first alias present with a non-empty value wins.
type AliasSet struct {
	Date   []string           `yaml:"date"`
	Fields map[Field][]string `yaml:"fields"`
}

// DefaultAliases returns the header names used by the finance spreadsheets.
func DefaultAliases() AliasSet {
	return AliasSet{
		Date: []string{"DATA", "Data", "Date", "DATE", "date"},
		Fields: map[Field][]string{
			FieldReceivableVP:      {"RECEBER_VP", "RECEBER VP", "RECEBER", "VP_RECEBER"},
			FieldPayableVP:         {"PAGAR_VP", "PAGAR VP", "PAGAR", "VP_PAGAR"},
			FieldReceivableTGN:     {"RECEBER_TGN", "RECEBER TGN", "TGN_RECEBER"},
			FieldPayableTGN:        {"PAGAR_TGN", "PAGAR TGN", "TGN_PAGAR"},
			FieldTotalReceivable:   {"TOTAL_RECEBER", "TOTAL RECEBER", "TOTAL_REC"},
			FieldTotalPayable:      {"TOTAL_A_PAGAR", "TOTAL A PAGAR", "TOTAL_PAGAR"},
			FieldDailyBalance:      {"SALDO_DIARIO", "SALDO DIARIO", "SALDO_DIA"},
			FieldCumulativeBalance: {"SALDO_ACUMULADO", "SALDO ACUMULADO", "SALDO_ACUM"},
		},
	}
}

// LoadAliases reads a YAML alias file and lays it over the defaults. A list
// given in the file replaces the default list for that field; fields the
// file does not mention keep their defaults.
//
//	date: [DATA, DIA]
//	fields:
//	  daily_balance: [SALDO_DIARIO, SALDO DO DIA]
func LoadAliases(path string) (AliasSet, error) {
	set := DefaultAliases()
	if path == "" {
		return set, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return set, fmt.Errorf("read alias file: %w", err)
	}

	var override AliasSet
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return set, fmt.Errorf("parse alias file %s: %w", path, err)
	}

	if len(override.Date) > 0 {
		set.Date = override.Date
	}
	for field, aliases := range override.Fields {
		if !knownField(field) {
			return set, fmt.Errorf("alias file %s: unknown field %q", path, field)
		}
		if len(aliases) > 0 {
			set.Fields[field] = aliases
		}
	}
	return set, nil
}

func knownField(f Field) bool {
	for _, known := range AmountFields {
		if f == known {
			return true
		}
	}
	return false
}

// ResolveColumn returns the value of the first alias present in row with a
// non-empty value. When none match, or all matches are empty, it returns "0".
func ResolveColumn(row Row, aliases []string) string {
	if v, ok := firstNonEmpty(row, aliases); ok {
		return v
	}
	return "0"
}

func firstNonEmpty(row Row, aliases []string) (string, bool) {
	for _, alias := range aliases {
		if v, ok := row.Lookup(alias); ok && v != "" {
			return v, true
		}
	}
	return "", false
}
