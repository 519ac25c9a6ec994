package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// DetectSeparator Tests
// ----------------------------------------------------------------------------

func TestDetectSeparator(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  rune
	}{
		{name: "empty buffer", input: "", want: ','},
		{name: "comma header", input: "DATA,RECEBER_VP,PAGAR_VP\n01/01/2024,1,2", want: ','},
		{name: "semicolon header", input: "DATA;RECEBER_VP;PAGAR_VP\n01/01/2024;1,50;2", want: ';'},
		{name: "tab header", input: "DATA\tRECEBER_VP\tPAGAR_VP\n", want: '\t'},
		{name: "no separators", input: "DATA\n01/01/2024", want: ','},
		{name: "tie goes to comma", input: "a,b;c\n", want: ','},
		{name: "tie semicolon and tab goes to semicolon", input: "a;b\tc\n", want: ';'},
		{name: "only first line counts", input: "a;b;c\n1,2,3,4,5,6,7,8", want: ';'},
		{name: "single line without newline", input: "a;b", want: ';'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectSeparator([]byte(tt.input)); got != tt.want {
				t.Errorf("DetectSeparator(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ParseCurrency Tests
// ----------------------------------------------------------------------------

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{name: "full BRL format", input: "R$ 1.234,56", want: 1234.56},
		{name: "symbol without space", input: "R$1.234,56", want: 1234.56},
		{name: "plain integer", input: "1000", want: 1000},
		{name: "decimal comma", input: "10,5", want: 10.5},
		{name: "millions", input: "1.234.567,89", want: 1234567.89},
		{name: "negative", input: "-R$ 10,00", want: -10},
		{name: "negative after symbol", input: "R$ -250,75", want: -250.75},
		{name: "surrounding whitespace", input: "   42,00  ", want: 42},
		{name: "empty", input: "", want: 0},
		{name: "whitespace only", input: "   ", want: 0},
		{name: "garbage", input: "garbage", want: 0},
		{name: "dash placeholder", input: "-", want: 0},
		{name: "trailing text is ignored", input: "12,5 reais", want: 12.5},
		{name: "dot is always a thousands separator", input: "1.5", want: 15},
		{name: "excel text formula", input: `="1.000,00"`, want: 1000},
		{name: "zero", input: "0", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCurrency(tt.input); got != tt.want {
				t.Errorf("ParseCurrency(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatBRL(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{input: 1234.56, want: "R$1.234,56"},
		{input: 0, want: "R$0,00"},
		{input: 10.5, want: "R$10,50"},
		{input: 1234567.891, want: "R$1.234.567,89"},
	}

	for _, tt := range tests {
		if got := FormatBRL(tt.input); got != tt.want {
			t.Errorf("FormatBRL(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// ----------------------------------------------------------------------------
// DateNormalizer Tests
// ----------------------------------------------------------------------------

func TestNormalizeDate(t *testing.T) {
	n := DateNormalizer{Location: time.UTC}

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "slash single digits", input: "5/1/2024", want: "05/01/2024"},
		{name: "slash padded", input: "05/01/2024", want: "05/01/2024"},
		{name: "dash single digits", input: "5-1-2024", want: "05/01/2024"},
		{name: "dash padded", input: "15-12-2023", want: "15/12/2023"},
		{name: "iso", input: "2024-01-05", want: "05/01/2024"},
		{name: "iso single digits", input: "2024-1-5", want: "05/01/2024"},
		{name: "surrounding whitespace", input: "  05/01/2024 ", want: "05/01/2024"},
		{name: "no range check on numeric patterns", input: "31/02/2024", want: "31/02/2024"},
		{name: "rfc3339 timestamp", input: "2024-01-05T10:30:00Z", want: "05/01/2024"},
		{name: "long month name", input: "January 5, 2024", want: "05/01/2024"},
		{name: "short month name", input: "Jan 5 2024", want: "05/01/2024"},
		{name: "slashed year first", input: "2024/01/05", want: "05/01/2024"},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "not a date", wantErr: true},
		{name: "two digit year", input: "05/01/24", wantErr: true},
		{name: "date inside text", input: "dia 05/01/2024", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnparseableDate) {
					t.Errorf("Normalize(%q) error = %v, want ErrUnparseableDate", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeDate_FallbackUsesLocation(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	n := DateNormalizer{Location: saoPaulo}

	// 01:00 UTC is still the previous evening in UTC-3.
	got, err := n.Normalize("2024-01-05T01:00:00Z")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got != "04/01/2024" {
		t.Errorf("Normalize = %q, want 04/01/2024", got)
	}

	// The numeric patterns never shift.
	got, err = n.Normalize("2024-01-05")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got != "05/01/2024" {
		t.Errorf("Normalize = %q, want 05/01/2024", got)
	}
}

func TestDateSortKey(t *testing.T) {
	if _, ok := DateSortKey("31/02/2024"); ok {
		t.Error("DateSortKey(31/02/2024) ok = true, want false")
	}
	got, ok := DateSortKey("05/01/2024")
	if !ok {
		t.Fatal("DateSortKey(05/01/2024) ok = false")
	}
	if want := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("DateSortKey = %v, want %v", got, want)
	}
}

// ----------------------------------------------------------------------------
// Column resolution Tests
// ----------------------------------------------------------------------------

func TestResolveColumn(t *testing.T) {
	aliases := DefaultAliases().Fields[FieldTotalReceivable]

	tests := []struct {
		name   string
		keys   []string
		values []string
		want   string
	}{
		{
			name:   "first alias",
			keys:   []string{"DATA", "TOTAL_RECEBER"},
			values: []string{"01/01/2024", "100"},
			want:   "100",
		},
		{
			name:   "priority order wins over file order",
			keys:   []string{"TOTAL_REC", "TOTAL_RECEBER"},
			values: []string{"1", "2"},
			want:   "2",
		},
		{
			name:   "empty value falls through to next alias",
			keys:   []string{"TOTAL_RECEBER", "TOTAL RECEBER"},
			values: []string{"", "7"},
			want:   "7",
		},
		{
			name:   "no alias present",
			keys:   []string{"DATA", "OTHER"},
			values: []string{"01/01/2024", "5"},
			want:   "0",
		},
		{
			name:   "all aliases empty",
			keys:   []string{"TOTAL_RECEBER", "TOTAL_REC"},
			values: []string{"", ""},
			want:   "0",
		},
		{
			name:   "accented lower case header",
			keys:   []string{"total a receber", "Total Recebêr"},
			values: []string{"x", "9"},
			want:   "9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := NewRow(2, tt.keys, tt.values)
			if got := ResolveColumn(row, aliases); got != tt.want {
				t.Errorf("ResolveColumn = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFoldHeader(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "SALDO_DIARIO", want: "SALDO DIARIO"},
		{input: "Saldo Diário", want: "SALDO DIARIO"},
		{input: "  saldo__diário ", want: "SALDO DIARIO"},
		{input: "TOTAL-A-PAGAR", want: "TOTAL A PAGAR"},
		{input: "Ação", want: "ACAO"},
	}

	for _, tt := range tests {
		if got := FoldHeader(tt.input); got != tt.want {
			t.Errorf("FoldHeader(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRow_DuplicateHeaderKeepsLastValue(t *testing.T) {
	row := NewRow(3, []string{"DATA", "X", "DATA"}, []string{"01/01/2024", "1", "02/01/2024"})

	if got := row.Keys(); len(got) != 2 {
		t.Fatalf("Keys = %v, want 2 keys", got)
	}
	if v, _ := row.Get("DATA"); v != "02/01/2024" {
		t.Errorf("Get(DATA) = %q, want 02/01/2024", v)
	}
}

func TestRow_HeaderlessOnly(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want bool
	}{
		{name: "all placeholders", keys: []string{"_0", "_1"}, want: true},
		{name: "mixed", keys: []string{"DATA", "_1"}, want: false},
		{name: "named", keys: []string{"DATA"}, want: false},
		{name: "underscore name is not a placeholder", keys: []string{"_DATA"}, want: false},
		{name: "no keys", keys: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := make([]string, len(tt.keys))
			if got := NewRow(1, tt.keys, values).HeaderlessOnly(); got != tt.want {
				t.Errorf("HeaderlessOnly = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadAliases(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aliases.yaml")
	content := "date: [DIA]\nfields:\n  daily_balance: [SALDO DO DIA]\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	set, err := LoadAliases(path)
	if err != nil {
		t.Fatalf("LoadAliases: %v", err)
	}
	if len(set.Date) != 1 || set.Date[0] != "DIA" {
		t.Errorf("Date aliases = %v, want [DIA]", set.Date)
	}
	if got := set.Fields[FieldDailyBalance]; len(got) != 1 || got[0] != "SALDO DO DIA" {
		t.Errorf("daily_balance aliases = %v, want [SALDO DO DIA]", got)
	}
	if got := set.Fields[FieldPayableVP]; len(got) != 4 {
		t.Errorf("payable_vp aliases = %v, want defaults kept", got)
	}
}

func TestLoadAliases_Errors(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.yaml")
	if err := os.WriteFile(unknown, []byte("fields:\n  nope: [X]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAliases(unknown); err == nil {
		t.Error("LoadAliases with unknown field: want error")
	}

	if _, err := LoadAliases(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadAliases with missing file: want error")
	}

	set, err := LoadAliases("")
	if err != nil {
		t.Fatalf("LoadAliases(\"\"): %v", err)
	}
	if len(set.Date) == 0 {
		t.Error("LoadAliases(\"\") should return defaults")
	}
}

// ----------------------------------------------------------------------------
// Input preparation Tests
// ----------------------------------------------------------------------------

func TestPrepareInput(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{name: "plain", input: []byte("DATA,X"), want: "DATA,X"},
		{name: "bom removed", input: []byte("\xEF\xBB\xBFDATA,X"), want: "DATA,X"},
		{name: "windows-1252 decoded", input: []byte("SALDO DI\xc1RIO"), want: "SALDO DIÁRIO"},
		{name: "utf-8 kept", input: []byte("SALDO DIÁRIO"), want: "SALDO DIÁRIO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(PrepareInput(tt.input)); got != tt.want {
				t.Errorf("PrepareInput = %q, want %q", got, tt.want)
			}
		})
	}
}
