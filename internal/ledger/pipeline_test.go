package ledger

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// memStore is an in-memory Store keyed by date.
type memStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	failOn  map[string]error
	upserts int
}

var _ Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]Entry), failOn: make(map[string]error)}
}

func (m *memStore) FindByDate(_ context.Context, date string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[date]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return e, nil
}

func (m *memStore) UpsertByDate(_ context.Context, c Candidate, at time.Time) (UpsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if err, ok := m.failOn[c.Date]; ok {
		return UpsertResult{}, err
	}

	existing, found := m.entries[c.Date]
	e := Entry{
		ID:             uuid.New(),
		Date:           c.Date,
		Amounts:        c.Amounts,
		UploadedBy:     c.UploadedBy,
		SourceFileName: c.SourceFileName,
		UploadedAt:     at,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	if found {
		e.ID = existing.ID
		e.CreatedAt = existing.CreatedAt
	}
	m.entries[c.Date] = e
	return UpsertResult{Entry: e, Created: !found}, nil
}

func (m *memStore) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.entries)), nil
}

var testUploader = uuid.MustParse("6f1c2d3e-4b5a-4c6d-8e7f-901a2b3c4d5e")

func fixedClock() time.Time {
	return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
}

func newTestIngester(store Store) *Ingester {
	return NewIngester(store,
		WithMapper(NewMapper(DefaultAliases(), DateNormalizer{Location: time.UTC})),
		WithClock(fixedClock))
}

const sampleCSV = `DATA;RECEBER_VP;PAGAR_VP;RECEBER_TGN;PAGAR_TGN;TOTAL_RECEBER;TOTAL_A_PAGAR;SALDO_DIARIO;SALDO_ACUMULADO
01/01/2024;R$ 1.000,00;R$ 500,00;100;50;1.100,00;550,00;550,00;550,00
2/1/2024;2.000,00;;200;100;2.200,00;100;2.100,00;2.650,00
2024-01-03;10;20;30;40;50;60;70;80
`

func TestIngest_Basic(t *testing.T) {
	store := newMemStore()
	in := newTestIngester(store)

	report, err := in.Ingest(context.Background(), []byte(sampleCSV), testUploader, "janeiro.csv")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if report.Separator != "semicolon" {
		t.Errorf("Separator = %q, want semicolon", report.Separator)
	}
	if report.RowsParsed != 3 || report.RowsAccepted != 3 || report.RowsRejected != 0 {
		t.Errorf("rows parsed/accepted/rejected = %d/%d/%d, want 3/3/0",
			report.RowsParsed, report.RowsAccepted, report.RowsRejected)
	}
	if report.Created != 3 || report.Updated != 0 {
		t.Errorf("created/updated = %d/%d, want 3/0", report.Created, report.Updated)
	}
	if report.EntriesInStore != 3 {
		t.Errorf("EntriesInStore = %d, want 3", report.EntriesInStore)
	}

	wantDates := []string{"01/01/2024", "02/01/2024", "03/01/2024"}
	if len(report.UniqueDates) != len(wantDates) {
		t.Fatalf("UniqueDates = %v, want %v", report.UniqueDates, wantDates)
	}
	for i, d := range wantDates {
		if report.UniqueDates[i] != d {
			t.Errorf("UniqueDates[%d] = %q, want %q", i, report.UniqueDates[i], d)
		}
	}

	e, err := store.FindByDate(context.Background(), "02/01/2024")
	if err != nil {
		t.Fatalf("FindByDate: %v", err)
	}
	if e.ReceivableVP != 2000 {
		t.Errorf("ReceivableVP = %v, want 2000", e.ReceivableVP)
	}
	if e.PayableVP != 0 {
		t.Errorf("PayableVP = %v, want 0 for empty cell", e.PayableVP)
	}
	if e.CumulativeBalance != 2650 {
		t.Errorf("CumulativeBalance = %v, want 2650", e.CumulativeBalance)
	}
	if e.UploadedBy != testUploader || e.SourceFileName != "janeiro.csv" {
		t.Errorf("provenance = %v/%q, want %v/janeiro.csv", e.UploadedBy, e.SourceFileName, testUploader)
	}
	if !e.UploadedAt.Equal(fixedClock()) {
		t.Errorf("UploadedAt = %v, want %v", e.UploadedAt, fixedClock())
	}
}

func TestIngest_Idempotent(t *testing.T) {
	store := newMemStore()
	in := newTestIngester(store)
	ctx := context.Background()

	if _, err := in.Ingest(ctx, []byte(sampleCSV), testUploader, "a.csv"); err != nil {
		t.Fatalf("first Ingest: %v", err)
	}
	first, _ := store.FindByDate(ctx, "01/01/2024")

	report, err := in.Ingest(ctx, []byte(sampleCSV), testUploader, "a.csv")
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if report.Created != 0 || report.Updated != 3 {
		t.Errorf("second run created/updated = %d/%d, want 0/3", report.Created, report.Updated)
	}

	second, _ := store.FindByDate(ctx, "01/01/2024")
	if second.Amounts != first.Amounts {
		t.Errorf("amounts changed on re-ingest: %+v -> %+v", first.Amounts, second.Amounts)
	}
	if second.ID != first.ID {
		t.Errorf("entry ID changed on re-ingest")
	}
	if n, _ := store.Count(ctx); n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}

func TestIngest_LastRowWinsForDuplicateDates(t *testing.T) {
	csv := "DATA,SALDO_DIARIO,RECEBER_VP\n" +
		"05/01/2024,100,1\n" +
		"06/01/2024,200,2\n" +
		"5-1-2024,300,\n"

	store := newMemStore()
	report, err := newTestIngester(store).Ingest(context.Background(), []byte(csv), testUploader, "dup.csv")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if report.RowsAccepted != 3 {
		t.Errorf("RowsAccepted = %d, want 3", report.RowsAccepted)
	}
	if report.Created != 2 {
		t.Errorf("Created = %d, want 2", report.Created)
	}
	if store.upserts != 2 {
		t.Errorf("upserts = %d, want one per date", store.upserts)
	}

	e, _ := store.FindByDate(context.Background(), "05/01/2024")
	if e.DailyBalance != 300 {
		t.Errorf("DailyBalance = %v, want 300 from the last row", e.DailyBalance)
	}
	if e.ReceivableVP != 0 {
		t.Errorf("ReceivableVP = %v, want 0; the later row replaces the earlier one entirely", e.ReceivableVP)
	}
}

func TestIngest_RejectedRows(t *testing.T) {
	csv := "DATA,SALDO_DIARIO\n" +
		"01/01/2024,1\n" +
		"amanhã,2\n" +
		",3\n" +
		"02/01/2024,4\n"

	store := newMemStore()
	report, err := newTestIngester(store).Ingest(context.Background(), []byte(csv), testUploader, "bad.csv")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if report.RowsParsed != 4 || report.RowsAccepted != 2 || report.RowsRejected != 2 {
		t.Fatalf("parsed/accepted/rejected = %d/%d/%d, want 4/2/2",
			report.RowsParsed, report.RowsAccepted, report.RowsRejected)
	}
	if report.RowsAccepted+report.RowsRejected != report.RowsParsed {
		t.Error("accepted + rejected != parsed")
	}
	if len(report.Errors) != 2 {
		t.Fatalf("len(Errors) = %d, want 2", len(report.Errors))
	}

	first := report.Errors[0]
	if first.Line != 3 {
		t.Errorf("first rejection line = %d, want 3", first.Line)
	}
	if !strings.Contains(first.Reason, "amanhã") {
		t.Errorf("reason %q should quote the raw date", first.Reason)
	}
	if first.Raw["SALDO_DIARIO"] != "2" {
		t.Errorf("rejection raw data = %v, want the full row", first.Raw)
	}
	if len(first.Columns) != 2 {
		t.Errorf("rejection columns = %v, want 2", first.Columns)
	}
	if !strings.Contains(report.Errors[1].Reason, "MISSING") {
		t.Errorf("reason %q should mark the date as missing", report.Errors[1].Reason)
	}

	if _, err := store.FindByDate(context.Background(), "02/01/2024"); err != nil {
		t.Errorf("row after rejections was not stored: %v", err)
	}
}

func TestIngest_DateFoundOutsideAliases(t *testing.T) {
	csv := "DIA;SALDO_DIARIO\n07/03/2024;10,00\n"

	store := newMemStore()
	report, err := newTestIngester(store).Ingest(context.Background(), []byte(csv), testUploader, "x.csv")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.RowsAccepted != 1 {
		t.Fatalf("RowsAccepted = %d, want 1", report.RowsAccepted)
	}
	if e, err := store.FindByDate(context.Background(), "07/03/2024"); err != nil || e.DailyBalance != 10 {
		t.Errorf("FindByDate = %+v, %v", e, err)
	}
}

func TestIngest_RejectionSampleIsBounded(t *testing.T) {
	var b strings.Builder
	b.WriteString("DATA,SALDO_DIARIO\n")
	for i := 0; i < 12; i++ {
		b.WriteString("bad,1\n")
	}

	report, err := newTestIngester(newMemStore()).Ingest(context.Background(), []byte(b.String()), testUploader, "x.csv")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.RowsRejected != 12 || report.ErrorCount != 12 {
		t.Errorf("RowsRejected/ErrorCount = %d/%d, want 12/12", report.RowsRejected, report.ErrorCount)
	}
	if len(report.Errors) != DefaultRejectionSample {
		t.Errorf("len(Errors) = %d, want %d", len(report.Errors), DefaultRejectionSample)
	}
}

func TestIngest_PersistenceFailureContinues(t *testing.T) {
	store := newMemStore()
	store.failOn["02/01/2024"] = errors.New("connection reset")

	report, err := newTestIngester(store).Ingest(context.Background(), []byte(sampleCSV), testUploader, "x.csv")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if report.Created != 2 || report.PersistFailed != 1 {
		t.Errorf("created/persistFailed = %d/%d, want 2/1", report.Created, report.PersistFailed)
	}
	if report.RowsAccepted != 3 || report.RowsRejected != 0 {
		t.Errorf("row counts changed by a persistence failure: %d/%d", report.RowsAccepted, report.RowsRejected)
	}
	if len(report.Errors) != 1 || report.Errors[0].Kind != RejectPersist || report.Errors[0].Date != "02/01/2024" {
		t.Errorf("Errors = %+v, want one persistence rejection for 02/01/2024", report.Errors)
	}
	if _, err := store.FindByDate(context.Background(), "03/01/2024"); err != nil {
		t.Errorf("date after failure was not written: %v", err)
	}
}

func TestIngest_CancelledContextReportsEveryDate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newMemStore()
	report, err := newTestIngester(store).Ingest(ctx, []byte(sampleCSV), testUploader, "x.csv")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report == nil {
		t.Fatal("report is nil")
	}

	if got := report.Created + report.Updated + report.PersistFailed; got != len(report.UniqueDates) {
		t.Errorf("created+updated+persistFailed = %d, want %d", got, len(report.UniqueDates))
	}
	if report.PersistFailed != 3 || report.ErrorCount != 3 || store.upserts != 0 {
		t.Errorf("persistFailed/errorCount/upserts = %d/%d/%d, want 3/3/0",
			report.PersistFailed, report.ErrorCount, store.upserts)
	}
	for _, rej := range report.Errors {
		if rej.Kind != RejectPersist || !strings.Contains(rej.Reason, "context canceled") {
			t.Errorf("rejection = %+v, want persistence failure naming the cancellation", rej)
		}
	}
	if report.RowsAccepted != 3 {
		t.Errorf("RowsAccepted = %d, want 3", report.RowsAccepted)
	}
}

// cancelAfterStore cancels its context once the first date is written.
type cancelAfterStore struct {
	*memStore
	cancel context.CancelFunc
}

func (s cancelAfterStore) UpsertByDate(ctx context.Context, c Candidate, at time.Time) (UpsertResult, error) {
	res, err := s.memStore.UpsertByDate(ctx, c, at)
	s.cancel()
	return res, err
}

func TestIngest_DeadlineBetweenDatesKeepsWrittenDates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := cancelAfterStore{memStore: newMemStore(), cancel: cancel}
	report, err := newTestIngester(store).Ingest(ctx, []byte(sampleCSV), testUploader, "x.csv")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Created != 1 || report.PersistFailed != 2 {
		t.Errorf("created/persistFailed = %d/%d, want 1/2", report.Created, report.PersistFailed)
	}
	if len(report.Errors) != 2 || report.Errors[0].Date != "02/01/2024" || report.Errors[1].Date != "03/01/2024" {
		t.Errorf("Errors = %+v, want the two unwritten dates in file order", report.Errors)
	}
	if _, err := store.FindByDate(context.Background(), "01/01/2024"); err != nil {
		t.Errorf("first date was not kept: %v", err)
	}
}

func TestIngest_EmptyUpload(t *testing.T) {
	for _, input := range []string{"", "  \n"} {
		_, err := newTestIngester(newMemStore()).Ingest(context.Background(), []byte(input), testUploader, "x.csv")
		if !errors.Is(err, ErrEmptyUpload) {
			t.Errorf("Ingest(%q) error = %v, want ErrEmptyUpload", input, err)
		}
	}
}

func TestIngest_HeaderOnly(t *testing.T) {
	report, err := newTestIngester(newMemStore()).Ingest(context.Background(), []byte("DATA,SALDO_DIARIO\n"), testUploader, "x.csv")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.RowsParsed != 0 || report.Saved() != 0 {
		t.Errorf("parsed/saved = %d/%d, want 0/0", report.RowsParsed, report.Saved())
	}
}

func TestIngest_HeaderlessRowsSkipped(t *testing.T) {
	csv := ",,\n01/01/2024,1,2\n"

	report, err := newTestIngester(newMemStore()).Ingest(context.Background(), []byte(csv), testUploader, "x.csv")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.RowsSkipped != 1 || report.RowsParsed != 0 {
		t.Errorf("skipped/parsed = %d/%d, want 1/0", report.RowsSkipped, report.RowsParsed)
	}
}

func TestIngest_BOMAndWindows1252(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("DATA;SALDO DIARIO\n01/01/2024;5\n")...)
	store := newMemStore()
	if _, err := newTestIngester(store).Ingest(context.Background(), raw, testUploader, "bom.csv"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if e, err := store.FindByDate(context.Background(), "01/01/2024"); err != nil || e.DailyBalance != 5 {
		t.Errorf("BOM file: FindByDate = %+v, %v", e, err)
	}

	latin := []byte("DATA;SALDO DI\xc1RIO\n02/01/2024;6\n")
	if _, err := newTestIngester(store).Ingest(context.Background(), latin, testUploader, "latin.csv"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if e, err := store.FindByDate(context.Background(), "02/01/2024"); err != nil || e.DailyBalance != 6 {
		t.Errorf("Windows-1252 file: FindByDate = %+v, %v", e, err)
	}
}

func TestIngest_LineNumbersCountPhysicalLines(t *testing.T) {
	csv := "DATA,OBS\n" +
		"01/01/2024,\"multi\nline\"\n" +
		"bad,x\n"

	report, err := newTestIngester(newMemStore()).Ingest(context.Background(), []byte(csv), testUploader, "x.csv")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(report.Errors) != 1 || report.Errors[0].Line != 4 {
		t.Errorf("Errors = %+v, want one rejection on line 4", report.Errors)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestIngestReader_ReadFailureIsFatal(t *testing.T) {
	_, err := newTestIngester(newMemStore()).IngestReader(context.Background(), failingReader{}, testUploader, "x.csv")
	if !errors.Is(err, ErrReadInput) {
		t.Errorf("IngestReader error = %v, want ErrReadInput", err)
	}
}

func TestReport_Summary(t *testing.T) {
	r := &Report{Created: 2, Updated: 1}
	if got := r.Summary(); strings.Contains(got, "errors") {
		t.Errorf("Summary without errors = %q", got)
	}
	r.ErrorCount = 4
	if got := r.Summary(); !strings.Contains(got, "4 rows had errors") {
		t.Errorf("Summary = %q, want error count", got)
	}
}
