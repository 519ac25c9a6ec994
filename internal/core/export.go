package core

// export.go writes the ledger as an XLSX workbook. Column headers are the
// primary aliases, so a sheet saved back to CSV ingests unchanged.

import (
	"context"
	"fmt"
	"io"

	"github.com/JonMunkholm/ledger/internal/ledger"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Ledger"

// ExportEntries writes every entry, in date order, to w as XLSX.
func (s *Service) ExportEntries(ctx context.Context, w io.Writer) error {
	rows, err := s.queries.ListAllLedgerEntries(ctx)
	if err != nil {
		return err
	}
	entries := make([]ledger.Entry, len(rows))
	for i, r := range rows {
		entries[i] = entryFromRow(r)
	}
	return WriteWorkbook(w, entries)
}

// WriteWorkbook renders entries as a single-sheet workbook.
func WriteWorkbook(w io.Writer, entries []ledger.Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	aliases := ledger.DefaultAliases()
	header := []any{aliases.Date[0]}
	for _, field := range ledger.AmountFields {
		header = append(header, aliases.Fields[field][0])
	}
	header = append(header, "ARQUIVO", "ENVIADO_EM")
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, e := range entries {
		row := []any{e.Date}
		for _, field := range ledger.AmountFields {
			row = append(row, e.Amounts.Get(field))
		}
		row = append(row, e.SourceFileName, e.UploadedAt.UTC().Format("2006-01-02 15:04:05"))

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	// Built-in format 4 is "#,##0.00".
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("amount style: %w", err)
	}
	lastAmountCol, _ := excelize.ColumnNumberToName(1 + len(ledger.AmountFields))
	if err := f.SetColStyle(exportSheet, "B:"+lastAmountCol, amountStyle); err != nil {
		return fmt.Errorf("apply amount style: %w", err)
	}
	if err := f.SetColWidth(exportSheet, "A", lastAmountCol, 16); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
