// Package ledger turns uploaded CSV files into daily ledger entries.
//
// The package is independent of HTTP and of the concrete database. It owns the
// parsing rules for the loosely formatted spreadsheets the finance team exports
// and the upsert-by-date pipeline that persists them through a [Store].
//
// # Flow
//
//  1. [DetectSeparator] picks comma, semicolon or tab from the first line.
//  2. [RowReader] streams the file one record at a time as an ordered [Row].
//  3. [Mapper] resolves the date and the eight amount columns through the
//     alias lists in [AliasSet], producing a [RowResult] per row.
//  4. [Ingester] keeps the last row seen for every date and upserts each date
//     once, collecting everything into a [Report].
//
// # Leniency
//
// Amount cells never reject a row: [ParseCurrency] yields 0 for anything it
// cannot read. Only a missing or unreadable date rejects a row, and a rejected
// row never stops the upload. The only fatal failure is not being able to read
// the input at all.
package ledger
