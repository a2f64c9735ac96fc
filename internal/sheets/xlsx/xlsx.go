// Package xlsx reads the order ledger from a local Excel workbook.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"lanchonete/internal/core"
	ports "lanchonete/internal/sheets"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the worksheet holding the order table.
const DefaultSheet = "Página3"

var ErrSheetNotFound = errors.New("sheet not found")

type Reader struct {
	path  string
	sheet string
	loc   *time.Location
}

var _ ports.LedgerReader = (*Reader)(nil)

// New returns a reader for sheet in the workbook at path. An empty sheet
// selects DefaultSheet; a nil loc reads dates as UTC.
func New(path, sheet string, loc *time.Location) *Reader {
	if sheet == "" {
		sheet = DefaultSheet
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Reader{path: path, sheet: sheet, loc: loc}
}

func (r *Reader) source() string { return "xlsx:" + r.path }

// ReadLedger opens the workbook, reads the raw cell values of the ledger
// sheet and cleans them.
func (r *Reader) ReadLedger(ctx context.Context) (core.Ledger, ports.LoadStats, error) {
	if err := ctx.Err(); err != nil {
		return core.Ledger{}, ports.LoadStats{}, err
	}
	if _, err := os.Stat(r.path); err != nil {
		return core.Ledger{}, ports.LoadStats{}, &ports.LoadError{Source: r.source(), Op: "open", Err: err}
	}
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return core.Ledger{}, ports.LoadStats{}, &ports.LoadError{Source: r.source(), Op: "open", Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.WarnContext(ctx, "Failed to close workbook", "path", r.path, "error", cerr)
		}
	}()

	idx, err := f.GetSheetIndex(r.sheet)
	if err != nil || idx == -1 {
		return core.Ledger{}, ports.LoadStats{}, &ports.LoadError{
			Source: r.source(),
			Op:     "sheet",
			Err:    fmt.Errorf("%w: %q (have %v)", ErrSheetNotFound, r.sheet, f.GetSheetList()),
		}
	}

	// Raw values keep dates as serial numbers instead of the cell's display format.
	rows, err := f.GetRows(r.sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return core.Ledger{}, ports.LoadStats{}, &ports.LoadError{Source: r.source(), Op: "read", Err: err}
	}

	ledger, stats, err := ports.ParseTable(rows, r.loc)
	if err != nil {
		return core.Ledger{}, stats, &ports.LoadError{Source: r.source(), Op: "parse", Err: err}
	}
	slog.InfoContext(ctx, "Ledger loaded from workbook",
		"path", r.path,
		"sheet", r.sheet,
		"rows", stats.Rows,
		"kept", stats.Kept,
		"dropped_dates", stats.DroppedDates,
		"dropped_values", stats.DroppedValues)
	return ledger, stats, nil
}
