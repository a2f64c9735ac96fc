package sheets

import (
	"context"
	"fmt"

	"lanchonete/internal/core"
)

// Ports for ledger sources.
type (
	// LedgerReader loads the whole order table and returns it cleaned.
	LedgerReader interface {
		ReadLedger(ctx context.Context) (core.Ledger, LoadStats, error)
	}

	// LoadStats counts what happened to the raw rows while cleaning.
	LoadStats struct {
		Rows          int `json:"rows"`
		Kept          int `json:"kept"`
		DroppedDates  int `json:"dropped_dates"`
		DroppedValues int `json:"dropped_values"`
		FilledOrigins int `json:"filled_origins"`
	}
)

// LoadError reports a failure to obtain the raw table from a source.
type LoadError struct {
	Source string // e.g. "xlsx:Dashboard.xlsx"
	Op     string // open, sheet, read, parse
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load ledger from %s: %s: %v", e.Source, e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
