package backend

import (
	"context"

	"lanchonete/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// ReaderResult contains the ledger reader and optional cleanup function
type ReaderResult struct {
	Reader  sheets.LedgerReader
	Cleanup CleanupFunc
}

// Close runs Cleanup when one is set.
func (r *ReaderResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates ledger readers based on configuration
type Factory interface {
	// CreateReader creates a reader for the configured ledger source
	CreateReader(ctx context.Context, config Config) (*ReaderResult, error)
}
