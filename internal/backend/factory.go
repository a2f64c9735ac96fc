package backend

import (
	"context"
	"fmt"
	"log/slog"

	gsheet "lanchonete/internal/sheets/google"
	"lanchonete/internal/sheets/memory"
	"lanchonete/internal/sheets/xlsx"
	"lanchonete/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateReader implements Factory.CreateReader
func (f *DefaultFactory) CreateReader(ctx context.Context, config Config) (*ReaderResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case XLSXBackend:
		return f.createXLSXReader(config)
	case SQLiteBackend:
		return f.createSQLiteReader(config)
	case SheetsBackend:
		return f.createSheetsReader(ctx, config)
	case MemoryBackend:
		return f.createMemoryReader(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createXLSXReader(config Config) (*ReaderResult, error) {
	sheet := config.LedgerSheet
	if sheet == "" {
		sheet = xlsx.DefaultSheet
	}
	f.logger.Info("Initialized xlsx ledger reader", "file", config.LedgerFile, "sheet", sheet)
	return &ReaderResult{Reader: xlsx.New(config.LedgerFile, sheet, config.Location)}, nil
}

func (f *DefaultFactory) createSQLiteReader(config Config) (*ReaderResult, error) {
	ledger, err := storage.NewSQLiteLedger(config.SQLiteDBPath, config.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite ledger: %w", err)
	}

	f.logger.Info("Initialized SQLite ledger reader", "db_path", config.SQLiteDBPath)

	return &ReaderResult{
		Reader:  ledger,
		Cleanup: ledger.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsReader(ctx context.Context, config Config) (*ReaderResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		SheetName:          config.GoogleSheetName,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
		Location:           config.Location,
		MaxRetries:         config.GoogleMaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets ledger reader", "spreadsheet_id", config.GoogleSpreadsheetID)

	return &ReaderResult{Reader: cli}, nil
}

func (f *DefaultFactory) createMemoryReader(config Config) (*ReaderResult, error) {
	if config.isCSV() {
		store, err := memory.NewFromCSV(config.LedgerFile, config.Location)
		if err != nil {
			return nil, fmt.Errorf("failed to load CSV ledger: %w", err)
		}
		f.logger.Info("Initialized memory ledger from CSV", "file", config.LedgerFile)
		return &ReaderResult{Reader: store}, nil
	}

	f.logger.Info("Initialized memory ledger with demo data", "year", config.DemoYear)
	return &ReaderResult{Reader: memory.Demo(config.DemoYear, config.Location)}, nil
}
