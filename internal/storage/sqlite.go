package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"lanchonete/internal/core"
	"lanchonete/internal/log"
	ports "lanchonete/internal/sheets"

	_ "modernc.org/sqlite"
)

// SQLiteLedger reads the order ledger from an `orders` table. The
// application never writes to it; the table is filled by an external export.
type SQLiteLedger struct {
	db   *sql.DB
	path string
	loc  *time.Location
}

var _ ports.LedgerReader = (*SQLiteLedger)(nil)

// NewSQLiteLedger opens the existing database at dbPath and makes sure the
// orders schema exists. A missing file is a *ports.LoadError.
func NewSQLiteLedger(dbPath string, loc *time.Location) (*SQLiteLedger, error) {
	source := "sqlite:" + dbPath
	info, err := os.Stat(dbPath)
	if err != nil {
		return nil, &ports.LoadError{Source: source, Op: "open", Err: err}
	}
	if info.IsDir() {
		return nil, &ports.LoadError{Source: source, Op: "open", Err: fmt.Errorf("%s is a directory", dbPath)}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if loc == nil {
		loc = time.UTC
	}
	return &SQLiteLedger{db: db, path: dbPath, loc: loc}, nil
}

func (s *SQLiteLedger) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const selectOrders = `
SELECT order_number,
       COALESCE(CAST(ordered_at AS TEXT), ''),
       COALESCE(CAST(total AS TEXT), ''),
       COALESCE(origin, ''),
       COALESCE(payment, ''),
       COALESCE(pickup, '')
FROM orders
ORDER BY rowid`

// ReadLedger loads every row of the orders table and cleans it like a
// spreadsheet export.
func (s *SQLiteLedger) ReadLedger(ctx context.Context) (core.Ledger, ports.LoadStats, error) {
	source := "sqlite:" + s.path
	rows, err := s.db.QueryContext(ctx, selectOrders)
	if err != nil {
		return core.Ledger{}, ports.LoadStats{}, &ports.LoadError{Source: source, Op: "read", Err: err}
	}
	defer rows.Close()

	table := [][]string{append([]string(nil), ports.Columns...)}
	for rows.Next() {
		var id, at, total, origin, payment, pickup string
		if err := rows.Scan(&id, &at, &total, &origin, &payment, &pickup); err != nil {
			return core.Ledger{}, ports.LoadStats{}, &ports.LoadError{Source: source, Op: "read", Err: fmt.Errorf("scan order: %w", err)}
		}
		table = append(table, []string{id, at, total, origin, payment, pickup})
	}
	if err := rows.Err(); err != nil {
		return core.Ledger{}, ports.LoadStats{}, &ports.LoadError{Source: source, Op: "read", Err: err}
	}

	ledger, stats, err := ports.ParseTable(table, s.loc)
	if err != nil {
		return core.Ledger{}, stats, &ports.LoadError{Source: source, Op: "parse", Err: err}
	}
	log.FromContext(ctx).WithComponent(log.ComponentStorage).InfoContext(ctx, "Ledger loaded from SQLite",
		"path", s.path,
		"rows", stats.Rows,
		"kept", stats.Kept,
		log.FieldDroppedDates, stats.DroppedDates,
		log.FieldDroppedValues, stats.DroppedValues)
	return ledger, stats, nil
}
