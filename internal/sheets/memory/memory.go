package memory

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"time"

	"lanchonete/internal/core"
	ports "lanchonete/internal/sheets"
)

// Store serves a ledger held in process memory.
type Store struct {
	mu     sync.Mutex
	ledger core.Ledger
	stats  ports.LoadStats
}

var _ ports.LedgerReader = (*Store)(nil)

// New builds a store from already-clean orders.
func New(orders ...core.Order) (*Store, error) {
	ledger, err := core.NewLedger(orders)
	if err != nil {
		return nil, err
	}
	return &Store{ledger: ledger, stats: ports.LoadStats{Rows: len(orders), Kept: len(orders)}}, nil
}

// NewFromRows cleans a raw string table (header first) the same way the
// spreadsheet sources do.
func NewFromRows(rows [][]string, loc *time.Location) (*Store, error) {
	ledger, stats, err := ports.ParseTable(rows, loc)
	if err != nil {
		return nil, err
	}
	return &Store{ledger: ledger, stats: stats}, nil
}

// NewFromCSV seeds the store from a CSV export of the ledger sheet. Totals
// are read in the pt-BR locale, so "1.234" is R$ 1.234,00.
func NewFromCSV(path string, loc *time.Location) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ports.LoadError{Source: "csv:" + path, Op: "open", Err: err}
	}
	defer f.Close()
	cr := csv.NewReader(f)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, &ports.LoadError{Source: "csv:" + path, Op: "read", Err: fmt.Errorf("csv read: %w", err)}
	}
	ledger, stats, err := ports.ParseFormattedTable(records, loc)
	if err != nil {
		return nil, &ports.LoadError{Source: "csv:" + path, Op: "parse", Err: err}
	}
	return &Store{ledger: ledger, stats: stats}, nil
}

// ReadLedger returns the stored ledger.
func (s *Store) ReadLedger(ctx context.Context) (core.Ledger, ports.LoadStats, error) {
	if err := ctx.Err(); err != nil {
		return core.Ledger{}, ports.LoadStats{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger, s.stats, nil
}

var (
	demoOrigins  = []string{"iFood", core.PointOfSaleLabel, "WhatsApp", core.NullOrigin}
	demoPayments = []string{"Pix", "Cartão de crédito", "Cartão de débito", "Dinheiro"}
	demoPickups  = []string{"Entrega", "Balcão", "Consumo no local"}
)

// Demo returns a deterministic store covering every month of year so the
// dashboard has something to draw without a workbook.
func Demo(year int, loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, time.January, 1, 11, 0, 0, 0, loc)
	end := start.AddDate(1, 0, 0)
	var orders []core.Order
	n := 0
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		perDay := 2 + day.YearDay()%4
		for i := 0; i < perDay; i++ {
			n++
			orders = append(orders, core.Order{
				ID:      fmt.Sprintf("%d", 1000+n),
				Time:    day.Add(time.Duration(i*97) * time.Minute),
				Total:   core.Money{Cents: int64(1500 + (n*731)%6000)},
				Origin:  demoOrigins[n%len(demoOrigins)],
				Payment: demoPayments[(n/3)%len(demoPayments)],
				Pickup:  demoPickups[(n/2)%len(demoPickups)],
			})
		}
	}
	s, _ := New(orders...)
	return s
}
