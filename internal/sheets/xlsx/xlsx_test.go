package xlsx

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	ports "lanchonete/internal/sheets"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("set row %d: %v", i, err)
		}
	}
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

func TestReadLedger(t *testing.T) {
	path := writeWorkbook(t, DefaultSheet, [][]interface{}{
		{"Número do Pedido", "Data", "Valor total", "Origem", "Condição de pagamento", "Retirada"},
		{1, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), 10.0, "iFood", "Pix", "Entrega"},
		{2, "2024-03-20", 20.0, "PDV", "Cartão", "Balcão"},
		{3, "sem data", 99.0, "iFood", "Pix", "Entrega"},
		{4, "2024-07-01", 30.0, nil, "Dinheiro", "Balcão"},
	})

	ledger, stats, err := New(path, "", nil).ReadLedger(context.Background())
	if err != nil {
		t.Fatalf("ReadLedger: %v", err)
	}
	if ledger.Len() != 3 || stats.DroppedDates != 1 {
		t.Fatalf("len=%d stats=%+v", ledger.Len(), stats)
	}
	orders := ledger.Orders()
	if !orders[0].Time.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date cell = %v", orders[0].Time)
	}
	if orders[0].Total.Cents != 1000 || orders[0].ID != "1" {
		t.Errorf("order 1 = %+v", orders[0])
	}
	if orders[1].Origin != "Ponto de Venda" {
		t.Errorf("origin = %q", orders[1].Origin)
	}
	if orders[2].Origin != "Nulo" {
		t.Errorf("blank origin = %q", orders[2].Origin)
	}
}

func TestReadLedgerMissingFile(t *testing.T) {
	_, _, err := New(filepath.Join(t.TempDir(), "nope.xlsx"), "", nil).ReadLedger(context.Background())
	var le *ports.LoadError
	if !errors.As(err, &le) || le.Op != "open" {
		t.Fatalf("err = %v, want open LoadError", err)
	}
}

func TestReadLedgerMissingSheet(t *testing.T) {
	path := writeWorkbook(t, "Outra", [][]interface{}{{"Data"}})
	_, _, err := New(path, "", nil).ReadLedger(context.Background())
	if !errors.Is(err, ErrSheetNotFound) {
		t.Fatalf("err = %v, want ErrSheetNotFound", err)
	}
}

func TestReadLedgerMissingColumns(t *testing.T) {
	path := writeWorkbook(t, DefaultSheet, [][]interface{}{{"Data", "Origem"}, {"2024-01-01", "iFood"}})
	_, _, err := New(path, "", nil).ReadLedger(context.Background())
	if !errors.Is(err, ports.ErrMissingColumns) {
		t.Fatalf("err = %v, want ErrMissingColumns", err)
	}
}
