package google

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	ports "lanchonete/internal/sheets"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Options{SpreadsheetID: "test-id"})
	if err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Options{
		SpreadsheetID:      "test-id",
		ServiceAccountFile: os.DevNull + "/missing.json",
	})
	if err == nil {
		t.Fatal("expected error for unreadable credentials file")
	}
}

func ledgerValues() [][]interface{} {
	return [][]interface{}{
		{"Número do Pedido", "Data", "Valor total", "Origem", "Condição de pagamento", "Retirada"},
		{1.0, 45306.0, 10.0, "iFood", "Pix", "Entrega"},
		{2.0, "20/03/2024", 20.0, "PDV", "Cartão", "Balcão"},
		{3.0, "", 5.0, "iFood", "Pix", "Entrega"},
	}
}

func TestReadLedger(t *testing.T) {
	var gotRange string
	c := newClient(func(_ context.Context, rng string) ([][]interface{}, error) {
		gotRange = rng
		return ledgerValues(), nil
	}, Options{SpreadsheetID: "sid"})

	ledger, stats, err := c.ReadLedger(context.Background())
	if err != nil {
		t.Fatalf("ReadLedger: %v", err)
	}
	if gotRange != "Página3!A:Z" {
		t.Errorf("range = %q", gotRange)
	}
	if ledger.Len() != 2 || stats.DroppedDates != 1 {
		t.Fatalf("len=%d stats=%+v", ledger.Len(), stats)
	}
	o := ledger.Orders()[0]
	if o.ID != "1" || !o.Time.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) || o.Total.Cents != 1000 {
		t.Errorf("order = %+v", o)
	}
	if ledger.Orders()[1].Origin != "Ponto de Venda" {
		t.Errorf("origin = %q", ledger.Orders()[1].Origin)
	}
}

func TestReadLedger_RetriesTransientErrors(t *testing.T) {
	calls := 0
	c := newClient(func(context.Context, string) ([][]interface{}, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("503 backend error")
		}
		return ledgerValues(), nil
	}, Options{SpreadsheetID: "sid", MaxRetries: 2, InitialBackoff: time.Millisecond})

	if _, _, err := c.ReadLedger(context.Background()); err != nil {
		t.Fatalf("ReadLedger: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestReadLedger_ErrorIsLoadError(t *testing.T) {
	boom := errors.New("permission denied")
	c := newClient(func(context.Context, string) ([][]interface{}, error) {
		return nil, boom
	}, Options{SpreadsheetID: "sid", SheetName: "Vendas"})

	_, _, err := c.ReadLedger(context.Background())
	var le *ports.LoadError
	if !errors.As(err, &le) || le.Op != "read" || !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestReadLedger_CircuitOpensAfterFailures(t *testing.T) {
	calls := 0
	c := newClient(func(context.Context, string) ([][]interface{}, error) {
		calls++
		return nil, errors.New("quota exceeded")
	}, Options{SpreadsheetID: "sid"})

	for i := 0; i < 5; i++ {
		_, _, _ = c.ReadLedger(context.Background())
	}
	if calls != 3 {
		t.Fatalf("fetch calls = %d, want 3 before the breaker opens", calls)
	}
}

func TestReadLedger_MissingColumns(t *testing.T) {
	c := newClient(func(context.Context, string) ([][]interface{}, error) {
		return [][]interface{}{{"Data", "Valor total"}}, nil
	}, Options{SpreadsheetID: "sid"})
	_, _, err := c.ReadLedger(context.Background())
	if !errors.Is(err, ports.ErrMissingColumns) {
		t.Fatalf("err = %v", err)
	}
}
