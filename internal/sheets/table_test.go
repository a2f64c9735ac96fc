package sheets

import (
	"errors"
	"testing"
	"time"

	"lanchonete/internal/core"
)

func header() []string {
	return []string{"Número do Pedido", "Data", "Valor total", "Origem", "Condição de pagamento", "Retirada"}
}

func TestParseTableCleansRows(t *testing.T) {
	rows := [][]string{
		header(),
		{"101", "2024-01-15", "10", "iFood", "Pix", "Entrega"},
		{"102", "not a date", "20", "iFood", "Pix", "Entrega"},
		{"103", "20/03/2024", "20,50", "", "Cartão", "Balcão"},
		{"104", "45474", "30", "PDV", "Dinheiro", "Balcão"}, // 2024-07-01
		{"105", "2024-07-02", "abc", "iFood", "Pix", "Entrega"},
		{"106", "2024-07-03", "", "WhatsApp", "Pix"},
		{"", "", "", "", "", ""},
	}
	ledger, stats, err := ParseTable(rows, time.UTC)
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	want := LoadStats{Rows: 6, Kept: 4, DroppedDates: 1, DroppedValues: 1, FilledOrigins: 1}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
	orders := ledger.Orders()
	if len(orders) != 4 {
		t.Fatalf("got %d orders", len(orders))
	}
	if orders[1].Origin != core.NullOrigin || orders[1].Total.Cents != 2050 {
		t.Errorf("order 103 = %+v", orders[1])
	}
	if orders[2].Origin != core.PointOfSaleLabel {
		t.Errorf("PDV not renamed: %q", orders[2].Origin)
	}
	if !orders[2].Time.Equal(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("serial date = %v", orders[2].Time)
	}
	if orders[3].Total.Cents != 0 || orders[3].Pickup != "" {
		t.Errorf("short row = %+v", orders[3])
	}
}

func TestParseTableHeaderFolding(t *testing.T) {
	rows := [][]string{
		{"retirada", " DATA ", "valor  TOTAL", "origem", "Condicao de Pagamento"},
		{"Balcão", "2024-02-05", "5", "iFood", "Pix"},
	}
	ledger, _, err := ParseTable(rows, nil)
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	o := ledger.Orders()[0]
	if o.Pickup != "Balcão" || o.Payment != "Pix" || o.ID != "2" {
		t.Fatalf("order = %+v", o)
	}
}

func TestParseTableMissingColumns(t *testing.T) {
	_, _, err := ParseTable([][]string{{"Data", "Origem"}}, nil)
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("err = %v, want ErrMissingColumns", err)
	}
	_, _, err = ParseTable(nil, nil)
	if !errors.Is(err, ErrEmptyTable) {
		t.Fatalf("err = %v, want ErrEmptyTable", err)
	}
}

func TestParseTableHeaderOnly(t *testing.T) {
	ledger, stats, err := ParseTable([][]string{header()}, nil)
	if err != nil || ledger.Len() != 0 || stats.Rows != 0 {
		t.Fatalf("ledger=%d stats=%+v err=%v", ledger.Len(), stats, err)
	}
}

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-02-28", time.Date(2024, 2, 28, 0, 0, 0, 0, loc), true},
		{"2024-02-28 13:45:00", time.Date(2024, 2, 28, 13, 45, 0, 0, loc), true},
		{"28/02/2024", time.Date(2024, 2, 28, 0, 0, 0, 0, loc), true},
		{"28/02/2024 09:30", time.Date(2024, 2, 28, 9, 30, 0, 0, loc), true},
		{"45306", time.Date(2024, 1, 15, 0, 0, 0, 0, loc), true},
		{"45306.5", time.Date(2024, 1, 15, 12, 0, 0, 0, loc), true},
		{"2024-02-30", time.Time{}, false},
		{"-4", time.Time{}, false},
		{"", time.Time{}, false},
		{"ontem", time.Time{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in, loc)
		if tc.ok {
			if err != nil || !got.Equal(tc.want) {
				t.Errorf("ParseDate(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
			}
		} else if err == nil {
			t.Errorf("ParseDate(%q) expected error, got %v", tc.in, got)
		}
	}
}

func TestFoldHeader(t *testing.T) {
	if FoldHeader("Número  do Pedido") != FoldHeader("numero do pedido") {
		t.Fatal("accent/space folding failed")
	}
}

func TestLoadErrorUnwrap(t *testing.T) {
	err := error(&LoadError{Source: "xlsx:x.xlsx", Op: "open", Err: ErrEmptyTable})
	if !errors.Is(err, ErrEmptyTable) {
		t.Fatal("LoadError does not unwrap")
	}
	var le *LoadError
	if !errors.As(err, &le) || le.Op != "open" {
		t.Fatal("errors.As failed")
	}
}
