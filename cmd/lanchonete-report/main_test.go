package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lanchonete/internal/config"
	"lanchonete/internal/log"
	"lanchonete/internal/services"
)

const ledgerCSV = `Número do Pedido,Data,Valor total,Origem,Condição de pagamento,Retirada
1,2024-01-15,10.00,iFood,Pix,Entrega
2,2024-03-20,20.00,PDV,Cartão,Balcão
3,2024-07-01,30.00,iFood,Pix,Entrega
4,31/02/2024,99.00,iFood,Pix,Entrega
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vendas.csv")
	if err := os.WriteFile(path, []byte(ledgerCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	return &config.Config{DataBackend: "memory", LedgerFile: path, Timezone: "UTC"}
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func TestRunText(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), quietLogger(), testConfig(t), options{period: "2Q", format: "text"}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	found := false
	for _, line := range strings.Split(text, "\n") {
		if f := strings.Fields(line); len(f) == 2 && f[0] == "Pedidos" && f[1] == "3" {
			found = true
		}
	}
	if !found {
		t.Errorf("order count line missing:\n%s", text)
	}
	for _, want := range []string{
		"(halfyear)",
		"R$ 60.00",
		"Linhas descartadas",
		"Vendas por período",
		"2024-S1",
		"30.00",
		"Ponto de Venda",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("text report missing %q:\n%s", want, text)
		}
	}
}

func TestRunJSON(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), quietLogger(), testConfig(t), options{period: "Q", format: "json"}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var rep services.Report
	if err := json.Unmarshal(out.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.Granularity != "quarter" || rep.Summary.Orders != 3 || rep.Summary.Load.DroppedDates != 1 {
		t.Errorf("report = %+v", rep.Summary)
	}
	if len(rep.Charts) != len(services.ChartNames()) {
		t.Errorf("charts = %d", len(rep.Charts))
	}
}

func TestRunPublishRequiresURL(t *testing.T) {
	err := run(context.Background(), quietLogger(), testConfig(t), options{format: "json", publish: true}, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "AMQP_URL") {
		t.Fatalf("expected AMQP_URL error, got %v", err)
	}
}

func TestParseFlags(t *testing.T) {
	o, err := parseFlags(nil, io.Discard)
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if o.period != "M" || o.format != "text" || o.publish {
		t.Errorf("defaults = %+v", o)
	}

	o, err = parseFlags([]string{"-period", "2Q", "-format", "JSON", "-publish"}, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if o.period != "2Q" || o.format != "json" || !o.publish {
		t.Errorf("parsed = %+v", o)
	}

	if _, err := parseFlags([]string{"-format", "xml"}, io.Discard); err == nil {
		t.Error("expected error for -format xml")
	}
}
