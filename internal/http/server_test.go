package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lanchonete/internal/cache"
	"lanchonete/internal/core"
	"lanchonete/internal/log"
	"lanchonete/internal/metrics"
	"lanchonete/internal/services"
	"lanchonete/internal/sheets"
)

func at(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func newTestServer(t *testing.T, loaded bool) (*Server, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	srv := NewServer(Options{
		Addr:        ":0",
		MaxInFlight: 8,
		Logger:      log.New(log.Config{Output: io.Discard}),
		Metrics:     m,
	})
	if !loaded {
		return srv, m
	}
	ledger, err := core.NewLedger([]core.Order{
		{ID: "1", Time: at(2024, 1, 15), Total: core.Money{Cents: 1000}, Origin: "iFood", Payment: "Pix", Pickup: "Entrega"},
		{ID: "2", Time: at(2024, 3, 20), Total: core.Money{Cents: 2000}, Origin: "Ponto de Venda", Payment: "Cartão", Pickup: "Balcão"},
		{ID: "3", Time: at(2024, 7, 1), Total: core.Money{Cents: 3000}, Origin: "iFood", Payment: "Pix", Pickup: "Entrega"},
	})
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	srv.SetDashboard(services.NewDashboardService(ledger, sheets.LoadStats{Rows: 3, Kept: 3}, services.Options{
		Cache:   cache.NewLRUCache[services.Chart](16, time.Minute),
		Metrics: m,
	}))
	return srv, m
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestReadinessFollowsLedger(t *testing.T) {
	srv, _ := newTestServer(t, false)

	if rr := get(t, srv.Handler, "/healthz"); rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
	for _, path := range []string{"/readyz", "/", "/api/charts/sales", "/api/summary"} {
		rr := get(t, srv.Handler, path)
		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("%s before load: status=%d, want 503", path, rr.Code)
		}
		if path != "/readyz" && rr.Header().Get("Retry-After") != "5" {
			t.Errorf("%s before load: Retry-After = %q", path, rr.Header().Get("Retry-After"))
		}
	}

	loaded, _ := newTestServer(t, true)
	if rr := get(t, loaded.Handler, "/readyz"); rr.Code != http.StatusOK {
		t.Fatalf("readyz after load: status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestIndexPage(t *testing.T) {
	srv, _ := newTestServer(t, true)
	rr := get(t, srv.Handler, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"Dashboard de Vendas",
		`data-chart="sales"`,
		`data-chart="ticket-origin"`,
		`<option value="M" selected>Mês</option>`,
		"R$ 60,00",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if got := strings.Count(body, "data-period"); got != 3 {
		t.Errorf("period selectors = %d, want 3", got)
	}
	if csp := rr.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "cdn.jsdelivr.net") {
		t.Errorf("CSP = %q", csp)
	}
}

func TestChartEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, true)

	tests := []struct {
		path        string
		granularity string
		labels      []string
		values      []float64
	}{
		{"/api/charts/sales?period=2Q", "halfyear", []string{"2024-S1", "2024-S2"}, []float64{30, 30}},
		{"/api/charts/sales", "month", []string{"2024-01", "2024-03", "2024-07"}, []float64{10, 20, 30}},
		{"/api/charts/ticket?period=Q", "quarter", []string{"2024Q1", "2024Q3"}, []float64{15, 30}},
		{"/api/charts/sales?period=bogus", "day", []string{"2024-01-15", "2024-03-20", "2024-07-01"}, []float64{10, 20, 30}},
		{"/api/charts/origin?period=Q", "", []string{"iFood", "Ponto de Venda"}, []float64{2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := get(t, srv.Handler, tt.path)
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
			var chart services.Chart
			if err := json.NewDecoder(rr.Body).Decode(&chart); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if chart.Granularity != tt.granularity {
				t.Errorf("granularity = %q, want %q", chart.Granularity, tt.granularity)
			}
			if strings.Join(chart.Labels, ",") != strings.Join(tt.labels, ",") {
				t.Errorf("labels = %v, want %v", chart.Labels, tt.labels)
			}
			if len(chart.Series) == 0 || len(chart.Series[0].Values) != len(tt.values) {
				t.Fatalf("series = %+v", chart.Series)
			}
			for i, v := range tt.values {
				if chart.Series[0].Values[i] != v {
					t.Errorf("value[%d] = %v, want %v", i, chart.Series[0].Values[i], v)
				}
			}
		})
	}
}

func TestUnknownChartIsJSON404(t *testing.T) {
	srv, _ := newTestServer(t, true)
	rr := get(t, srv.Handler, "/api/charts/nope")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}
	var body errorBody
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(body.Error, "unknown chart") {
		t.Errorf("error = %q", body.Error)
	}
}

func TestSummaryAndReport(t *testing.T) {
	srv, _ := newTestServer(t, true)

	rr := get(t, srv.Handler, "/api/summary")
	var sum services.Summary
	if err := json.NewDecoder(rr.Body).Decode(&sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.Orders != 3 || sum.Revenue != 60 || sum.TicketMean != 20 {
		t.Errorf("summary = %+v", sum)
	}

	rr = get(t, srv.Handler, "/api/report?period=Q")
	var rep services.Report
	if err := json.NewDecoder(rr.Body).Decode(&rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Granularity != "quarter" || len(rep.Charts) != len(services.ChartNames()) {
		t.Errorf("report granularity=%q charts=%d", rep.Granularity, len(rep.Charts))
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, true)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/summary", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestStaticAndMetrics(t *testing.T) {
	srv, m := newTestServer(t, true)

	rr := get(t, srv.Handler, "/static/dashboard.js")
	if rr.Code != http.StatusOK {
		t.Fatalf("static status=%d", rr.Code)
	}
	if cc := rr.Header().Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q", cc)
	}

	get(t, srv.Handler, "/api/charts/sales")
	get(t, srv.Handler, "/api/charts/sales")
	if hits := m.CacheHits("sales"); hits != 1 {
		t.Errorf("cache hits = %v, want 1", hits)
	}
	if body := get(t, srv.Handler, "/api/summary").Body.String(); !strings.Contains(body, `"cache":{"hits":1,"misses":1}`) {
		t.Errorf("summary cache stats missing: %s", body)
	}

	rr = get(t, srv.Handler, "/metrics")
	body := rr.Body.String()
	for _, want := range []string{
		"lanchonete_ledger_orders 3",
		`lanchonete_http_requests_total{method="GET",route="/api/charts/{chart}",status="2xx"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
