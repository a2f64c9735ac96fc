package services

import (
	"errors"
	"sort"
	"strings"

	"lanchonete/internal/core"
)

// ChartKind tells the front-end how to draw a chart.
type ChartKind string

const (
	KindPie        ChartKind = "pie"
	KindBar        ChartKind = "bar"
	KindLine       ChartKind = "line"
	KindStackedBar ChartKind = "stacked-bar"
)

// Chart names served by the dashboard.
const (
	ChartOrigin       = "origin"
	ChartPayment      = "payment"
	ChartSales        = "sales"
	ChartPickup       = "pickup"
	ChartTicket       = "ticket"
	ChartTicketDay    = "ticket-day"
	ChartTicketOrigin = "ticket-origin"
)

var ErrUnknownChart = errors.New("unknown chart")

type (
	Series struct {
		Name   string    `json:"name"`
		Values []float64 `json:"values"`
	}

	// Chart is a chart-ready table: one label per x position and one value
	// per label in every series.
	Chart struct {
		Name        string    `json:"name"`
		Title       string    `json:"title"`
		Kind        ChartKind `json:"kind"`
		Granularity string    `json:"granularity,omitempty"`
		XLabel      string    `json:"x_label,omitempty"`
		YLabel      string    `json:"y_label,omitempty"`
		Labels      []string  `json:"labels"`
		Series      []Series  `json:"series"`
	}
)

func (c Chart) clone() Chart {
	out := c
	out.Labels = append([]string(nil), c.Labels...)
	out.Series = make([]Series, len(c.Series))
	for i, s := range c.Series {
		out.Series[i] = Series{Name: s.Name, Values: append([]float64(nil), s.Values...)}
	}
	return out
}

// chartDef describes one chart. Dynamic charts follow the period selector;
// static ones ignore it.
type chartDef struct {
	name    string
	title   string
	kind    ChartKind
	dynamic bool
	build   func(l core.Ledger, g core.Granularity) Chart
}

var chartDefs = []chartDef{
	{ChartOrigin, "Pedidos por origem", KindPie, false, originChart},
	{ChartPayment, "Pedidos por condição de pagamento", KindBar, false, paymentChart},
	{ChartSales, "Vendas por período", KindLine, true, salesChart},
	{ChartPickup, "Vendas por retirada e período", KindStackedBar, true, pickupChart},
	{ChartTicket, "Ticket médio por período", KindLine, true, ticketChart},
	{ChartTicketDay, "Ticket médio por dia", KindLine, false, ticketDayChart},
	{ChartTicketOrigin, "Ticket médio por origem", KindBar, false, ticketOriginChart},
}

func lookupChart(name string) (chartDef, bool) {
	for _, d := range chartDefs {
		if d.name == name {
			return d, true
		}
	}
	return chartDef{}, false
}

// ChartNames lists every chart in page order.
func ChartNames() []string {
	out := make([]string, len(chartDefs))
	for i, d := range chartDefs {
		out[i] = d.name
	}
	return out
}

// ChartMeta describes a chart for page rendering.
type ChartMeta struct {
	Name    string    `json:"name"`
	Title   string    `json:"title"`
	Kind    ChartKind `json:"kind"`
	Dynamic bool      `json:"dynamic"`
}

// Catalog lists every chart in page order.
func Catalog() []ChartMeta {
	out := make([]ChartMeta, len(chartDefs))
	for i, d := range chartDefs {
		out[i] = ChartMeta{Name: d.name, Title: d.title, Kind: d.kind, Dynamic: d.dynamic}
	}
	return out
}

// IsDynamic reports whether the chart follows the period selector.
func IsDynamic(name string) bool {
	d, ok := lookupChart(name)
	return ok && d.dynamic
}

func countsOf(rows []core.AggregateRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = float64(r.Count)
	}
	return out
}

func sumsOf(rows []core.AggregateRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Sum.Reais()
	}
	return out
}

func meansOf(rows []core.AggregateRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Mean
	}
	return out
}

func labelsOf(rows []core.AggregateRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Value(0)
	}
	return out
}

// originChart counts orders per origin, largest slice first.
func originChart(l core.Ledger, _ core.Granularity) Chart {
	rows := l.Aggregate(core.ByOrigin)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Value(0) < rows[j].Value(0)
	})
	return Chart{
		Labels: labelsOf(rows),
		Series: []Series{{Name: "Pedidos", Values: countsOf(rows)}},
	}
}

// categorized keeps the orders whose key is not blank. Orders without a
// payment or pickup value stay out of the charts grouped by that column.
func categorized(l core.Ledger, key core.KeyFunc) []core.Order {
	out := make([]core.Order, 0, l.Len())
	l.Each(func(o core.Order) {
		if strings.TrimSpace(key(o).Value) != "" {
			out = append(out, o)
		}
	})
	return out
}

func paymentChart(l core.Ledger, _ core.Granularity) Chart {
	rows := core.Aggregate(categorized(l, core.ByPayment), core.ByPayment)
	core.SortRows(rows)
	return Chart{
		XLabel: "Condição de pagamento",
		YLabel: "Número de pedidos",
		Labels: labelsOf(rows),
		Series: []Series{{Name: "Pedidos", Values: countsOf(rows)}},
	}
}

func salesChart(l core.Ledger, g core.Granularity) Chart {
	rows := l.Aggregate(core.ByBucket(g))
	core.SortRows(rows)
	return Chart{
		XLabel: "Período",
		YLabel: "Valor total (R$)",
		Labels: labelsOf(rows),
		Series: []Series{{Name: "Valor total", Values: sumsOf(rows)}},
	}
}

// pickupChart builds one series per pickup type over a shared, chronological
// period axis. Periods where a pickup type had no orders are zero.
func pickupChart(l core.Ledger, g core.Granularity) Chart {
	rows := core.Aggregate(categorized(l, core.ByPickup), core.ByPickup, core.ByBucket(g))

	var buckets []core.Bucket
	seenBucket := map[string]bool{}
	var pickups []string
	seenPickup := map[string]bool{}
	for _, r := range rows {
		if label := r.Value(1); !seenBucket[label] {
			seenBucket[label] = true
			buckets = append(buckets, core.Bucket{Label: label, Start: r.Keys[1].Start})
		}
		if p := r.Value(0); !seenPickup[p] {
			seenPickup[p] = true
			pickups = append(pickups, p)
		}
	}
	core.SortBuckets(buckets)
	sort.Strings(pickups)

	col := make(map[string]int, len(buckets))
	labels := make([]string, len(buckets))
	for i, b := range buckets {
		col[b.Label] = i
		labels[i] = b.Label
	}
	idx := make(map[string]int, len(pickups))
	series := make([]Series, len(pickups))
	for i, p := range pickups {
		idx[p] = i
		series[i] = Series{Name: p, Values: make([]float64, len(buckets))}
	}
	for _, r := range rows {
		series[idx[r.Value(0)]].Values[col[r.Value(1)]] = r.Sum.Reais()
	}
	return Chart{
		XLabel: "Período",
		YLabel: "Valor total (R$)",
		Labels: labels,
		Series: series,
	}
}

func ticketChart(l core.Ledger, g core.Granularity) Chart {
	rows := l.Aggregate(core.ByBucket(g))
	core.SortRows(rows)
	return Chart{
		XLabel: "Período",
		YLabel: "Ticket médio (R$)",
		Labels: labelsOf(rows),
		Series: []Series{{Name: "Ticket médio", Values: meansOf(rows)}},
	}
}

func ticketDayChart(l core.Ledger, _ core.Granularity) Chart {
	return ticketChart(l, core.Day)
}

func ticketOriginChart(l core.Ledger, _ core.Granularity) Chart {
	rows := l.Aggregate(core.ByOrigin)
	core.SortRows(rows)
	return Chart{
		XLabel: "Origem",
		YLabel: "Ticket médio (R$)",
		Labels: labelsOf(rows),
		Series: []Series{{Name: "Ticket médio", Values: meansOf(rows)}},
	}
}
