package services

import (
	"context"
	"fmt"
	"time"

	"lanchonete/internal/cache"
	"lanchonete/internal/core"
	"lanchonete/internal/log"
	"lanchonete/internal/metrics"
	"lanchonete/internal/sheets"
)

// DashboardService recomputes chart tables from an immutable ledger. Every
// call is a pure function of (chart, granularity); results may be memoized.
type DashboardService struct {
	ledger   core.Ledger
	stats    sheets.LoadStats
	loadedAt time.Time
	charts   cache.Cache[Chart]
	metrics  *metrics.Metrics
}

// Options tunes a DashboardService. A nil Cache disables memoization and a
// nil Metrics disables instrumentation. A nil Logger falls back to the one
// carried by the context.
type Options struct {
	Cache   cache.Cache[Chart]
	Metrics *metrics.Metrics
	Logger  *log.Logger
	Now     func() time.Time
}

func NewDashboardService(ledger core.Ledger, stats sheets.LoadStats, opts Options) *DashboardService {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	s := &DashboardService{
		ledger:   ledger,
		stats:    stats,
		loadedAt: now(),
		charts:   opts.Cache,
		metrics:  opts.Metrics,
	}
	if s.metrics != nil {
		s.metrics.SetLedger(ledger.Len(), stats.DroppedDates, stats.DroppedValues)
	}
	return s
}

// Load reads the ledger once from reader and builds the service around it.
func Load(ctx context.Context, reader sheets.LedgerReader, opts Options) (*DashboardService, error) {
	ledger, stats, err := reader.ReadLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if stats.DroppedDates > 0 || stats.DroppedValues > 0 {
		logger := opts.Logger
		if logger == nil {
			logger = log.FromContext(ctx)
		}
		logger.WithComponent(log.ComponentDashboard).WarnContext(ctx, "Ledger rows dropped during cleaning",
			log.FieldDroppedDates, stats.DroppedDates,
			log.FieldDroppedValues, stats.DroppedValues)
	}
	return NewDashboardService(ledger, stats, opts), nil
}

// Ledger returns the ledger the service was built from.
func (s *DashboardService) Ledger() core.Ledger { return s.ledger }

// Chart returns the named chart at granularity g. Static charts ignore g.
func (s *DashboardService) Chart(name string, g core.Granularity) (Chart, error) {
	def, ok := lookupChart(name)
	if !ok {
		return Chart{}, fmt.Errorf("%w: %q", ErrUnknownChart, name)
	}
	gName := ""
	if def.dynamic {
		gName = g.String()
	}
	compute := func() Chart {
		start := time.Now()
		c := def.build(s.ledger, g)
		c.Name, c.Title, c.Kind, c.Granularity = def.name, def.title, def.kind, gName
		if s.metrics != nil {
			s.metrics.ObserveChart(def.name, gName, time.Since(start))
		}
		return c
	}
	if s.charts == nil {
		return compute(), nil
	}
	c, hit := s.charts.GetOrCompute(def.name+"|"+gName, compute)
	if s.metrics != nil {
		if hit {
			s.metrics.IncrCacheHit(def.name)
		} else {
			s.metrics.IncrCacheMiss(def.name)
		}
	}
	return c.clone(), nil
}

// Charts returns every chart in page order at granularity g.
func (s *DashboardService) Charts(g core.Granularity) []Chart {
	out := make([]Chart, 0, len(chartDefs))
	for _, d := range chartDefs {
		c, _ := s.Chart(d.name, g)
		out = append(out, c)
	}
	return out
}

// Summary holds the headline numbers shown above the charts.
type Summary struct {
	Orders     int              `json:"orders"`
	Revenue    float64          `json:"revenue"`
	TicketMean float64          `json:"ticket_mean"`
	From       string           `json:"from,omitempty"`
	To         string           `json:"to,omitempty"`
	Origins    int              `json:"origins"`
	LoadedAt   time.Time        `json:"loaded_at"`
	Load       sheets.LoadStats `json:"load"`
	Cache      *CacheStats      `json:"cache,omitempty"`
}

// CacheStats counts chart cache lookups since start, over every chart.
type CacheStats struct {
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
}

func (s *DashboardService) cacheStats() *CacheStats {
	if s.metrics == nil || s.charts == nil {
		return nil
	}
	var cs CacheStats
	for _, d := range chartDefs {
		cs.Hits += int(s.metrics.CacheHits(d.name))
		cs.Misses += int(s.metrics.CacheMisses(d.name))
	}
	return &cs
}

func (s *DashboardService) Summary() Summary {
	count, sum := core.Totals(s.ledger.Aggregate())
	out := Summary{
		Orders:   count,
		Revenue:  sum.Reais(),
		Origins:  len(s.ledger.Aggregate(core.ByOrigin)),
		LoadedAt: s.loadedAt,
		Load:     s.stats,
		Cache:    s.cacheStats(),
	}
	if count > 0 {
		out.TicketMean = core.MeanOf(sum, count)
		first, last := s.ledger.Span()
		out.From = first.Format("2006-01-02")
		out.To = last.Format("2006-01-02")
	}
	return out
}

// Report bundles the summary and every chart for one granularity.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Granularity string    `json:"granularity"`
	Summary     Summary   `json:"summary"`
	Charts      []Chart   `json:"charts"`
}

func (s *DashboardService) Report(g core.Granularity, now time.Time) Report {
	return Report{
		GeneratedAt: now,
		Granularity: g.String(),
		Summary:     s.Summary(),
		Charts:      s.Charts(g),
	}
}
