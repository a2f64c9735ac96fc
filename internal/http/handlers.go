package http

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"lanchonete/internal/core"
	"lanchonete/internal/log"
	"lanchonete/internal/services"

	"github.com/go-chi/chi/v5"
)

const chartJSURL = "https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"

type granularityOption struct {
	Code  string
	Label string
}

type pageData struct {
	Title         string
	ChartJS       string
	Summary       services.Summary
	Charts        []services.ChartMeta
	Granularities []granularityOption
	DefaultPeriod string
}

// dashboardOrUnavailable returns the loaded dashboard or answers 503.
func (s *Server) dashboardOrUnavailable(w http.ResponseWriter) *services.DashboardService {
	svc := s.dashboard.Load()
	if svc == nil {
		ServiceUnavailableError("ledger not loaded").Write(w)
	}
	return svc
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSONResponse(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports ready once templates are parsed and a ledger is loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if svc := s.dashboard.Load(); svc == nil {
		checks["ledger"] = "loading"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["ledger"] = map[string]int{"orders": svc.Ledger().Len()}
	}

	JSONResponse(map[string]any{
		"status": status,
		"checks": checks,
	}).Status(httpStatus).Write(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	svc := s.dashboard.Load()
	if svc == nil || s.templates == nil {
		w.Header().Set("Retry-After", retryAfterSeconds)
		http.Error(w, "Dashboard indisponível, tente novamente em instantes.", http.StatusServiceUnavailable)
		return
	}

	data := pageData{
		Title:         "Dashboard de Vendas",
		ChartJS:       chartJSURL,
		Summary:       svc.Summary(),
		Charts:        services.Catalog(),
		DefaultPeriod: core.DefaultGranularity.Code(),
	}
	for _, g := range core.Granularities {
		data.Granularities = append(data.Granularities, granularityOption{Code: g.Code(), Label: g.Label()})
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard.html", data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template render failed",
			log.FieldError, err)
		http.Error(w, "Erro ao renderizar a página.", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleChartList(w http.ResponseWriter, r *http.Request) {
	JSONResponse(services.Catalog()).Write(w)
}

// handleChart recomputes one chart for the requested period.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	svc := s.dashboardOrUnavailable(w)
	if svc == nil {
		return
	}
	name := chi.URLParam(r, "chart")
	chart, err := svc.Chart(name, parsePeriod(r))
	if err != nil {
		if errors.Is(err, services.ErrUnknownChart) {
			NotFoundError(err.Error()).Write(w)
			return
		}
		InternalServerError("chart computation failed").Write(w)
		return
	}
	JSONResponse(chart).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	svc := s.dashboardOrUnavailable(w)
	if svc == nil {
		return
	}
	JSONResponse(svc.Summary()).Write(w)
}

// handleReport returns every chart at once, the same document the report CLI prints.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	svc := s.dashboardOrUnavailable(w)
	if svc == nil {
		return
	}
	JSONResponse(svc.Report(parsePeriod(r), time.Now())).Write(w)
}
