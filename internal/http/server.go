package http

import (
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"lanchonete/internal/log"
	"lanchonete/internal/metrics"
	"lanchonete/internal/middleware/security"
	"lanchonete/internal/middleware/trace"
	"lanchonete/internal/services"
	appweb "lanchonete/web"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures the HTTP server.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// MaxInFlight caps concurrent page and API requests; 0 disables the cap.
	MaxInFlight int
	Logger      *log.Logger
	Metrics     *metrics.Metrics
}

type Server struct {
	http.Server
	templates *template.Template
	dashboard atomic.Pointer[services.DashboardService]
	metrics   *metrics.Metrics
	logger    *log.Logger
	started   time.Time
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
// Page and API routes answer 503 until SetDashboard is called.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      opts.WriteTimeout,
			IdleTimeout:       60 * time.Second,
		},
		metrics: opts.Metrics,
		logger:  logger.WithComponent(log.ComponentHTTP),
		started: time.Now(),
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(template.FuncMap{"brl": formatBRL}).
		ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	s.Handler = s.routes(opts.MaxInFlight)
	return s
}

// SetDashboard publishes the loaded dashboard; the server becomes ready.
func (s *Server) SetDashboard(svc *services.DashboardService) {
	s.dashboard.Store(svc)
}

func (s *Server) routes(maxInFlight int) http.Handler {
	var observer trace.Observer
	if s.metrics != nil {
		observer = s.metrics
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(trace.NewMiddleware(s.logger, observer).Middleware)
	r.Use(middleware.Recoverer)
	r.Use(log.Middleware(s.logger))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError("GET").Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	r.Group(func(r chi.Router) {
		if maxInFlight > 0 {
			r.Use(middleware.Throttle(maxInFlight))
		}
		r.Use(middleware.Compress(5, "text/html", "application/json"))

		r.Get("/", s.handleIndex)
		r.Route("/api", func(r chi.Router) {
			r.Get("/charts", s.handleChartList)
			r.Get("/charts/{chart}", s.handleChart)
			r.Get("/summary", s.handleSummary)
			r.Get("/report", s.handleReport)
		})
	})

	return r
}
