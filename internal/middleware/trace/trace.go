package trace

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"lanchonete/internal/log"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// RequestIDHeader carries the request ID in both directions.
	RequestIDHeader = "X-Request-ID"
)

// Observer receives one sample per served request.
type Observer interface {
	ObserveRequest(method, route, status string, d time.Duration)
}

// Middleware handles request tracing and logging
type Middleware struct {
	logger   *log.StructuredLogger
	observer Observer
}

// NewMiddleware creates a new trace middleware. observer may be nil.
func NewMiddleware(logger *log.Logger, observer Observer) *Middleware {
	return &Middleware{
		logger:   log.NewStructuredLogger(logger),
		observer: observer,
	}
}

// Middleware returns HTTP middleware for request tracing
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = GenerateRequestID()
		}
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		r = r.WithContext(ctx)
		w.Header().Set(RequestIDHeader, requestID)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		m.logger.LogHTTPEnd(ctx, r, requestID, status, duration.Milliseconds(), r.RemoteAddr)

		if m.observer != nil {
			m.observer.ObserveRequest(r.Method, routePattern(r), statusClass(status), duration)
		}
	})
}

// routePattern returns the matched chi pattern so metrics do not explode
// with one series per chart name or static file.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return uuid.NewString()
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
