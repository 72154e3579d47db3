package router

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/account"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/identity"
	"github.com/ovaphlow/pitchfork/service-roster-go/pkg/utilities"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

func (lrw *loggingResponseWriter) statusCode() int {
	if lrw.status == 0 {
		return http.StatusOK
	}
	return lrw.status
}

// RequestIDHeader carries the per-request ksuid back to the client.
const RequestIDHeader = "X-Request-Id"

// LoggingMiddleware tags each request with an id and logs it at debug level.
// Metrics are recorded when m is non-nil.
func LoggingMiddleware(logger *zap.SugaredLogger, m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = utilities.NewKSUID()
			}
			w.Header().Set(RequestIDHeader, id)
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.statusCode()
			if m != nil {
				m.observe(r, status, dur)
			}
			logger.Debugw("http request",
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			// only over TLS
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Metrics holds the request collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roster",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "roster",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		m.requests,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// observe labels by the matched mux pattern so ids in paths do not blow up
// the label space.
func (m *Metrics) observe(r *http.Request, status int, dur time.Duration) {
	route := r.Pattern
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(r.Method, route).Observe(dur.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Pinger reports database health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the handlers the router mounts.
type Deps struct {
	Auth     *auth.Handler
	Tokens   *auth.TokenService
	Lookup   auth.AccountLookup
	Accounts *account.Handler
	Identity *identity.Handler
	DB       Pinger
	Metrics  *Metrics
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
// Everything under /api except login requires a bearer token. Writes, the
// account listing and any collection carrying credentials are ADMIN only.
func RegisterRoutes(logger *zap.SugaredLogger, d Deps) http.Handler {
	mux := http.NewServeMux()
	if d.Metrics == nil {
		d.Metrics = NewMetrics()
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if d.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.DB.PingContext(ctx); err != nil {
				logger.Warnw("health check failed", "err", err)
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", d.Metrics.Handler())

	mux.HandleFunc("POST /api/auth/login", d.Auth.Login)

	protect := auth.Middleware(d.Tokens, d.Lookup, logger)
	adminOnly := auth.RequireRole(logger, entity.RoleAdmin)
	admin := func(h http.Handler) http.Handler { return protect(adminOnly(h)) }
	mux.Handle("GET /api/user", admin(http.HandlerFunc(d.Accounts.List)))
	mux.Handle("GET /api/user/{id}", admin(http.HandlerFunc(d.Accounts.Get)))

	for _, res := range d.Identity.Resources() {
		read := protect
		if res.Credentials {
			read = admin
		}
		mux.Handle("GET "+res.Path, read(res.List))
		mux.Handle("GET "+res.Path+"/{id}", read(res.Get))
		mux.Handle("POST "+res.Path, admin(res.Create))
		mux.Handle("PUT "+res.Path+"/{id}", admin(res.Update))
		mux.Handle("DELETE "+res.Path+"/{id}", admin(res.Delete))
	}

	// wrap with security headers middleware then logging middleware
	return LoggingMiddleware(logger, d.Metrics)(SecurityHeadersMiddleware()(mux))
}
