package router

import (
	"net/http"

	"github.com/evyataryagoni/geolookup/internal/handler"
	"github.com/evyataryagoni/geolookup/internal/limiter"
	"github.com/evyataryagoni/geolookup/internal/logger"
	"github.com/evyataryagoni/geolookup/internal/metrics"
	custommiddleware "github.com/evyataryagoni/geolookup/internal/middleware"
	v1 "github.com/evyataryagoni/geolookup/internal/router/v1"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type options struct {
	trustProxyHeaders bool
}

// Option customises SetupRouter
type Option func(*options)

// TrustProxyHeaders controls whether X-Real-IP, X-Forwarded-For and
// True-Client-IP replace the connection address. On by default; turn it off
// when clients connect directly or the address comes from the PROXY protocol.
func TrustProxyHeaders(trust bool) Option {
	return func(o *options) {
		o.trustProxyHeaders = trust
	}
}

// SetupRouter wires middleware and routes for the reference service.
//
// The lookup routes live at the root, where public clients expect them, and
// are mirrored under /v1.
func SetupRouter(geoHandler *handler.GeoHandler, rateLimiter limiter.Limiter, m *metrics.Metrics, log *logger.Logger, opts ...Option) chi.Router {
	o := options{trustProxyHeaders: true}
	for _, opt := range opts {
		opt(&o)
	}

	r := chi.NewRouter()

	// Order matters: the request ID and real IP must be known before logging,
	// and CleanPath must run before any route is matched.
	r.Use(middleware.RequestID)
	if o.trustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.CleanPath)
	r.Use(custommiddleware.LoggingMiddleware(log))
	r.Use(middleware.Recoverer)
	r.Use(custommiddleware.MetricsMiddleware(m))
	r.Use(custommiddleware.RateLimitMiddleware(rateLimiter))

	r.Get("/health", healthCheckHandler)
	r.Handle("/metrics", m.Handler())

	r.Get("/", geoHandler.Index)
	v1.Register(r, geoHandler)
	r.Mount("/v1", v1.SetupRoutes(geoHandler))

	return r
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
