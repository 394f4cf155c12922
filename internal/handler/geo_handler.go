package handler

import (
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/evyataryagoni/geolookup/internal/codec"
	"github.com/evyataryagoni/geolookup/internal/metrics"
	"github.com/evyataryagoni/geolookup/internal/models"
	"github.com/evyataryagoni/geolookup/internal/service"
	"github.com/go-chi/chi/v5"
)

// GeoHandler serves the lookup endpoints. It deals with HTTP concerns only:
// path parameters, status codes and response encoding.
type GeoHandler struct {
	service *service.GeoService
	metrics *metrics.Metrics
}

// NewGeoHandler creates a handler; m may be nil
func NewGeoHandler(svc *service.GeoService, m *metrics.Metrics) *GeoHandler {
	return &GeoHandler{
		service: svc,
		metrics: m,
	}
}

// Index handles GET / with the human-facing page
func (h *GeoHandler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(indexPage))
}

// Lookup handles GET /{format} and GET /{format}/{query}.
//
// Unsupported formats, invalid addresses and unresolvable hostnames are all
// answered with 404, matching the public service.
func (h *GeoHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	format, ok := models.ParseFormat(chi.URLParam(r, "format"))
	if !ok {
		h.count("unsupported", "not_found")
		http.NotFound(w, r)
		return
	}

	query, err := queryParam(r)
	if err != nil {
		h.count(string(format), "not_found")
		http.NotFound(w, r)
		return
	}

	rec, err := h.service.Lookup(r.Context(), query, callerIP(r))
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuery) || errors.Is(err, service.ErrHostNotFound) {
			h.count(string(format), "not_found")
			http.NotFound(w, r)
			return
		}
		h.count(string(format), "error")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	body, err := codec.Encode(format, *rec)
	if err != nil {
		h.count(string(format), "error")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	h.count(string(format), "success")
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (h *GeoHandler) count(format, result string) {
	if h.metrics != nil {
		h.metrics.LookupsTotal.WithLabelValues(format, result).Inc()
	}
}

// queryParam returns the decoded query segment. chi matches on RawPath when
// the request has one and on the already decoded Path otherwise, so the
// segment is unescaped exactly once.
func queryParam(r *http.Request) (string, error) {
	query := chi.URLParam(r, "query")
	if r.URL.RawPath == "" {
		return query, nil
	}
	return url.PathUnescape(query)
}

// callerIP extracts the client address. chi's RealIP middleware has already
// replaced RemoteAddr when proxy headers are present, in which case it
// carries no port.
func callerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
