package v1

import (
	"github.com/evyataryagoni/geolookup/internal/handler"
	"github.com/go-chi/chi/v5"
)

// Register adds the lookup routes to r:
//
//	GET /{format}          caller's own address
//	GET /{format}/{query}  IP address or hostname
//
// Paths reach the router already cleaned, so "/json/" arrives as "/json".
func Register(r chi.Router, h *handler.GeoHandler) {
	r.Get("/{format}", h.Lookup)
	r.Get("/{format}/{query}", h.Lookup)
}

// SetupRoutes returns the lookup routes as a standalone router for mounting
// under a version prefix.
func SetupRoutes(h *handler.GeoHandler) chi.Router {
	r := chi.NewRouter()
	Register(r, h)
	return r
}
