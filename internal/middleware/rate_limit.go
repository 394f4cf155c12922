package middleware

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/evyataryagoni/geolookup/internal/limiter"
	"github.com/evyataryagoni/geolookup/internal/models"
)

// RateLimitMiddleware enforces the per-client budget and answers 429 when it
// is exhausted.
func RateLimitMiddleware(lim limiter.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow(r.Context(), ClientKey(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(models.ErrorResponse{
					Error: "Rate limit exceeded. Please try again later.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey identifies the client a request is accounted to: the host part
// of RemoteAddr. Forwarding headers are not read here; when they are trusted,
// chi's RealIP has already written the client address into RemoteAddr.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
