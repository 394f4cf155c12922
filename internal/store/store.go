package store

import (
	"errors"
	"time"

	"github.com/evyataryagoni/geolookup/internal/metrics"
	"github.com/evyataryagoni/geolookup/internal/models"
)

// ErrNotFound is returned when the datastore has no record for an address
var ErrNotFound = errors.New("IP address not found")

// Store defines the interface for geolocation record lookups.
// Implementations: CSV, MySQL, Redis, MaxMind mmdb, and a mock for tests.
type Store interface {
	// FindByIP returns the record for an IP address, or ErrNotFound
	FindByIP(ip string) (*models.GeoRecord, error)

	// Close cleans up resources (database connections, file handles, etc.)
	Close() error
}

// instrumented records query counts and latency for another Store
type instrumented struct {
	Store
	name    string
	metrics *metrics.Metrics
}

// Instrument wraps s so every FindByIP is counted under the datastore label name.
// A nil metrics collector returns s unchanged.
func Instrument(s Store, name string, m *metrics.Metrics) Store {
	if m == nil {
		return s
	}
	return &instrumented{Store: s, name: name, metrics: m}
}

func (s *instrumented) FindByIP(ip string) (*models.GeoRecord, error) {
	start := time.Now()
	rec, err := s.Store.FindByIP(ip)
	s.metrics.DatastoreQueryDuration.WithLabelValues(s.name).Observe(time.Since(start).Seconds())

	status := "hit"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "miss"
	case err != nil:
		status = "error"
	}
	s.metrics.DatastoreQueriesTotal.WithLabelValues(s.name, status).Inc()

	return rec, err
}
