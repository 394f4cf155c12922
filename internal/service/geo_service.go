package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/evyataryagoni/geolookup/internal/logger"
	"github.com/evyataryagoni/geolookup/internal/metrics"
	"github.com/evyataryagoni/geolookup/internal/models"
	"github.com/evyataryagoni/geolookup/internal/resolver"
	"github.com/evyataryagoni/geolookup/internal/store"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidQuery means the query is neither an IP address nor a hostname
	ErrInvalidQuery = errors.New("invalid IP address or hostname")

	// ErrHostNotFound means the hostname did not resolve
	ErrHostNotFound = errors.New("hostname could not be resolved")
)

// GeoService resolves lookup queries to addresses and fetches their records.
// It sits between the HTTP handler and the datastore.
type GeoService struct {
	store     store.Store
	resolver  resolver.Resolver
	validator *validator.Validate
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

// NewGeoService creates a service. m and log may be nil.
func NewGeoService(s store.Store, r resolver.Resolver, m *metrics.Metrics, log *logger.Logger) *GeoService {
	if log == nil {
		log = logger.Nop()
	}
	return &GeoService{
		store:     s,
		resolver:  r,
		validator: validator.New(),
		metrics:   m,
		logger:    log.WithComponent("GeoService"),
	}
}

// ResolveQuery turns the path query into the address to look up.
//
// An empty query means the caller's own address. A valid IP is used in its
// canonical form, so 2001:DB8::1 and ::ffff:192.0.2.1 are looked up as
// 2001:db8::1 and 192.0.2.1.
// A dotted all-numeric string that is not an IP (345.678.123.890) is invalid
// rather than being sent to DNS. Anything else must be an RFC 1123 hostname.
func (s *GeoService) ResolveQuery(ctx context.Context, query, callerIP string) (string, error) {
	if query == "" {
		if s.validator.Var(callerIP, "required,ip") != nil {
			return "", fmt.Errorf("%w: caller address %q", ErrInvalidQuery, callerIP)
		}
		return canonicalIP(callerIP), nil
	}

	if s.validator.Var(query, "ip") == nil {
		return canonicalIP(query), nil
	}

	if looksLikeAddress(query) || s.validator.Var(query, "hostname_rfc1123") != nil {
		s.countError("validation")
		return "", fmt.Errorf("%w: %q", ErrInvalidQuery, query)
	}

	addrs, err := s.resolver.LookupHost(ctx, query)
	if err != nil {
		s.countResolution("failed")
		s.logger.Debug().Err(err).Str("host", query).Msg("Hostname resolution failed")
		return "", fmt.Errorf("%w: %s", ErrHostNotFound, query)
	}

	ip, err := resolver.PreferIPv4(addrs)
	if err != nil {
		s.countResolution("failed")
		return "", fmt.Errorf("%w: %s", ErrHostNotFound, query)
	}

	s.countResolution("resolved")
	s.logger.Debug().Str("host", query).Str("ip", ip).Msg("Hostname resolved")
	return ip, nil
}

// Lookup resolves query and returns its record. Addresses missing from the
// datastore yield a record that carries only the IP.
func (s *GeoService) Lookup(ctx context.Context, query, callerIP string) (*models.GeoRecord, error) {
	ip, err := s.ResolveQuery(ctx, query, callerIP)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.FindByIP(ip)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Debug().Str("ip", ip).Msg("IP address not in datastore")
			if s.metrics != nil {
				s.metrics.LookupsNotFound.Inc()
			}
			return &models.GeoRecord{IP: ip}, nil
		}
		s.logger.Error().Err(err).Str("ip", ip).Msg("Store error during lookup")
		s.countError("store_error")
		return nil, fmt.Errorf("lookup of %s failed: %w", ip, err)
	}

	s.logger.Info().
		Str("query", query).
		Str("ip", ip).
		Str("country_code", rec.CountryCode).
		Msg("Lookup successful")
	return rec, nil
}

// Close closes the underlying store
func (s *GeoService) Close() error {
	return s.store.Close()
}

func (s *GeoService) countError(kind string) {
	if s.metrics != nil {
		s.metrics.LookupsErrors.WithLabelValues(kind).Inc()
	}
}

func (s *GeoService) countResolution(result string) {
	if s.metrics != nil {
		s.metrics.HostnameResolution.WithLabelValues(result).Inc()
	}
}

func canonicalIP(ip string) string {
	return net.ParseIP(ip).String()
}

// looksLikeAddress reports whether q reads as an attempted IP literal:
// it contains a colon, or it is made only of digits and dots.
func looksLikeAddress(q string) bool {
	if strings.Contains(q, ":") {
		return true
	}
	for _, r := range q {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}
