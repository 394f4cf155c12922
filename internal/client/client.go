// Package client is a minimal typed HTTP client for a freegeoip-style
// geolocation REST service, where lookups are addressed as
// GET <base>/<format>/<host-or-ip>.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/evyataryagoni/geolookup/internal/codec"
	"github.com/evyataryagoni/geolookup/internal/logger"
	"github.com/evyataryagoni/geolookup/internal/metrics"
	"github.com/evyataryagoni/geolookup/internal/models"
)

// ErrUnexpectedStatus is returned by LookupRecord when the service does not answer 200
var ErrUnexpectedStatus = errors.New("unexpected status code")

// HTTPDoer is the part of *http.Client the lookup client needs
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError carries the status and body of a non-200 structured lookup
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d", ErrUnexpectedStatus, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// GeoLookupClient issues lookups against one service endpoint.
// Each call performs exactly one GET; there are no retries.
type GeoLookupClient struct {
	baseURL    string
	httpClient HTTPDoer
	metrics    *metrics.Metrics
	logger     *logger.Logger
}

// Option configures a GeoLookupClient
type Option func(*GeoLookupClient)

// WithHTTPClient replaces the transport, http.DefaultClient by default
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *GeoLookupClient) {
		c.httpClient = doer
	}
}

// WithMetrics records request counts and latency
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *GeoLookupClient) {
		c.metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) Option {
	return func(c *GeoLookupClient) {
		c.logger = log
	}
}

// NewGeoLookupClient creates a client for the service at baseURL, for
// example "http://minuteware.net:8908". A trailing slash is ignored.
func NewGeoLookupClient(baseURL string, opts ...Option) *GeoLookupClient {
	c := &GeoLookupClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("GeoLookupClient")
	return c
}

// URL builds the request URL. Both segments are substituted verbatim (path
// escaped) and either may be empty, so URL("", "") is "<base>//".
func (c *GeoLookupClient) URL(hostOrIP, format string) string {
	return c.baseURL + models.LookupRequest{
		HostOrIP: url.PathEscape(hostOrIP),
		Format:   url.PathEscape(format),
	}.Path()
}

// Lookup performs GET <base>/<format>/<hostOrIP> and returns the status code
// and body as received. Non-2xx statuses are not errors; only transport
// failures (DNS, refused connection, timeout, cancelled context) are.
func (c *GeoLookupClient) Lookup(ctx context.Context, hostOrIP, format string) (*models.LookupResponse, error) {
	target := c.URL(hostOrIP, format)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", target, err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", target).Msg("Lookup request failed")
		c.observe(format, "error", start)
		return nil, fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(format, "error", start)
		return nil, fmt.Errorf("failed to read response from %s: %w", target, err)
	}

	c.observe(format, strconv.Itoa(resp.StatusCode), start)
	c.logger.Debug().
		Str("url", target).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("Lookup completed")

	return &models.LookupResponse{
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}, nil
}

// LookupRecord performs a lookup in a structured format and decodes the body.
// A non-200 answer yields a *StatusError.
func (c *GeoLookupClient) LookupRecord(ctx context.Context, hostOrIP string, format models.Format) (*models.GeoRecord, error) {
	if _, ok := models.ParseFormat(string(format)); !ok {
		return nil, fmt.Errorf("%w: %q", codec.ErrUnsupportedFormat, format)
	}

	resp, err := c.Lookup(ctx, hostOrIP, string(format))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
	}

	rec, err := codec.Decode(format, []byte(resp.Body))
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *GeoLookupClient) observe(format, status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.ClientRequestsTotal.WithLabelValues(format, status).Inc()
	c.metrics.ClientRequestDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
}
