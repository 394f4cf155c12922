package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/evyataryagoni/geolookup/internal/client"
	"github.com/evyataryagoni/geolookup/internal/codec"
	"github.com/evyataryagoni/geolookup/internal/handler"
	"github.com/evyataryagoni/geolookup/internal/limiter"
	"github.com/evyataryagoni/geolookup/internal/logger"
	"github.com/evyataryagoni/geolookup/internal/metrics"
	"github.com/evyataryagoni/geolookup/internal/models"
	"github.com/evyataryagoni/geolookup/internal/resolver"
	"github.com/evyataryagoni/geolookup/internal/service"
	"github.com/evyataryagoni/geolookup/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(lim limiter.Limiter, opts ...Option) (chi.Router, *metrics.Metrics) {
	m := metrics.New()
	svc := service.NewGeoService(
		store.NewMockStore(),
		resolver.StaticResolver{"feod.lviv.ua": {"89.184.73.151"}},
		m,
		logger.Nop(),
	)
	return SetupRouter(handler.NewGeoHandler(svc, m), lim, m, logger.Nop(), opts...), m
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Routes(t *testing.T) {
	r, _ := newTestRouter(limiter.NewMockLimiter(true))

	tests := []struct {
		path   string
		status int
		prefix string
	}{
		{"/", http.StatusOK, "<!doctype html>"},
		{"//", http.StatusOK, "<!doctype html>"},
		{"/json/8.8.8.8", http.StatusOK, "{"},
		{"/xml/8.8.8.8", http.StatusOK, "<?xml"},
		{"/csv/8.8.8.8", http.StatusOK, `"8.8.8.8"`},
		{"/v1/json/8.8.8.8", http.StatusOK, "{"},
		{"/json/feod.lviv.ua", http.StatusOK, "{"},
		{"/health", http.StatusOK, "OK"},
		{"//8.8.8.8", http.StatusNotFound, ""},
		{"/invalid/8.8.8.8", http.StatusNotFound, ""},
		{"/json/345.678.123.890", http.StatusNotFound, ""},
		{"/json/minutevare.net", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := serve(r, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, rec.Code)
			if tt.prefix != "" {
				assert.True(t, strings.HasPrefix(rec.Body.String(), tt.prefix), "body %q", rec.Body.String())
			}
		})
	}
}

func TestRouter_Literals(t *testing.T) {
	r, _ := newTestRouter(limiter.NewMockLimiter(true))

	xml := serve(r, httptest.NewRequest(http.MethodGet, "/xml/8.8.8.8", nil))
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?>
<Response>
 <Ip>8.8.8.8</Ip>
 <CountryCode>US</CountryCode>
 <CountryName>United States</CountryName>
 <RegionCode></RegionCode>
 <RegionName></RegionName>
 <City></City>
 <ZipCode></ZipCode>
 <Latitude>38</Latitude>
 <Longitude>-97</Longitude>
 <MetroCode></MetroCode>
 <AreaCode></AreaCode>
</Response>
`, xml.Body.String())

	csv := serve(r, httptest.NewRequest(http.MethodGet, "/csv/8.8.8.8", nil))
	assert.Equal(t, `"8.8.8.8","US","United States","","","","","38.0000","-97.0000","",""`, csv.Body.String())
}

func TestRouter_EmptyQueryIsCaller(t *testing.T) {
	r, _ := newTestRouter(limiter.NewMockLimiter(true))

	tests := []struct {
		name     string
		realIP   string
		expected string
	}{
		{"remote address", "", "192.0.2.1"},
		{"behind proxy", "8.8.8.8", "8.8.8.8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/json/", nil)
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			rec := serve(r, req)
			require.Equal(t, http.StatusOK, rec.Code)

			got, err := codec.Decode(models.FormatJSON, rec.Body.Bytes())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.IP)
		})
	}
}

func TestRouter_UntrustedProxyHeaders(t *testing.T) {
	lim := limiter.NewMockLimiter(true)
	r, _ := newTestRouter(lim, TrustProxyHeaders(false))

	req := httptest.NewRequest(http.MethodGet, "/json/", nil)
	req.Header.Set("X-Real-IP", "8.8.8.8")
	req.Header.Set("X-Forwarded-For", "8.8.4.4")
	rec := serve(r, req)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := codec.Decode(models.FormatJSON, rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1", got.IP)
	assert.Equal(t, []string{"192.0.2.1"}, lim.Calls())
}

// Percent escapes in the query are decoded once. A literal "%" that survives
// that decoding is part of the query and makes it invalid.
func TestRouter_EscapedQueries(t *testing.T) {
	r, _ := newTestRouter(limiter.NewMockLimiter(true))
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := client.NewGeoLookupClient(srv.URL)

	tests := []struct {
		query  string
		status int
	}{
		{"8.8.8.8", http.StatusOK},
		{"feod.lviv.ua", http.StatusOK},
		{"%38.8.8.8", http.StatusNotFound},
		{"8.8.8%2E8", http.StatusNotFound},
		{"%66eod.lviv.ua", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := c.Lookup(context.Background(), tt.query, "json")
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode, "body %q", resp.Body)
		})
	}
}

func TestRouter_EscapedSeparator(t *testing.T) {
	r, _ := newTestRouter(limiter.NewMockLimiter(true))

	// %2E is an escaped "." and routing keeps it escaped, so it is decoded here
	rec := serve(r, httptest.NewRequest(http.MethodGet, "/json/8.8.8%2E8", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := codec.Decode(models.FormatJSON, rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "8.8.8.8", got.IP)
}

func TestRouter_RateLimited(t *testing.T) {
	r, m := newTestRouter(limiter.NewMockLimiter(false))

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/json/8.8.8.8", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// rejected before routing, so no pattern is known
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "429")))
}

func TestRouter_Metrics(t *testing.T) {
	r, _ := newTestRouter(limiter.NewMockLimiter(true))

	serve(r, httptest.NewRequest(http.MethodGet, "/json/8.8.8.8", nil))
	rec := serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `http_requests_total{method="GET",route="/{format}/{query}",status="200"} 1`)
	assert.Contains(t, string(body), `geo_lookups_total{format="json",result="success"} 1`)
}
