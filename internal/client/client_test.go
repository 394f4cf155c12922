package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/evyataryagoni/geolookup/internal/metrics"
	"github.com/evyataryagoni/geolookup/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockDoer struct {
	doFunc func(req *http.Request) (*http.Response, error)
	calls  int
	urls   []string
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	m.calls++
	m.urls = append(m.urls, req.URL.String())
	return m.doFunc(req)
}

func responseWithBody(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestURL(t *testing.T) {
	c := NewGeoLookupClient("http://example.test:8908/")

	tests := []struct {
		name     string
		hostOrIP string
		format   string
		want     string
	}{
		{"ip and format", "8.8.8.8", "json", "http://example.test:8908/json/8.8.8.8"},
		{"hostname", "feod.lviv.ua", "xml", "http://example.test:8908/xml/feod.lviv.ua"},
		{"no format", "8.8.8.8", "", "http://example.test:8908//8.8.8.8"},
		{"no host", "", "csv", "http://example.test:8908/csv/"},
		{"both empty", "", "", "http://example.test:8908//"},
		{"escaped", "a/b", "json", "http://example.test:8908/json/a%2Fb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.URL(tt.hostOrIP, tt.format))
		})
	}
}

func TestLookup_ReturnsStatusAndBodyVerbatim(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("404 page not found\n"))
	}))
	defer srv.Close()

	c := NewGeoLookupClient(srv.URL)

	resp, err := c.Lookup(context.Background(), "8.8.8.8", "invalid")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "404 page not found\n", resp.Body)
	assert.Equal(t, "/invalid/8.8.8.8", gotPath)
}

func TestLookup_EmptySegmentsReachServer(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewGeoLookupClient(srv.URL)
	ctx := context.Background()

	for _, args := range [][2]string{{"", ""}, {"8.8.8.8", ""}, {"", "json"}} {
		_, err := c.Lookup(ctx, args[0], args[1])
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"//", "//8.8.8.8", "/json/"}, paths)
}

func TestLookup_TransportError(t *testing.T) {
	doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: lookup minuteware.net: no such host")
	}}
	c := NewGeoLookupClient("http://minuteware.net:8908", WithHTTPClient(doer))

	resp, err := c.Lookup(context.Background(), "8.8.8.8", "json")

	assert.Nil(t, resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http://minuteware.net:8908/json/8.8.8.8")
	assert.Contains(t, err.Error(), "no such host")
	assert.Equal(t, 1, doer.calls, "lookups are never retried")
}

func TestLookup_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGeoLookupClient(srv.URL).Lookup(ctx, "8.8.8.8", "json")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLookup_RecordsMetrics(t *testing.T) {
	m := metrics.New()
	doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		return responseWithBody(http.StatusOK, "{}"), nil
	}}
	c := NewGeoLookupClient("http://example.test", WithHTTPClient(doer), WithMetrics(m))

	_, err := c.Lookup(context.Background(), "8.8.8.8", "json")
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ClientRequestsTotal.WithLabelValues("json", "200")))
}

func TestLookupRecord_Decodes(t *testing.T) {
	csvBody := `"8.8.8.8","US","United States","","","","","38.0000","-97.0000","",""`
	doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		return responseWithBody(http.StatusOK, csvBody), nil
	}}
	c := NewGeoLookupClient("http://example.test", WithHTTPClient(doer))

	rec, err := c.LookupRecord(context.Background(), "8.8.8.8", models.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "US", rec.CountryCode)
	assert.Equal(t, float64(38), rec.Latitude)
	assert.Equal(t, float64(-97), rec.Longitude)
	assert.Equal(t, []string{"http://example.test/csv/8.8.8.8"}, doer.urls)
}

func TestLookupRecord_NotFound(t *testing.T) {
	doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		return responseWithBody(http.StatusNotFound, "404 page not found"), nil
	}}
	c := NewGeoLookupClient("http://example.test", WithHTTPClient(doer))

	rec, err := c.LookupRecord(context.Background(), "minutevare.net", models.FormatJSON)

	assert.Nil(t, rec)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestLookupRecord_RejectsUnstructuredFormat(t *testing.T) {
	doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		return responseWithBody(http.StatusOK, ""), nil
	}}
	c := NewGeoLookupClient("http://example.test", WithHTTPClient(doer))

	_, err := c.LookupRecord(context.Background(), "8.8.8.8", "")

	assert.Error(t, err)
	assert.Equal(t, 0, doer.calls)
}
