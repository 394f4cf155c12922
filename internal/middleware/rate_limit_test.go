package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/evyataryagoni/geolookup/internal/limiter"
)

// TestRateLimitMiddleware_Allowed tests that allowed requests reach the handler untouched
func TestRateLimitMiddleware_Allowed(t *testing.T) {
	mockLimiter := limiter.NewMockLimiter(true)

	handler := RateLimitMiddleware(mockLimiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Custom-Header", "test-value")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("custom response"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/json/8.8.8.8", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}
	if rec.Header().Get("X-Custom-Header") != "test-value" {
		t.Error("expected custom header to be preserved")
	}
	if rec.Body.String() != "custom response" {
		t.Errorf("expected body 'custom response', got '%s'", rec.Body.String())
	}
}

// TestRateLimitMiddleware_RateLimited tests the 429 response
func TestRateLimitMiddleware_RateLimited(t *testing.T) {
	mockLimiter := limiter.NewMockLimiter(false)

	nextCalled := false
	handler := RateLimitMiddleware(mockLimiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/json/8.8.8.8", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if nextCalled {
		t.Error("expected next handler NOT to be called")
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	var errResp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}
	if errResp["error"] != "Rate limit exceeded. Please try again later." {
		t.Errorf("unexpected error message: %s", errResp["error"])
	}
}

// TestClientKey tests client identification
func TestClientKey(t *testing.T) {
	tests := []struct {
		name          string
		remoteAddr    string
		xRealIP       string
		xForwardedFor string
		expected      string
	}{
		{name: "RemoteAddr only", remoteAddr: "192.168.1.1:12345", expected: "192.168.1.1"},
		{name: "RemoteAddr without port", remoteAddr: "192.168.1.1", expected: "192.168.1.1"},
		{name: "IPv6 RemoteAddr", remoteAddr: "[2001:db8::1]:8080", expected: "2001:db8::1"},
		{name: "X-Real-IP ignored", remoteAddr: "192.168.1.1:12345", xRealIP: "10.0.0.1", expected: "192.168.1.1"},
		{name: "X-Forwarded-For ignored", remoteAddr: "192.168.1.1:12345", xForwardedFor: "10.0.0.2", expected: "192.168.1.1"},
		{name: "both headers ignored", remoteAddr: "[2001:db8::1]:8080", xRealIP: "10.0.0.1", xForwardedFor: "10.0.0.2", expected: "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}
			if tt.xForwardedFor != "" {
				req.Header.Set("X-Forwarded-For", tt.xForwardedFor)
			}

			if got := ClientKey(req); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

// TestRateLimitMiddleware_KeysPerClient tests that the limiter sees each client
func TestRateLimitMiddleware_KeysPerClient(t *testing.T) {
	mockLimiter := limiter.NewMockLimiter(true)
	handler := RateLimitMiddleware(mockLimiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	addrs := []string{"192.168.1.1:1", "192.168.1.2:2", "192.168.1.1:3"}
	for _, addr := range addrs {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	want := []string{"192.168.1.1", "192.168.1.2", "192.168.1.1"}
	calls := mockLimiter.Calls()
	if len(calls) != len(want) {
		t.Fatalf("expected %d limiter calls, got %d", len(want), len(calls))
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d: expected %s, got %s", i, want[i], calls[i])
		}
	}
}

// TestRateLimitMiddleware_MemoryLimiter tests the middleware with a real limiter
func TestRateLimitMiddleware_MemoryLimiter(t *testing.T) {
	handler := RateLimitMiddleware(limiter.NewMemoryLimiter(2))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected [200 200 429], got %v", codes)
	}
}
