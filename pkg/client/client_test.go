package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config",
			config: Config{
				UserAgent: "chemidr-test/1.0.0 (test@example.com)",
			},
			expectError: false,
		},
		{
			name:        "empty user agent",
			config:      Config{},
			expectError: true,
			errorMsg:    "user-agent is required",
		},
		{
			name: "negative max attempts",
			config: Config{
				UserAgent:   "chemidr-test/1.0.0",
				MaxAttempts: -1,
			},
			expectError: true,
			errorMsg:    "max_attempts must be >= 0 (got -1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got nil")
					return
				}
				if tt.errorMsg != "" && err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
					return
				}
				if c == nil {
					t.Error("Client is nil")
				}
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	userAgent := "chemidr-test/1.0.0"
	cfg := DefaultConfig(userAgent)

	if cfg.UserAgent != userAgent {
		t.Errorf("UserAgent = %q, want %q", cfg.UserAgent, userAgent)
	}
	if cfg.MaxAttempts <= 0 {
		t.Errorf("MaxAttempts = %d, should be > 0", cfg.MaxAttempts)
	}
	if cfg.HTTPTimeout <= 0 {
		t.Errorf("HTTPTimeout = %v, should be > 0", cfg.HTTPTimeout)
	}
	if cfg.CacheTTL <= 0 {
		t.Errorf("CacheTTL = %v, should be > 0", cfg.CacheTTL)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		expected   ErrorClass
	}{
		{"rate limit 429", 429, ErrorClassRateLimit},
		{"server busy 503", 503, ErrorClassServerBusy},
		{"not found 404", 404, ErrorClassNotFound},
		{"bad request 400", 400, ErrorClassClient},
		{"forbidden 403", 403, ErrorClassClient},
		{"server error 500", 500, ErrorClassServer},
		{"gateway timeout 504", 504, ErrorClassServer},
		{"success 200", 200, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyStatus(tt.statusCode); got != tt.expected {
				t.Errorf("ClassifyStatus(%d) = %q, want %q", tt.statusCode, got, tt.expected)
			}
		})
	}
}

func newTestClient(t *testing.T) *Client {
	t.Helper()

	c, err := New(Config{
		UserAgent:   "chemidr-test/1.0.0 (test@example.com)",
		MaxAttempts: 3,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

func TestFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"PropertyTable": {}}`))
	}))
	defer server.Close()

	c := newTestClient(t)

	body, err := c.Fetch(context.Background(), server.URL+"/rest/pug/compound/cid/2244/property/InChIKey/JSON")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(body) != `{"PropertyTable": {}}` {
		t.Errorf("Body = %q, want raw response body", body)
	}
}

func TestFetch_NotFoundIsAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"Fault": {"Code": "PUGREST.NotFound"}}`))
	}))
	defer server.Close()

	c := newTestClient(t)

	body, err := c.Fetch(context.Background(), server.URL+"/rest/pug/compound/cid/0/property/InChIKey/JSON")
	if err != nil {
		t.Fatalf("Fetch() error = %v, want nil (404 is absent, not an error)", err)
	}
	if body != nil {
		t.Errorf("Body = %q, want nil", body)
	}
}

func TestFetch_RateLimitRetriedThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`ok`))
	}))
	defer server.Close()

	c := newTestClient(t)

	start := time.Now()
	body, err := c.Fetch(context.Background(), server.URL+"/test")
	duration := time.Since(start)

	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("Body = %q, want %q", body, "ok")
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("Server calls = %d, want 2 (one retry)", calls)
	}
	// One rate limit backoff of ~500ms (±20% jitter)
	if duration < 300*time.Millisecond {
		t.Errorf("Expected a retry delay, total duration %v", duration)
	}
}

func TestFetch_ServerBusyRetryExhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c, err := New(Config{
		UserAgent:   "chemidr-test/1.0.0",
		MaxAttempts: 2,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	_, err = c.Fetch(context.Background(), server.URL+"/test")
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Fetch() error = %v, want ErrRetryExhausted", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("Server calls = %d, want 2", calls)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatal("Expected wrapped *APIError")
	}
	if apiErr.ErrorClass != ErrorClassServerBusy {
		t.Errorf("ErrorClass = %q, want %q", apiErr.ErrorClass, ErrorClassServerBusy)
	}
}

func TestFetch_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	c := newTestClient(t)

	_, err := c.Fetch(context.Background(), server.URL+"/test")
	if err == nil {
		t.Fatal("Expected error for 400 response")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.ErrorClass != ErrorClassClient {
		t.Errorf("ErrorClass = %q, want %q", apiErr.ErrorClass, ErrorClassClient)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Server calls = %d, want 1 (client errors not retried)", calls)
	}
}

func TestFetch_UserAgentSet(t *testing.T) {
	userAgentReceived := ""
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgentReceived = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newTestClient(t)

	_, err := c.Fetch(context.Background(), server.URL+"/test")
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}

	if userAgentReceived != "chemidr-test/1.0.0 (test@example.com)" {
		t.Errorf("User-Agent = %q, want client config value", userAgentReceived)
	}
}

func TestFetch_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.Fetch(ctx, server.URL+"/test")
	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Fetch() error = %v, want ErrContextCancelled", err)
	}
}

func TestFetch_InvalidURL(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Fetch(context.Background(), "://not-a-url")
	if err == nil {
		t.Error("Expected error for invalid URL")
	}
}
