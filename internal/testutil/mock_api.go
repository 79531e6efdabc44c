// Package testutil provides testing utilities for the chemidr client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock upstream endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock PUG-REST / E-utilities server for testing.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
}

// NewMockAPI creates a new mock upstream server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetPropertyResponse configures a compound property endpoint response for the
// given comma-joined CID list and property name.
func (m *MockAPI) SetPropertyResponse(cids, property, format string, resp MockResponse) {
	path := fmt.Sprintf("/rest/pug/compound/cid/%s/property/%s/%s", cids, property, format)
	m.SetResponse(path, resp)
}

// SetSubstanceResponse configures a substance record endpoint response.
func (m *MockAPI) SetSubstanceResponse(sid string, resp MockResponse) {
	path := fmt.Sprintf("/rest/pug/substance/sid/%s/XML", sid)
	m.SetResponse(path, resp)
}

// SetSearchResponse configures the ESearch endpoint response.
func (m *MockAPI) SetSearchResponse(resp MockResponse) {
	m.SetResponse("/entrez/eutils/esearch.fcgi", resp)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// defaultHandler provides a default healthy JSON response.
func (m *MockAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Throttling-Control",
		"Request Count status: Green (0%), Request Time status: Green (0%), Service status: Green (0%)")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

// NewHealthyResponse creates a 200 OK response with green throttling headers.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"X-Throttling-Control": "Request Count status: Green (5%), Request Time status: Green (0%), Service status: Green (20%)",
			"Content-Type":         "application/json",
		},
	}
}

// NewNotFoundResponse creates a 404 PUGREST.NotFound response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"Fault": {"Code": "PUGREST.NotFound"}}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"Fault": {"Code": "PUGREST.TooManyRequests"}}`,
		Headers: map[string]string{
			"X-Throttling-Control": "Request Count status: Red (98%), Request Time status: Yellow (80%), Service status: Green (20%)",
			"Content-Type":         "application/json",
		},
	}
}

// NewServerBusyResponse creates a 503 PUGREST.ServerBusy response.
func NewServerBusyResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       `{"Fault": {"Code": "PUGREST.ServerBusy"}}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// PropertyTableJSON builds a PUG-REST property table body from per-CID
// property objects rendered as raw JSON fragments.
func PropertyTableJSON(records ...string) string {
	body := `{"PropertyTable": {"Properties": [`
	for i, rec := range records {
		if i > 0 {
			body += ","
		}
		body += rec
	}
	return body + `]}}`
}

// ESearchJSON builds an E-utilities esearch.fcgi JSON body.
func ESearchJSON(count int, ids ...string) string {
	body := fmt.Sprintf(`{"esearchresult": {"count": "%d", "idlist": [`, count)
	for i, id := range ids {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf("%q", id)
	}
	return body + `]}}`
}
