package eutils

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/chemkit/chemidr/internal/testutil"
	"github.com/chemkit/chemidr/pkg/client"
)

func newTestClient(t *testing.T, mock *testutil.MockAPI, cfg Config) *Client {
	t.Helper()

	c, err := client.New(client.Config{
		UserAgent:   "chemidr-test/1.0.0 (test@example.com)",
		MaxAttempts: 2,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	cfg.BaseURL = mock.URL() + "/entrez/eutils"
	return New(c, cfg)
}

func TestSearch(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetSearchResponse(testutil.NewHealthyResponse(
		testutil.ESearchJSON(2, "24921", "12345")))

	c := newTestClient(t, mock, Config{})

	result, err := c.Search(context.Background(), "pcsubstance", `"aspirin"[MeSH Terms]`)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result == nil {
		t.Fatal("Search() result is nil")
	}
	if result.Count != 2 {
		t.Errorf("Count = %d, want 2", result.Count)
	}
	if len(result.IDs) != 2 || result.IDs[0] != "24921" {
		t.Errorf("IDs = %v, want [24921 12345]", result.IDs)
	}
}

func TestSearch_ZeroHits(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetSearchResponse(testutil.NewHealthyResponse(testutil.ESearchJSON(0)))

	c := newTestClient(t, mock, Config{})

	result, err := c.Search(context.Background(), "pcsubstance", "no-such-term")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Count != 0 {
		t.Errorf("Count = %d, want 0", result.Count)
	}
	if len(result.IDs) != 0 {
		t.Errorf("IDs = %v, want empty", result.IDs)
	}
}

func TestSearch_NotFound(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetSearchResponse(testutil.MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       "not found",
	})

	c := newTestClient(t, mock, Config{})

	result, err := c.Search(context.Background(), "pcsubstance", "whatever")
	if err != nil {
		t.Fatalf("Search() error = %v, want nil for 404", err)
	}
	if result != nil {
		t.Errorf("Result = %+v, want nil", result)
	}
}

func TestSearch_QueryParameters(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	var gotQuery url.Values
	mock.SetHandler("/entrez/eutils/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(testutil.ESearchJSON(0)))
	})

	c := newTestClient(t, mock, Config{
		Tool:   "chemidr",
		Email:  "maintainer@example.com",
		RetMax: 5,
	})

	if _, err := c.Search(context.Background(), "pcsubstance", "caffeine"); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	checks := map[string]string{
		"db":      "pcsubstance",
		"term":    "caffeine",
		"retmode": "json",
		"retmax":  "5",
		"tool":    "chemidr",
		"email":   "maintainer@example.com",
	}
	for key, want := range checks {
		if got := gotQuery.Get(key); got != want {
			t.Errorf("Query param %s = %q, want %q", key, got, want)
		}
	}
}

func TestSearch_MalformedBody(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetSearchResponse(testutil.NewHealthyResponse("not json"))

	c := newTestClient(t, mock, Config{})

	if _, err := c.Search(context.Background(), "pcsubstance", "caffeine"); err == nil {
		t.Error("Expected error for malformed response body")
	}
}
