// Package eutils provides a client for the NCBI E-utilities ESearch API.
package eutils

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/chemkit/chemidr/pkg/client"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the production E-utilities endpoint.
const DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// Config holds E-utilities client settings.
type Config struct {
	// BaseURL overrides the E-utilities endpoint (primarily for tests).
	BaseURL string

	// Tool and Email identify the caller per NCBI usage policy. Attached to
	// every request when set.
	Tool  string
	Email string

	// RetMax caps the number of IDs returned per search. Zero leaves the
	// upstream default (20) in place.
	RetMax int
}

// Client issues ESearch queries through a shared fetcher client.
type Client struct {
	http   *client.Client
	config Config
	logger zerolog.Logger
}

// New creates an E-utilities client.
func New(c *client.Client, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		http:   c,
		config: cfg,
		logger: log.With().Str("component", "eutils").Logger(),
	}
}

// SearchResult represents the result of an ESearch query.
type SearchResult struct {
	Count            int      `json:"count"`
	IDs              []string `json:"ids"`
	QueryTranslation string   `json:"query_translation,omitempty"`
}

// esearchEnvelope mirrors the retmode=json response shape. Count and RetMax
// arrive as JSON strings.
type esearchEnvelope struct {
	ESearchResult struct {
		Count            string   `json:"count"`
		IDList           []string `json:"idlist"`
		QueryTranslation string   `json:"querytranslation"`
	} `json:"esearchresult"`
}

// Search queries the given Entrez database for a term.
// Returns (nil, nil) when the search endpoint itself reports not-found.
func (c *Client) Search(ctx context.Context, db, term string) (*SearchResult, error) {
	q := url.Values{}
	q.Set("db", db)
	q.Set("term", term)
	q.Set("retmode", "json")
	if c.config.RetMax > 0 {
		q.Set("retmax", strconv.Itoa(c.config.RetMax))
	}
	if c.config.Tool != "" {
		q.Set("tool", c.config.Tool)
	}
	if c.config.Email != "" {
		q.Set("email", c.config.Email)
	}

	u := c.config.BaseURL + "/esearch.fcgi?" + q.Encode()

	c.logger.Debug().
		Str("db", db).
		Str("term", term).
		Msg("ESearch query")

	body, err := c.http.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	var envelope esearchEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parse esearch result: %w", err)
	}

	count, err := strconv.Atoi(envelope.ESearchResult.Count)
	if err != nil {
		return nil, fmt.Errorf("parse esearch count %q: %w", envelope.ESearchResult.Count, err)
	}

	return &SearchResult{
		Count:            count,
		IDs:              envelope.ESearchResult.IDList,
		QueryTranslation: envelope.ESearchResult.QueryTranslation,
	}, nil
}
