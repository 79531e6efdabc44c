// Package xref cross-references MeSH vocabulary terms to PubChem substance and
// compound identifiers by searching the Entrez substance database and resolving
// the first hit's deposited compound.
package xref

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"github.com/chemkit/chemidr/pkg/client"
	"github.com/chemkit/chemidr/pkg/eutils"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// substanceDB is the Entrez database searched for MeSH terms.
const substanceDB = "pcsubstance"

// NullID is an identifier that may be absent. Valid is false when the lookup
// found no value.
type NullID struct {
	ID    string
	Valid bool
}

// PIDRecord holds the PubChem identifiers cross-referenced from one MeSH term.
// SID and CID are absent when the term matched no substance, or the matched
// substance carries no deposited compound.
type PIDRecord struct {
	Mesh string
	SID  NullID
	CID  NullID
}

// Resolver cross-references MeSH terms through a shared fetcher client.
type Resolver struct {
	search  *eutils.Client
	client  *client.Client
	baseURL string
	logger  zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPubChemBaseURL overrides the PUG-REST base URL (primarily for tests).
func WithPubChemBaseURL(baseURL string) Option {
	return func(r *Resolver) {
		r.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// NewResolver creates a cross-reference resolver.
func NewResolver(c *client.Client, search *eutils.Client, opts ...Option) *Resolver {
	r := &Resolver{
		search:  search,
		client:  c,
		baseURL: "https://pubchem.ncbi.nlm.nih.gov/rest/pug",
		logger:  log.With().Str("component", "xref-resolver").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MeSHToPID resolves a MeSH term to PubChem substance and compound IDs.
//
// Outcomes:
//  1. Search absent or zero hits: SID and CID both null.
//  2. Substance found but its record absent upstream: SID set, CID null.
//  3. Substance record carries no deposited compound: SID set, CID null.
//  4. Otherwise: SID and CID both set.
//
// The result is always a single-entry map keyed by the input term, so callers
// can merge records across terms with uniform shape.
func (r *Resolver) MeSHToPID(ctx context.Context, mesh string) (map[string]PIDRecord, error) {
	record := PIDRecord{Mesh: mesh}

	result, err := r.search.Search(ctx, substanceDB, mesh)
	if err != nil {
		return nil, fmt.Errorf("search substances for %q: %w", mesh, err)
	}

	if result == nil || result.Count == 0 || len(result.IDs) == 0 {
		r.logger.Debug().
			Str("mesh", mesh).
			Msg("No substances matched MeSH term")
		return map[string]PIDRecord{mesh: record}, nil
	}

	// First hit only; the search orders by relevance.
	sid := result.IDs[0]
	record.SID = NullID{ID: sid, Valid: true}

	u := fmt.Sprintf("%s/substance/sid/%s/XML", r.baseURL, url.PathEscape(sid))

	body, err := r.client.Fetch(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("fetch substance %s: %w", sid, err)
	}
	if body == nil {
		// Substance listed by search but its record is gone: CID stays null.
		r.logger.Warn().
			Str("mesh", mesh).
			Str("sid", sid).
			Msg("Substance record not found upstream")
		return map[string]PIDRecord{mesh: record}, nil
	}

	cid, err := extractCompoundID(body)
	if err != nil {
		return nil, fmt.Errorf("substance %s: %w", sid, err)
	}
	record.CID = cid

	return map[string]PIDRecord{mesh: record}, nil
}

// extractCompoundID pulls the first deposited compound ID out of a substance
// XML document. Substances without a standardized compound yield a null CID.
func extractCompoundID(body []byte) (NullID, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return NullID{}, fmt.Errorf("parse substance XML: %w", err)
	}

	el := doc.FindElement("//PC-CompoundType_id_cid")
	if el == nil {
		return NullID{}, nil
	}

	return NullID{ID: strings.TrimSpace(el.Text()), Valid: true}, nil
}
