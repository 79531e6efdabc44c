package pubchem

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chemkit/chemidr/pkg/batch"
	"github.com/chemkit/chemidr/pkg/client"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the production PUG-REST endpoint.
const DefaultBaseURL = "https://pubchem.ncbi.nlm.nih.gov/rest/pug"

// Resolver resolves compound properties through a shared fetcher client.
type Resolver struct {
	client  *client.Client
	baseURL string
	workers int
	logger  zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithBaseURL overrides the PUG-REST base URL (primarily for tests).
func WithBaseURL(baseURL string) Option {
	return func(r *Resolver) {
		r.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithWorkers sets the number of chunks fetched in parallel. The default of 1
// keeps upstream access strictly sequential.
func WithWorkers(workers int) Option {
	return func(r *Resolver) {
		r.workers = workers
	}
}

// NewResolver creates a property resolver on top of a fetcher client.
func NewResolver(c *client.Client, opts ...Option) *Resolver {
	r := &Resolver{
		client:  c,
		baseURL: DefaultBaseURL,
		workers: 1,
		logger:  log.With().Str("component", "pubchem-resolver").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CIDsToInChIKeysMap resolves CIDs to InChIKeys, keyed by CID.
func (r *Resolver) CIDsToInChIKeysMap(ctx context.Context, cids []int64) (map[int64]string, error) {
	return r.propertyMap(ctx, cids, PropertyInChIKey)
}

// CIDsToInChIKeysList resolves CIDs to InChIKeys, positionally aligned with
// the input.
func (r *Resolver) CIDsToInChIKeysList(ctx context.Context, cids []int64) ([]PropertyValue, error) {
	return r.propertyList(ctx, cids, PropertyInChIKey)
}

// CIDsToInChIKeyPrefixesMap resolves CIDs to the structural prefix of their
// InChIKeys (the part before the first hyphen), keyed by CID.
func (r *Resolver) CIDsToInChIKeyPrefixesMap(ctx context.Context, cids []int64) (map[int64]string, error) {
	keys, err := r.propertyMap(ctx, cids, PropertyInChIKey)
	if err != nil {
		return nil, err
	}
	prefixes := make(map[int64]string, len(keys))
	for cid, key := range keys {
		prefixes[cid] = KeyPrefix(key)
	}
	return prefixes, nil
}

// CIDsToInChIKeyPrefixesList resolves CIDs to InChIKey structural prefixes,
// positionally aligned with the input.
func (r *Resolver) CIDsToInChIKeyPrefixesList(ctx context.Context, cids []int64) ([]PropertyValue, error) {
	values, err := r.propertyList(ctx, cids, PropertyInChIKey)
	if err != nil {
		return nil, err
	}
	for i := range values {
		if values[i].Found {
			values[i].Value = KeyPrefix(values[i].Value)
		}
	}
	return values, nil
}

// CIDsToInChIsMap resolves CIDs to full InChI identifiers, keyed by CID.
func (r *Resolver) CIDsToInChIsMap(ctx context.Context, cids []int64) (map[int64]string, error) {
	return r.propertyMap(ctx, cids, PropertyInChI)
}

// CIDsToInChIsList resolves CIDs to full InChI identifiers, positionally
// aligned with the input.
func (r *Resolver) CIDsToInChIsList(ctx context.Context, cids []int64) ([]PropertyValue, error) {
	return r.propertyList(ctx, cids, PropertyInChI)
}

// CIDsToIUPACNamesMap resolves CIDs to IUPAC names, keyed by CID. Compounds
// without a name upstream are absent from the map.
func (r *Resolver) CIDsToIUPACNamesMap(ctx context.Context, cids []int64) (map[int64]string, error) {
	return r.propertyMap(ctx, cids, PropertyIUPACName)
}

// CIDsToIUPACNamesList resolves CIDs to IUPAC names, positionally aligned with
// the input. Compounds without a name upstream have Found set to false.
func (r *Resolver) CIDsToIUPACNamesList(ctx context.Context, cids []int64) ([]PropertyValue, error) {
	return r.propertyList(ctx, cids, PropertyIUPACName)
}

// propertyMap fetches a property for all CIDs, chunked and merged into one
// association map. A later chunk overwriting an earlier key cannot happen with
// distinct inputs; duplicates in the input collapse naturally.
func (r *Resolver) propertyMap(ctx context.Context, cids []int64, prop Property) (map[int64]string, error) {
	chunks := batch.Divide(batch.Ints(cids))
	if len(chunks) == 0 {
		return map[int64]string{}, nil
	}

	r.logger.Debug().
		Int("cids", len(cids)).
		Int("chunks", len(chunks)).
		Str("property", string(prop)).
		Msg("Resolving compound property")

	partials := make([]map[int64]string, len(chunks))

	err := batch.Run(ctx, len(chunks), r.workers, func(ctx context.Context, i int) error {
		u := fmt.Sprintf("%s/compound/cid/%s/property/%s/JSON",
			r.baseURL, strings.Join(chunks[i], ","), prop)

		body, err := r.client.Fetch(ctx, u)
		if err != nil {
			return err
		}
		if body == nil {
			// None of the chunk's CIDs exist upstream: absent, not an error.
			return nil
		}

		var table propertyTable
		if err := json.Unmarshal(body, &table); err != nil {
			return fmt.Errorf("parse property table: %w", err)
		}

		partial := make(map[int64]string, len(table.PropertyTable.Properties))
		for _, rec := range table.PropertyTable.Properties {
			if v, ok := rec.value(prop); ok {
				partial[rec.CID] = v
			}
		}
		partials[i] = partial
		return nil
	})
	if err != nil {
		return nil, err
	}

	merged := make(map[int64]string, len(cids))
	for _, partial := range partials {
		for cid, v := range partial {
			merged[cid] = v
		}
	}
	return merged, nil
}

// propertyList fetches a property for all CIDs and aligns the results with the
// input order. Identifiers the upstream omitted keep their position with
// Found set to false.
func (r *Resolver) propertyList(ctx context.Context, cids []int64, prop Property) ([]PropertyValue, error) {
	m, err := r.propertyMap(ctx, cids, prop)
	if err != nil {
		return nil, err
	}

	values := make([]PropertyValue, len(cids))
	for i, cid := range cids {
		values[i] = PropertyValue{CID: cid}
		if v, ok := m[cid]; ok {
			values[i].Value = v
			values[i].Found = true
		}
	}
	return values, nil
}
