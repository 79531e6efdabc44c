package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key represents a unique identifier for a cached upstream response.
type Key struct {
	// Host is the upstream host (e.g., "pubchem.ncbi.nlm.nih.gov")
	Host string

	// Endpoint is the request path (e.g., "/rest/pug/compound/cid/2244/property/InChIKey/JSON")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"retmode": "json"})
	QueryParams url.Values
}

// KeyForURL builds a cache key from a parsed request URL.
func KeyForURL(u *url.URL) Key {
	return Key{
		Host:        u.Host,
		Endpoint:    u.Path,
		QueryParams: u.Query(),
	}
}

// String generates a deterministic cache key string.
// Format: chemidr:host:endpoint:query1=val1:query2=val2
//
// Example:
//
//	chemidr:eutils.ncbi.nlm.nih.gov:entrez/eutils/esearch.fcgi:db=pcsubstance:retmode=json:term=aspirin
func (k Key) String() string {
	parts := []string{"chemidr"}

	if k.Host != "" {
		parts = append(parts, k.Host)
	}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Add query params (sorted for determinism)
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.QueryParams.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}
