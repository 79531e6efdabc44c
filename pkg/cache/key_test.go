package cache

import (
	"net/url"
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name     string
		key      Key
		expected string
	}{
		{
			name: "endpoint only",
			key: Key{
				Host:     "pubchem.ncbi.nlm.nih.gov",
				Endpoint: "/rest/pug/compound/cid/2244/property/InChIKey/JSON",
			},
			expected: "chemidr:pubchem.ncbi.nlm.nih.gov:rest/pug/compound/cid/2244/property/InChIKey/JSON",
		},
		{
			name: "query params sorted",
			key: Key{
				Host:     "eutils.ncbi.nlm.nih.gov",
				Endpoint: "/entrez/eutils/esearch.fcgi",
				QueryParams: url.Values{
					"term":    []string{"aspirin"},
					"db":      []string{"pcsubstance"},
					"retmode": []string{"json"},
				},
			},
			expected: "chemidr:eutils.ncbi.nlm.nih.gov:entrez/eutils/esearch.fcgi:db=pcsubstance:retmode=json:term=aspirin",
		},
		{
			name:     "empty key",
			key:      Key{},
			expected: "chemidr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestKey_Deterministic(t *testing.T) {
	u, err := url.Parse("https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi?term=aspirin&db=pcsubstance&retmode=json")
	if err != nil {
		t.Fatalf("Parse url: %v", err)
	}

	k1 := KeyForURL(u)
	k2 := KeyForURL(u)

	if k1.String() != k2.String() {
		t.Errorf("Key not deterministic: %q != %q", k1.String(), k2.String())
	}
}

func TestKeyForURL(t *testing.T) {
	u, err := url.Parse("https://pubchem.ncbi.nlm.nih.gov/rest/pug/compound/cid/1,2/property/IUPACName/JSON")
	if err != nil {
		t.Fatalf("Parse url: %v", err)
	}

	k := KeyForURL(u)
	if k.Host != "pubchem.ncbi.nlm.nih.gov" {
		t.Errorf("Host = %q", k.Host)
	}
	if k.Endpoint != "/rest/pug/compound/cid/1,2/property/IUPACName/JSON" {
		t.Errorf("Endpoint = %q", k.Endpoint)
	}
}
