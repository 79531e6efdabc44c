package pubchem

import (
	"strings"
)

// Property names a PUG-REST compound property as it appears in request URLs
// and response property tables.
type Property string

const (
	// PropertyInChIKey is the hashed 27-character InChI key.
	PropertyInChIKey Property = "InChIKey"

	// PropertyInChI is the full textual InChI identifier.
	PropertyInChI Property = "InChI"

	// PropertyIUPACName is the systematic IUPAC name. Not every compound
	// record carries one.
	PropertyIUPACName Property = "IUPACName"

	// PropertyCanonicalSMILES is the canonical SMILES structure notation.
	PropertyCanonicalSMILES Property = "CanonicalSMILES"
)

// PropertyValue is one positional result of a list-shaped resolution.
// Found is false when the upstream response omitted the identifier or the
// optional property field was absent.
type PropertyValue struct {
	CID   int64
	Value string
	Found bool
}

// propertyTable mirrors the PUG-REST JSON envelope:
// {"PropertyTable": {"Properties": [{"CID": 2244, "InChIKey": "..."}]}}
type propertyTable struct {
	PropertyTable struct {
		Properties []propertyRecord `json:"Properties"`
	} `json:"PropertyTable"`
}

// propertyRecord is one per-identifier object in a property table. The
// property fields are pointers: PUG-REST omits optional properties (notably
// IUPACName) rather than sending empty strings.
type propertyRecord struct {
	CID             int64   `json:"CID"`
	InChIKey        *string `json:"InChIKey,omitempty"`
	InChI           *string `json:"InChI,omitempty"`
	IUPACName       *string `json:"IUPACName,omitempty"`
	CanonicalSMILES *string `json:"CanonicalSMILES,omitempty"`
}

// value extracts the requested property from the record.
func (r propertyRecord) value(p Property) (string, bool) {
	var field *string
	switch p {
	case PropertyInChIKey:
		field = r.InChIKey
	case PropertyInChI:
		field = r.InChI
	case PropertyIUPACName:
		field = r.IUPACName
	case PropertyCanonicalSMILES:
		field = r.CanonicalSMILES
	}
	if field == nil {
		return "", false
	}
	return *field, true
}

// KeyPrefix returns the substring of an InChIKey before its first hyphen,
// the 14-character block encoding the molecular skeleton. Keys without a
// hyphen are returned unchanged.
func KeyPrefix(key string) string {
	if i := strings.IndexByte(key, '-'); i >= 0 {
		return key[:i]
	}
	return key
}
