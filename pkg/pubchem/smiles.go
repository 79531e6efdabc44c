package pubchem

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/beevik/etree"
)

// CIDToSMILES resolves a single CID to its canonical SMILES string via the XML
// property endpoint. Returns found=false when the CID does not exist upstream.
// A well-formed response that lacks the CanonicalSMILES element is an error.
func (r *Resolver) CIDToSMILES(ctx context.Context, cid string) (smiles string, found bool, err error) {
	u := fmt.Sprintf("%s/compound/cid/%s/property/CanonicalSMILES/XML",
		r.baseURL, url.PathEscape(cid))

	body, err := r.client.Fetch(ctx, u)
	if err != nil {
		return "", false, err
	}
	if body == nil {
		return "", false, nil
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return "", false, fmt.Errorf("parse property XML: %w", err)
	}

	el := doc.FindElement("//CanonicalSMILES")
	if el == nil {
		return "", false, fmt.Errorf("property XML for cid %s: missing CanonicalSMILES element", cid)
	}

	return strings.TrimSpace(el.Text()), true, nil
}
