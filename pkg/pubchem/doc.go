// Package pubchem resolves PubChem compound identifiers (CIDs) to chemical
// properties (InChIKey, InChI, IUPAC name, canonical SMILES) via the PUG-REST
// API.
//
// Each batch resolver comes in two shapes:
//
//   - Map variants return map[cid]value. Association is always correct;
//     identifiers unknown upstream are simply absent from the map.
//   - List variants return a slice positionally aligned with the input, with
//     an explicit Found flag per element for identifiers the upstream omitted.
//
// Inputs larger than 100 identifiers are split into evenly sized request
// chunks via pkg/batch.
package pubchem
