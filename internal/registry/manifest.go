package registry

// ManifestVersion is the only manifest format version the agent accepts.
const ManifestVersion = 1

// ManifestEntry is one allowed operation: the signature is the stable dedup
// key, the document is the full operation text published under it.
type ManifestEntry struct {
	Signature string `json:"signature"`
	Document  string `json:"document"`
}

// Manifest is the versioned operation list published by the control plane.
type Manifest struct {
	Version    int             `json:"version"`
	Operations []ManifestEntry `json:"operations"`
}

// Valid reports whether the manifest has an accepted shape. Version must be
// exactly ManifestVersion and the operation list must be present (an empty
// list is valid, a missing one is not).
func (m *Manifest) Valid() bool {
	return m != nil && m.Version == ManifestVersion && m.Operations != nil
}

// SignatureMap builds the signature→document mapping. Duplicate signatures
// within one manifest are last-writer-wins; the control plane shouldn't emit
// them, but the agent doesn't reject them either.
func (m *Manifest) SignatureMap() map[string]string {
	out := make(map[string]string, len(m.Operations))
	for _, op := range m.Operations {
		out[op.Signature] = op.Document
	}
	return out
}
