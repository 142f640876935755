package kfun

// ---------------------------------------------------------------------------
// JIT prototype export
// ---------------------------------------------------------------------------

// Prototypes returns the compact signatures of all callable kfuns in stable
// index order, built-ins first, as a JIT compiler expects them, plus the
// number of extension signatures included.
func (r *Registry) Prototypes() ([]byte, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var protos []byte
	for i := 0; i < r.table.builtins; i++ {
		protos = append(protos, r.table.entries[i].Signature.Bytes()...)
	}
	n := 0
	for i := r.index.offset; i < r.index.limit; i++ {
		s, ok := r.index.slot(StableIndex(i))
		if !ok {
			continue
		}
		protos = append(protos, r.table.entries[s].Signature.Bytes()...)
		n++
	}
	return protos, n
}

// ManifestEntry describes one numbered kfun for an out-of-process JIT.
type ManifestEntry struct {
	Index     StableIndex `cbor:"1,keyasint"`
	Name      string      `cbor:"2,keyasint"`
	Version   uint8       `cbor:"3,keyasint"`
	Retired   bool        `cbor:"4,keyasint,omitempty"`
	Prototype []byte      `cbor:"5,keyasint"`
}

// PrototypeManifest is the transfer form of Prototypes.
type PrototypeManifest struct {
	Builtins        int             `cbor:"1,keyasint"`
	ExtensionOffset int             `cbor:"2,keyasint"`
	Entries         []ManifestEntry `cbor:"3,keyasint"`
}

// PrototypeManifest describes every bound stable index.
func (r *Registry) PrototypeManifest() *PrototypeManifest {
	m := &PrototypeManifest{
		Builtins:        r.table.builtins,
		ExtensionOffset: r.table.layout.ExtensionOffset,
	}
	for _, b := range r.Bindings() {
		d := b.Descriptor
		m.Entries = append(m.Entries, ManifestEntry{
			Index:     b.Index,
			Name:      d.Name,
			Version:   d.Version,
			Retired:   d.Retired,
			Prototype: d.Signature.Bytes(),
		})
	}
	return m
}

// Prototypes concatenates the manifest's signatures in entry order, the
// same layout Registry.Prototypes produces.
func (m *PrototypeManifest) Prototypes() []byte {
	var protos []byte
	for _, e := range m.Entries {
		protos = append(protos, e.Prototype...)
	}
	return protos
}
