package kfun

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode is canonical so equal manifests encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("kfun: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalManifest serializes a PrototypeManifest to CBOR bytes.
func MarshalManifest(m *PrototypeManifest) ([]byte, error) {
	return cborEncMode.Marshal(m)
}

// UnmarshalManifest deserializes a PrototypeManifest from CBOR bytes.
func UnmarshalManifest(data []byte) (*PrototypeManifest, error) {
	var m PrototypeManifest
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("kfun: unmarshal manifest: %w", err)
	}
	return &m, nil
}
