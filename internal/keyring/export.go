package keyring

import (
	"github.com/keysmith-io/keysmith/internal/models"
	"github.com/keysmith-io/keysmith/uid"
)

// ExportedKeyset is the portable form of a keyset. Material is only present
// in unsafe exports.
type ExportedKeyset struct {
	Name   string        `json:"name"`
	Family string        `json:"family"`
	Keys   []ExportedKey `json:"keys"`
}

type ExportedKey struct {
	ID        uid.ID            `json:"id"`
	Algorithm string            `json:"algorithm"`
	Status    models.KeyStatus  `json:"status"`
	Kind      models.PrefixKind `json:"kind"`
	Primary   bool              `json:"primary"`
	Material  []byte            `json:"material,omitempty"`
}

// ExportInfo describes the keyset and its keys without any key material.
func (k *Keyring) ExportInfo() (*ExportedKeyset, error) {
	return k.export(false)
}

// UnsafeExport includes plaintext key material. Anyone holding the result can
// decrypt everything the keyset ever encrypted.
func (k *Keyring) UnsafeExport() (*ExportedKeyset, error) {
	return k.export(true)
}

func (k *Keyring) export(withMaterial bool) (*ExportedKeyset, error) {
	keys, err := k.Keys()
	if err != nil {
		return nil, err
	}

	out := &ExportedKeyset{
		Name:   k.keyset.Name,
		Family: k.keyset.Family,
		Keys:   make([]ExportedKey, 0, len(keys)),
	}
	for i := range keys {
		key := ExportedKey{
			ID:        keys[i].ID,
			Algorithm: keys[i].Algorithm,
			Status:    keys[i].Status,
			Kind:      keys[i].Kind,
			Primary:   keys[i].IsPrimary,
		}
		if withMaterial {
			key.Material = []byte(keys[i].Material)
		}
		out.Keys = append(out.Keys, key)
	}
	return out, nil
}
