package models

import (
	"github.com/keysmith-io/keysmith/uid"
)

// KeyStatus is the lifecycle status of a key. Enabled keys may encrypt and
// decrypt, disabled keys decrypt only, destroyed keys have no usable
// material left.
type KeyStatus string

const (
	KeyStatusEnabled   KeyStatus = "enabled"
	KeyStatusDisabled  KeyStatus = "disabled"
	KeyStatusDestroyed KeyStatus = "destroyed"
)

// PrefixKind determines how ciphertext produced under a key is routed back
// to it.
type PrefixKind string

const (
	// PrefixKeyed ciphertexts start with the key's output prefix, so decrypt
	// can look up the key directly.
	PrefixKeyed PrefixKind = "keyed"
	// PrefixRaw ciphertexts carry no prefix and must be tried against every
	// raw key in the keyset.
	PrefixRaw PrefixKind = "raw"
)

// Key is one versioned key in a keyset. A key is immutable after creation
// except for Status and IsPrimary; rotation creates a new Key row instead of
// changing material.
type Key struct {
	Model

	KeysetID uid.ID `gorm:"index:idx_keys_keyset_prefix,priority:1"`
	// Algorithm is the family identifier, matching the owning keyset.
	Algorithm string
	// Material is the serialized key material, sealed at rest by the
	// database data key. Wiped when the key is destroyed.
	Material EncryptedAtRest
	Status   KeyStatus
	Kind     PrefixKind
	// OutputPrefix is derived once from the key id and prefix kind, and
	// persisted so decrypt can find keys with an indexed query instead of
	// re-deriving prefixes.
	OutputPrefix []byte `gorm:"index:idx_keys_keyset_prefix,priority:2"`
	IsPrimary    bool
}
