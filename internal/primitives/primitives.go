// Package primitives instantiates cryptographic capabilities from serialized
// key material. The algorithms themselves come from tink-go; this package
// only wires algorithm families to key generation and primitive
// construction, and derives the output prefix that routes ciphertext back to
// its key.
package primitives

// AEAD is authenticated encryption with associated data. Decrypt fails if
// either the ciphertext or the associated data was modified.
type AEAD interface {
	Encrypt(plaintext, associatedData []byte) ([]byte, error)
	Decrypt(ciphertext, associatedData []byte) ([]byte, error)
}

// DeterministicAEAD produces the same ciphertext for the same plaintext,
// associated data, and key, which makes equality queries over encrypted
// values possible.
type DeterministicAEAD interface {
	EncryptDeterministically(plaintext, associatedData []byte) ([]byte, error)
	DecryptDeterministically(ciphertext, associatedData []byte) ([]byte, error)
}

// Primitive holds the capabilities instantiated from one key's material.
// Exactly one of the fields is set, depending on the algorithm family.
type Primitive struct {
	AEAD          AEAD
	Deterministic DeterministicAEAD
}
