// Package fields wraps database columns with keyset backed encryption. A
// column pairs a keyring with a value codec and an optional associated data
// callback; deterministic columns additionally support equality lookups that
// stay correct across key rotation.
package fields

import (
	"gorm.io/gorm/clause"

	"github.com/keysmith-io/keysmith/internal/keyring"
)

// Column encrypts one database column with the keyring's primary key. The
// associated data callback binds ciphertext to its column; moving a value to
// a column with different associated data makes it undecryptable.
type Column[T any] struct {
	keyring *keyring.Keyring
	codec   Codec[T]
	aad     func() []byte
}

func NewColumn[T any](kr *keyring.Keyring, codec Codec[T], aad func() []byte) Column[T] {
	return Column[T]{keyring: kr, codec: codec, aad: aad}
}

func (c Column[T]) Encrypt(value T) ([]byte, error) {
	plaintext, err := c.codec.Encode(value)
	if err != nil {
		return nil, err
	}
	return c.keyring.Encrypt(plaintext, associatedData(c.aad))
}

func (c Column[T]) Decrypt(ciphertext []byte) (T, error) {
	plaintext, err := c.keyring.Decrypt(ciphertext, associatedData(c.aad))
	if err != nil {
		var zero T
		return zero, err
	}
	return c.codec.Decode(plaintext)
}

// DeterministicColumn encrypts a column so that equal values produce equal
// ciphertext under the same key. The only supported queries are Exact and
// IsNull; ordering, ranges, and partial matches are not representable over
// the ciphertext.
type DeterministicColumn[T any] struct {
	keyring *keyring.Keyring
	codec   Codec[T]
	aad     func() []byte
}

func NewDeterministicColumn[T any](kr *keyring.Keyring, codec Codec[T], aad func() []byte) DeterministicColumn[T] {
	return DeterministicColumn[T]{keyring: kr, codec: codec, aad: aad}
}

func (c DeterministicColumn[T]) Encrypt(value T) ([]byte, error) {
	plaintext, err := c.codec.Encode(value)
	if err != nil {
		return nil, err
	}
	return c.keyring.EncryptDeterministically(plaintext, associatedData(c.aad))
}

func (c DeterministicColumn[T]) Decrypt(ciphertext []byte) (T, error) {
	plaintext, err := c.keyring.DecryptDeterministically(ciphertext, associatedData(c.aad))
	if err != nil {
		var zero T
		return zero, err
	}
	return c.codec.Decode(plaintext)
}

// Exact matches rows whose decrypted value equals value. The value is
// encrypted under every enabled key in the keyset and the column is compared
// against all of the candidates, so rows written before a rotation still
// match.
func (c DeterministicColumn[T]) Exact(column string, value T) (clause.Expression, error) {
	plaintext, err := c.codec.Encode(value)
	if err != nil {
		return nil, err
	}

	candidates, err := c.keyring.CandidateCiphertexts(plaintext, associatedData(c.aad))
	if err != nil {
		return nil, err
	}

	values := make([]interface{}, 0, len(candidates))
	for _, candidate := range candidates {
		values = append(values, candidate)
	}
	return clause.IN{Column: clause.Column{Name: column}, Values: values}, nil
}

// IsNull matches rows where the column was never set.
func IsNull(column string) clause.Expression {
	return clause.Eq{Column: clause.Column{Name: column}, Value: nil}
}

func associatedData(aad func() []byte) []byte {
	if aad == nil {
		return nil
	}
	return aad()
}
