// Package secrets seals and unseals byte strings with a symmetric data key,
// and provides storage backends for the root key that protects the data key.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("secret not found")

// SecretStorage stores arbitrary named secrets, such as root key material.
type SecretStorage interface {
	SetSecret(name string, secret []byte) error
	GetSecret(name string) (secret []byte, err error)
}

// SecretProvider generates and decrypts data keys. The root key never leaves
// the provider; callers persist only the encrypted form of the data key and
// ask the provider to decrypt it again on startup.
type SecretProvider interface {
	// GenerateDataKey makes a new data key protected by the root key named
	// by rootKeyID. An empty rootKeyID selects the provider default.
	GenerateDataKey(rootKeyID string) (*SymmetricKey, error)
	// DecryptDataKey decrypts a previously generated data key.
	DecryptDataKey(rootKeyID string, keyData []byte) (*SymmetricKey, error)
}

const AlgorithmAESGCM = "aesgcm"

// SymmetricKey is a data key used by Seal and Unseal.
type SymmetricKey struct {
	unencrypted []byte `json:"-"`    // never persisted
	Encrypted   []byte `json:"key"`  // encrypted data key, stored by the caller
	Algorithm   string `json:"alg"`  // algorithm used with this key
	RootKeyID   string `json:"rkid"` // id of the root key protecting Encrypted
}

type sealedPayload struct {
	Ciphertext []byte `json:"d"`
	Algorithm  string `json:"a"`
	Key        []byte `json:"k"` // encrypted data key
	RootKeyID  string `json:"i"`
	Nonce      []byte `json:"n"` // crypto random, unique every seal
}

func cryptoRandRead(length int) ([]byte, error) {
	b := make([]byte, length)

	n, err := rand.Read(b)
	if err != nil {
		return nil, fmt.Errorf("crypto/rand read: %w", err)
	}
	if n != length {
		return nil, fmt.Errorf("read %d of %d random bytes", n, length)
	}

	return b, nil
}

func (key *SymmetricKey) valid() error {
	if len(key.unencrypted) == 0 {
		return errors.New("missing key material")
	}
	if len(key.unencrypted) != 32 {
		return errors.New("expected a 256 bit key")
	}
	return nil
}

// Seal encrypts plain with the data key. The output is a base64 encoded
// payload that carries the encrypted data key alongside the ciphertext, so
// it can be unsealed after a process restart.
func Seal(key *SymmetricKey, plain []byte) ([]byte, error) {
	if err := key.valid(); err != nil {
		return nil, err
	}

	aesgcm, err := newGCM(key.unencrypted)
	if err != nil {
		return nil, err
	}

	nonce, err := cryptoRandRead(aesgcm.NonceSize())
	if err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	payload := sealedPayload{
		Ciphertext: aesgcm.Seal(nil, nonce, plain, nil),
		Algorithm:  key.Algorithm,
		Key:        key.Encrypted,
		RootKeyID:  key.RootKeyID,
		Nonce:      nonce,
	}

	raw, err := json.Marshal(&payload)
	if err != nil {
		return nil, err
	}

	encoded := make([]byte, base64.RawStdEncoding.EncodedLen(len(raw)))
	base64.RawStdEncoding.Encode(encoded, raw)

	return encoded, nil
}

// Unseal decrypts a payload produced by Seal with the same data key.
func Unseal(key *SymmetricKey, encoded []byte) ([]byte, error) {
	if err := key.valid(); err != nil {
		return nil, err
	}

	raw := make([]byte, base64.RawStdEncoding.DecodedLen(len(encoded)))
	if _, err := base64.RawStdEncoding.Decode(raw, encoded); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}

	payload := &sealedPayload{}
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("unmarshalling payload: %w", err)
	}

	aesgcm, err := newGCM(key.unencrypted)
	if err != nil {
		return nil, err
	}

	plain, err := aesgcm.Open(nil, payload.Nonce, payload.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("opening seal: %w", err)
	}

	return plain, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	blk, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	return cipher.NewGCM(blk)
}
