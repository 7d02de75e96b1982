package keyring

import (
	"fmt"

	"github.com/keysmith-io/keysmith/internal"
	"github.com/keysmith-io/keysmith/internal/models"
)

// CandidateCiphertexts encrypts plaintext under every enabled deterministic
// key in the keyset, output prefix included. A value written under any of
// those keys equals exactly one of the candidates, so an equality query over
// an encrypted column matches rows written before and after a rotation.
func (k *Keyring) CandidateCiphertexts(plaintext []byte, associatedData []byte) ([][]byte, error) {
	entries, err := k.index.all(k.db)
	if err != nil {
		return nil, err
	}

	candidates := make([][]byte, 0, len(entries))
	for _, e := range entries {
		if e.status != models.KeyStatusEnabled || e.primitive.Deterministic == nil {
			continue
		}
		ciphertext, err := e.primitive.Deterministic.EncryptDeterministically(plaintext, associatedData)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, withPrefix(e.prefix, ciphertext))
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: keyset %q has no enabled deterministic keys",
			internal.ErrInvalidConfiguration, k.keyset.Name)
	}
	return candidates, nil
}
