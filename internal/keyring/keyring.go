// Package keyring implements named keysets of versioned keys stored in the
// database. A keyring encrypts under the keyset's primary key, routes
// ciphertext back to its key by output prefix on decrypt, and caches
// instantiated primitives so repeated operations avoid the database.
package keyring

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/keysmith-io/keysmith/internal"
	"github.com/keysmith-io/keysmith/internal/data"
	"github.com/keysmith-io/keysmith/internal/models"
	"github.com/keysmith-io/keysmith/internal/primitives"
	"github.com/keysmith-io/keysmith/uid"
)

// Keyring is the handle for one keyset. It is safe for concurrent use. Open
// a keyring once and reuse it; each handle carries its own primitive cache.
type Keyring struct {
	db       *gorm.DB
	registry *primitives.Registry
	keyset   *models.Keyset
	family   primitives.Family
	index    *primitiveIndex
}

// Open loads an existing keyset by name. It fails fast when the keyset's
// algorithm family is not registered, so misconfiguration surfaces at startup
// instead of on the first encrypt.
func Open(db *gorm.DB, registry *primitives.Registry, name string) (*Keyring, error) {
	keyset, err := data.GetKeysetByName(db, name)
	if err != nil {
		return nil, err
	}

	family, err := registry.Family(keyset.Family)
	if err != nil {
		return nil, err
	}

	return &Keyring{
		db:       db,
		registry: registry,
		keyset:   keyset,
		family:   family,
		index:    newPrimitiveIndex(family, keyset.ID),
	}, nil
}

// Create makes a new keyset with one primary key generated from the
// template. The keyset and its first key are written in one transaction; a
// keyset without a primary key is never visible.
func Create(db *gorm.DB, registry *primitives.Registry, name string, templateName string) (*Keyring, error) {
	template, err := primitives.TemplateByName(templateName)
	if err != nil {
		return nil, err
	}

	family, err := registry.Family(template.Family)
	if err != nil {
		return nil, err
	}

	keyset := &models.Keyset{Name: name, Family: template.Family}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := data.CreateKeyset(tx, keyset); err != nil {
			return err
		}

		material, err := family.NewMaterial()
		if err != nil {
			return err
		}

		return data.CreateKey(tx, &models.Key{
			KeysetID:  keyset.ID,
			Algorithm: template.Family,
			Material:  models.EncryptedAtRest(material),
			Kind:      template.Kind,
			IsPrimary: true,
		})
	})
	if err != nil {
		return nil, err
	}

	return &Keyring{
		db:       db,
		registry: registry,
		keyset:   keyset,
		family:   family,
		index:    newPrimitiveIndex(family, keyset.ID),
	}, nil
}

// Keyset returns the underlying keyset record.
func (k *Keyring) Keyset() *models.Keyset {
	return k.keyset
}

// GenerateKey adds a new enabled key from the template. The new key is not
// primary; use Promote to start encrypting under it.
func (k *Keyring) GenerateKey(templateName string) (*models.Key, error) {
	template, err := primitives.TemplateByName(templateName)
	if err != nil {
		return nil, err
	}
	if template.Family != k.keyset.Family {
		return nil, fmt.Errorf("%w: template %v generates %v keys, but keyset %q holds %v keys",
			internal.ErrInvalidConfiguration, template.Name, template.Family, k.keyset.Name, k.keyset.Family)
	}

	material, err := k.family.NewMaterial()
	if err != nil {
		return nil, err
	}

	key := &models.Key{
		KeysetID:  k.keyset.ID,
		Algorithm: k.keyset.Family,
		Material:  models.EncryptedAtRest(material),
		Kind:      template.Kind,
	}
	if err := data.CreateKey(k.db, key); err != nil {
		return nil, err
	}
	if err := k.index.insert(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Keys lists every key in the keyset, including destroyed ones.
func (k *Keyring) Keys() ([]models.Key, error) {
	return data.ListKeys(k.db, k.keyset.ID)
}

// SetKeyStatus changes a key's lifecycle status.
func (k *Keyring) SetKeyStatus(keyID uid.ID, status models.KeyStatus) error {
	key, err := data.GetKeyByID(k.db, k.keyset.ID, keyID)
	if err != nil {
		return err
	}
	if err := data.UpdateKeyStatus(k.db, key, status); err != nil {
		return err
	}

	k.index.setStatus(keyID, status)
	return nil
}

// Delete removes the keyset and all of its keys. Ciphertext produced under
// the keyset becomes undecryptable.
func (k *Keyring) Delete() error {
	return data.DeleteKeyset(k.db, k.keyset)
}

// Encrypt seals plaintext under the current primary key and prepends the
// key's output prefix so Decrypt can route the ciphertext back to it.
func (k *Keyring) Encrypt(plaintext []byte, associatedData []byte) ([]byte, error) {
	primary, err := k.index.primary(k.db)
	if err != nil {
		return nil, err
	}
	if primary.primitive.AEAD == nil {
		return nil, fmt.Errorf("%w: keyset %q (%v) does not support encryption",
			internal.ErrInvalidConfiguration, k.keyset.Name, k.keyset.Family)
	}

	ciphertext, err := primary.primitive.AEAD.Encrypt(plaintext, associatedData)
	if err != nil {
		return nil, err
	}
	return withPrefix(primary.prefix, ciphertext), nil
}

// Decrypt opens ciphertext with whichever key produced it. A keyed prefix
// routes directly to its key; raw keys are tried against the whole
// ciphertext as a fallback.
func (k *Keyring) Decrypt(ciphertext []byte, associatedData []byte) ([]byte, error) {
	return k.decrypt(ciphertext, func(p primitives.Primitive, ciphertext []byte) ([]byte, error) {
		if p.AEAD == nil {
			return nil, fmt.Errorf("key does not support decryption")
		}
		return p.AEAD.Decrypt(ciphertext, associatedData)
	})
}

// EncryptDeterministically seals plaintext under the primary key, producing
// the same ciphertext for the same plaintext and associated data. Only
// keysets of a deterministic family support it.
func (k *Keyring) EncryptDeterministically(plaintext []byte, associatedData []byte) ([]byte, error) {
	primary, err := k.index.primary(k.db)
	if err != nil {
		return nil, err
	}
	if primary.primitive.Deterministic == nil {
		return nil, fmt.Errorf("%w: keyset %q (%v) does not support deterministic encryption",
			internal.ErrInvalidConfiguration, k.keyset.Name, k.keyset.Family)
	}

	ciphertext, err := primary.primitive.Deterministic.EncryptDeterministically(plaintext, associatedData)
	if err != nil {
		return nil, err
	}
	return withPrefix(primary.prefix, ciphertext), nil
}

// DecryptDeterministically opens ciphertext produced by
// EncryptDeterministically.
func (k *Keyring) DecryptDeterministically(ciphertext []byte, associatedData []byte) ([]byte, error) {
	return k.decrypt(ciphertext, func(p primitives.Primitive, ciphertext []byte) ([]byte, error) {
		if p.Deterministic == nil {
			return nil, fmt.Errorf("key does not support deterministic decryption")
		}
		return p.Deterministic.DecryptDeterministically(ciphertext, associatedData)
	})
}

// decrypt tries every key that could have produced the ciphertext. When at
// least one candidate key exists but none opens the ciphertext the data was
// tampered with or the associated data is wrong; when no candidate exists
// the key is gone or the ciphertext belongs to another keyset.
func (k *Keyring) decrypt(ciphertext []byte, attempt func(p primitives.Primitive, ciphertext []byte) ([]byte, error)) ([]byte, error) {
	tried := false

	if primitives.IsKeyedPrefix(ciphertext) {
		entries, err := k.index.entriesForPrefix(k.db, ciphertext[:primitives.KeyedPrefixSize])
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.status == models.KeyStatusDestroyed {
				continue
			}
			tried = true
			if plaintext, err := attempt(e.primitive, ciphertext[primitives.KeyedPrefixSize:]); err == nil {
				return plaintext, nil
			}
		}
	}

	// raw keys share the empty prefix and get the whole ciphertext
	entries, err := k.index.entriesForPrefix(k.db, nil)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.status == models.KeyStatusDestroyed {
			continue
		}
		tried = true
		if plaintext, err := attempt(e.primitive, ciphertext); err == nil {
			return plaintext, nil
		}
	}

	if tried {
		return nil, internal.ErrAuthenticationFailed
	}
	return nil, internal.ErrKeyNotFound
}

func withPrefix(prefix []byte, ciphertext []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(ciphertext))
	out = append(out, prefix...)
	return append(out, ciphertext...)
}
