package data

import (
	"errors"
	mathrand "math/rand"

	"gorm.io/gorm"

	"github.com/keysmith-io/keysmith/internal"
	"github.com/keysmith-io/keysmith/internal/models"
	"github.com/keysmith-io/keysmith/secrets"
)

// EncryptionKeyProvider generates and decrypts the data key that seals
// EncryptedAtRest fields. The root key behind it is loaded from static
// configuration, never from this database, so startup cannot depend on the
// keysets the data key protects.
type EncryptionKeyProvider interface {
	GenerateDataKey(rootKeyID string) (*secrets.SymmetricKey, error)
	DecryptDataKey(rootKeyID string, keyData []byte) (*secrets.SymmetricKey, error)
}

var dbKeyName = "dbkey"

// LoadDBKey loads the database data key, creating it on first startup, and
// installs it for EncryptedAtRest fields.
func LoadDBKey(tx *gorm.DB, provider EncryptionKeyProvider, rootKeyID string) error {
	keyRec, err := GetEncryptionKeyByName(tx, dbKeyName)
	if err != nil {
		if errors.Is(err, internal.ErrNotFound) {
			return createDBKey(tx, provider, rootKeyID)
		}
		return err
	}

	sKey, err := provider.DecryptDataKey(rootKeyID, keyRec.Encrypted)
	if err != nil {
		return err
	}

	models.SymmetricKey = sKey
	return nil
}

func createDBKey(tx *gorm.DB, provider EncryptionKeyProvider, rootKeyID string) error {
	sKey, err := provider.GenerateDataKey(rootKeyID)
	if err != nil {
		return err
	}

	key := &models.EncryptionKey{
		Name:      dbKeyName,
		Encrypted: sKey.Encrypted,
		Algorithm: sKey.Algorithm,
		RootKeyID: sKey.RootKeyID,
	}
	if err := CreateEncryptionKey(tx, key); err != nil {
		return err
	}

	models.SymmetricKey = sKey
	return nil
}

func CreateEncryptionKey(tx *gorm.DB, key *models.EncryptionKey) error {
	if key.KeyID == 0 {
		// not a security issue; just an identifier
		key.KeyID = mathrand.Int31() // nolint:gosec
	}

	return add(tx, key)
}

func GetEncryptionKeyByName(tx *gorm.DB, name string) (*models.EncryptionKey, error) {
	return get[models.EncryptionKey](tx, ByName(name))
}
