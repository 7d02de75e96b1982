package data

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/keysmith-io/keysmith/internal"
	"github.com/keysmith-io/keysmith/internal/models"
	"github.com/keysmith-io/keysmith/internal/primitives"
	"github.com/keysmith-io/keysmith/uid"
)

// CreateKey inserts a new key. The output prefix is derived from the key id,
// which is only known after the insert, so this is a two phase write inside
// one transaction: insert, derive, update.
func CreateKey(tx *gorm.DB, key *models.Key) error {
	switch {
	case key.KeysetID == 0:
		return fmt.Errorf("a keyset is required for Key")
	case key.Algorithm == "":
		return fmt.Errorf("an algorithm is required for Key")
	case len(key.Material) == 0:
		return fmt.Errorf("key material is required for Key")
	}

	if key.Status == "" {
		key.Status = models.KeyStatusEnabled
	}

	return tx.Transaction(func(tx *gorm.DB) error {
		if err := add(tx, key); err != nil {
			return err
		}

		key.OutputPrefix = primitives.OutputPrefix(key.Kind, key.ID)
		if key.OutputPrefix == nil {
			// raw keys share the empty prefix; store it as empty bytes, not
			// NULL, so equality lookups work on every driver
			key.OutputPrefix = []byte{}
		}

		return save(tx, key)
	})
}

func GetKeyByID(tx *gorm.DB, keysetID uid.ID, keyID uid.ID) (*models.Key, error) {
	return get[models.Key](tx, ByKeysetID(keysetID), ByID(keyID))
}

// GetPrimaryKey reads which key is currently primary. Callers must not cache
// the result across operations; rotation in another process changes it.
func GetPrimaryKey(tx *gorm.DB, keysetID uid.ID) (*models.Key, error) {
	return get[models.Key](tx, ByKeysetID(keysetID), ByIsPrimary())
}

func ListKeys(tx *gorm.DB, keysetID uid.ID, selectors ...SelectorFunc) ([]models.Key, error) {
	selectors = append([]SelectorFunc{ByKeysetID(keysetID)}, selectors...)
	return list[models.Key](tx, selectors...)
}

// SetPrimaryKey makes keyID the only primary key of the keyset in a single
// transaction. Concurrent calls serialize on the row updates; the partial
// unique index on keys(keyset_id) rejects any interleaving that would commit
// two primaries. The status predicate on the update keeps a concurrent
// disable from slipping in between a separate check and the commit.
func SetPrimaryKey(tx *gorm.DB, keysetID uid.ID, keyID uid.ID) error {
	return tx.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Key{}).
			Where("keyset_id = ? AND is_primary", keysetID).
			Update("is_primary", false).Error
		if err != nil {
			return handleError(err)
		}

		result := tx.Model(&models.Key{}).
			Where("keyset_id = ? AND id = ? AND status = ?", keysetID, keyID, models.KeyStatusEnabled).
			Update("is_primary", true)
		if result.Error != nil {
			return handleError(result.Error)
		}
		if result.RowsAffected == 0 {
			key, err := GetKeyByID(tx, keysetID, keyID)
			if err != nil {
				return err
			}
			return fmt.Errorf("%w: key %v is %v, only enabled keys can become primary",
				internal.ErrInvalidKeyState, key.ID, key.Status)
		}

		return nil
	})
}

// UpdateKeyStatus changes a key's lifecycle status. The primary key must stay
// enabled; promote a different key first. Destroying a key wipes its stored
// material.
func UpdateKeyStatus(tx *gorm.DB, key *models.Key, status models.KeyStatus) error {
	if key.IsPrimary && status != models.KeyStatusEnabled {
		return fmt.Errorf("%w: cannot %s the primary key", internal.ErrInvalidKeyState, status)
	}
	if key.Status == models.KeyStatusDestroyed {
		return fmt.Errorf("%w: key is destroyed", internal.ErrInvalidKeyState)
	}

	key.Status = status
	if status == models.KeyStatusDestroyed {
		key.Material = ""
	}

	return save(tx, key)
}
