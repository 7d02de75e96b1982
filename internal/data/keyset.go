package data

import (
	"gorm.io/gorm"

	"github.com/keysmith-io/keysmith/internal/models"
)

func CreateKeyset(tx *gorm.DB, keyset *models.Keyset) error {
	return add(tx, keyset)
}

func GetKeysetByName(tx *gorm.DB, name string) (*models.Keyset, error) {
	return get[models.Keyset](tx, ByName(name))
}

func ListKeysets(tx *gorm.DB) ([]models.Keyset, error) {
	return list[models.Keyset](tx)
}

// DeleteKeyset removes the keyset and every key under it.
func DeleteKeyset(tx *gorm.DB, keyset *models.Keyset) error {
	return tx.Transaction(func(tx *gorm.DB) error {
		if err := deleteAll[models.Key](tx, ByKeysetID(keyset.ID)); err != nil {
			return err
		}
		return delete[models.Keyset](tx, keyset.ID)
	})
}
