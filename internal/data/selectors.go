package data

import (
	"gorm.io/gorm"

	"github.com/keysmith-io/keysmith/internal/models"
	"github.com/keysmith-io/keysmith/uid"
)

func ByID(id uid.ID) SelectorFunc {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ?", id)
	}
}

func ByName(name string) SelectorFunc {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("name = ?", name)
	}
}

func ByKeysetID(keysetID uid.ID) SelectorFunc {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("keyset_id = ?", keysetID)
	}
}

func ByOutputPrefix(prefix []byte) SelectorFunc {
	if prefix == nil {
		prefix = []byte{}
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("output_prefix = ?", prefix)
	}
}

func ByIsPrimary() SelectorFunc {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("is_primary = ?", true)
	}
}

func NotDestroyed() SelectorFunc {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("status <> ?", models.KeyStatusDestroyed)
	}
}

// ExcludeKeyIDs filters out keys that a caller already has, so cache fills
// only read rows the cache has never seen.
func ExcludeKeyIDs(ids []uid.ID) SelectorFunc {
	return func(db *gorm.DB) *gorm.DB {
		if len(ids) == 0 {
			return db
		}
		return db.Where("id NOT IN ?", ids)
	}
}
