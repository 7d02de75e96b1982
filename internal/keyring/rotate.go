package keyring

import (
	"github.com/keysmith-io/keysmith/internal/data"
	"github.com/keysmith-io/keysmith/internal/models"
	"github.com/keysmith-io/keysmith/uid"
)

// Promote makes keyID the keyset's primary key. The demotion of the current
// primary and the promotion happen in one transaction, so every observer sees
// exactly one primary before and after. Only enabled keys can be promoted;
// the status check is part of the same transaction, so a concurrent disable
// cannot leave a disabled primary.
func (k *Keyring) Promote(keyID uid.ID) error {
	return data.SetPrimaryKey(k.db, k.keyset.ID, keyID)
}

// Rotate generates a new key from the template and promotes it in one step.
func (k *Keyring) Rotate(templateName string) (*models.Key, error) {
	key, err := k.GenerateKey(templateName)
	if err != nil {
		return nil, err
	}
	if err := k.Promote(key.ID); err != nil {
		return nil, err
	}
	key.IsPrimary = true
	return key, nil
}
