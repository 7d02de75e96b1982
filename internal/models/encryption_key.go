package models

// EncryptionKey is the database data key that seals EncryptedAtRest fields.
// It is stored encrypted by a root key that lives outside the database, so
// that loading it never depends on the keysets it protects.
type EncryptionKey struct {
	Model

	// KeyID is a short identifier for the key that can be embedded with
	// encrypted payloads.
	KeyID     int32 `gorm:"uniqueIndex:idx_encryption_keys_key_id"`
	Name      string
	Encrypted []byte
	Algorithm string
	RootKeyID string
}
