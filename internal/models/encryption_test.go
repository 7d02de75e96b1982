package models

import (
	"crypto/rand"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/keysmith-io/keysmith/secrets"
)

func TestEncryptedAtRest(t *testing.T) {
	material := make([]byte, 32)
	_, err := rand.Read(material)
	assert.NilError(t, err)

	orig := SymmetricKey
	SymmetricKey = secrets.NewTestSymmetricKey(material)
	t.Cleanup(func() {
		SymmetricKey = orig
	})

	field := EncryptedAtRest("sensitive value")

	sealed, err := field.Value()
	assert.NilError(t, err)
	assert.Assert(t, sealed.(string) != "sensitive value")

	var scanned EncryptedAtRest
	assert.NilError(t, scanned.Scan(sealed))
	assert.Equal(t, string(scanned), "sensitive value")
}

func TestEncryptedAtRestRequiresKey(t *testing.T) {
	orig := SymmetricKey
	SymmetricKey = nil
	t.Cleanup(func() {
		SymmetricKey = orig
	})

	_, err := EncryptedAtRest("value").Value()
	assert.ErrorContains(t, err, "SymmetricKey is not set")
}
