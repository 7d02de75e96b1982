// Package patch provides helpers that swap package-level state for the
// duration of a test.
package patch

import (
	"crypto/rand"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/keysmith-io/keysmith/internal/models"
	"github.com/keysmith-io/keysmith/secrets"
)

// ModelsSymmetricKey sets models.SymmetricKey to a fresh random key so that
// EncryptedAtRest fields work without a secret provider.
func ModelsSymmetricKey(t *testing.T) {
	t.Helper()

	material := make([]byte, 32)
	_, err := rand.Read(material)
	assert.NilError(t, err)

	orig := models.SymmetricKey
	models.SymmetricKey = secrets.NewTestSymmetricKey(material)

	t.Cleanup(func() {
		models.SymmetricKey = orig
	})
}
