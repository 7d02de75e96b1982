package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func TestSealUnsealRoundTrip(t *testing.T) {
	provider := NewNativeSecretProvider(NewFileStorage(FileConfig{
		Path: t.TempDir(),
	}))

	key, err := provider.GenerateDataKey("")
	assert.NilError(t, err)
	assert.Assert(t, len(key.Encrypted) > 0)

	sealed, err := Seal(key, []byte("the plaintext"))
	assert.NilError(t, err)

	plain, err := Unseal(key, sealed)
	assert.NilError(t, err)
	assert.Equal(t, string(plain), "the plaintext")
}

func TestUnsealWithWrongKeyFails(t *testing.T) {
	provider := NewNativeSecretProvider(NewFileStorage(FileConfig{
		Path: t.TempDir(),
	}))

	key, err := provider.GenerateDataKey("")
	assert.NilError(t, err)

	sealed, err := Seal(key, []byte("the plaintext"))
	assert.NilError(t, err)

	other, err := provider.GenerateDataKey("")
	assert.NilError(t, err)

	_, err = Unseal(other, sealed)
	assert.ErrorContains(t, err, "opening seal")
}

func TestDecryptDataKeyAfterRestart(t *testing.T) {
	storage := NewFileStorage(FileConfig{Path: t.TempDir()})

	key, err := NewNativeSecretProvider(storage).GenerateDataKey("")
	assert.NilError(t, err)

	sealed, err := Seal(key, []byte("survives restart"))
	assert.NilError(t, err)

	// a new provider over the same storage simulates a process restart
	restored, err := NewNativeSecretProvider(storage).DecryptDataKey(key.RootKeyID, key.Encrypted)
	assert.NilError(t, err)

	plain, err := Unseal(restored, sealed)
	assert.NilError(t, err)
	assert.Equal(t, string(plain), "survives restart")
}

func TestFileStorage(t *testing.T) {
	dir := t.TempDir()
	storage := NewFileStorage(FileConfig{
		GenericConfig: GenericConfig{Base64: true},
		Path:          dir,
	})

	err := storage.SetSecret("some/nested/name", []byte("value"))
	assert.NilError(t, err)

	_, err = os.Stat(filepath.Join(dir, "some/nested/name"))
	assert.NilError(t, err)

	secret, err := storage.GetSecret("some/nested/name")
	assert.NilError(t, err)
	assert.Equal(t, string(secret), "value")

	_, err = storage.GetSecret("does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnvStorage(t *testing.T) {
	storage := NewEnvStorage(GenericConfig{Base64: true})

	assert.NilError(t, storage.SetSecret("KEYSMITH_TEST_SECRET", []byte("value")))
	t.Cleanup(func() {
		os.Unsetenv("KEYSMITH_TEST_SECRET")
	})

	secret, err := storage.GetSecret("KEYSMITH_TEST_SECRET")
	assert.NilError(t, err)
	assert.Equal(t, string(secret), "value")

	expanded, err := storage.GetSecret("$KEYSMITH_TEST_SECRET")
	assert.NilError(t, err)
	assert.Equal(t, string(expanded), "value")
}

func TestPlainStorage(t *testing.T) {
	storage := NewPlainStorage(GenericConfig{})

	secret, err := storage.GetSecret("the-secret-itself")
	assert.NilError(t, err)
	assert.Equal(t, string(secret), "the-secret-itself")

	err = storage.SetSecret("name", []byte("value"))
	assert.ErrorIs(t, err, ErrNotImplemented)
}
