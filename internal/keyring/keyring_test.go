package keyring

import (
	"bytes"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gotest.tools/v3/assert"

	"github.com/keysmith-io/keysmith/internal"
	"github.com/keysmith-io/keysmith/internal/data"
	"github.com/keysmith-io/keysmith/internal/logging"
	"github.com/keysmith-io/keysmith/internal/models"
	"github.com/keysmith-io/keysmith/internal/primitives"
	"github.com/keysmith-io/keysmith/internal/testing/patch"
	"github.com/keysmith-io/keysmith/uid"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	patch.ModelsSymmetricKey(t)
	logging.PatchLogger(t, zerolog.NewTestWriter(t))

	driver, err := data.NewSQLiteDriver(filepath.Join(t.TempDir(), "keysmith.db"))
	assert.NilError(t, err)

	db, err := data.NewDB(driver, nil)
	assert.NilError(t, err)
	return db
}

func TestCreate(t *testing.T) {
	db := setupDB(t)
	registry := primitives.Default()

	kr, err := Create(db, registry, "app-secrets", "AES256_GCM")
	assert.NilError(t, err)
	assert.Equal(t, kr.Keyset().Family, primitives.FamilyAESGCM)

	t.Run("first key is primary and enabled", func(t *testing.T) {
		keys, err := kr.Keys()
		assert.NilError(t, err)
		assert.Equal(t, len(keys), 1)
		assert.Assert(t, keys[0].IsPrimary)
		assert.Equal(t, keys[0].Status, models.KeyStatusEnabled)
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := Create(db, registry, "app-secrets", "AES256_GCM")
		assert.ErrorIs(t, err, internal.ErrDuplicate)
	})

	t.Run("unknown template", func(t *testing.T) {
		_, err := Create(db, registry, "bogus", "AES512_MAGIC")
		assert.ErrorIs(t, err, internal.ErrInvalidConfiguration)
	})

	t.Run("open", func(t *testing.T) {
		opened, err := Open(db, registry, "app-secrets")
		assert.NilError(t, err)
		assert.Equal(t, opened.Keyset().ID, kr.Keyset().ID)
	})

	t.Run("open missing", func(t *testing.T) {
		_, err := Open(db, registry, "no-such-keyset")
		assert.ErrorIs(t, err, internal.ErrNotFound)
	})
}

func TestEncryptDecrypt(t *testing.T) {
	db := setupDB(t)
	registry := primitives.Default()

	kr, err := Create(db, registry, "secrets", "AES256_GCM")
	assert.NilError(t, err)

	plaintext := []byte("hello world")
	aad := []byte("ad")

	ciphertext, err := kr.Encrypt(plaintext, aad)
	assert.NilError(t, err)
	assert.Assert(t, primitives.IsKeyedPrefix(ciphertext))

	actual, err := kr.Decrypt(ciphertext, aad)
	assert.NilError(t, err)
	assert.DeepEqual(t, actual, plaintext)

	t.Run("tampered ciphertext", func(t *testing.T) {
		tampered := append([]byte{}, ciphertext...)
		tampered[len(tampered)-1] ^= 0x01

		_, err := kr.Decrypt(tampered, aad)
		assert.ErrorIs(t, err, internal.ErrAuthenticationFailed)
	})

	t.Run("wrong associated data", func(t *testing.T) {
		_, err := kr.Decrypt(ciphertext, []byte("other"))
		assert.ErrorIs(t, err, internal.ErrAuthenticationFailed)
	})

	t.Run("ciphertext from another keyset", func(t *testing.T) {
		other, err := Create(db, registry, "other", "AES256_GCM")
		assert.NilError(t, err)

		_, err = other.Decrypt(ciphertext, aad)
		assert.ErrorIs(t, err, internal.ErrKeyNotFound)
	})

	t.Run("deterministic operations are rejected", func(t *testing.T) {
		_, err := kr.EncryptDeterministically(plaintext, aad)
		assert.ErrorIs(t, err, internal.ErrInvalidConfiguration)
	})
}

func TestRotation(t *testing.T) {
	db := setupDB(t)
	registry := primitives.Default()

	kr, err := Create(db, registry, "rotating", "AES256_GCM")
	assert.NilError(t, err)

	plaintext := []byte("hello world")
	aad := []byte("ad")

	c1, err := kr.Encrypt(plaintext, aad)
	assert.NilError(t, err)

	next, err := kr.GenerateKey("AES256_GCM")
	assert.NilError(t, err)
	assert.Assert(t, !next.IsPrimary)

	assert.NilError(t, kr.Promote(next.ID))

	c2, err := kr.Encrypt(plaintext, aad)
	assert.NilError(t, err)

	// new ciphertext routes to the new key
	expected := primitives.OutputPrefix(models.PrefixKeyed, next.ID)
	assert.Assert(t, bytes.Equal(c2[:primitives.KeyedPrefixSize], expected))
	assert.Assert(t, !bytes.Equal(c1[:primitives.KeyedPrefixSize], c2[:primitives.KeyedPrefixSize]))

	// old ciphertext stays readable
	for _, c := range [][]byte{c1, c2} {
		actual, err := kr.Decrypt(c, aad)
		assert.NilError(t, err)
		assert.DeepEqual(t, actual, plaintext)
	}

	t.Run("promote unknown key", func(t *testing.T) {
		err := kr.Promote(uid.New())
		assert.ErrorIs(t, err, internal.ErrNotFound)
	})

	t.Run("promote disabled key", func(t *testing.T) {
		disabled, err := kr.GenerateKey("AES256_GCM")
		assert.NilError(t, err)
		assert.NilError(t, kr.SetKeyStatus(disabled.ID, models.KeyStatusDisabled))

		err = kr.Promote(disabled.ID)
		assert.ErrorIs(t, err, internal.ErrInvalidKeyState)
	})

	t.Run("rotate generates and promotes", func(t *testing.T) {
		key, err := kr.Rotate("AES256_GCM")
		assert.NilError(t, err)

		primary, err := data.GetPrimaryKey(db, kr.Keyset().ID)
		assert.NilError(t, err)
		assert.Equal(t, primary.ID, key.ID)
	})
}

func TestDecryptAcrossHandles(t *testing.T) {
	db := setupDB(t)
	registry := primitives.Default()

	writer, err := Create(db, registry, "shared", "AES256_GCM")
	assert.NilError(t, err)

	reader, err := Open(db, registry, "shared")
	assert.NilError(t, err)

	plaintext := []byte("hello world")
	c1, err := writer.Encrypt(plaintext, nil)
	assert.NilError(t, err)

	// the reader's cache fills on demand
	actual, err := reader.Decrypt(c1, nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, actual, plaintext)

	// a key created after the reader's first fill is still found
	_, err = writer.Rotate("AES256_GCM")
	assert.NilError(t, err)

	c2, err := writer.Encrypt(plaintext, nil)
	assert.NilError(t, err)

	actual, err = reader.Decrypt(c2, nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, actual, plaintext)

	// rotation is visible to the reader without a new handle
	c3, err := reader.Encrypt(plaintext, nil)
	assert.NilError(t, err)
	assert.Assert(t, bytes.Equal(c3[:primitives.KeyedPrefixSize], c2[:primitives.KeyedPrefixSize]))
}

func TestRawKeys(t *testing.T) {
	db := setupDB(t)
	registry := primitives.Default()

	kr, err := Create(db, registry, "raw", "AES256_GCM_RAW")
	assert.NilError(t, err)

	plaintext := []byte("hello world")
	ciphertext, err := kr.Encrypt(plaintext, nil)
	assert.NilError(t, err)
	assert.Assert(t, !primitives.IsKeyedPrefix(ciphertext))

	actual, err := kr.Decrypt(ciphertext, nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, actual, plaintext)

	t.Run("raw fallback after rotation", func(t *testing.T) {
		_, err := kr.Rotate("AES256_GCM_RAW")
		assert.NilError(t, err)

		// both raw keys are tried until one opens the ciphertext
		actual, err := kr.Decrypt(ciphertext, nil)
		assert.NilError(t, err)
		assert.DeepEqual(t, actual, plaintext)
	})
}

func TestDeterministic(t *testing.T) {
	db := setupDB(t)
	registry := primitives.Default()

	kr, err := Create(db, registry, "searchable", "AES256_SIV")
	assert.NilError(t, err)

	value := []byte("42")
	aad := []byte("users.ssn")

	c1, err := kr.EncryptDeterministically(value, aad)
	assert.NilError(t, err)

	c2, err := kr.EncryptDeterministically(value, aad)
	assert.NilError(t, err)
	assert.DeepEqual(t, c1, c2)

	actual, err := kr.DecryptDeterministically(c1, aad)
	assert.NilError(t, err)
	assert.DeepEqual(t, actual, value)

	t.Run("probabilistic operations are rejected", func(t *testing.T) {
		_, err := kr.Encrypt(value, aad)
		assert.ErrorIs(t, err, internal.ErrInvalidConfiguration)
	})

	t.Run("candidates cover every enabled key", func(t *testing.T) {
		_, err := kr.Rotate("AES256_SIV")
		assert.NilError(t, err)

		c3, err := kr.EncryptDeterministically(value, aad)
		assert.NilError(t, err)
		assert.Assert(t, !bytes.Equal(c1, c3))

		candidates, err := kr.CandidateCiphertexts(value, aad)
		assert.NilError(t, err)
		assert.Equal(t, len(candidates), 2)
		assert.Assert(t, containsBytes(candidates, c1))
		assert.Assert(t, containsBytes(candidates, c3))
	})

	t.Run("disabled keys are excluded from candidates", func(t *testing.T) {
		keys, err := kr.Keys()
		assert.NilError(t, err)

		for _, key := range keys {
			if !key.IsPrimary {
				assert.NilError(t, kr.SetKeyStatus(key.ID, models.KeyStatusDisabled))
			}
		}

		candidates, err := kr.CandidateCiphertexts(value, aad)
		assert.NilError(t, err)
		assert.Equal(t, len(candidates), 1)

		// disabled keys still decrypt
		actual, err := kr.DecryptDeterministically(c1, aad)
		assert.NilError(t, err)
		assert.DeepEqual(t, actual, value)
	})

	t.Run("no deterministic candidates", func(t *testing.T) {
		aead, err := Create(db, registry, "not-searchable", "AES256_GCM")
		assert.NilError(t, err)

		_, err = aead.CandidateCiphertexts(value, aad)
		assert.ErrorIs(t, err, internal.ErrInvalidConfiguration)
	})
}

func TestSetKeyStatus(t *testing.T) {
	db := setupDB(t)
	registry := primitives.Default()

	kr, err := Create(db, registry, "lifecycle", "AES256_GCM")
	assert.NilError(t, err)

	retired, err := kr.GenerateKey("AES256_GCM")
	assert.NilError(t, err)

	ciphertext, err := kr.Encrypt([]byte("payload"), nil)
	assert.NilError(t, err)

	assert.NilError(t, kr.Promote(retired.ID))

	t.Run("destroyed key no longer decrypts", func(t *testing.T) {
		keys, err := kr.Keys()
		assert.NilError(t, err)
		first := keys[0]
		assert.Assert(t, !first.IsPrimary)

		assert.NilError(t, kr.SetKeyStatus(first.ID, models.KeyStatusDestroyed))

		_, err = kr.Decrypt(ciphertext, nil)
		assert.ErrorIs(t, err, internal.ErrKeyNotFound)
	})
}

func TestUnsafeExport(t *testing.T) {
	db := setupDB(t)
	registry := primitives.Default()

	kr, err := Create(db, registry, "exported", "AES256_GCM")
	assert.NilError(t, err)
	_, err = kr.GenerateKey("AES256_GCM")
	assert.NilError(t, err)

	info, err := kr.ExportInfo()
	assert.NilError(t, err)
	assert.Equal(t, info.Name, "exported")
	assert.Equal(t, info.Family, primitives.FamilyAESGCM)
	assert.Equal(t, len(info.Keys), 2)
	for _, key := range info.Keys {
		assert.Equal(t, len(key.Material), 0)
	}

	full, err := kr.UnsafeExport()
	assert.NilError(t, err)
	assert.Equal(t, len(full.Keys), 2)
	for _, key := range full.Keys {
		assert.Assert(t, len(key.Material) != 0)
	}
}

func TestConcurrentUse(t *testing.T) {
	db := setupDB(t)
	registry := primitives.Default()

	kr, err := Create(db, registry, "busy", "AES256_GCM")
	assert.NilError(t, err)

	retired, err := kr.GenerateKey("AES256_GCM")
	assert.NilError(t, err)

	plaintext := []byte("hello world")
	ciphertext, err := kr.Encrypt(plaintext, nil)
	assert.NilError(t, err)

	// encrypt and decrypt while other goroutines flip key status and
	// promote; run with -race to check the shared primitive cache
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				c, err := kr.Encrypt(plaintext, nil)
				assert.Check(t, err == nil, "encrypt: %v", err)

				_, err = kr.Decrypt(c, nil)
				assert.Check(t, err == nil, "decrypt: %v", err)

				_, err = kr.Decrypt(ciphertext, nil)
				assert.Check(t, err == nil, "decrypt first: %v", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 10; j++ {
			err := kr.SetKeyStatus(retired.ID, models.KeyStatusDisabled)
			assert.Check(t, err == nil, "disable: %v", err)

			err = kr.SetKeyStatus(retired.ID, models.KeyStatusEnabled)
			assert.Check(t, err == nil, "enable: %v", err)
		}
	}()

	wg.Wait()

	actual, err := kr.Decrypt(ciphertext, nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, actual, plaintext)
}

func containsBytes(haystack [][]byte, needle []byte) bool {
	for _, b := range haystack {
		if bytes.Equal(b, needle) {
			return true
		}
	}
	return false
}
