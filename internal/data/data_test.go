package data

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/opt"

	"github.com/keysmith-io/keysmith/internal"
	"github.com/keysmith-io/keysmith/internal/logging"
	"github.com/keysmith-io/keysmith/internal/models"
	"github.com/keysmith-io/keysmith/internal/testing/database"
	"github.com/keysmith-io/keysmith/internal/testing/patch"
	"github.com/keysmith-io/keysmith/uid"
)

// cmpModel compares models while ignoring generated ids and timestamps.
var cmpModel = cmp.Options{
	cmp.FilterPath(opt.PathField(models.Model{}, "ID"), cmpIDNotZero),
	cmp.FilterPath(opt.PathField(models.Model{}, "CreatedAt"), opt.TimeWithThreshold(2*time.Second)),
	cmp.FilterPath(opt.PathField(models.Model{}, "UpdatedAt"), opt.TimeWithThreshold(2*time.Second)),
}

var cmpIDNotZero = cmp.Comparer(func(x, y uid.ID) bool {
	return x != 0 && y != 0
})

func setupDB(t *testing.T, driver gorm.Dialector) *gorm.DB {
	t.Helper()
	patch.ModelsSymmetricKey(t)
	logging.PatchLogger(t, zerolog.NewTestWriter(t))

	db, err := NewDB(driver, nil)
	assert.NilError(t, err)

	return db
}

func sqliteDriver(t *testing.T) gorm.Dialector {
	t.Helper()
	driver, err := NewSQLiteDriver(filepath.Join(t.TempDir(), "keysmith.db"))
	assert.NilError(t, err)
	return driver
}

// runDBTests against all supported databases. Defaults to only sqlite
// locally. Set POSTGRESQL_CONNECTION to a postgresql connection string to
// also run the tests against postgresql.
func runDBTests(t *testing.T, run func(t *testing.T, db *gorm.DB)) {
	t.Run("sqlite", func(t *testing.T) {
		db := setupDB(t, sqliteDriver(t))
		run(t, db)
	})
	t.Run("postgres", func(t *testing.T) {
		driver := database.PostgresDriver(t, "")
		if driver == nil {
			t.Skip("Set POSTGRESQL_CONNECTION to test against postgresql")
		}
		db := setupDB(t, driver.Dialector)
		run(t, db)
	})
}

func TestSnowflakeIDSerialization(t *testing.T) {
	runDBTests(t, func(t *testing.T, db *gorm.DB) {
		id := uid.New()
		keyset := &models.Keyset{Model: models.Model{ID: id}, Name: "ids"}
		assert.NilError(t, CreateKeyset(db, keyset))

		var intID int64
		err := db.Select("id").Table("keysets").Scan(&intID).Error
		assert.NilError(t, err)
		assert.Equal(t, int64(id), intID)
	})
}

func TestEncryptionKeys(t *testing.T) {
	runDBTests(t, func(t *testing.T, db *gorm.DB) {
		t.Run("create and get", func(t *testing.T) {
			key := &models.EncryptionKey{
				Name:      "first",
				Encrypted: []byte("encrypted"),
				Algorithm: "aesgcm",
				RootKeyID: "main",
			}
			assert.NilError(t, CreateEncryptionKey(db, key))
			assert.Assert(t, key.KeyID != 0)

			actual, err := GetEncryptionKeyByName(db, "first")
			assert.NilError(t, err)
			assert.DeepEqual(t, actual, key, cmpModel)
		})

		t.Run("get not found", func(t *testing.T) {
			_, err := GetEncryptionKeyByName(db, "does-not-exist")
			assert.ErrorIs(t, err, internal.ErrNotFound)
		})
	})
}
