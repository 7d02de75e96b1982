// Package database provides connections to real databases for tests.
package database

import (
	"fmt"
	"os"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gotest.tools/v3/assert"
)

// Driver is a dialector for a test database.
type Driver struct {
	Dialector gorm.Dialector
}

// PostgresDriver returns a driver for the database identified by the
// POSTGRESQL_CONNECTION environment variable, or nil when the variable is
// not set. Each call uses a dedicated schema so tests do not interfere with
// each other.
func PostgresDriver(t *testing.T, schemaSuffix string) *Driver {
	t.Helper()

	connection := os.Getenv("POSTGRESQL_CONNECTION")
	if connection == "" {
		return nil
	}

	schema := fmt.Sprintf("test_%s%s", sanitize(t.Name()), schemaSuffix)

	setup, err := gorm.Open(postgres.Open(connection))
	assert.NilError(t, err)
	assert.NilError(t, setup.Exec("DROP SCHEMA IF EXISTS "+schema+" CASCADE").Error)
	assert.NilError(t, setup.Exec("CREATE SCHEMA "+schema).Error)

	sqlDB, err := setup.DB()
	assert.NilError(t, err)
	t.Cleanup(func() {
		assert.NilError(t, sqlDB.Close())
	})

	dsn := connection + " search_path=" + schema
	return &Driver{Dialector: postgres.Open(dsn)}
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
