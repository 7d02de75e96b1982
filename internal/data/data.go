// Package data is the storage layer for keysets and keys.
package data

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/keysmith-io/keysmith/internal"
	"github.com/keysmith-io/keysmith/internal/logging"
	"github.com/keysmith-io/keysmith/internal/models"
	"github.com/keysmith-io/keysmith/uid"
)

// NewDB creates a new database connection and runs any required database
// migrations before returning the connection. The loadDBKey function is
// called after the schema is initialized so it can read and write the
// encryption_keys table.
func NewDB(connection gorm.Dialector, loadDBKey func(db *gorm.DB) error) (*gorm.DB, error) {
	db, err := newRawDB(connection)
	if err != nil {
		return nil, fmt.Errorf("db conn: %w", err)
	}

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	if loadDBKey != nil {
		if err := loadDBKey(db); err != nil {
			return nil, fmt.Errorf("load DB key failed: %w", err)
		}
	}

	return db, nil
}

// newRawDB creates a new database connection without running migrations.
func newRawDB(connection gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(connection, &gorm.Config{
		Logger: logging.NewDatabaseLogger(time.Second),
	})
	if err != nil {
		return nil, err
	}

	if connection.Name() == "sqlite" {
		// avoid issues with concurrent writes by telling gorm
		// not to open multiple connections in the connection pool
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("getting db driver: %w", err)
		}

		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

func migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.EncryptionKey{},
		&models.Keyset{},
		&models.Key{},
	)
	if err != nil {
		return err
	}

	// Partial unique indexes are not expressible with struct tags on every
	// supported driver. The idx_keys_keyset_primary index is what makes
	// "exactly one primary key per keyset" a storage guarantee instead of a
	// convention.
	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_keysets_name ON keysets (name) WHERE deleted_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_keys_keyset_primary ON keys (keyset_id) WHERE is_primary AND deleted_at IS NULL`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	return nil
}

func NewSQLiteDriver(connection string) (gorm.Dialector, error) {
	if !strings.HasPrefix(connection, "file::memory") {
		if err := os.MkdirAll(path.Dir(connection), os.ModePerm); err != nil {
			return nil, err
		}
	}
	uri, err := url.Parse(connection)
	if err != nil {
		return nil, err
	}
	query := uri.Query()
	query.Add("_journal_mode", "WAL")
	uri.RawQuery = query.Encode()
	connection = uri.String()

	return sqlite.Open(connection), nil
}

func NewPostgresDriver(connection string) (gorm.Dialector, error) {
	return postgres.Open(connection), nil
}

type SelectorFunc func(db *gorm.DB) *gorm.DB

func get[T models.Modelable](db *gorm.DB, selectors ...SelectorFunc) (*T, error) {
	for _, selector := range selectors {
		db = selector(db)
	}

	result := new(T)
	if err := db.Model((*T)(nil)).First(result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrNotFound
		}

		return nil, err
	}

	return result, nil
}

func list[T models.Modelable](db *gorm.DB, selectors ...SelectorFunc) ([]T, error) {
	db = db.Order("id ASC")
	for _, selector := range selectors {
		db = selector(db)
	}

	result := make([]T, 0)
	if err := db.Model((*T)(nil)).Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func add[T models.Modelable](db *gorm.DB, model *T) error {
	err := db.Create(model).Error
	return handleError(err)
}

func save[T models.Modelable](db *gorm.DB, model *T) error {
	err := db.Save(model).Error
	return handleError(err)
}

func delete[T models.Modelable](db *gorm.DB, id uid.ID) error {
	return db.Delete(new(T), id).Error
}

func deleteAll[T models.Modelable](db *gorm.DB, selectors ...SelectorFunc) error {
	for _, selector := range selectors {
		db = selector(db)
	}

	return db.Delete(new(T)).Error
}

type UniqueConstraintError struct {
	Table  string
	Column string
}

// Is makes every UniqueConstraintError match internal.ErrDuplicate, so that
// callers can check for conflicts without depending on this type.
func (e UniqueConstraintError) Is(other error) bool {
	return other == internal.ErrDuplicate
}

func (e UniqueConstraintError) Error() string {
	table := strings.TrimSuffix(e.Table, "s")
	if table == "" {
		return "value already exists"
	}

	if e.Column == "" {
		return fmt.Sprintf("a %v with that value already exists", table)
	}
	return fmt.Sprintf("a %v with that %v already exists", table, e.Column)
}

// handleError looks for well known DB errors. If the error is recognized it
// is translated into a UniqueConstraintError so that calling code can
// inspect the error.
func handleError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			// constraintFields maps the name of a unique constraint, to the
			// user facing name of that field.
			constraintFields := map[string]string{
				"idx_keysets_name":           "name",
				"idx_keys_keyset_primary":    "primary",
				"idx_encryption_keys_key_id": "keyId",
			}

			columnName := constraintFields[pgErr.ConstraintName]
			return UniqueConstraintError{Table: pgErr.TableName, Column: columnName}
		}
	}

	// sqlite reports unique violations as a string:
	//     UNIQUE constraint failed: <table>.<column>
	if strings.HasPrefix(err.Error(), "UNIQUE constraint failed:") {
		fields := strings.FieldsFunc(err.Error(), func(r rune) bool {
			return unicode.IsSpace(r) || r == '.'
		})

		// fields = [UNIQUE, constraint, failed:, <table>, <column>]
		if len(fields) == 5 {
			return UniqueConstraintError{
				Table:  fields[3],
				Column: fields[4],
			}
		}

		logging.Warnf("unhandled unique constraint error format: %q", err.Error())

		return UniqueConstraintError{}
	}

	return err
}
