// Package dbtest opens throwaway migrated databases for tests.
package dbtest

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ZJUSCT/MusicLeague/internal/config"
	"github.com/ZJUSCT/MusicLeague/internal/database"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// New returns an in-memory sqlite database private to the test. A shared
// in-memory cache reports table locks without waiting, so the pool is capped
// at one connection.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := database.Open(sqlite.Open(dsn))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("test database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

// NewFile opens a sqlite file in a temporary directory through database.Init,
// with the same pool and locking settings the server runs with.
func NewFile(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Init(config.Storage{
		Driver:   "sqlite",
		Database: filepath.Join(t.TempDir(), "musicleague.db"),
	})
	if err != nil {
		t.Fatalf("open test database file: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("test database handle: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}
