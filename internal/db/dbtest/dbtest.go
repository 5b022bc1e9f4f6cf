// Package dbtest opens throwaway SQLite databases with the production schema.
package dbtest

import (
	"path/filepath"
	"testing"

	"agora/internal/db"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func New(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "agora-test.db")
	conn, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), db.Config())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return conn
}
