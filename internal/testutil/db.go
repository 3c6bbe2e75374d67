// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"aichat-backend/internal/migration"
	"aichat-backend/internal/platform/database"
)

// NewSQLite returns a migrated, private in-memory database closed at test cleanup.
func NewSQLite(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := database.Open(context.Background(), database.DriverSQLite, dsn, nil)
	require.NoError(t, err)
	require.NoError(t, migration.Up(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
