package migrate

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func createTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "migrate.db")), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestMigrateWithNilDatabase(t *testing.T) {
	err := Migrate(nil, "migrations", zap.NewNop().Sugar())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database connection is nil")
}

func TestMigrateWithMissingDirectory(t *testing.T) {
	db := createTestDB(t)

	err := Migrate(db, filepath.Join(t.TempDir(), "absent"), zap.NewNop().Sugar())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations directory does not exist")
}

func TestMigrateRequiresPostgres(t *testing.T) {
	db := createTestDB(t)

	err := Migrate(db, filepath.Join("..", "..", "..", "migrations"), zap.NewNop().Sugar())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create postgres driver")
}
