// Package testing provides test utilities and database setup for testing the report bot
package testing

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/anshu-9837/Banning/models"
	"github.com/anshu-9837/Banning/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB represents a test database instance
type TestDB struct {
	DB   *gorm.DB
	Path string
}

// SetupTestDB creates a fresh sqlite database under t.TempDir with every table migrated.
// A single connection is used so concurrent writers queue instead of failing with SQLITE_BUSY.
func SetupTestDB(t testing.TB) *TestDB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "banning_test.db")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: utils.UTCNow,
	})
	require.NoError(t, err, "failed to open sqlite test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.AllModels()...), "failed to migrate test database")

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return &TestDB{DB: db, Path: path}
}

// ClearAllTables removes all data from tables while preserving structure
func (tdb *TestDB) ClearAllTables() error {
	tables := []string{
		"daily_stats",
		"reports",
		"batches",
		"login_logs",
		"sessions",
		"one_time_codes",
		"operators",
	}

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}

	return nil
}

// CreateTestContext creates a context for testing
func CreateTestContext() context.Context {
	return context.Background()
}
