package testutil

import (
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/cookgpt-backend/internal/data/db"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.NewNop()
}

// DB returns a migrated database private to the test. TEST_POSTGRES_DSN
// selects Postgres; otherwise a named in-memory SQLite database is used.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	cfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	}

	var (
		gdb *gorm.DB
		err error
	)
	if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
		gdb, err = gorm.Open(postgres.Open(dsn), cfg)
	} else {
		name := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
		gdb, err = gorm.Open(sqlite.Open(name), cfg)
		if err == nil {
			sqlDB, dbErr := gdb.DB()
			if dbErr != nil {
				tb.Fatalf("sqlite pool: %v", dbErr)
			}
			sqlDB.SetMaxOpenConns(1)
			tb.Cleanup(func() { _ = sqlDB.Close() })
		}
	}
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrateAll(gdb); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

func Tx(tb testing.TB, gdb *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := gdb.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}
