package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/cookgpt-backend/internal/platform/envutil"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewPostgresService opens the primary database. DB_DRIVER=sqlite switches
// to a local SQLite file (SQLITE_PATH) for development.
func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	driver := strings.ToLower(envutil.String("DB_DRIVER", "postgres", log))
	if driver == "sqlite" {
		path := envutil.String("SQLITE_PATH", "cookgpt.db", log)
		gdb, err := OpenSQLite(path, log)
		if err != nil {
			return nil, err
		}
		return &PostgresService{db: gdb, log: serviceLog}, nil
	}

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		envutil.String("POSTGRES_USER", "postgres", log),
		envutil.String("POSTGRES_PASSWORD", "", log),
		envutil.String("POSTGRES_HOST", "localhost", log),
		envutil.String("POSTGRES_PORT", "5432", log),
		envutil.String("POSTGRES_NAME", "cookgpt", log),
		envutil.String("POSTGRES_SSLMODE", "disable", log),
	)

	gdb, err := gorm.Open(postgres.Open(dsn), gormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(envutil.Int("POSTGRES_MAX_OPEN_CONNS", 20, log))
	sqlDB.SetMaxIdleConns(envutil.Int("POSTGRES_MAX_IDLE_CONNS", 5, log))
	sqlDB.SetConnMaxLifetime(envutil.Duration("POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute, log))

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

// OpenSQLite opens a SQLite database at path (":memory:" or
// "file::memory:?cache=shared" for tests).
func OpenSQLite(path string, log *logger.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), gormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %q: %w", path, err)
	}
	return gdb, nil
}

func (s *PostgresService) DB() *gorm.DB { return s.db }

func (s *PostgresService) AutoMigrateAll() error {
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	s.log.Info("Auto migration complete")
	return nil
}

func (s *PostgresService) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func gormConfig(log *logger.Logger) *gorm.Config {
	return &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger: gormLogger.New(
			gormWriter{log: log.With("component", "gorm")},
			gormLogger.Config{
				SlowThreshold:             1 * time.Second,
				LogLevel:                  gormLogger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	}
}

// gormWriter routes gorm's printf-style output into the structured logger.
type gormWriter struct {
	log *logger.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
