package database

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitGormDB opens the SQLite database, applies migrations and returns a GORM
// instance. The pool is limited to one connection: every write goes through a
// single writer and the foreign_keys pragma (which is per connection) stays on.
func InitGormDB(dataSourceName string) (*gorm.DB, error) {
	gormLogger := logger.New(
		zap.NewStdLog(zap.L().Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(sqliteDSN(dataSourceName)), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database using GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB from GORM: %w", err)
	}

	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := Migrate(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	zap.L().Info("GORM database initialized", zap.String("path", dataSourceName))
	return db, nil
}

// sqliteDSN turns a path into a go-sqlite3 DSN with foreign keys enforced.
func sqliteDSN(path string) string {
	params := "_foreign_keys=on&_busy_timeout=5000"
	switch {
	case path == ":memory:":
		return "file::memory:?" + params
	case strings.HasPrefix(path, "file:"):
		if strings.Contains(path, "?") {
			return path + "&" + params
		}
		return path + "?" + params
	default:
		return "file:" + path + "?" + params + "&_journal_mode=WAL"
	}
}
