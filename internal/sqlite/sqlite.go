// Package sqlite provides the sqlite flavor of the pool store, used for
// tests and single-node deployments that do not want to run postgres.
package sqlite

import (
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const SqliteInMemoryPath = "file::memory:?cache=shared"

func NewInMemorySqlite() gorm.Dialector {
	return NewSqlite(SqliteInMemoryPath)
}

// NewInMemorySqliteWithName gives each test its own shared-cache database so
// parallel tests do not see each other's tables.
func NewInMemorySqliteWithName(name string) gorm.Dialector {
	path := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	return NewSqlite(path)
}

func NewSqlite(path string) gorm.Dialector {
	return &sqlite.Dialector{
		DriverName: "sqlite3",
		DSN:        path,
	}
}

func NewGormSqliteFromSqlite(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// https://phiresky.github.io/blog/2020/sqlite-performance-tuning/
	pragmas := []string{
		`PRAGMA foreign_keys = ON;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA synchronous = normal;`,
	}
	for _, pragma := range pragmas {
		if res := db.Exec(pragma); res.Error != nil {
			return nil, res.Error
		}
	}
	return db, nil
}

func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
