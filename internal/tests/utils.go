// Package tests holds shared fixtures for package-level tests.
package tests

import (
	"math/big"
	"time"

	"github.com/entropy-labs/rngpool/internal/config"
	"github.com/entropy-labs/rngpool/internal/logger"
	"github.com/entropy-labs/rngpool/internal/sqlite"
	"github.com/entropy-labs/rngpool/pkg/storage/migrations"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GetTestPoolConfig returns pool parameters sized for readable test math.
func GetTestPoolConfig() *config.PoolConfig {
	return &config.PoolConfig{
		Address:             "pool",
		AdminAddress:        "admin",
		MinOperatorStake:    big.NewInt(100),
		MinDelegationAmount: big.NewInt(10),
		MaxOperators:        0,
		CommissionBps:       1000,
		SlashAmount:         big.NewInt(50),
		TaskFee:             big.NewInt(5),
		TaskTimeout:         time.Minute,
		MaxTasksPerBlock:    0,
	}
}

// GetSqliteDatabaseConnection opens a migrated, uniquely named in-memory
// database.
func GetSqliteDatabaseConnection(name string, l *zap.Logger) (*gorm.DB, error) {
	db, err := sqlite.NewGormSqliteFromSqlite(sqlite.NewInMemorySqliteWithName(name))
	if err != nil {
		return nil, err
	}
	migrator := migrations.NewMigrator(nil, db, l)
	if err := migrator.MigrateAll(); err != nil {
		return nil, err
	}
	return db, nil
}

func GetTestLogger() *zap.Logger {
	return logger.NewNoopLogger()
}
