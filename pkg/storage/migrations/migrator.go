// Package migrations owns the persisted schema. Each migration lives in its
// own timestamped package; applied names are recorded in the migrations table
// so a store can be opened against any prior vintage.
package migrations

import (
	"database/sql"
	"time"

	_202608251200_bootstrapPool "github.com/entropy-labs/rngpool/pkg/storage/migrations/202608251200_bootstrapPool"
	_202608251210_taskLog "github.com/entropy-labs/rngpool/pkg/storage/migrations/202608251210_taskLog"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Migration interface {
	Up(db *sql.DB, grm *gorm.DB) error
	GetName() string
}

func GetMigrations() []Migration {
	return []Migration{
		&_202608251200_bootstrapPool.Migration{},
		&_202608251210_taskLog.Migration{},
	}
}

type Migrator struct {
	Db     *sql.DB
	GDb    *gorm.DB
	Logger *zap.Logger
}

func NewMigrator(db *sql.DB, gDb *gorm.DB, l *zap.Logger) *Migrator {
	return &Migrator{
		Db:     db,
		GDb:    gDb,
		Logger: l,
	}
}

func (m *Migrator) initMigrationsTable() error {
	query := `
		create table if not exists migrations (
			name varchar not null primary key,
			created_at timestamp not null
		);
	`
	return m.GDb.Exec(query).Error
}

func (m *Migrator) isApplied(name string) (bool, error) {
	var count int64
	res := m.GDb.Raw(`select count(*) from migrations where name = ?`, name).Scan(&count)
	if res.Error != nil {
		return false, res.Error
	}
	return count > 0, nil
}

// MigrateAll applies every pending migration in order.
func (m *Migrator) MigrateAll() error {
	if err := m.initMigrationsTable(); err != nil {
		return errors.Wrap(err, "failed to initialize migrations table")
	}
	for _, migration := range GetMigrations() {
		name := migration.GetName()
		applied, err := m.isApplied(name)
		if err != nil {
			return errors.Wrapf(err, "failed to check migration %s", name)
		}
		if applied {
			continue
		}
		if err := migration.Up(m.Db, m.GDb); err != nil {
			return errors.Wrapf(err, "failed to apply migration %s", name)
		}
		res := m.GDb.Exec(`insert into migrations (name, created_at) values (?, ?)`, name, time.Now().UTC())
		if res.Error != nil {
			return errors.Wrapf(res.Error, "failed to record migration %s", name)
		}
		m.Logger.Sugar().Infow("Applied migration", zap.String("name", name))
	}
	return nil
}
