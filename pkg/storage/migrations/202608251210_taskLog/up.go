package _202608251210_taskLog

import (
	"database/sql"

	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB) error {
	queries := []string{
		`create table if not exists tasks (
			task_id bigint not null primary key,
			requester varchar not null,
			min_value varchar not null,
			max_value varchar not null,
			count integer not null,
			fee varchar not null,
			seed varchar not null,
			callback_locator varchar not null default '',
			status varchar not null,
			created_at timestamp not null,
			created_at_height bigint not null,
			updated_at timestamp not null
		);`,
		`create table if not exists task_results (
			task_id bigint not null primary key,
			operator varchar not null,
			drawn_values varchar not null,
			aggregated_signature varchar not null,
			attesters varchar not null,
			event_time timestamp not null,
			verified boolean not null
		);`,
	}
	for _, query := range queries {
		if err := grm.Exec(query).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202608251210_taskLog"
}
