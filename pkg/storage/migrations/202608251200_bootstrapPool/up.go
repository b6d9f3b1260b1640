package _202608251200_bootstrapPool

import (
	"database/sql"

	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB) error {
	queries := []string{
		`create table if not exists operators (
			address varchar not null primary key,
			self_stake varchar not null,
			total_stake varchar not null,
			is_active boolean not null,
			status varchar not null,
			task_count bigint not null default 0,
			successful_task_count bigint not null default 0,
			slash_count bigint not null default 0,
			total_slashed_amount varchar not null,
			registration_height bigint not null,
			last_activity_height bigint not null,
			updated_at timestamp not null
		);`,
		`create table if not exists delegators (
			operator varchar not null,
			address varchar not null,
			staked_amount varchar not null,
			shares varchar not null,
			is_active boolean not null,
			updated_at timestamp not null,
			primary key (operator, address)
		);`,
		`create table if not exists slashing_events (
			event_id bigint not null primary key,
			operator varchar not null,
			amount varchar not null,
			operator_portion varchar not null,
			delegator_portion varchar not null,
			deducted_amount varchar not null,
			reason varchar not null,
			slasher varchar not null,
			event_time timestamp not null,
			height bigint not null,
			executed boolean not null
		);`,
		`create table if not exists reward_distributions (
			distribution_id bigint not null primary key,
			total_rewards varchar not null,
			operator_rewards varchar not null,
			delegator_rewards varchar not null,
			height bigint not null,
			event_time timestamp not null
		);`,
		`create table if not exists reward_shares (
			distribution_id bigint not null,
			account varchar not null,
			amount varchar not null,
			primary key (distribution_id, account)
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
	return "202608251200_bootstrapPool"
}
