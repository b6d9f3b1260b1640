// Package poolStore is the gorm-backed implementation of storage.PoolStore.
// It is driver neutral: production runs it on postgres, tests on in-memory
// sqlite.
package poolStore

import (
	"github.com/entropy-labs/rngpool/pkg/storage"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormPoolStore struct {
	Db     *gorm.DB
	Logger *zap.Logger
}

func NewGormPoolStore(db *gorm.DB, l *zap.Logger) *GormPoolStore {
	return &GormPoolStore{
		Db:     db,
		Logger: l,
	}
}

func (s *GormPoolStore) UpsertOperator(record *storage.OperatorRecord) error {
	res := s.Db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		UpdateAll: true,
	}).Create(record)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to upsert operator %s", record.Address)
	}
	return nil
}

func (s *GormPoolStore) UpsertDelegator(record *storage.DelegatorRecord) error {
	res := s.Db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "operator"}, {Name: "address"}},
		UpdateAll: true,
	}).Create(record)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to upsert delegator %s/%s", record.Operator, record.Address)
	}
	return nil
}

func (s *GormPoolStore) InsertSlashingEvent(record *storage.SlashingEventRecord) error {
	res := s.Db.Clauses(clause.OnConflict{DoNothing: true}).Create(record)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to insert slashing event %d", record.EventId)
	}
	return nil
}

func (s *GormPoolStore) InsertRewardDistribution(record *storage.RewardDistributionRecord, shares []*storage.RewardShareRecord) error {
	err := s.Db.Transaction(func(tx *gorm.DB) error {
		if res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(record); res.Error != nil {
			return res.Error
		}
		if len(shares) == 0 {
			return nil
		}
		if res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(shares); res.Error != nil {
			return res.Error
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "failed to insert reward distribution %d", record.DistributionId)
	}
	return nil
}

func (s *GormPoolStore) UpsertTask(record *storage.TaskRecord) error {
	res := s.Db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "task_id"}},
		UpdateAll: true,
	}).Create(record)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to upsert task %d", record.TaskId)
	}
	return nil
}

func (s *GormPoolStore) InsertTaskResult(record *storage.TaskResultRecord) error {
	res := s.Db.Clauses(clause.OnConflict{DoNothing: true}).Create(record)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to insert result for task %d", record.TaskId)
	}
	return nil
}

func (s *GormPoolStore) GetOperator(address string) (*storage.OperatorRecord, error) {
	var record storage.OperatorRecord
	res := s.Db.Where("address = ?", address).First(&record)
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "failed to fetch operator %s", address)
	}
	return &record, nil
}

func (s *GormPoolStore) ListOperators() ([]*storage.OperatorRecord, error) {
	records := make([]*storage.OperatorRecord, 0)
	res := s.Db.Order("address asc").Find(&records)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "failed to list operators")
	}
	return records, nil
}

func (s *GormPoolStore) ListDelegators(operator string) ([]*storage.DelegatorRecord, error) {
	records := make([]*storage.DelegatorRecord, 0)
	res := s.Db.Where("operator = ?", operator).Order("address asc").Find(&records)
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "failed to list delegators of %s", operator)
	}
	return records, nil
}

func (s *GormPoolStore) ListSlashingEventsForOperator(operator string) ([]*storage.SlashingEventRecord, error) {
	records := make([]*storage.SlashingEventRecord, 0)
	res := s.Db.Where("operator = ?", operator).Order("event_id asc").Find(&records)
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "failed to list slashing events of %s", operator)
	}
	return records, nil
}

func (s *GormPoolStore) ListRewardDistributions() ([]*storage.RewardDistributionRecord, error) {
	records := make([]*storage.RewardDistributionRecord, 0)
	res := s.Db.Order("distribution_id asc").Find(&records)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "failed to list reward distributions")
	}
	return records, nil
}

func (s *GormPoolStore) ListRewardShares(distributionId uint64) ([]*storage.RewardShareRecord, error) {
	records := make([]*storage.RewardShareRecord, 0)
	res := s.Db.Where("distribution_id = ?", distributionId).Order("account asc").Find(&records)
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "failed to list shares of distribution %d", distributionId)
	}
	return records, nil
}

func (s *GormPoolStore) GetTask(taskId uint64) (*storage.TaskRecord, error) {
	var record storage.TaskRecord
	res := s.Db.Where("task_id = ?", taskId).First(&record)
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "failed to fetch task %d", taskId)
	}
	return &record, nil
}

func (s *GormPoolStore) ListTasksWithStatus(status string) ([]*storage.TaskRecord, error) {
	records := make([]*storage.TaskRecord, 0)
	res := s.Db.Where("status = ?", status).Order("task_id asc").Find(&records)
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "failed to list tasks with status %s", status)
	}
	return records, nil
}

func (s *GormPoolStore) GetTaskResult(taskId uint64) (*storage.TaskResultRecord, error) {
	var record storage.TaskResultRecord
	res := s.Db.Where("task_id = ?", taskId).First(&record)
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "failed to fetch result of task %d", taskId)
	}
	return &record, nil
}
