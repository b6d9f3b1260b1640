// Package storage defines the persisted audit schema for the pool: operator
// and delegation balances, slashing and reward history, and the task log.
// Stake amounts are stored as decimal strings to survive any driver's numeric
// range.
package storage

import (
	"time"
)

type OperatorRecord struct {
	Address             string `gorm:"primaryKey"`
	SelfStake           string
	TotalStake          string
	IsActive            bool
	Status              string
	TaskCount           uint64
	SuccessfulTaskCount uint64
	SlashCount          uint64
	TotalSlashedAmount  string
	RegistrationHeight  uint64
	LastActivityHeight  uint64
	UpdatedAt           time.Time
}

func (OperatorRecord) TableName() string {
	return "operators"
}

type DelegatorRecord struct {
	Operator     string `gorm:"primaryKey"`
	Address      string `gorm:"primaryKey"`
	StakedAmount string
	Shares       string
	IsActive     bool
	UpdatedAt    time.Time
}

func (DelegatorRecord) TableName() string {
	return "delegators"
}

type SlashingEventRecord struct {
	EventId          uint64 `gorm:"primaryKey;autoIncrement:false"`
	Operator         string
	Amount           string
	OperatorPortion  string
	DelegatorPortion string
	DeductedAmount   string
	Reason           string
	Slasher          string
	EventTime        time.Time
	Height           uint64
	Executed         bool
}

func (SlashingEventRecord) TableName() string {
	return "slashing_events"
}

type RewardDistributionRecord struct {
	DistributionId   uint64 `gorm:"primaryKey;autoIncrement:false"`
	TotalRewards     string
	OperatorRewards  string
	DelegatorRewards string
	Height           uint64
	EventTime        time.Time
}

func (RewardDistributionRecord) TableName() string {
	return "reward_distributions"
}

// RewardShareRecord is one participant's credit in a distribution. Account is
// the operator address, or "operator/delegator" for a delegator credit.
type RewardShareRecord struct {
	DistributionId uint64 `gorm:"primaryKey;autoIncrement:false"`
	Account        string `gorm:"primaryKey"`
	Amount         string
}

func (RewardShareRecord) TableName() string {
	return "reward_shares"
}

type TaskRecord struct {
	TaskId          uint64 `gorm:"primaryKey;autoIncrement:false"`
	Requester       string
	MinValue        string
	MaxValue        string
	Count           uint32
	Fee             string
	Seed            string
	CallbackLocator string
	Status          string
	CreatedAt       time.Time
	CreatedAtHeight uint64
	UpdatedAt       time.Time
}

func (TaskRecord) TableName() string {
	return "tasks"
}

// TaskResultRecord stores the fulfillment of a task. Values and Attesters are
// JSON arrays; the signature is hex.
type TaskResultRecord struct {
	TaskId              uint64 `gorm:"primaryKey;autoIncrement:false"`
	Operator            string
	Values              string `gorm:"column:drawn_values"`
	AggregatedSignature string
	Attesters           string
	EventTime           time.Time
	Verified            bool
}

func (TaskResultRecord) TableName() string {
	return "task_results"
}

// PoolStore is the persistence surface the event sink and the query services
// work against.
type PoolStore interface {
	UpsertOperator(record *OperatorRecord) error
	UpsertDelegator(record *DelegatorRecord) error
	InsertSlashingEvent(record *SlashingEventRecord) error
	InsertRewardDistribution(record *RewardDistributionRecord, shares []*RewardShareRecord) error
	UpsertTask(record *TaskRecord) error
	InsertTaskResult(record *TaskResultRecord) error

	GetOperator(address string) (*OperatorRecord, error)
	ListOperators() ([]*OperatorRecord, error)
	ListDelegators(operator string) ([]*DelegatorRecord, error)
	ListSlashingEventsForOperator(operator string) ([]*SlashingEventRecord, error)
	ListRewardDistributions() ([]*RewardDistributionRecord, error)
	ListRewardShares(distributionId uint64) ([]*RewardShareRecord, error)
	GetTask(taskId uint64) (*TaskRecord, error)
	ListTasksWithStatus(status string) ([]*TaskRecord, error)
	GetTaskResult(taskId uint64) (*TaskResultRecord, error)
}
