// Package poolDataService answers read-side questions over the persisted
// audit store: operator summaries, slashing history, distribution details and
// pool-wide aggregates.
package poolDataService

import (
	"context"
	"strings"

	"github.com/entropy-labs/rngpool/pkg/storage"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PoolDataService struct {
	store  storage.PoolStore
	logger *zap.Logger
}

func NewPoolDataService(store storage.PoolStore, l *zap.Logger) *PoolDataService {
	return &PoolDataService{
		store:  store,
		logger: l,
	}
}

// OperatorSummary joins an operator's record with its delegations and
// slashing history, plus a few derived figures.
type OperatorSummary struct {
	Operator       *storage.OperatorRecord
	Delegators     []*storage.DelegatorRecord
	SlashingEvents []*storage.SlashingEventRecord

	// SuccessRate is successful over total fulfillment attempts, as a
	// decimal string. Empty when the operator never fulfilled a task.
	SuccessRate string
}

func (pds *PoolDataService) GetOperatorSummary(ctx context.Context, operatorAddress string) (*OperatorSummary, error) {
	operatorAddress = strings.ToLower(operatorAddress)

	operator, err := pds.store.GetOperator(operatorAddress)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load operator %s", operatorAddress)
	}
	delegators, err := pds.store.ListDelegators(operatorAddress)
	if err != nil {
		return nil, err
	}
	slashingEvents, err := pds.store.ListSlashingEventsForOperator(operatorAddress)
	if err != nil {
		return nil, err
	}

	summary := &OperatorSummary{
		Operator:       operator,
		Delegators:     delegators,
		SlashingEvents: slashingEvents,
	}
	if operator.TaskCount > 0 {
		rate := decimal.NewFromUint64(operator.SuccessfulTaskCount).
			Div(decimal.NewFromUint64(operator.TaskCount))
		summary.SuccessRate = rate.StringFixed(4)
	}
	return summary, nil
}

// DistributionDetails is one distribution with its full share breakdown.
type DistributionDetails struct {
	Distribution *storage.RewardDistributionRecord
	Shares       []*storage.RewardShareRecord
}

func (pds *PoolDataService) GetDistributionDetails(ctx context.Context, distributionId uint64) (*DistributionDetails, error) {
	distributions, err := pds.store.ListRewardDistributions()
	if err != nil {
		return nil, err
	}
	var distribution *storage.RewardDistributionRecord
	for _, d := range distributions {
		if d.DistributionId == distributionId {
			distribution = d
			break
		}
	}
	if distribution == nil {
		return nil, errors.Errorf("unknown distribution %d", distributionId)
	}
	shares, err := pds.store.ListRewardShares(distributionId)
	if err != nil {
		return nil, err
	}
	return &DistributionDetails{
		Distribution: distribution,
		Shares:       shares,
	}, nil
}

// PoolOverview aggregates the persisted state of the whole pool.
type PoolOverview struct {
	OperatorCount       int
	ActiveOperatorCount int
	TotalStaked         string
	TotalSlashed        string
	PendingTaskCount    int
	CompletedTaskCount  int
	FailedTaskCount     int
}

func (pds *PoolDataService) GetPoolOverview(ctx context.Context) (*PoolOverview, error) {
	operators, err := pds.store.ListOperators()
	if err != nil {
		return nil, err
	}

	totalStaked := decimal.Zero
	totalSlashed := decimal.Zero
	overview := &PoolOverview{
		OperatorCount: len(operators),
	}
	for _, op := range operators {
		if op.IsActive {
			overview.ActiveOperatorCount++
		}
		staked, err := decimal.NewFromString(op.TotalStake)
		if err != nil {
			return nil, errors.Wrapf(err, "malformed total stake for operator %s", op.Address)
		}
		slashed, err := decimal.NewFromString(op.TotalSlashedAmount)
		if err != nil {
			return nil, errors.Wrapf(err, "malformed slashed amount for operator %s", op.Address)
		}
		totalStaked = totalStaked.Add(staked)
		totalSlashed = totalSlashed.Add(slashed)
	}
	overview.TotalStaked = totalStaked.String()
	overview.TotalSlashed = totalSlashed.String()

	for status, target := range map[string]*int{
		"pending":   &overview.PendingTaskCount,
		"completed": &overview.CompletedTaskCount,
		"failed":    &overview.FailedTaskCount,
	} {
		records, err := pds.store.ListTasksWithStatus(status)
		if err != nil {
			return nil, err
		}
		*target = len(records)
	}
	return overview, nil
}
