package poolDataService

import (
	"context"
	"testing"
	"time"

	"github.com/entropy-labs/rngpool/internal/tests"
	"github.com/entropy-labs/rngpool/pkg/storage"
	"github.com/entropy-labs/rngpool/pkg/storage/poolStore"
	"github.com/stretchr/testify/assert"
)

func setup(t *testing.T) (*PoolDataService, *poolStore.GormPoolStore) {
	t.Helper()
	l := tests.GetTestLogger()
	db, err := tests.GetSqliteDatabaseConnection("pool_data_service", l)
	assert.Nil(t, err)
	store := poolStore.NewGormPoolStore(db, l)
	return NewPoolDataService(store, l), store
}

func Test_PoolDataService(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	pds, store := setup(t)

	assert.Nil(t, store.UpsertOperator(&storage.OperatorRecord{
		Address: "0xaa", SelfStake: "900", TotalStake: "1400", IsActive: true,
		Status: "active", TaskCount: 4, SuccessfulTaskCount: 3,
		SlashCount: 1, TotalSlashedAmount: "100", UpdatedAt: now,
	}))
	assert.Nil(t, store.UpsertOperator(&storage.OperatorRecord{
		Address: "0xbb", SelfStake: "0", TotalStake: "200", IsActive: false,
		Status: "inactive", TotalSlashedAmount: "0", UpdatedAt: now,
	}))
	assert.Nil(t, store.UpsertDelegator(&storage.DelegatorRecord{
		Operator: "0xaa", Address: "0xd1", StakedAmount: "500", Shares: "500",
		IsActive: true, UpdatedAt: now,
	}))
	assert.Nil(t, store.InsertSlashingEvent(&storage.SlashingEventRecord{
		EventId: 0, Operator: "0xaa", Amount: "100", OperatorPortion: "100",
		DelegatorPortion: "0", DeductedAmount: "100", Reason: "offline",
		Slasher: "admin", EventTime: now, Height: 5, Executed: true,
	}))
	assert.Nil(t, store.InsertRewardDistribution(&storage.RewardDistributionRecord{
		DistributionId: 0, TotalRewards: "1000", OperatorRewards: "100",
		DelegatorRewards: "900", Height: 6, EventTime: now,
	}, []*storage.RewardShareRecord{
		{DistributionId: 0, Account: "0xaa", Amount: "100"},
		{DistributionId: 0, Account: "0xaa/0xd1", Amount: "900"},
	}))
	assert.Nil(t, store.UpsertTask(&storage.TaskRecord{
		TaskId: 0, Requester: "0xreq", MinValue: "1", MaxValue: "100", Count: 5,
		Fee: "5", Seed: "abcd", Status: "completed", CreatedAt: now,
		CreatedAtHeight: 2, UpdatedAt: now,
	}))
	assert.Nil(t, store.UpsertTask(&storage.TaskRecord{
		TaskId: 1, Requester: "0xreq", MinValue: "1", MaxValue: "100", Count: 1,
		Fee: "5", Seed: "ef01", Status: "pending", CreatedAt: now,
		CreatedAtHeight: 3, UpdatedAt: now,
	}))

	t.Run("operator summary joins history and derives the success rate", func(t *testing.T) {
		summary, err := pds.GetOperatorSummary(ctx, "0xAA")
		assert.Nil(t, err)
		assert.Equal(t, "0xaa", summary.Operator.Address)
		assert.Equal(t, 1, len(summary.Delegators))
		assert.Equal(t, 1, len(summary.SlashingEvents))
		assert.Equal(t, "0.7500", summary.SuccessRate)
	})

	t.Run("an operator with no activity has no success rate", func(t *testing.T) {
		summary, err := pds.GetOperatorSummary(ctx, "0xbb")
		assert.Nil(t, err)
		assert.Equal(t, "", summary.SuccessRate)
	})

	t.Run("distribution details include the share breakdown", func(t *testing.T) {
		details, err := pds.GetDistributionDetails(ctx, 0)
		assert.Nil(t, err)
		assert.Equal(t, "1000", details.Distribution.TotalRewards)
		assert.Equal(t, 2, len(details.Shares))

		_, err = pds.GetDistributionDetails(ctx, 9)
		assert.NotNil(t, err)
	})

	t.Run("pool overview aggregates across operators and tasks", func(t *testing.T) {
		overview, err := pds.GetPoolOverview(ctx)
		assert.Nil(t, err)
		assert.Equal(t, 2, overview.OperatorCount)
		assert.Equal(t, 1, overview.ActiveOperatorCount)
		assert.Equal(t, "1600", overview.TotalStaked)
		assert.Equal(t, "100", overview.TotalSlashed)
		assert.Equal(t, 1, overview.PendingTaskCount)
		assert.Equal(t, 1, overview.CompletedTaskCount)
		assert.Equal(t, 0, overview.FailedTaskCount)
	})
}
