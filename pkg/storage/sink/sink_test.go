package sink

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/entropy-labs/rngpool/internal/clock"
	"github.com/entropy-labs/rngpool/internal/tests"
	"github.com/entropy-labs/rngpool/pkg/collateral"
	"github.com/entropy-labs/rngpool/pkg/eventBus"
	"github.com/entropy-labs/rngpool/pkg/ledger"
	"github.com/entropy-labs/rngpool/pkg/storage/poolStore"
	"github.com/entropy-labs/rngpool/pkg/tasks"
	"github.com/stretchr/testify/assert"
)

func Test_StorageSink(t *testing.T) {
	ctx := context.Background()
	cfg := tests.GetTestPoolConfig()
	l := tests.GetTestLogger()

	db, err := tests.GetSqliteDatabaseConnection("sink_test", l)
	assert.Nil(t, err)
	store := poolStore.NewGormPoolStore(db, l)

	bus := eventBus.NewEventBus(l)
	snk := NewStorageSink(store, bus, l)
	snk.Start(ctx)
	defer snk.Close()

	clk := clock.NewFakeClock(time.Unix(1700000000, 0))
	height := clock.NewHeight()
	cc := collateral.NewInMemoryCollateral(cfg.Address)
	led := ledger.NewLedger(cfg, cc, clk, height, bus, l)
	tm := tasks.NewTaskManager(cfg, led, cc, clk, height, bus, l)

	cc.Mint("0xaa", big.NewInt(10000))
	cc.Mint("0xd1", big.NewInt(10000))
	cc.Mint("0xreq", big.NewInt(10000))
	cc.Mint("treasury", big.NewInt(10000))
	tm.AuthorizeRequester("0xreq")

	t.Run("ledger mutations flow into the audit store", func(t *testing.T) {
		assert.Nil(t, led.RegisterOperator(ctx, "0xaa", big.NewInt(1000)))
		assert.Nil(t, led.Delegate(ctx, "0xaa", "0xd1", big.NewInt(500)))
		_, err := led.Slash(ctx, "0xaa", big.NewInt(100), "offline", "admin")
		assert.Nil(t, err)
		_, err = led.DistributeRewards(ctx, big.NewInt(1000), "treasury")
		assert.Nil(t, err)

		assert.Eventually(t, func() bool {
			op, err := store.GetOperator("0xaa")
			if err != nil {
				return false
			}
			dels, err := store.ListDelegators("0xaa")
			if err != nil || len(dels) != 1 {
				return false
			}
			events, err := store.ListSlashingEventsForOperator("0xaa")
			if err != nil || len(events) != 1 {
				return false
			}
			dists, err := store.ListRewardDistributions()
			if err != nil || len(dists) != 1 {
				return false
			}
			return op.SlashCount == 1
		}, 5*time.Second, 10*time.Millisecond)

		op, err := store.GetOperator("0xaa")
		assert.Nil(t, err)
		// 1000 - 100 slashed + 100 commission on the 1000 distribution.
		assert.Equal(t, "1000", op.SelfStake)
		assert.Equal(t, "100", op.TotalSlashedAmount)

		shares, err := store.ListRewardShares(0)
		assert.Nil(t, err)
		assert.Equal(t, 2, len(shares))
	})

	t.Run("task lifecycle flows into the task log", func(t *testing.T) {
		task, err := tm.CreateTask(ctx, "0xreq", big.NewInt(1), big.NewInt(100), 3, "", big.NewInt(5))
		assert.Nil(t, err)
		_, err = tm.SubmitResult(ctx, "0xaa", task.TaskId,
			[]*big.Int{big.NewInt(10), big.NewInt(20), big.NewInt(30)},
			[]byte{0xde, 0xad}, []string{"0xaa"})
		assert.Nil(t, err)

		assert.Eventually(t, func() bool {
			record, err := store.GetTask(task.TaskId)
			if err != nil {
				return false
			}
			if record.Status != string(tasks.TaskStatus_Completed) {
				return false
			}
			_, err = store.GetTaskResult(task.TaskId)
			return err == nil
		}, 5*time.Second, 10*time.Millisecond)

		result, err := store.GetTaskResult(task.TaskId)
		assert.Nil(t, err)
		assert.Equal(t, "0xaa", result.Operator)
		assert.Equal(t, `["10","20","30"]`, result.Values)
		assert.Equal(t, "dead", result.AggregatedSignature)
		assert.True(t, result.Verified)
	})
}
