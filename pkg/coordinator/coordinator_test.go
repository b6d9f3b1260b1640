package coordinator

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/entropy-labs/rngpool/internal/clock"
	"github.com/entropy-labs/rngpool/internal/config"
	"github.com/entropy-labs/rngpool/internal/metrics"
	"github.com/entropy-labs/rngpool/internal/tests"
	"github.com/entropy-labs/rngpool/pkg/collateral"
	"github.com/entropy-labs/rngpool/pkg/ledger"
	"github.com/entropy-labs/rngpool/pkg/tasks"
	"github.com/stretchr/testify/assert"
)

type fixture struct {
	coordinator *Coordinator
	collateral  *collateral.InMemoryCollateral
	clock       *clock.FakeClock
}

func setup(t *testing.T) *fixture {
	t.Helper()
	l := tests.GetTestLogger()
	poolCfg := tests.GetTestPoolConfig()
	gCfg := &config.Config{PoolConfig: *poolCfg}

	clk := clock.NewFakeClock(time.Unix(1700000000, 0))
	height := clock.NewHeight()
	cc := collateral.NewInMemoryCollateral(poolCfg.Address)
	led := ledger.NewLedger(poolCfg, cc, clk, height, nil, l)
	tm := tasks.NewTaskManager(poolCfg, led, cc, clk, height, nil, l)

	c := NewCoordinator(gCfg, led, tm, &metrics.NoopMetricsClient{}, l)
	c.Start(context.Background())
	t.Cleanup(c.Shutdown)

	cc.Mint("0xop1", big.NewInt(10000))
	cc.Mint("0xop2", big.NewInt(10000))
	cc.Mint("0xd1", big.NewInt(10000))
	cc.Mint("0xreq", big.NewInt(10000))
	cc.Mint("treasury", big.NewInt(10000))

	return &fixture{coordinator: c, collateral: cc, clock: clk}
}

func Test_Coordinator(t *testing.T) {
	ctx := context.Background()

	t.Run("full pool lifecycle", func(t *testing.T) {
		f := setup(t)
		c := f.coordinator

		assert.Nil(t, c.RegisterOperator(ctx, "0xop1", big.NewInt(1000)))
		assert.Nil(t, c.RegisterOperator(ctx, "0xop2", big.NewInt(1000)))
		assert.Nil(t, c.Delegate(ctx, "0xop1", "0xd1", big.NewInt(500)))
		assert.Nil(t, c.AuthorizeRequester("admin", "0xreq"))

		task, err := c.CreateTask(ctx, "0xreq", big.NewInt(1), big.NewInt(100), 5, "cb://target", big.NewInt(5))
		assert.Nil(t, err)
		assert.Equal(t, uint64(0), task.TaskId)

		values := []*big.Int{
			big.NewInt(10), big.NewInt(20), big.NewInt(30), big.NewInt(40), big.NewInt(50),
		}
		result, err := c.SubmitResult(ctx, "0xop1", task.TaskId, values, []byte("sig"), []string{"0xop1", "0xop2"})
		assert.Nil(t, err)
		assert.True(t, result.Verified)

		ok, err := c.Tasks.VerifyResult(task.TaskId, values, []byte("sig"))
		assert.Nil(t, err)
		assert.True(t, ok)

		event, err := c.Slash(ctx, "admin", "0xop1", big.NewInt(100), "missed attestation")
		assert.Nil(t, err)
		assert.Equal(t, "100", event.DeductedAmount.String())

		record, err := c.DistributeRewards(ctx, "treasury", big.NewInt(1000))
		assert.Nil(t, err)
		assert.Equal(t, int64(1000), record.TotalRewards.Int64())

		op, err := c.Ledger.GetOperator("0xop1")
		assert.Nil(t, err)
		// 1000 - 100 slashed + 50 commission on a 500 slice.
		assert.Equal(t, int64(950), op.SelfStake.Int64())
		assert.Equal(t, uint64(1), op.SuccessfulTaskCount)

		assert.Nil(t, c.Undelegate(ctx, "0xop1", "0xd1", big.NewInt(200)))
		assert.Nil(t, c.DeregisterOperator(ctx, "0xop2"))
		assert.Equal(t, 1, c.Ledger.ActiveOperatorCount())
	})

	t.Run("admin gating", func(t *testing.T) {
		f := setup(t)
		c := f.coordinator
		assert.Nil(t, c.RegisterOperator(ctx, "0xop1", big.NewInt(1000)))

		_, err := c.Slash(ctx, "0xop2", "0xop1", big.NewInt(100), "nope")
		assert.True(t, errors.Is(err, ErrNotAdmin))
		assert.True(t, errors.Is(c.AuthorizeRequester("0xop2", "0xreq"), ErrNotAdmin))
		assert.True(t, errors.Is(c.RevokeRequester("0xop2", "0xreq"), ErrNotAdmin))
		assert.True(t, errors.Is(c.UpdateParameters("0xop2", tests.GetTestPoolConfig()), ErrNotAdmin))

		// An operator can pause itself but not others.
		assert.Nil(t, c.PauseOperator(ctx, "0xop1", "0xop1"))
		assert.Nil(t, c.UnpauseOperator(ctx, "admin", "0xop1"))
		assert.True(t, errors.Is(c.PauseOperator(ctx, "0xd1", "0xop1"), ErrNotAdmin))
	})

	t.Run("ledger errors surface through the queue", func(t *testing.T) {
		f := setup(t)
		c := f.coordinator

		err := c.RegisterOperator(ctx, "0xop1", big.NewInt(50))
		assert.True(t, errors.Is(err, ledger.ErrInsufficientStake))

		assert.Nil(t, c.RegisterOperator(ctx, "0xop1", big.NewInt(1000)))
		err = c.RegisterOperator(ctx, "0xop1", big.NewInt(1000))
		assert.True(t, errors.Is(err, ledger.ErrAlreadyRegistered))

		_, err = c.CreateTask(ctx, "0xreq", big.NewInt(1), big.NewInt(100), 1, "", big.NewInt(5))
		assert.True(t, errors.Is(err, tasks.ErrUnauthorized))
	})

	t.Run("parameter updates apply to subsequent operations", func(t *testing.T) {
		f := setup(t)
		c := f.coordinator
		assert.Nil(t, c.RegisterOperator(ctx, "0xop1", big.NewInt(200)))

		updated := tests.GetTestPoolConfig()
		updated.MinOperatorStake = big.NewInt(5000)
		assert.Nil(t, c.UpdateParameters("admin", updated))

		err := c.RegisterOperator(ctx, "0xop2", big.NewInt(1000))
		assert.True(t, errors.Is(err, ledger.ErrInsufficientStake))

		// The existing operator keeps its position.
		op, err := c.Ledger.GetOperator("0xop1")
		assert.Nil(t, err)
		assert.True(t, op.IsActive)
	})

	t.Run("expired tasks are reaped on demand", func(t *testing.T) {
		f := setup(t)
		c := f.coordinator
		assert.Nil(t, c.RegisterOperator(ctx, "0xop1", big.NewInt(1000)))
		assert.Nil(t, c.AuthorizeRequester("admin", "0xreq"))

		task, err := c.CreateTask(ctx, "0xreq", big.NewInt(1), big.NewInt(100), 1, "", big.NewInt(5))
		assert.Nil(t, err)

		_, err = c.ReapExpiredTasks(ctx, "0xop1")
		assert.True(t, errors.Is(err, ErrNotAdmin))

		err = c.ReapTask(ctx, "admin", task.TaskId)
		assert.True(t, errors.Is(err, tasks.ErrTaskNotExpired))

		f.clock.Advance(2 * time.Minute)

		reaped, err := c.ReapExpiredTasks(ctx, "admin")
		assert.Nil(t, err)
		assert.Equal(t, []uint64{task.TaskId}, reaped)

		got, err := c.Tasks.GetTask(task.TaskId)
		assert.Nil(t, err)
		assert.Equal(t, tasks.TaskStatus_Failed, got.Status)
	})
}
