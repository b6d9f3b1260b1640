package ledger

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/entropy-labs/rngpool/internal/clock"
	"github.com/entropy-labs/rngpool/internal/config"
	"github.com/entropy-labs/rngpool/internal/logger"
	"github.com/entropy-labs/rngpool/pkg/collateral"
	"github.com/stretchr/testify/assert"
)

func testPoolConfig() *config.PoolConfig {
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

func setup(cfg *config.PoolConfig) (*Ledger, *collateral.InMemoryCollateral) {
	cc := collateral.NewInMemoryCollateral(cfg.Address)
	l := NewLedger(cfg, cc, clock.NewSystemClock(), clock.NewHeight(), nil, logger.NewNoopLogger())
	return l, cc
}

// assertStakeInvariant checks TotalStake == SelfStake + sum of delegator
// stakes for one operator.
func assertStakeInvariant(t *testing.T, l *Ledger, operatorId string) {
	t.Helper()
	op, err := l.GetOperator(operatorId)
	assert.Nil(t, err)
	dels, err := l.ListDelegators(operatorId)
	assert.Nil(t, err)
	sum := new(big.Int).Set(op.SelfStake)
	for _, d := range dels {
		sum.Add(sum, d.StakedAmount)
	}
	assert.Equal(t, 0, op.TotalStake.Cmp(sum),
		"operator %s: total stake %s != self %s + delegations", operatorId, op.TotalStake, op.SelfStake)
}

func Test_RegisterOperator(t *testing.T) {
	ctx := context.Background()

	t.Run("registers an operator and locks its stake", func(t *testing.T) {
		l, cc := setup(testPoolConfig())
		cc.Mint("0xAA", big.NewInt(1000))

		err := l.RegisterOperator(ctx, "0xAA", big.NewInt(200))
		assert.Nil(t, err)

		op, err := l.GetOperator("0xaa")
		assert.Nil(t, err)
		assert.Equal(t, "0xaa", op.Address)
		assert.Equal(t, int64(200), op.SelfStake.Int64())
		assert.Equal(t, int64(200), op.TotalStake.Int64())
		assert.True(t, op.IsActive)
		assert.Equal(t, OperatorStatus_Registered, op.Status)

		bal, err := cc.BalanceOf(ctx, "0xaa")
		assert.Nil(t, err)
		assert.Equal(t, int64(800), bal.Int64())
		assert.Equal(t, int64(200), l.TotalStaked().Int64())
		assert.Equal(t, 1, l.ActiveOperatorCount())
	})

	t.Run("rejects a duplicate registration", func(t *testing.T) {
		l, cc := setup(testPoolConfig())
		cc.Mint("0xaa", big.NewInt(1000))

		assert.Nil(t, l.RegisterOperator(ctx, "0xaa", big.NewInt(200)))
		err := l.RegisterOperator(ctx, "0xAA", big.NewInt(300))
		assert.True(t, errors.Is(err, ErrAlreadyRegistered))
	})

	t.Run("rejects stake below the minimum", func(t *testing.T) {
		l, cc := setup(testPoolConfig())
		cc.Mint("0xaa", big.NewInt(1000))

		err := l.RegisterOperator(ctx, "0xaa", big.NewInt(99))
		assert.True(t, errors.Is(err, ErrInsufficientStake))
		assert.Equal(t, int64(0), l.TotalStaked().Int64())
		_, err = l.GetOperator("0xaa")
		assert.True(t, errors.Is(err, ErrUnknownOperator))
	})

	t.Run("enforces the active operator capacity", func(t *testing.T) {
		cfg := testPoolConfig()
		cfg.MaxOperators = 1
		l, cc := setup(cfg)
		cc.Mint("0xaa", big.NewInt(1000))
		cc.Mint("0xbb", big.NewInt(1000))

		assert.Nil(t, l.RegisterOperator(ctx, "0xaa", big.NewInt(200)))
		err := l.RegisterOperator(ctx, "0xbb", big.NewInt(200))
		assert.True(t, errors.Is(err, ErrCapacityExceeded))
	})

	t.Run("rejects registration without collateral", func(t *testing.T) {
		l, _ := setup(testPoolConfig())

		err := l.RegisterOperator(ctx, "0xaa", big.NewInt(200))
		assert.True(t, errors.Is(err, collateral.ErrInsufficientBalance))
		_, err = l.GetOperator("0xaa")
		assert.True(t, errors.Is(err, ErrUnknownOperator))
	})
}

func Test_Delegation(t *testing.T) {
	ctx := context.Background()

	newRegistered := func(t *testing.T) (*Ledger, *collateral.InMemoryCollateral) {
		l, cc := setup(testPoolConfig())
		cc.Mint("0xaa", big.NewInt(1000))
		cc.Mint("0xd1", big.NewInt(1000))
		assert.Nil(t, l.RegisterOperator(ctx, "0xaa", big.NewInt(200)))
		return l, cc
	}

	t.Run("delegates stake to an operator", func(t *testing.T) {
		l, cc := newRegistered(t)

		err := l.Delegate(ctx, "0xaa", "0xD1", big.NewInt(50))
		assert.Nil(t, err)

		d, err := l.GetDelegator("0xaa", "0xd1")
		assert.Nil(t, err)
		assert.Equal(t, int64(50), d.StakedAmount.Int64())
		assert.Equal(t, int64(50), d.Shares.Int64())
		assert.True(t, d.IsActive)

		op, _ := l.GetOperator("0xaa")
		assert.Equal(t, int64(250), op.TotalStake.Int64())
		assert.Equal(t, int64(200), op.SelfStake.Int64())
		assert.Equal(t, int64(250), l.TotalStaked().Int64())

		bal, _ := cc.BalanceOf(ctx, "0xd1")
		assert.Equal(t, int64(950), bal.Int64())
		assertStakeInvariant(t, l, "0xaa")
	})

	t.Run("accumulates repeat delegations on one record", func(t *testing.T) {
		l, _ := newRegistered(t)

		assert.Nil(t, l.Delegate(ctx, "0xaa", "0xd1", big.NewInt(50)))
		assert.Nil(t, l.Delegate(ctx, "0xaa", "0xd1", big.NewInt(30)))

		d, err := l.GetDelegator("0xaa", "0xd1")
		assert.Nil(t, err)
		assert.Equal(t, int64(80), d.StakedAmount.Int64())
		dels, _ := l.ListDelegators("0xaa")
		assert.Equal(t, 1, len(dels))
	})

	t.Run("rejects delegation below the minimum", func(t *testing.T) {
		l, _ := newRegistered(t)

		err := l.Delegate(ctx, "0xaa", "0xd1", big.NewInt(9))
		assert.True(t, errors.Is(err, ErrInsufficientStake))
	})

	t.Run("rejects delegation to an unknown operator", func(t *testing.T) {
		l, _ := newRegistered(t)

		err := l.Delegate(ctx, "0xbb", "0xd1", big.NewInt(50))
		assert.True(t, errors.Is(err, ErrUnknownOperator))
	})

	t.Run("rejects delegation to an inactive operator", func(t *testing.T) {
		l, _ := newRegistered(t)
		assert.Nil(t, l.PauseOperator("0xaa"))

		err := l.Delegate(ctx, "0xaa", "0xd1", big.NewInt(50))
		assert.True(t, errors.Is(err, ErrOperatorInactive))
	})

	t.Run("undelegates part of a stake", func(t *testing.T) {
		l, cc := newRegistered(t)
		assert.Nil(t, l.Delegate(ctx, "0xaa", "0xd1", big.NewInt(50)))

		err := l.Undelegate(ctx, "0xaa", "0xd1", big.NewInt(20))
		assert.Nil(t, err)

		d, _ := l.GetDelegator("0xaa", "0xd1")
		assert.Equal(t, int64(30), d.StakedAmount.Int64())
		assert.True(t, d.IsActive)

		bal, _ := cc.BalanceOf(ctx, "0xd1")
		assert.Equal(t, int64(970), bal.Int64())
		assert.Equal(t, int64(230), l.TotalStaked().Int64())
		assertStakeInvariant(t, l, "0xaa")
	})

	t.Run("full withdrawal deactivates the delegation", func(t *testing.T) {
		l, cc := newRegistered(t)
		assert.Nil(t, l.Delegate(ctx, "0xaa", "0xd1", big.NewInt(50)))
		assert.Nil(t, l.Undelegate(ctx, "0xaa", "0xd1", big.NewInt(50)))

		d, _ := l.GetDelegator("0xaa", "0xd1")
		assert.False(t, d.IsActive)
		assert.Equal(t, int64(0), d.StakedAmount.Int64())

		// Round trip is exact.
		bal, _ := cc.BalanceOf(ctx, "0xd1")
		assert.Equal(t, int64(1000), bal.Int64())

		// A deactivated delegation cannot be drawn from again.
		err := l.Undelegate(ctx, "0xaa", "0xd1", big.NewInt(1))
		assert.True(t, errors.Is(err, ErrNoActiveDelegation))
	})

	t.Run("rejects withdrawal beyond the staked amount", func(t *testing.T) {
		l, _ := newRegistered(t)
		assert.Nil(t, l.Delegate(ctx, "0xaa", "0xd1", big.NewInt(50)))

		err := l.Undelegate(ctx, "0xaa", "0xd1", big.NewInt(51))
		assert.True(t, errors.Is(err, ErrInsufficientDelegatedStake))

		d, _ := l.GetDelegator("0xaa", "0xd1")
		assert.Equal(t, int64(50), d.StakedAmount.Int64())
	})
}

func Test_Deregister(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the self stake and deactivates the operator", func(t *testing.T) {
		l, cc := setup(testPoolConfig())
		cc.Mint("0xaa", big.NewInt(1000))
		cc.Mint("0xd1", big.NewInt(1000))
		assert.Nil(t, l.RegisterOperator(ctx, "0xaa", big.NewInt(200)))
		assert.Nil(t, l.Delegate(ctx, "0xaa", "0xd1", big.NewInt(50)))

		err := l.Deregister(ctx, "0xaa")
		assert.Nil(t, err)

		op, _ := l.GetOperator("0xaa")
		assert.False(t, op.IsActive)
		assert.Equal(t, OperatorStatus_Inactive, op.Status)
		assert.Equal(t, int64(0), op.SelfStake.Int64())
		assert.Equal(t, int64(50), op.TotalStake.Int64())
		assert.Equal(t, 0, l.ActiveOperatorCount())

		bal, _ := cc.BalanceOf(ctx, "0xaa")
		assert.Equal(t, int64(1000), bal.Int64())

		// The remaining delegation is still withdrawable.
		assert.Nil(t, l.Undelegate(ctx, "0xaa", "0xd1", big.NewInt(50)))
		assert.Equal(t, int64(0), l.TotalStaked().Int64())
	})

	t.Run("rejects deregistering an unknown operator", func(t *testing.T) {
		l, _ := setup(testPoolConfig())
		err := l.Deregister(ctx, "0xaa")
		assert.True(t, errors.Is(err, ErrUnknownOperator))
	})

	t.Run("rejects deregistering twice", func(t *testing.T) {
		l, cc := setup(testPoolConfig())
		cc.Mint("0xaa", big.NewInt(1000))
		assert.Nil(t, l.RegisterOperator(ctx, "0xaa", big.NewInt(200)))
		assert.Nil(t, l.Deregister(ctx, "0xaa"))

		err := l.Deregister(ctx, "0xaa")
		assert.True(t, errors.Is(err, ErrOperatorNotActive))
	})

	t.Run("rejects deregistering a slashed operator", func(t *testing.T) {
		l, cc := setup(testPoolConfig())
		cc.Mint("0xaa", big.NewInt(1000))
		assert.Nil(t, l.RegisterOperator(ctx, "0xaa", big.NewInt(100)))
		_, err := l.Slash(ctx, "0xaa", big.NewInt(50), "missed attestation", "admin")
		assert.Nil(t, err)

		err = l.Deregister(ctx, "0xaa")
		assert.True(t, errors.Is(err, ErrCannotDeregisterWhileSlashed))
	})
}
