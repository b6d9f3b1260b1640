package ledger

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Registry(t *testing.T) {
	ctx := context.Background()

	newRegistered := func(t *testing.T) *Ledger {
		l, cc := setup(testPoolConfig())
		cc.Mint("0xaa", big.NewInt(10000))
		assert.Nil(t, l.RegisterOperator(ctx, "0xaa", big.NewInt(1000)))
		return l
	}

	t.Run("records activity and promotes a fresh operator to active", func(t *testing.T) {
		l := newRegistered(t)

		op, _ := l.GetOperator("0xaa")
		assert.Equal(t, OperatorStatus_Registered, op.Status)
		before := op.LastActivityHeight

		assert.Nil(t, l.RecordActivity("0xaa", true))
		assert.Nil(t, l.RecordActivity("0xaa", false))

		op, _ = l.GetOperator("0xaa")
		assert.Equal(t, OperatorStatus_Active, op.Status)
		assert.Equal(t, uint64(2), op.TaskCount)
		assert.Equal(t, uint64(1), op.SuccessfulTaskCount)
		assert.True(t, op.LastActivityHeight > before)

		err := l.RecordActivity("0xbb", true)
		assert.True(t, errors.Is(err, ErrUnknownOperator))
	})

	t.Run("pause removes the operator from the working set", func(t *testing.T) {
		l := newRegistered(t)

		assert.Nil(t, l.PauseOperator("0xaa"))
		assert.False(t, l.IsActiveOperator("0xaa"))
		assert.Equal(t, 0, l.ActiveOperatorCount())

		op, _ := l.GetOperator("0xaa")
		assert.Equal(t, OperatorStatus_Inactive, op.Status)
		assert.Equal(t, int64(1000), op.SelfStake.Int64())

		assert.True(t, errors.Is(l.PauseOperator("0xaa"), ErrOperatorNotActive))
	})

	t.Run("unpause restores eligibility", func(t *testing.T) {
		l := newRegistered(t)
		assert.Nil(t, l.PauseOperator("0xaa"))

		assert.Nil(t, l.UnpauseOperator("0xaa"))
		assert.True(t, l.IsActiveOperator("0xaa"))
		op, _ := l.GetOperator("0xaa")
		assert.Equal(t, OperatorStatus_Active, op.Status)

		assert.True(t, errors.Is(l.UnpauseOperator("0xaa"), ErrOperatorAlreadyActive))
	})

	t.Run("unpause is held to the registration minimum", func(t *testing.T) {
		l := newRegistered(t)

		// Slash down to the exact minimum, then pause and unpause.
		_, err := l.Slash(ctx, "0xaa", big.NewInt(900), "offline", "admin")
		assert.Nil(t, err)
		assert.Nil(t, l.PauseOperator("0xaa"))
		assert.Nil(t, l.UnpauseOperator("0xaa"))

		// A slashed-below-minimum operator never reaches the paused state,
		// so it cannot unpause.
		_, err = l.Slash(ctx, "0xaa", big.NewInt(50), "offline", "admin")
		assert.Nil(t, err)
		assert.True(t, errors.Is(l.UnpauseOperator("0xaa"), ErrOperatorNotPaused))
	})

	t.Run("unpause respects the capacity limit", func(t *testing.T) {
		cfg := testPoolConfig()
		cfg.MaxOperators = 1
		l, cc := setup(cfg)
		cc.Mint("0xaa", big.NewInt(10000))
		cc.Mint("0xbb", big.NewInt(10000))
		assert.Nil(t, l.RegisterOperator(ctx, "0xaa", big.NewInt(1000)))
		assert.Nil(t, l.PauseOperator("0xaa"))
		assert.Nil(t, l.RegisterOperator(ctx, "0xbb", big.NewInt(1000)))

		assert.True(t, errors.Is(l.UnpauseOperator("0xaa"), ErrCapacityExceeded))
	})
}
