package numbers

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_CheckedSub(t *testing.T) {
	t.Run("Subtracts when the result is non-negative", func(t *testing.T) {
		out, err := CheckedSub(big.NewInt(100), big.NewInt(40))
		assert.Nil(t, err)
		assert.Equal(t, big.NewInt(60), out)

		out, err = CheckedSub(big.NewInt(40), big.NewInt(40))
		assert.Nil(t, err)
		assert.Equal(t, int64(0), out.Int64())
	})

	t.Run("Errors on underflow", func(t *testing.T) {
		_, err := CheckedSub(big.NewInt(40), big.NewInt(100))
		assert.NotNil(t, err)
	})
}

func Test_ProportionalShare(t *testing.T) {
	t.Run("Floors the quotient", func(t *testing.T) {
		// 100 * 1 / 3 = 33.33 -> 33
		out := ProportionalShare(big.NewInt(100), big.NewInt(1), big.NewInt(3))
		assert.Equal(t, big.NewInt(33), out)
	})

	t.Run("Zero total yields zero rather than dividing by zero", func(t *testing.T) {
		out := ProportionalShare(big.NewInt(100), big.NewInt(1), big.NewInt(0))
		assert.Equal(t, int64(0), out.Int64())
	})

	t.Run("Sum of shares never exceeds the amount", func(t *testing.T) {
		amount := big.NewInt(1000)
		portions := []*big.Int{big.NewInt(333), big.NewInt(333), big.NewInt(334)}
		total := big.NewInt(1000)

		sum := Zero()
		for _, p := range portions {
			sum.Add(sum, ProportionalShare(amount, p, total))
		}
		assert.True(t, sum.Cmp(amount) <= 0)
	})
}

func Test_CommissionAmount(t *testing.T) {
	// 1000 bps = 10%
	assert.Equal(t, big.NewInt(10), CommissionAmount(big.NewInt(100), 1000))
	assert.Equal(t, int64(0), CommissionAmount(big.NewInt(100), 0).Int64())
	// floor(33 * 1000 / 10000) = 3
	assert.Equal(t, big.NewInt(3), CommissionAmount(big.NewInt(33), 1000))
}

func Test_PercentOfTotal(t *testing.T) {
	assert.Equal(t, "12.5", PercentOfTotal(big.NewInt(125), big.NewInt(1000)))
	assert.Equal(t, "0", PercentOfTotal(big.NewInt(1), big.NewInt(0)))
}
