package numbers

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Zero returns a fresh zero-valued big.Int. Stake math never shares big.Int
// instances between records.
func Zero() *big.Int {
	return new(big.Int)
}

// Clone returns an independent copy of v, treating nil as zero.
func Clone(v *big.Int) *big.Int {
	if v == nil {
		return Zero()
	}
	return new(big.Int).Set(v)
}

// CheckedSub returns a − b, or an error if the result would be negative.
// Ledger balances are unsigned quantities; a negative intermediate means the
// enclosing operation is invalid and must not apply.
func CheckedSub(a, b *big.Int) (*big.Int, error) {
	if a.Cmp(b) < 0 {
		return nil, errors.Errorf("checked subtraction underflow: %s - %s", a.String(), b.String())
	}
	return new(big.Int).Sub(a, b), nil
}

// ProportionalShare computes floor(amount * portion / total). This is the
// single division rule used for both slashing and reward splits; the truncated
// remainder is the documented dust.
func ProportionalShare(amount, portion, total *big.Int) *big.Int {
	if total.Sign() == 0 || portion.Sign() == 0 || amount.Sign() == 0 {
		return Zero()
	}
	out := new(big.Int).Mul(amount, portion)
	return out.Div(out, total)
}

// CommissionAmount computes floor(amount * bps / 10000).
func CommissionAmount(amount *big.Int, bps uint64) *big.Int {
	if bps == 0 || amount.Sign() == 0 {
		return Zero()
	}
	out := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return out.Div(out, big.NewInt(10_000))
}

// StakeAsFloat converts a stake amount into a float64 suitable for metrics
// gauges. Precision loss is acceptable for reporting.
func StakeAsFloat(v *big.Int) float64 {
	d := decimal.NewFromBigInt(v, 0)
	f, _ := d.Float64()
	return f
}

// PercentOfTotal renders portion/total as a decimal percentage string for
// logging and reporting, e.g. "12.5".
func PercentOfTotal(portion, total *big.Int) string {
	if total.Sign() == 0 {
		return "0"
	}
	p := decimal.NewFromBigInt(portion, 0)
	t := decimal.NewFromBigInt(total, 0)
	return p.Div(t).Mul(decimal.NewFromInt(100)).Round(4).String()
}
