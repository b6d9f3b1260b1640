package ledger

import (
	"context"
	"math/big"
	"strings"

	"github.com/entropy-labs/rngpool/internal/types/numbers"
	"github.com/entropy-labs/rngpool/pkg/eventBus/eventBusTypes"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DistributeRewards splits totalAmount evenly across the active operator set
// and credits every share as additional stake. Each operator's slice is first
// cut by the commission rate in its favor, then the remainder goes to its
// delegators proportionally to their stake before this distribution. An
// operator with no delegators keeps only its self-stake cut of the remainder;
// the rest of that slice is dust and stays with the distributor's payment.
//
// Every division floors, so the amount credited can undershoot totalAmount.
// The returned record's Shares map holds the exact per-participant credits.
func (l *Ledger) DistributeRewards(ctx context.Context, totalAmount *big.Int, distributor string) (*RewardDistribution, error) {
	distributor = strings.ToLower(distributor)

	l.mu.Lock()
	defer l.mu.Unlock()

	if totalAmount == nil || totalAmount.Sign() == 0 {
		return nil, errors.Wrap(ErrNoRewards, "distribution amount is zero")
	}
	if totalAmount.Sign() < 0 {
		return nil, errors.Wrapf(ErrInvalidAmount, "distribution amount %s", totalAmount.String())
	}
	activeCount := l.activeOperators.Len()
	if activeCount == 0 {
		return nil, errors.Wrap(ErrNoOperators, "no active operators to reward")
	}

	if err := l.collateral.TransferFrom(ctx, distributor, l.params.Address, totalAmount); err != nil {
		return nil, errors.Wrapf(err, "failed to collect rewards from %s", distributor)
	}

	height := l.height.Advance()
	baseShare := new(big.Int).Div(totalAmount, big.NewInt(int64(activeCount)))

	shares := make(map[string]*big.Int)
	operatorTotal := numbers.Zero()
	delegatorTotal := numbers.Zero()
	credited := numbers.Zero()
	touchedOps := make([]*Operator, 0, activeCount)
	touchedDels := make([]*Delegator, 0)

	for pair := l.activeOperators.Oldest(); pair != nil; pair = pair.Next() {
		op := pair.Value

		operatorReward := numbers.CommissionAmount(baseShare, l.params.CommissionBps)
		delegatorReward := new(big.Int).Sub(baseShare, operatorReward)

		// Delegator splits are computed against stakes as they stood before
		// this distribution, so credit order cannot skew the shares.
		denominator := op.delegatorStakeTotal()
		type delCut struct {
			d   *Delegator
			cut *big.Int
		}
		cuts := make([]delCut, 0, op.delegators.Len())
		if delegatorReward.Sign() > 0 && denominator.Sign() > 0 {
			for dp := op.delegators.Oldest(); dp != nil; dp = dp.Next() {
				d := dp.Value
				if !d.IsActive || d.StakedAmount.Sign() == 0 {
					continue
				}
				cut := numbers.ProportionalShare(delegatorReward, d.StakedAmount, denominator)
				if cut.Sign() == 0 {
					continue
				}
				cuts = append(cuts, delCut{d: d, cut: cut})
			}
		}

		if operatorReward.Sign() > 0 {
			op.SelfStake.Add(op.SelfStake, operatorReward)
			op.TotalStake.Add(op.TotalStake, operatorReward)
			shares[op.Address] = numbers.Clone(operatorReward)
			operatorTotal.Add(operatorTotal, operatorReward)
			credited.Add(credited, operatorReward)
		}
		for _, c := range cuts {
			c.d.StakedAmount.Add(c.d.StakedAmount, c.cut)
			c.d.Shares.Add(c.d.Shares, c.cut)
			op.TotalStake.Add(op.TotalStake, c.cut)
			shares[op.Address+"/"+c.d.Address] = numbers.Clone(c.cut)
			delegatorTotal.Add(delegatorTotal, c.cut)
			credited.Add(credited, c.cut)
			touchedDels = append(touchedDels, c.d.clone())
		}
		touchedOps = append(touchedOps, op.clone())
	}

	l.totalStaked.Add(l.totalStaked, credited)

	record := &RewardDistribution{
		Id:               uint64(len(l.distributions)),
		TotalRewards:     numbers.Clone(totalAmount),
		OperatorRewards:  operatorTotal,
		DelegatorRewards: delegatorTotal,
		Height:           height,
		Timestamp:        l.clock.Now(),
		Shares:           shares,
	}
	l.distributions = append(l.distributions, record)

	l.logger.Sugar().Infow("Distributed rewards",
		zap.String("totalAmount", totalAmount.String()),
		zap.String("credited", credited.String()),
		zap.Int("activeOperators", activeCount),
		zap.Uint64("distributionId", record.Id),
	)
	l.publish(eventBusTypes.Event_RewardsDistributed, &StateDelta{
		Operators:    touchedOps,
		Delegators:   touchedDels,
		Distribution: record.clone(),
		TotalStaked:  numbers.Clone(l.totalStaked),
		Height:       height,
	})
	return record.clone(), nil
}
