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

// Slash confiscates amount from an operator's stake for misbehavior. The cut
// lands on the operator's self stake first; whatever remains is spread across
// delegators proportionally to their stake, rounding each share down. The
// flooring dust stays with the delegators, so the amount actually deducted
// can be slightly below the requested amount; the returned event records
// both figures.
//
// If the self stake left after the cut falls below the registration minimum
// the operator is deactivated with status slashed, which blocks deregistration
// until an administrator resolves it.
func (l *Ledger) Slash(ctx context.Context, operatorId string, amount *big.Int, reason string, slasher string) (*SlashingEvent, error) {
	operatorId = strings.ToLower(operatorId)
	slasher = strings.ToLower(slasher)

	l.mu.Lock()
	defer l.mu.Unlock()

	op, ok := l.operators[operatorId]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownOperator, "operator %s", operatorId)
	}
	if !op.IsActive {
		return nil, errors.Wrapf(ErrOperatorNotActive, "operator %s", operatorId)
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errors.Wrapf(ErrInvalidAmount, "slash of operator %s", operatorId)
	}
	if amount.Cmp(op.TotalStake) > 0 {
		return nil, errors.Wrapf(ErrSlashExceedsStake, "requested %s, total stake %s",
			amount.String(), op.TotalStake.String())
	}

	operatorPortion := numbers.Clone(amount)
	if operatorPortion.Cmp(op.SelfStake) > 0 {
		operatorPortion.Set(op.SelfStake)
	}
	delegatorPortion := new(big.Int).Sub(amount, operatorPortion)

	height := l.height.Advance()
	deducted := numbers.Clone(operatorPortion)
	op.SelfStake.Sub(op.SelfStake, operatorPortion)
	op.TotalStake.Sub(op.TotalStake, operatorPortion)

	touched := make([]*Delegator, 0)
	if delegatorPortion.Sign() > 0 {
		// Snapshot the denominator before any delegator balance moves so
		// every share is computed against the same pre-slash total.
		denominator := op.delegatorStakeTotal()
		for pair := op.delegators.Oldest(); pair != nil; pair = pair.Next() {
			d := pair.Value
			if !d.IsActive || d.StakedAmount.Sign() == 0 {
				continue
			}
			cut := numbers.ProportionalShare(delegatorPortion, d.StakedAmount, denominator)
			if cut.Sign() == 0 {
				continue
			}
			d.StakedAmount.Sub(d.StakedAmount, cut)
			d.Shares.Sub(d.Shares, cut)
			op.TotalStake.Sub(op.TotalStake, cut)
			deducted.Add(deducted, cut)
			if d.StakedAmount.Sign() == 0 {
				d.IsActive = false
			}
			touched = append(touched, d.clone())
		}
	}

	op.SlashCount++
	op.TotalSlashedAmount.Add(op.TotalSlashedAmount, amount)
	l.totalStaked.Sub(l.totalStaked, deducted)

	if op.SelfStake.Cmp(l.params.MinOperatorStake) < 0 {
		op.IsActive = false
		op.Status = OperatorStatus_Slashed
		l.activeOperators.Delete(operatorId)
	}

	event := &SlashingEvent{
		Id:               uint64(len(l.slashingEvents)),
		Operator:         operatorId,
		Amount:           numbers.Clone(amount),
		OperatorPortion:  operatorPortion,
		DelegatorPortion: delegatorPortion,
		DeductedAmount:   deducted,
		Reason:           reason,
		Slasher:          slasher,
		Timestamp:        l.clock.Now(),
		Height:           height,
		Executed:         true,
	}
	l.slashingEvents = append(l.slashingEvents, event)

	l.logger.Sugar().Infow("Slashed operator",
		zap.String("operator", operatorId),
		zap.String("amount", amount.String()),
		zap.String("deducted", deducted.String()),
		zap.String("delegatorShare", numbers.PercentOfTotal(delegatorPortion, amount)),
		zap.String("reason", reason),
		zap.Uint64("slashingEventId", event.Id),
	)
	l.publish(eventBusTypes.Event_OperatorSlashed, &StateDelta{
		Operators:     []*Operator{op.clone()},
		Delegators:    touched,
		SlashingEvent: event.clone(),
		TotalStaked:   numbers.Clone(l.totalStaked),
		Height:        height,
	})
	return event.clone(), nil
}
