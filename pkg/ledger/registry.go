package ledger

import (
	"strings"

	"github.com/entropy-labs/rngpool/internal/types/numbers"
	"github.com/entropy-labs/rngpool/pkg/eventBus/eventBusTypes"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// IsActiveOperator reports whether an operator is currently eligible to
// fulfill tasks.
func (l *Ledger) IsActiveOperator(operatorId string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	op, ok := l.operators[strings.ToLower(operatorId)]
	return ok && op.IsActive
}

// RecordActivity bumps an operator's task counters after a fulfillment
// attempt. The first recorded activity moves a freshly registered operator to
// active status.
func (l *Ledger) RecordActivity(operatorId string, successful bool) error {
	operatorId = strings.ToLower(operatorId)

	l.mu.Lock()
	defer l.mu.Unlock()

	op, ok := l.operators[operatorId]
	if !ok {
		return errors.Wrapf(ErrUnknownOperator, "operator %s", operatorId)
	}

	height := l.height.Advance()
	op.TaskCount++
	if successful {
		op.SuccessfulTaskCount++
	}
	op.LastActivityHeight = height
	if op.Status == OperatorStatus_Registered {
		op.Status = OperatorStatus_Active
	}

	l.logger.Sugar().Debugw("Recorded operator activity",
		zap.String("operator", operatorId),
		zap.Bool("successful", successful),
		zap.Uint64("height", height),
	)
	l.publish(eventBusTypes.Event_OperatorActivity, &StateDelta{
		Operators:   []*Operator{op.clone()},
		TotalStaked: numbers.Clone(l.totalStaked),
		Height:      height,
	})
	return nil
}

// PauseOperator takes an active operator out of the working set without
// touching any balances. Stake stays locked and delegations stay in place.
func (l *Ledger) PauseOperator(operatorId string) error {
	operatorId = strings.ToLower(operatorId)

	l.mu.Lock()
	defer l.mu.Unlock()

	op, ok := l.operators[operatorId]
	if !ok {
		return errors.Wrapf(ErrUnknownOperator, "operator %s", operatorId)
	}
	if !op.IsActive {
		return errors.Wrapf(ErrOperatorNotActive, "operator %s", operatorId)
	}

	height := l.height.Advance()
	op.IsActive = false
	op.Status = OperatorStatus_Inactive
	l.activeOperators.Delete(operatorId)

	l.logger.Sugar().Infow("Paused operator", zap.String("operator", operatorId))
	l.publish(eventBusTypes.Event_OperatorPaused, &StateDelta{
		Operators:   []*Operator{op.clone()},
		TotalStaked: numbers.Clone(l.totalStaked),
		Height:      height,
	})
	return nil
}

// UnpauseOperator returns a paused operator to the working set. A slashed
// operator cannot come back this way, and the comeback is held to the same
// minimum-stake and capacity rules as a fresh registration.
func (l *Ledger) UnpauseOperator(operatorId string) error {
	operatorId = strings.ToLower(operatorId)

	l.mu.Lock()
	defer l.mu.Unlock()

	op, ok := l.operators[operatorId]
	if !ok {
		return errors.Wrapf(ErrUnknownOperator, "operator %s", operatorId)
	}
	if op.IsActive {
		return errors.Wrapf(ErrOperatorAlreadyActive, "operator %s", operatorId)
	}
	if op.Status != OperatorStatus_Inactive {
		return errors.Wrapf(ErrOperatorNotPaused, "operator %s has status %s", operatorId, op.Status)
	}
	if op.SelfStake.Cmp(l.params.MinOperatorStake) < 0 {
		return errors.Wrapf(ErrInsufficientStake, "operator %s self stake %s below minimum %s",
			operatorId, op.SelfStake.String(), l.params.MinOperatorStake.String())
	}
	if l.params.MaxOperators > 0 && l.activeOperators.Len() >= l.params.MaxOperators {
		return errors.Wrapf(ErrCapacityExceeded, "active operator limit %d", l.params.MaxOperators)
	}

	height := l.height.Advance()
	op.IsActive = true
	op.Status = OperatorStatus_Active
	l.activeOperators.Set(operatorId, op)

	l.logger.Sugar().Infow("Unpaused operator", zap.String("operator", operatorId))
	l.publish(eventBusTypes.Event_OperatorUnpaused, &StateDelta{
		Operators:   []*Operator{op.clone()},
		TotalStaked: numbers.Clone(l.totalStaked),
		Height:      height,
	})
	return nil
}
