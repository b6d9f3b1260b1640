// Package ledger implements the stake/delegation/slashing/reward accounting
// for the operator pool. All state lives behind a single lock: mutations are
// applied as atomic, wholly-ordered steps and queries only ever observe fully
// applied state. Every validation happens before the first field is touched,
// so a failed call leaves no partial change.
package ledger

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"github.com/entropy-labs/rngpool/internal/clock"
	"github.com/entropy-labs/rngpool/internal/config"
	"github.com/entropy-labs/rngpool/internal/types/numbers"
	"github.com/entropy-labs/rngpool/pkg/collateral"
	"github.com/entropy-labs/rngpool/pkg/eventBus/eventBusTypes"
	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
)

type Ledger struct {
	mu     sync.RWMutex
	logger *zap.Logger
	params config.PoolConfig
	clock  clock.IClock
	height *clock.Height

	collateral collateral.ICollateralClient
	bus        eventBusTypes.IEventBus

	operators map[string]*Operator
	// activeOperators is the iteration set for reward scans and capacity
	// checks. Removal order among remaining members is unspecified.
	activeOperators *orderedmap.OrderedMap[string, *Operator]

	slashingEvents []*SlashingEvent
	distributions  []*RewardDistribution

	// totalStaked tracks the sum of all operator TotalStakes and moves in
	// lockstep with every individual balance change.
	totalStaked *big.Int
}

func NewLedger(
	cfg *config.PoolConfig,
	cc collateral.ICollateralClient,
	clk clock.IClock,
	height *clock.Height,
	bus eventBusTypes.IEventBus,
	l *zap.Logger,
) *Ledger {
	return &Ledger{
		logger:          l,
		params:          clonePoolConfig(cfg),
		clock:           clk,
		height:          height,
		collateral:      cc,
		bus:             bus,
		operators:       make(map[string]*Operator),
		activeOperators: orderedmap.New[string, *Operator](),
		slashingEvents:  make([]*SlashingEvent, 0),
		distributions:   make([]*RewardDistribution, 0),
		totalStaked:     numbers.Zero(),
	}
}

func clonePoolConfig(cfg *config.PoolConfig) config.PoolConfig {
	out := *cfg
	out.MinOperatorStake = numbers.Clone(cfg.MinOperatorStake)
	out.MinDelegationAmount = numbers.Clone(cfg.MinDelegationAmount)
	out.SlashAmount = numbers.Clone(cfg.SlashAmount)
	out.TaskFee = numbers.Clone(cfg.TaskFee)
	return out
}

// SetParams replaces the economic parameters. Takes effect for subsequent
// operations only.
func (l *Ledger) SetParams(cfg *config.PoolConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.params = clonePoolConfig(cfg)
}

// RegisterOperator creates a new operator record backed by selfStake posted
// collateral.
func (l *Ledger) RegisterOperator(ctx context.Context, operatorId string, selfStake *big.Int) error {
	operatorId = strings.ToLower(operatorId)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.operators[operatorId]; ok {
		return errors.Wrapf(ErrAlreadyRegistered, "operator %s", operatorId)
	}
	if selfStake == nil || selfStake.Sign() < 0 {
		return errors.Wrapf(ErrInvalidAmount, "operator %s", operatorId)
	}
	if selfStake.Cmp(l.params.MinOperatorStake) < 0 {
		return errors.Wrapf(ErrInsufficientStake, "operator %s staked %s, minimum %s",
			operatorId, selfStake.String(), l.params.MinOperatorStake.String())
	}
	if l.params.MaxOperators > 0 && l.activeOperators.Len() >= l.params.MaxOperators {
		return errors.Wrapf(ErrCapacityExceeded, "active operator limit %d", l.params.MaxOperators)
	}

	if err := l.collateral.TransferFrom(ctx, operatorId, l.params.Address, selfStake); err != nil {
		return errors.Wrapf(err, "failed to collect stake from operator %s", operatorId)
	}

	height := l.height.Advance()
	op := &Operator{
		Address:            operatorId,
		SelfStake:          numbers.Clone(selfStake),
		TotalStake:         numbers.Clone(selfStake),
		IsActive:           true,
		Status:             OperatorStatus_Registered,
		TotalSlashedAmount: numbers.Zero(),
		RegistrationHeight: height,
		LastActivityHeight: height,
		delegators:         orderedmap.New[string, *Delegator](),
	}
	l.operators[operatorId] = op
	l.activeOperators.Set(operatorId, op)
	l.totalStaked.Add(l.totalStaked, selfStake)

	l.logger.Sugar().Infow("Registered operator",
		zap.String("operator", operatorId),
		zap.String("selfStake", selfStake.String()),
		zap.Uint64("height", height),
	)
	l.publish(eventBusTypes.Event_OperatorRegistered, &StateDelta{
		Operators:   []*Operator{op.clone()},
		TotalStaked: numbers.Clone(l.totalStaked),
		Height:      height,
	})
	return nil
}

// Delegate stakes amount through an operator on behalf of delegatorId.
func (l *Ledger) Delegate(ctx context.Context, operatorId string, delegatorId string, amount *big.Int) error {
	operatorId = strings.ToLower(operatorId)
	delegatorId = strings.ToLower(delegatorId)

	l.mu.Lock()
	defer l.mu.Unlock()

	op, ok := l.operators[operatorId]
	if !ok {
		return errors.Wrapf(ErrUnknownOperator, "operator %s", operatorId)
	}
	if !op.IsActive {
		return errors.Wrapf(ErrOperatorInactive, "operator %s", operatorId)
	}
	if amount == nil || amount.Sign() <= 0 {
		return errors.Wrapf(ErrInvalidAmount, "delegator %s", delegatorId)
	}
	if amount.Cmp(l.params.MinDelegationAmount) < 0 {
		return errors.Wrapf(ErrInsufficientStake, "delegation %s below minimum %s",
			amount.String(), l.params.MinDelegationAmount.String())
	}

	if err := l.collateral.TransferFrom(ctx, delegatorId, l.params.Address, amount); err != nil {
		return errors.Wrapf(err, "failed to collect delegation from %s", delegatorId)
	}

	height := l.height.Advance()
	d, ok := op.delegators.Get(delegatorId)
	if !ok {
		d = &Delegator{
			Operator:     operatorId,
			Address:      delegatorId,
			StakedAmount: numbers.Zero(),
			Shares:       numbers.Zero(),
		}
		op.delegators.Set(delegatorId, d)
	}
	d.StakedAmount.Add(d.StakedAmount, amount)
	d.Shares.Add(d.Shares, amount)
	d.IsActive = true
	op.TotalStake.Add(op.TotalStake, amount)
	l.totalStaked.Add(l.totalStaked, amount)

	l.logger.Sugar().Infow("Delegated stake",
		zap.String("operator", operatorId),
		zap.String("delegator", delegatorId),
		zap.String("amount", amount.String()),
	)
	l.publish(eventBusTypes.Event_StakeDelegated, &StateDelta{
		Operators:   []*Operator{op.clone()},
		Delegators:  []*Delegator{d.clone()},
		TotalStaked: numbers.Clone(l.totalStaked),
		Height:      height,
	})
	return nil
}

// Undelegate withdraws amount of a delegator's stake from an operator. The
// delegator record deactivates when its stake reaches exactly zero.
func (l *Ledger) Undelegate(ctx context.Context, operatorId string, delegatorId string, amount *big.Int) error {
	operatorId = strings.ToLower(operatorId)
	delegatorId = strings.ToLower(delegatorId)

	l.mu.Lock()
	defer l.mu.Unlock()

	op, ok := l.operators[operatorId]
	if !ok {
		return errors.Wrapf(ErrUnknownOperator, "operator %s", operatorId)
	}
	d, ok := op.delegators.Get(delegatorId)
	if !ok || !d.IsActive {
		return errors.Wrapf(ErrNoActiveDelegation, "delegator %s with operator %s", delegatorId, operatorId)
	}
	if amount == nil || amount.Sign() <= 0 {
		return errors.Wrapf(ErrInvalidAmount, "delegator %s", delegatorId)
	}
	remaining, err := numbers.CheckedSub(d.StakedAmount, amount)
	if err != nil {
		return errors.Wrapf(ErrInsufficientDelegatedStake, "requested %s, staked %s",
			amount.String(), d.StakedAmount.String())
	}

	if err := l.collateral.Transfer(ctx, delegatorId, amount); err != nil {
		return errors.Wrapf(err, "failed to return delegation to %s", delegatorId)
	}

	height := l.height.Advance()
	d.StakedAmount.Set(remaining)
	d.Shares.Set(remaining)
	op.TotalStake.Sub(op.TotalStake, amount)
	l.totalStaked.Sub(l.totalStaked, amount)
	if d.StakedAmount.Sign() == 0 {
		d.IsActive = false
	}

	l.logger.Sugar().Infow("Undelegated stake",
		zap.String("operator", operatorId),
		zap.String("delegator", delegatorId),
		zap.String("amount", amount.String()),
	)
	l.publish(eventBusTypes.Event_StakeUndelegated, &StateDelta{
		Operators:   []*Operator{op.clone()},
		Delegators:  []*Delegator{d.clone()},
		TotalStaked: numbers.Clone(l.totalStaked),
		Height:      height,
	})
	return nil
}

// Deregister returns the operator's self stake and deactivates the record.
// Delegations remain withdrawable through Undelegate afterwards.
func (l *Ledger) Deregister(ctx context.Context, operatorId string) error {
	operatorId = strings.ToLower(operatorId)

	l.mu.Lock()
	defer l.mu.Unlock()

	op, ok := l.operators[operatorId]
	if !ok {
		return errors.Wrapf(ErrUnknownOperator, "operator %s", operatorId)
	}
	if op.Status == OperatorStatus_Slashed {
		return errors.Wrapf(ErrCannotDeregisterWhileSlashed, "operator %s", operatorId)
	}
	if !op.IsActive {
		return errors.Wrapf(ErrOperatorNotActive, "operator %s", operatorId)
	}

	refund := numbers.Clone(op.SelfStake)
	if refund.Sign() > 0 {
		if err := l.collateral.Transfer(ctx, operatorId, refund); err != nil {
			return errors.Wrapf(err, "failed to return stake to operator %s", operatorId)
		}
	}

	height := l.height.Advance()
	op.TotalStake.Sub(op.TotalStake, refund)
	op.SelfStake.SetInt64(0)
	op.IsActive = false
	op.Status = OperatorStatus_Inactive
	l.activeOperators.Delete(operatorId)
	l.totalStaked.Sub(l.totalStaked, refund)

	l.logger.Sugar().Infow("Deregistered operator",
		zap.String("operator", operatorId),
		zap.String("returnedStake", refund.String()),
	)
	l.publish(eventBusTypes.Event_OperatorDeregistered, &StateDelta{
		Operators:   []*Operator{op.clone()},
		TotalStaked: numbers.Clone(l.totalStaked),
		Height:      height,
	})
	return nil
}

// ---- read-only queries ----

func (l *Ledger) GetOperator(operatorId string) (*Operator, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	op, ok := l.operators[strings.ToLower(operatorId)]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownOperator, "operator %s", operatorId)
	}
	return op.clone(), nil
}

func (l *Ledger) GetDelegator(operatorId string, delegatorId string) (*Delegator, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	op, ok := l.operators[strings.ToLower(operatorId)]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownOperator, "operator %s", operatorId)
	}
	d, ok := op.delegators.Get(strings.ToLower(delegatorId))
	if !ok {
		return nil, errors.Wrapf(ErrNoActiveDelegation, "delegator %s with operator %s", delegatorId, operatorId)
	}
	return d.clone(), nil
}

func (l *Ledger) ListDelegators(operatorId string) ([]*Delegator, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	op, ok := l.operators[strings.ToLower(operatorId)]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownOperator, "operator %s", operatorId)
	}
	out := make([]*Delegator, 0, op.delegators.Len())
	for pair := op.delegators.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value.clone())
	}
	return out, nil
}

func (l *Ledger) ActiveOperatorCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.activeOperators.Len()
}

func (l *Ledger) ListActiveOperators() []*Operator {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Operator, 0, l.activeOperators.Len())
	for pair := l.activeOperators.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value.clone())
	}
	return out
}

// TotalStaked reports the running sum of all stake held by the pool.
func (l *Ledger) TotalStaked() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return numbers.Clone(l.totalStaked)
}

func (l *Ledger) GetSlashingEvent(id uint64) (*SlashingEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if id >= uint64(len(l.slashingEvents)) {
		return nil, errors.Errorf("unknown slashing event %d", id)
	}
	return l.slashingEvents[id].clone(), nil
}

func (l *Ledger) ListSlashingEvents() []*SlashingEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*SlashingEvent, 0, len(l.slashingEvents))
	for _, se := range l.slashingEvents {
		out = append(out, se.clone())
	}
	return out
}

func (l *Ledger) GetRewardDistribution(id uint64) (*RewardDistribution, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if id >= uint64(len(l.distributions)) {
		return nil, errors.Errorf("unknown reward distribution %d", id)
	}
	return l.distributions[id].clone(), nil
}

func (l *Ledger) ListRewardDistributions() []*RewardDistribution {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*RewardDistribution, 0, len(l.distributions))
	for _, rd := range l.distributions {
		out = append(out, rd.clone())
	}
	return out
}

func (l *Ledger) publish(name eventBusTypes.EventName, delta *StateDelta) {
	if l.bus == nil {
		return
	}
	l.bus.Publish(&eventBusTypes.Event{Name: name, Data: delta})
}
