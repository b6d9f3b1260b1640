package ledger

import (
	"math/big"
	"time"

	"github.com/entropy-labs/rngpool/internal/types/numbers"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type OperatorStatus string

const (
	OperatorStatus_Registered OperatorStatus = "registered"
	OperatorStatus_Active     OperatorStatus = "active"
	OperatorStatus_Inactive   OperatorStatus = "inactive"
	OperatorStatus_Slashed    OperatorStatus = "slashed"
	OperatorStatus_Ejected    OperatorStatus = "ejected"
)

// Operator is a staked participant eligible to fulfill tasks and attest
// results. Records are never destroyed; deregistration deactivates them and
// keeps the history.
//
// Invariant, at every observable point: TotalStake == SelfStake + the sum of
// all delegator stakes of this operator.
type Operator struct {
	Address             string
	SelfStake           *big.Int
	TotalStake          *big.Int
	IsActive            bool
	Status              OperatorStatus
	TaskCount           uint64
	SuccessfulTaskCount uint64
	SlashCount          uint64
	TotalSlashedAmount  *big.Int
	RegistrationHeight  uint64
	LastActivityHeight  uint64

	// delegators is ordered by first delegation so proportional loops and
	// event payloads are deterministic.
	delegators *orderedmap.OrderedMap[string, *Delegator]
}

func (o *Operator) clone() *Operator {
	return &Operator{
		Address:             o.Address,
		SelfStake:           numbers.Clone(o.SelfStake),
		TotalStake:          numbers.Clone(o.TotalStake),
		IsActive:            o.IsActive,
		Status:              o.Status,
		TaskCount:           o.TaskCount,
		SuccessfulTaskCount: o.SuccessfulTaskCount,
		SlashCount:          o.SlashCount,
		TotalSlashedAmount:  numbers.Clone(o.TotalSlashedAmount),
		RegistrationHeight:  o.RegistrationHeight,
		LastActivityHeight:  o.LastActivityHeight,
	}
}

// delegatorStakeTotal is the delegator-only portion of the operator's stake.
func (o *Operator) delegatorStakeTotal() *big.Int {
	out := new(big.Int).Sub(o.TotalStake, o.SelfStake)
	return out
}

// Delegator is a third party staking through an operator. Shares are 1:1 with
// StakedAmount in this design. Records deactivate at zero stake, never delete.
type Delegator struct {
	Operator     string
	Address      string
	StakedAmount *big.Int
	Shares       *big.Int
	IsActive     bool
}

func (d *Delegator) clone() *Delegator {
	return &Delegator{
		Operator:     d.Operator,
		Address:      d.Address,
		StakedAmount: numbers.Clone(d.StakedAmount),
		Shares:       numbers.Clone(d.Shares),
		IsActive:     d.IsActive,
	}
}

// SlashingEvent is the immutable audit record of one executed slash. Amount is
// the requested confiscation; DeductedAmount is the sum actually removed from
// balances, which can be lower by the per-delegator flooring dust.
type SlashingEvent struct {
	Id               uint64
	Operator         string
	Amount           *big.Int
	OperatorPortion  *big.Int
	DelegatorPortion *big.Int
	DeductedAmount   *big.Int
	Reason           string
	Slasher          string
	Timestamp        time.Time
	Height           uint64
	Executed         bool
}

func (se *SlashingEvent) clone() *SlashingEvent {
	return &SlashingEvent{
		Id:               se.Id,
		Operator:         se.Operator,
		Amount:           numbers.Clone(se.Amount),
		OperatorPortion:  numbers.Clone(se.OperatorPortion),
		DelegatorPortion: numbers.Clone(se.DelegatorPortion),
		DeductedAmount:   numbers.Clone(se.DeductedAmount),
		Reason:           se.Reason,
		Slasher:          se.Slasher,
		Timestamp:        se.Timestamp,
		Height:           se.Height,
		Executed:         se.Executed,
	}
}

// RewardDistribution is the immutable record of one distribution round.
// Shares maps each credited participant to the amount it received; operators
// are keyed by address, delegators by "operator/delegator".
type RewardDistribution struct {
	Id               uint64
	TotalRewards     *big.Int
	OperatorRewards  *big.Int
	DelegatorRewards *big.Int
	Height           uint64
	Timestamp        time.Time
	Shares           map[string]*big.Int
}

func (rd *RewardDistribution) clone() *RewardDistribution {
	shares := make(map[string]*big.Int, len(rd.Shares))
	for k, v := range rd.Shares {
		shares[k] = numbers.Clone(v)
	}
	return &RewardDistribution{
		Id:               rd.Id,
		TotalRewards:     numbers.Clone(rd.TotalRewards),
		OperatorRewards:  numbers.Clone(rd.OperatorRewards),
		DelegatorRewards: numbers.Clone(rd.DelegatorRewards),
		Height:           rd.Height,
		Timestamp:        rd.Timestamp,
		Shares:           shares,
	}
}

// StateDelta is the uniform event payload the ledger publishes after a
// mutation: cloned snapshots of every record the mutation touched. Consumers
// (the storage sink in particular) upsert what is present and ignore the rest.
type StateDelta struct {
	Operators     []*Operator
	Delegators    []*Delegator
	SlashingEvent *SlashingEvent
	Distribution  *RewardDistribution
	TotalStaked   *big.Int
	Height        uint64
}
