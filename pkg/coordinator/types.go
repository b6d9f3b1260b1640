package coordinator

import (
	"math/big"

	"github.com/pkg/errors"
)

// ErrNotAdmin rejects privileged calls from anyone but the configured admin.
var ErrNotAdmin = errors.New("caller is not the pool admin")

// Request payloads for the mutation queue. The coordinator is the only
// producer and the only consumer of these.

type RegisterOperatorRequest struct {
	OperatorId string
	SelfStake  *big.Int
}

type DeregisterOperatorRequest struct {
	OperatorId string
}

type DelegateRequest struct {
	OperatorId  string
	DelegatorId string
	Amount      *big.Int
}

type UndelegateRequest struct {
	OperatorId  string
	DelegatorId string
	Amount      *big.Int
}

type SlashRequest struct {
	OperatorId string
	Amount     *big.Int
	Reason     string
	Slasher    string
}

type DistributeRewardsRequest struct {
	Amount      *big.Int
	Distributor string
}

type PauseOperatorRequest struct {
	OperatorId string
}

type UnpauseOperatorRequest struct {
	OperatorId string
}

type CreateTaskRequest struct {
	Requester       string
	MinValue        *big.Int
	MaxValue        *big.Int
	Count           uint32
	CallbackLocator string
	Fee             *big.Int
}

type SubmitResultRequest struct {
	Caller              string
	TaskId              uint64
	Values              []*big.Int
	AggregatedSignature []byte
	Attesters           []string
}

type ReapTaskRequest struct {
	TaskId uint64
}

type ReapExpiredRequest struct {
}
