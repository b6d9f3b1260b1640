package ledgerQueue

import (
	"context"

	"go.uber.org/zap"
)

// MutationType identifies which state transition a queued message requests.
type MutationType string

var (
	MutationType_RegisterOperator   MutationType = "registerOperator"
	MutationType_DeregisterOperator MutationType = "deregisterOperator"
	MutationType_Delegate           MutationType = "delegate"
	MutationType_Undelegate         MutationType = "undelegate"
	MutationType_Slash              MutationType = "slash"
	MutationType_DistributeRewards  MutationType = "distributeRewards"
	MutationType_PauseOperator      MutationType = "pauseOperator"
	MutationType_UnpauseOperator    MutationType = "unpauseOperator"
	MutationType_CreateTask         MutationType = "createTask"
	MutationType_SubmitResult       MutationType = "submitResult"
	MutationType_ReapTask           MutationType = "reapTask"
	MutationType_ReapExpired        MutationType = "reapExpired"
)

// MutationMessage is one queued state transition. Request carries the
// operation-specific payload; the processor asserts on Type.
type MutationMessage struct {
	Type    MutationType
	Request any

	// ResponseChan receives the outcome. If nil, the mutation is
	// fire-and-forget.
	ResponseChan chan *MutationResponse
}

// MutationResponse carries the result of one processed mutation. Data is the
// operation's return value, if it has one.
type MutationResponse struct {
	Data  any
	Error error
}

// Processor applies one mutation against the authoritative state. The queue
// guarantees it is never called concurrently.
type Processor func(ctx context.Context, message *MutationMessage) (any, error)

// MutationQueue serializes every state transition through a single worker,
// giving callers a strict global order across operator, stake and task
// mutations regardless of how many goroutines submit them.
type MutationQueue struct {
	logger    *zap.Logger
	processor Processor
	queue     chan *MutationMessage
	done      chan struct{}
}
