package ledger

import "github.com/pkg/errors"

// Sentinel errors for every pre-mutation rejection the ledger can produce.
// Callers classify with errors.Is; call sites add context with errors.Wrapf.
var (
	ErrAlreadyRegistered            = errors.New("operator already registered")
	ErrInsufficientStake            = errors.New("insufficient stake")
	ErrCapacityExceeded             = errors.New("active operator capacity exceeded")
	ErrUnknownOperator              = errors.New("unknown operator")
	ErrOperatorInactive             = errors.New("operator inactive")
	ErrNoActiveDelegation           = errors.New("no active delegation")
	ErrInsufficientDelegatedStake   = errors.New("insufficient delegated stake")
	ErrOperatorNotActive            = errors.New("operator not active")
	ErrCannotDeregisterWhileSlashed = errors.New("cannot deregister while slashed")
	ErrSlashExceedsStake            = errors.New("slash amount exceeds total stake")
	ErrNoRewards                    = errors.New("no rewards to distribute")
	ErrNoOperators                  = errors.New("no active operators")
	ErrOperatorAlreadyActive        = errors.New("operator already active")
	ErrOperatorNotPaused            = errors.New("operator not paused")
	ErrInvalidAmount                = errors.New("invalid amount")
)
