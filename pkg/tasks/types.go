// Package tasks implements the randomness request lifecycle: authorized
// requesters open tasks, active operators fulfill them with attested values,
// and unfulfilled tasks fail after a timeout.
package tasks

import (
	"math/big"
	"time"

	"github.com/entropy-labs/rngpool/internal/types/numbers"
)

// MaxValueCount bounds how many values a single task may request.
const MaxValueCount = 100

type TaskStatus string

const (
	TaskStatus_Pending   TaskStatus = "pending"
	TaskStatus_Completed TaskStatus = "completed"
	TaskStatus_Failed    TaskStatus = "failed"
	TaskStatus_Cancelled TaskStatus = "cancelled"
)

// Task is one randomness request. Ids are assigned sequentially from zero.
type Task struct {
	TaskId          uint64
	Requester       string
	MinValue        *big.Int
	MaxValue        *big.Int
	Count           uint32
	Fee             *big.Int
	Seed            string
	CallbackLocator string
	Status          TaskStatus
	CreatedAt       time.Time
	CreatedAtHeight uint64
}

func (t *Task) clone() *Task {
	out := *t
	out.MinValue = numbers.Clone(t.MinValue)
	out.MaxValue = numbers.Clone(t.MaxValue)
	out.Fee = numbers.Clone(t.Fee)
	return &out
}

// Result is the fulfillment of one task: the drawn values plus the aggregated
// attestation over them.
type Result struct {
	TaskId              uint64
	Operator            string
	Values              []*big.Int
	AggregatedSignature []byte
	Attesters           []string
	Timestamp           time.Time
	Verified            bool
}

func (r *Result) clone() *Result {
	values := make([]*big.Int, len(r.Values))
	for i, v := range r.Values {
		values[i] = numbers.Clone(v)
	}
	sig := make([]byte, len(r.AggregatedSignature))
	copy(sig, r.AggregatedSignature)
	attesters := make([]string, len(r.Attesters))
	copy(attesters, r.Attesters)
	return &Result{
		TaskId:              r.TaskId,
		Operator:            r.Operator,
		Values:              values,
		AggregatedSignature: sig,
		Attesters:           attesters,
		Timestamp:           r.Timestamp,
		Verified:            r.Verified,
	}
}
