// Package clock abstracts the time and state-height sources the ledger stamps
// onto its records. The host execution environment supplies both in the original
// deployment; here wall-clock time stands in for block time and a shared counter,
// advanced once per applied mutation, stands in for block height.
package clock

import (
	"sync/atomic"
	"time"
)

type IClock interface {
	Now() time.Time
}

type SystemClock struct{}

func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

func (sc *SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FakeClock is a manually advanced clock for tests.
type FakeClock struct {
	current time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{current: start}
}

func (fc *FakeClock) Now() time.Time {
	return fc.current
}

func (fc *FakeClock) Advance(d time.Duration) {
	fc.current = fc.current.Add(d)
}

// Height is the shared state-height counter. Every applied mutation advances it
// exactly once, so heights totally order mutations across subsystems.
type Height struct {
	value atomic.Uint64
}

func NewHeight() *Height {
	return &Height{}
}

func (h *Height) Current() uint64 {
	return h.value.Load()
}

func (h *Height) Advance() uint64 {
	return h.value.Add(1)
}
