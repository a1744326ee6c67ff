package engine

import (
	"sync"
	"time"
)

// Slot is the one-shot completion handle paired with every accepted
// submission. The engine resolves it exactly once, after the command has
// been fully processed. A timeout on Wait does not cancel the in-flight
// command; a resolution arriving after the caller gave up is simply never
// read.
type Slot struct {
	ch   chan Result
	once sync.Once
}

func newSlot() *Slot {
	return &Slot{ch: make(chan Result, 1)}
}

// resolve delivers the result. Only the first call has any effect.
func (s *Slot) resolve(r Result) {
	s.once.Do(func() { s.ch <- r })
}

// Wait blocks until the engine resolves the slot or the timeout elapses.
// The second return is false when the bound elapsed first; the command may
// still be processed later, so the caller must treat that as "outcome
// unknown, assume not committed", never as a confirmed failure.
func (s *Slot) Wait(timeout time.Duration) (Result, bool) {
	select {
	case r := <-s.ch:
		return r, true
	case <-time.After(timeout):
		return Result{}, false
	}
}
