package scanner

import (
	"sync"
	"sync/atomic"
)

// State captures the phase of the scanner's cycle loop: Idle, Updating,
// Persisting, or Shutdown.
type State uint32

const (
	// Idle is the state between cycles; only an idle scanner accepts a new
	// cycle.
	Idle State = iota

	// Updating is the phase in which the scanner ingests a fresh scan,
	// reconciles snapshots and detects events.
	Updating

	// Persisting is the phase in which notifications are dispatched and
	// subscriber state is written. Shutdown requests are deferred until the
	// scanner leaves this phase.
	Persisting

	// Shutdown is the state in which the scanner stops taking new cycles.
	Shutdown
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Updating:
		return "Updating"
	case Persisting:
		return "Persisting"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// state wraps the scanner's phase with atomic get and set methods, and
// tracks the background routines to wait for on shutdown.
type state struct {
	phase State
	wg    sync.WaitGroup
}

func (b *state) getState() State {
	phaseAddr := (*uint32)(&b.phase)
	return State(atomic.LoadUint32(phaseAddr))
}

func (b *state) setState(s State) {
	phaseAddr := (*uint32)(&b.phase)
	atomic.StoreUint32(phaseAddr, uint32(s))
}

func (b *state) goFunc(f func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		f()
	}()
}

func (b *state) waitRoutines() {
	b.wg.Wait()
}
