package userstore

import "sync/atomic"

// State is the lifecycle state of the store. Operations are only accepted
// while the store is StateStarted.
type State int32

const (
	StateInitialized State = iota
	StateStarting
	StateStarted
	StateStopping
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateStarting:
		return "starting"
	case StateStarted:
		return "started"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// lifecycle is the single piece of process-wide lifecycle state, mutated
// only through compare-and-set transitions so concurrent start/stop racers
// observe a consistent total order. fail is the one unconditional write:
// a startup failure jumps straight to StateFailed without publishing an
// intermediate state, while stop always publishes StateStopping before
// StateStopped. Callers may depend on the two-step stop being observable.
type lifecycle struct {
	state atomic.Int32
}

func (l *lifecycle) current() State {
	return State(l.state.Load())
}

// advance applies from->to and reports whether the transition was taken.
func (l *lifecycle) advance(from, to State) bool {
	return l.state.CompareAndSwap(int32(from), int32(to))
}

// fail marks the store failed regardless of the current state.
func (l *lifecycle) fail() {
	l.state.Store(int32(StateFailed))
}
