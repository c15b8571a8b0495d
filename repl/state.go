package repl

import "sync/atomic"

// SessionState represents the stages of a REPL session.
type SessionState uint32

const (
	// Disconnected indicates no channel is attached.
	Disconnected SessionState = iota
	// Connecting indicates the channel is open and the initialization
	// sequence is running.
	Connecting
	// Ready indicates the interpreter is at its idle prompt, accepting
	// commands.
	Ready
	// Busy indicates a command is in flight.
	Busy
	// Faulted indicates a timeout or lost synchronization; Reset is
	// required before the session accepts further commands.
	Faulted
)

// Is reports whether the state equals target.
func (st SessionState) Is(target SessionState) bool {
	return st == target
}

// String returns the string representation of the state.
func (st SessionState) String() string {
	switch st {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	case Busy:
		return "busy"
	case Faulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// atomicState holds a SessionState with atomic, CAS-guarded transitions.
type atomicState struct {
	v atomic.Uint32
}

func (st *atomicState) Get() SessionState {
	return SessionState(st.v.Load())
}

func (st *atomicState) Set(state SessionState) {
	st.v.Store(uint32(state))
}

func (st *atomicState) Is(state SessionState) bool {
	return st.Get() == state
}

// ToConnecting transitions Disconnected → Connecting.
func (st *atomicState) ToConnecting() bool {
	return st.v.CompareAndSwap(uint32(Disconnected), uint32(Connecting))
}

// ToBusy transitions Ready → Busy. This is the mutual-exclusion gate for
// command issuance: only one caller wins.
func (st *atomicState) ToBusy() bool {
	return st.v.CompareAndSwap(uint32(Ready), uint32(Busy))
}

// ToReady transitions Connecting, Busy, or Faulted → Ready.
func (st *atomicState) ToReady() bool {
	for {
		cur := st.v.Load()
		switch SessionState(cur) {
		case Connecting, Busy, Faulted:
			if st.v.CompareAndSwap(cur, uint32(Ready)) {
				return true
			}
		case Ready:
			return true
		default:
			return false
		}
	}
}

// ToFaulted transitions any connected state → Faulted.
func (st *atomicState) ToFaulted() bool {
	for {
		cur := st.v.Load()
		if SessionState(cur) == Disconnected {
			return false
		}
		if SessionState(cur) == Faulted {
			return true
		}
		if st.v.CompareAndSwap(cur, uint32(Faulted)) {
			return true
		}
	}
}

// ToDisconnected transitions any state → Disconnected.
func (st *atomicState) ToDisconnected() {
	st.v.Store(uint32(Disconnected))
}
