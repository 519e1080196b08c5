package snapview

import "sync"

// State represents the lifecycle phase of a [Server].
//
// The state machine replaces a set of independent boolean flags with
// explicit, validated transitions, ruling out combinations that would never
// be semantically valid (such as stopped without ever having started).
type State int

const (
	// StateCreated is the initial state: the server exists but Start has not
	// been called.
	StateCreated State = iota

	// StateStarted means Start has armed the server; the listener waits for
	// the first frame.
	StateStarted

	// StateListening means the first frame arrived and the serve loop is
	// running. The restart loop never leaves this state on its own.
	StateListening

	// StateReadyToStop means Stop has armed the shutdown handshake.
	StateReadyToStop

	// StateStopped is terminal: the shutdown handler confirmed the stop.
	StateStopped
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarted:
		return "started"
	case StateListening:
		return "listening"
	case StateReadyToStop:
		return "ready-to-stop"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// validTransitions enumerates every legal state change.
//
// Created→Stopped and Started→Stopped cover Stop being called before the
// listener ever launched; there is no handshake to run in that case.
var validTransitions = map[State][]State{
	StateCreated:     {StateStarted, StateStopped},
	StateStarted:     {StateListening, StateStopped},
	StateListening:   {StateReadyToStop},
	StateReadyToStop: {StateStopped},
}

// stateMachine guards lifecycle transitions with a mutex so that concurrent
// callers (producer, stop caller, shutdown handler) observe a consistent
// state.
type stateMachine struct {
	mu    sync.Mutex
	state State
}

func newStateMachine() *stateMachine {
	return &stateMachine{state: StateCreated}
}

func (m *stateMachine) current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// transition moves from one state to another atomically. Returns false if
// the machine is not in from, or the change is not in the transition table.
func (m *stateMachine) transition(from, to State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != from {
		return false
	}
	for _, next := range validTransitions[from] {
		if next == to {
			m.state = to
			return true
		}
	}
	return false
}
