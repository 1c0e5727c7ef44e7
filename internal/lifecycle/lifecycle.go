// Package lifecycle enforces the call order a libretro frontend is allowed
// to drive. Every entry point fires an Op; an Op that is not legal in the
// current State is a contract violation and leaves the state untouched.
package lifecycle

import (
	"errors"
	"fmt"
)

// State is a lifecycle state of the loaded content.
type State int

const (
	Uninitialized State = iota
	Loaded
	Running
	// Unloaded behaves like Uninitialized: a fresh load may follow.
	Unloaded
)

// String returns the display name of the state.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loaded:
		return "loaded"
	case Running:
		return "running"
	case Unloaded:
		return "unloaded"
	default:
		return "unknown"
	}
}

// Op is an operation requested by the frontend (or by the core through the
// frontend) that the state machine gates.
type Op int

const (
	OpLoadGame Op = iota
	OpRun
	OpReset
	OpUnloadGame
	OpSerializeSize
	OpSerialize
	OpUnserialize
	OpMemoryAccess
	OpChangeAVInfo
)

// String returns the entry point name of the op.
func (o Op) String() string {
	switch o {
	case OpLoadGame:
		return "load_game"
	case OpRun:
		return "run"
	case OpReset:
		return "reset"
	case OpUnloadGame:
		return "unload_game"
	case OpSerializeSize:
		return "serialize_size"
	case OpSerialize:
		return "serialize"
	case OpUnserialize:
		return "unserialize"
	case OpMemoryAccess:
		return "memory_access"
	case OpChangeAVInfo:
		return "change_av_info"
	default:
		return "unknown"
	}
}

// ErrContractViolation is matched by every *ContractViolation.
var ErrContractViolation = errors.New("contract violation")

// ContractViolation reports an op invoked in a state that does not allow it.
type ContractViolation struct {
	State State
	Op    Op
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("%v: %s not allowed while %s", ErrContractViolation, e.Op, e.State)
}

// Is matches ErrContractViolation.
func (e *ContractViolation) Is(target error) bool {
	return target == ErrContractViolation
}

// Table maps each state to the ops it allows and the resulting state.
var Table = map[State]map[Op]State{
	Uninitialized: {
		OpLoadGame: Loaded,
	},
	Loaded: {
		OpRun:           Running,
		OpReset:         Loaded,
		OpUnloadGame:    Unloaded,
		OpSerializeSize: Loaded,
		OpSerialize:     Loaded,
		OpUnserialize:   Loaded,
		OpMemoryAccess:  Loaded,
	},
	Running: {
		OpRun:           Running,
		OpReset:         Running,
		OpUnloadGame:    Unloaded,
		OpSerializeSize: Running,
		OpSerialize:     Running,
		OpUnserialize:   Running,
		OpMemoryAccess:  Running,
		OpChangeAVInfo:  Running,
	},
	Unloaded: {
		OpLoadGame: Loaded,
	},
}

// Next returns the state reached by applying op in state s.
func Next(s State, op Op) (State, error) {
	next, ok := Table[s][op]
	if !ok {
		return s, &ContractViolation{State: s, Op: op}
	}
	return next, nil
}

// Replay applies ops from start, skipping illegal ones, and returns the end
// state along with the number of rejected ops.
func Replay(start State, ops []Op) (State, int) {
	s := start
	rejected := 0
	for _, op := range ops {
		next, err := Next(s, op)
		if err != nil {
			rejected++
			continue
		}
		s = next
	}
	return s, rejected
}

// Machine tracks the current state.
type Machine struct {
	state State
}

// New returns a machine in the Uninitialized state.
func New() *Machine {
	return &Machine{state: Uninitialized}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Allowed reports whether op is legal in the current state.
func (m *Machine) Allowed(op Op) bool {
	_, ok := Table[m.state][op]
	return ok
}

// Check returns the violation op would cause without firing it.
func (m *Machine) Check(op Op) error {
	_, err := Next(m.state, op)
	return err
}

// Fire applies op. On a violation the state is unchanged.
func (m *Machine) Fire(op Op) error {
	next, err := Next(m.state, op)
	if err != nil {
		return err
	}
	m.state = next
	return nil
}

// Load runs fn if loading is legal and only transitions to Loaded when fn
// succeeds.
func (m *Machine) Load(fn func() error) error {
	if err := m.Check(OpLoadGame); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	return m.Fire(OpLoadGame)
}

// HasContent reports whether content is loaded.
func (m *Machine) HasContent() bool {
	return m.state == Loaded || m.state == Running
}

// Reset forces the machine back to Uninitialized, used on deinit.
func (m *Machine) Reset() {
	m.state = Uninitialized
}
