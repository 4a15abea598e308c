package synthesis

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of one synthesis request.
type State int

const (
	// StateIdle - request created, nothing sent yet.
	StateIdle State = iota
	// StateRequested - trigger sent to the synthesis backend, awaiting outcome.
	StateRequested
	// StateCompleted - backend succeeded and the re-read found data.
	StateCompleted
	// StateTimedOut - the bounded timeout elapsed; the in-flight call was cancelled.
	StateTimedOut
	// StateFailed - transport failure, rejected key, or empty re-read.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRequested:
		return "REQUESTED"
	case StateCompleted:
		return "COMPLETED"
	case StateTimedOut:
		return "TIMED_OUT"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true once the request reached an outcome.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateTimedOut || s == StateFailed
}

// Errors for invalid state transitions.
var (
	ErrAlreadyRequested = errors.New("synthesis already requested")
	ErrNotRequested     = errors.New("synthesis not yet requested")
	ErrAlreadyTerminal  = errors.New("synthesis request already resolved")
)

// Lifecycle tracks the state machine for a single synthesis request.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	IDLE → REQUESTED → (COMPLETED | TIMED_OUT | FAILED)
//
// Terminal states never transition again; a retry is a new Lifecycle,
// because retry policy belongs to the caller of the Composite provider.
type Lifecycle struct {
	mu         sync.RWMutex
	contentKey string
	state      State
}

// NewLifecycle creates a request lifecycle in IDLE state.
func NewLifecycle(contentKey string) *Lifecycle {
	return &Lifecycle{contentKey: contentKey, state: StateIdle}
}

// ContentKey returns the key this request is for.
func (l *Lifecycle) ContentKey() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.contentKey
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Begin transitions IDLE → REQUESTED.
func (l *Lifecycle) Begin() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case StateIdle:
		l.state = StateRequested
		return nil
	case StateRequested:
		return ErrAlreadyRequested
	default:
		return ErrAlreadyTerminal
	}
}

// Complete transitions REQUESTED → COMPLETED.
func (l *Lifecycle) Complete() error {
	return l.resolve(StateCompleted)
}

// Timeout transitions REQUESTED → TIMED_OUT.
func (l *Lifecycle) Timeout() error {
	return l.resolve(StateTimedOut)
}

// Fail transitions REQUESTED → FAILED.
func (l *Lifecycle) Fail() error {
	return l.resolve(StateFailed)
}

func (l *Lifecycle) resolve(to State) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case StateRequested:
		l.state = to
		return nil
	case StateIdle:
		return ErrNotRequested
	default:
		return ErrAlreadyTerminal
	}
}
