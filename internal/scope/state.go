// SPDX-License-Identifier: MPL-2.0

package scope

import (
	"errors"
	"fmt"
)

const (
	// StateUnregistered indicates the scope exists but registration has not started.
	StateUnregistered State = iota
	// StateRegistering indicates registration actions are executing.
	StateRegistering
	// StateReady indicates every action completed and the registry is sealed.
	StateReady
	// StateTornDown is terminal: the scope ended and its registrations are discarded.
	StateTornDown
	// StateFailed is terminal: a registration action failed, Ready was never reached.
	StateFailed
)

// ErrInvalidState is returned when a State value is not one of the defined lifecycle states.
var ErrInvalidState = errors.New("invalid state")

type (
	// State represents the lifecycle state of a scope.
	State int32

	// InvalidStateError is returned when a State value is not recognized.
	// It wraps ErrInvalidState for errors.Is() compatibility.
	InvalidStateError struct {
		Value State
	}
)

// String returns a human-readable representation of the scope state.
func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistering:
		return "registering"
	case StateReady:
		return "ready"
	case StateTornDown:
		return "torn-down"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Error implements the error interface for InvalidStateError.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state %d (valid: 0=unregistered, 1=registering, 2=ready, 3=torn-down, 4=failed)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// Validate returns nil if the State is one of the defined lifecycle states,
// or an error wrapping ErrInvalidState if it is not.
func (s State) Validate() error {
	switch s {
	case StateUnregistered, StateRegistering, StateReady, StateTornDown, StateFailed:
		return nil
	default:
		return &InvalidStateError{Value: s}
	}
}

// IsTerminal returns true if the state is a terminal state (TornDown or Failed).
func (s State) IsTerminal() bool {
	return s == StateTornDown || s == StateFailed
}
