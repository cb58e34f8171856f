// Package state implements the session lifecycle state machine
// (spec.md §4.1).
package state

import (
	"github.com/atlas-desktop/session-engine/internal/apierr"
	"github.com/atlas-desktop/session-engine/pkg/types"
)

// transitions is the complete legal-transition table from spec.md §4.1.
// STOPPED is terminal: it maps to an empty (but present) set.
var transitions = map[types.SessionStatus]map[types.SessionStatus]struct{}{
	types.SessionPending: set(types.SessionRunning, types.SessionStopped),
	types.SessionRunning: set(types.SessionPaused, types.SessionStopped, types.SessionError),
	types.SessionPaused:  set(types.SessionRunning, types.SessionStopped),
	types.SessionStopped: set(),
	types.SessionError:   set(types.SessionStopped),
}

func set(statuses ...types.SessionStatus) map[types.SessionStatus]struct{} {
	m := make(map[types.SessionStatus]struct{}, len(statuses))
	for _, s := range statuses {
		m[s] = struct{}{}
	}
	return m
}

// CanTransition reports whether moving a session from "from" to "to" is
// legal per spec.md §4.1. It is the sole authority on transition
// legality; executor latches reflect but never decide it.
func CanTransition(from, to types.SessionStatus) bool {
	targets, ok := transitions[from]
	if !ok {
		return false
	}
	_, allowed := targets[to]
	return allowed
}

// verbForTarget renders the user-facing verb used in a rejected-transition
// message, matching spec.md §4.1's "Cannot X session in 'Y' state" shape.
func verbForTarget(to types.SessionStatus) string {
	switch to {
	case types.SessionRunning:
		return "start"
	case types.SessionPaused:
		return "pause"
	case types.SessionStopped:
		return "stop"
	case types.SessionError:
		return "fail"
	default:
		return "transition"
	}
}

// CheckTransition returns a KindState *apierr.Error if the transition is
// illegal, or nil if it is legal. Callers must check this before mutating
// a session's stored status.
func CheckTransition(from, to types.SessionStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return apierr.State("cannot %s session in '%s' state", verbForTarget(to), from)
}
