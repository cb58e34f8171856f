package state_test

import (
	"testing"

	"github.com/atlas-desktop/session-engine/internal/state"
	"github.com/atlas-desktop/session-engine/pkg/types"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to types.SessionStatus
		want     bool
	}{
		{types.SessionStopped, types.SessionRunning, false},
		{types.SessionPaused, types.SessionRunning, true},
		{types.SessionError, types.SessionRunning, false},
		{types.SessionError, types.SessionStopped, true},
		{types.SessionPending, types.SessionRunning, true},
		{types.SessionPending, types.SessionPaused, false},
		{types.SessionRunning, types.SessionPaused, true},
		{types.SessionRunning, types.SessionError, true},
		{types.SessionStopped, types.SessionStopped, false},
	}

	for _, c := range cases {
		got := state.CanTransition(c.from, c.to)
		if got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestCheckTransitionRejection(t *testing.T) {
	err := state.CheckTransition(types.SessionStopped, types.SessionRunning)
	if err == nil {
		t.Fatal("expected an error for an illegal transition")
	}
}
