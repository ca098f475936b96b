package lifecycle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-backend/internal/lifecycle"
)

func TestCanTransitionRejectsUnknownStatus(t *testing.T) {
	err := lifecycle.CanTransition(lifecycle.StatusReceived, "Escalated", false)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidStatus)
}

func TestCanTransitionAllowsNormalFlow(t *testing.T) {
	steps := []struct{ from, to string }{
		{lifecycle.StatusReceived, lifecycle.StatusInProgress},
		{lifecycle.StatusReceived, lifecycle.StatusPending},
		{lifecycle.StatusPending, lifecycle.StatusInProgress},
		{lifecycle.StatusInProgress, lifecycle.StatusResolved},
		{lifecycle.StatusResolved, lifecycle.StatusPending},
		{lifecycle.StatusResolved, lifecycle.StatusClosed},
	}
	for _, s := range steps {
		assert.NoError(t, lifecycle.CanTransition(s.from, s.to, false),
			"%s -> %s should be allowed", s.from, s.to)
	}
}

func TestLockedComplaintRejectsEveryTransition(t *testing.T) {
	for _, target := range []string{
		lifecycle.StatusReceived, lifecycle.StatusPending,
		lifecycle.StatusInProgress, lifecycle.StatusResolved, lifecycle.StatusClosed,
	} {
		err := lifecycle.CanTransition(lifecycle.StatusResolved, target, true)
		assert.ErrorIs(t, err, lifecycle.ErrLocked, "locked complaint must reject %s", target)
	}
}

func TestClosedComplaintIsTerminal(t *testing.T) {
	for _, target := range []string{
		lifecycle.StatusReceived, lifecycle.StatusPending,
		lifecycle.StatusInProgress, lifecycle.StatusResolved, lifecycle.StatusClosed,
	} {
		err := lifecycle.CanTransition(lifecycle.StatusClosed, target, false)
		assert.ErrorIs(t, err, lifecycle.ErrClosed)
	}
	assert.True(t, lifecycle.IsTerminal(lifecycle.StatusClosed, false))
	assert.True(t, lifecycle.IsTerminal(lifecycle.StatusResolved, true))
	assert.False(t, lifecycle.IsTerminal(lifecycle.StatusResolved, false))
}

func TestCanCloseRequiresElevatedRole(t *testing.T) {
	err := lifecycle.CanClose(lifecycle.StatusResolved, false, false)
	assert.ErrorIs(t, err, lifecycle.ErrCloseForbidden)

	assert.NoError(t, lifecycle.CanClose(lifecycle.StatusResolved, false, true))
	assert.NoError(t, lifecycle.CanClose(lifecycle.StatusInProgress, false, true))

	// Lock wins over role.
	err = lifecycle.CanClose(lifecycle.StatusResolved, true, true)
	assert.ErrorIs(t, err, lifecycle.ErrLocked)
}

func TestCheckFeedbackPreconditions(t *testing.T) {
	tests := []struct {
		name        string
		status      string
		locked      bool
		hasFeedback bool
		want        error
	}{
		{"resolved accepts feedback", lifecycle.StatusResolved, false, false, nil},
		{"pending rejects feedback", lifecycle.StatusPending, false, false, lifecycle.ErrNotResolved},
		{"in progress rejects feedback", lifecycle.StatusInProgress, false, false, lifecycle.ErrNotResolved},
		{"closed is immutable", lifecycle.StatusClosed, false, false, lifecycle.ErrClosed},
		{"locked rejects resubmission", lifecycle.StatusResolved, true, true, lifecycle.ErrLocked},
		{"duplicate feedback rejected", lifecycle.StatusResolved, false, true, lifecycle.ErrFeedbackExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := lifecycle.CheckFeedback(tt.status, tt.locked, tt.hasFeedback)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestReopenTarget(t *testing.T) {
	assert.Equal(t, lifecycle.StatusInProgress, lifecycle.ReopenTarget(true))
	assert.Equal(t, lifecycle.StatusPending, lifecycle.ReopenTarget(false))
}

func TestCanDelete(t *testing.T) {
	require.NoError(t, lifecycle.CanDelete(lifecycle.StatusReceived, false))

	for _, status := range []string{
		lifecycle.StatusPending, lifecycle.StatusInProgress,
		lifecycle.StatusResolved, lifecycle.StatusClosed,
	} {
		assert.ErrorIs(t, lifecycle.CanDelete(status, false), lifecycle.ErrNotDeletable)
	}
	assert.ErrorIs(t, lifecycle.CanDelete(lifecycle.StatusReceived, true), lifecycle.ErrNotDeletable)
}

func TestClearsAssignment(t *testing.T) {
	assert.True(t, lifecycle.ClearsAssignment(lifecycle.StatusReceived))
	assert.True(t, lifecycle.ClearsAssignment(lifecycle.StatusPending))
	assert.False(t, lifecycle.ClearsAssignment(lifecycle.StatusInProgress))
	assert.False(t, lifecycle.ClearsAssignment(lifecycle.StatusResolved))
	assert.False(t, lifecycle.ClearsAssignment(lifecycle.StatusClosed))
}

func TestReleasesWorkload(t *testing.T) {
	assert.True(t, lifecycle.ReleasesWorkload(lifecycle.StatusInProgress, lifecycle.StatusResolved))
	assert.True(t, lifecycle.ReleasesWorkload(lifecycle.StatusInProgress, lifecycle.StatusPending))
	assert.False(t, lifecycle.ReleasesWorkload(lifecycle.StatusInProgress, lifecycle.StatusInProgress))
	assert.False(t, lifecycle.ReleasesWorkload(lifecycle.StatusPending, lifecycle.StatusResolved))
}

/// Exhaustive safety check: whatever sequence of manual transitions is tried,
// once a complaint is Closed or locked no target is ever accepted.
func TestTerminalStatesAcceptNothing(t *testing.T) {
	targets := []string{
		lifecycle.StatusReceived, lifecycle.StatusPending,
		lifecycle.StatusInProgress, lifecycle.StatusResolved, lifecycle.StatusClosed,
	}

	for _, from := range targets {
		for _, to := range targets {
			if err := lifecycle.CanTransition(from, to, true); err == nil {
				t.Fatalf("locked complaint allowed %s -> %s", from, to)
			}
			if from == lifecycle.StatusClosed {
				if err := lifecycle.CanTransition(from, to, false); err == nil {
					t.Fatalf("closed complaint allowed transition to %s", to)
				}
			}
		}
	}
}
