// Package lifecycle implements the complaint state machine as pure rules,
// independent of storage. Handlers consult it before touching the database
// so the terminal and locking invariants cannot be bypassed.
package lifecycle

import "errors"

// Complaint statuses.
const (
	StatusReceived   = "Received"
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusResolved   = "Resolved"
	StatusClosed     = "Closed"
)

var validStatuses = map[string]bool{
	StatusReceived:   true,
	StatusPending:    true,
	StatusInProgress: true,
	StatusResolved:   true,
	StatusClosed:     true,
}

// Rule violations. Handlers map these onto the HTTP error taxonomy:
// ErrInvalidStatus -> 422, ErrLocked/ErrClosed/ErrNotResolved/
// ErrFeedbackExists -> 409, ErrCloseForbidden -> 403.
var (
	ErrInvalidStatus  = errors.New("unknown complaint status")
	ErrLocked         = errors.New("complaint is locked after satisfied feedback")
	ErrClosed         = errors.New("complaint is closed and can no longer change")
	ErrNotResolved    = errors.New("feedback requires the complaint to be resolved")
	ErrFeedbackExists = errors.New("feedback has already been submitted")
	ErrCloseForbidden = errors.New("closing a complaint requires an elevated role")
	ErrNotDeletable   = errors.New("only unstarted complaints can be deleted")
)

// IsValidStatus reports whether s is a known status.
func IsValidStatus(s string) bool {
	return validStatuses[s]
}

// IsTerminal reports whether a complaint in the given state accepts no
// further transitions. Closed is terminal; so is any locked complaint.
func IsTerminal(status string, locked bool) bool {
	return locked || status == StatusClosed
}

// CanTransition checks whether a manual transition from current to target is
// legal. Re-closing a Closed complaint returns ErrClosed so the caller can
// treat it as the one permitted no-op.
func CanTransition(current, target string, locked bool) error {
	if !validStatuses[target] {
		return ErrInvalidStatus
	}
	if locked {
		return ErrLocked
	}
	if current == StatusClosed {
		return ErrClosed
	}
	return nil
}

// CanClose layers the role requirement on top of CanTransition for a direct
// transition into Closed. The ordinary path passes through Resolved first.
func CanClose(current string, locked, elevated bool) error {
	if err := CanTransition(current, StatusClosed, locked); err != nil {
		return err
	}
	if !elevated {
		return ErrCloseForbidden
	}
	return nil
}

// CheckFeedback validates the preconditions for submitting feedback.
// A Closed complaint yields ErrClosed (immutable), a locked one ErrLocked,
// anything not Resolved ErrNotResolved, and a second submission
// ErrFeedbackExists.
func CheckFeedback(current string, locked, hasFeedback bool) error {
	if locked {
		return ErrLocked
	}
	if current == StatusClosed {
		return ErrClosed
	}
	if current != StatusResolved {
		return ErrNotResolved
	}
	if hasFeedback {
		return ErrFeedbackExists
	}
	return nil
}

// ReopenTarget picks the status an unsatisfied complaint returns to:
// In Progress when a staff member is still assigned, Pending otherwise.
func ReopenTarget(assigned bool) string {
	if assigned {
		return StatusInProgress
	}
	return StatusPending
}

// CanDelete permits physical deletion only while the complaint is still
// Received and unlocked, so started work keeps its historical record.
func CanDelete(current string, locked bool) error {
	if current != StatusReceived || locked {
		return ErrNotDeletable
	}
	return nil
}

// ClearsAssignment reports whether transitioning to target releases the
// current staff assignment. Moving back into a queue state un-assigns the
// member; Resolved and Closed keep the assignee as the record of who handled
// the complaint.
func ClearsAssignment(target string) bool {
	return target == StatusReceived || target == StatusPending
}

// ReleasesWorkload reports whether a complaint leaving the given status frees
// up its assignee's workload slot. Slots are held while work is open.
func ReleasesWorkload(current, target string) bool {
	openBefore := current == StatusInProgress
	openAfter := target == StatusInProgress
	return openBefore && !openAfter
}
