package session

import (
	"errors"
	"fmt"
)

// ErrDuplicateSession is returned when a session ID is registered twice.
var ErrDuplicateSession = errors.New("session already registered")

// Termination reasons.
const (
	ReasonCompleted  = "completed"
	ReasonHangUp     = "hang_up"
	ReasonIdle       = "idle_timeout"
	ReasonDisconnect = "driver_disconnect"
	ReasonShutdown   = "shutdown"
)

// TerminatedError is the cancellation cause of a terminated session's context.
type TerminatedError struct {
	SessionID string
	Reason    string
}

func (e *TerminatedError) Error() string {
	return fmt.Sprintf("session %s terminated: %s", e.SessionID, e.Reason)
}
