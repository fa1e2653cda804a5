package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrGuestNotFound is returned by the guest service when a room has no registered guest.
var ErrGuestNotFound = errors.New("guest not found")

// StateError rejects an action that is not legal in the current node.
// The session stays where it was and no handler runs.
type StateError struct {
	NodeID string
	Action string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("action %q is not allowed in node %q", e.Action, e.NodeID)
}

// ValidationError reports bad or missing action parameters.
type ValidationError struct {
	Action string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid parameters for %s: %v", e.Action, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NotFoundError reports an unknown room, category or item. Input echoes what
// the guest said so the next prompt can repeat it.
type NotFoundError struct {
	Kind  string
	Input string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Input)
}

// RemoteServiceError wraps a failed call to the catalog, guest or order service.
type RemoteServiceError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *RemoteServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s service returned status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s service unreachable: %v", e.Service, e.Err)
}

func (e *RemoteServiceError) Unwrap() error { return e.Err }

// SubmissionErrorKind classifies a failed submission.
type SubmissionErrorKind string

const (
	SubmissionMissingGuest SubmissionErrorKind = "missing_guest"
	SubmissionEmptyOrder   SubmissionErrorKind = "empty_order"
	SubmissionRemote       SubmissionErrorKind = "remote"
	SubmissionAbandoned    SubmissionErrorKind = "abandoned"
)

// SubmissionError is returned by the order gateway.
type SubmissionError struct {
	Kind    SubmissionErrorKind
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("order submission failed (%s): %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("order submission failed (%s)", e.Kind)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// IsSubmissionKind reports whether err is a SubmissionError of the given kind.
func IsSubmissionKind(err error, kind SubmissionErrorKind) bool {
	var se *SubmissionError
	return errors.As(err, &se) && se.Kind == kind
}
