package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/roomservice/pkg/adapters/process"
	"github.com/aretw0/roomservice/pkg/domain"
	"github.com/aretw0/roomservice/pkg/order"
)

// Slot names written by the action handlers and read by prompt templates.
const (
	SlotGuestName     = "guest_name"
	SlotRoomNumber    = "room_number"
	SlotCategory      = "category"
	SlotItemName      = "item_name"
	SlotQuantity      = "quantity"
	SlotRequested     = "requested"
	SlotOrderID       = "order_id"
	SlotEstimatedTime = "estimated_time"
	SlotSummary       = "summary"
)

// Session is one guest conversation. Its accessors and mutating methods must
// only be called from within the session's turn (see Manager.Turn); State,
// Cancel and Terminate are safe from any goroutine.
type Session struct {
	ID        string
	CreatedAt time.Time

	// mu is held for a whole turn and by Terminate and State. It guards
	// nodeID, history, values and order.
	mu      sync.Mutex
	nodeID  string
	history []string
	values  map[string]string
	order   *order.Aggregate
	procs   *process.Group

	ctx    context.Context
	cancel context.CancelCauseFunc

	lastActive atomic.Int64
	terminated atomic.Bool
	endOnce    sync.Once
	endReason  string
}

// Option configures a Session.
type Option func(*Session)

// WithOrderOptions configures the order aggregate.
func WithOrderOptions(opts ...order.Option) Option {
	return func(s *Session) {
		s.order = order.New(opts...)
	}
}

// WithProcesses attaches a process group stopped on termination.
func WithProcesses(g *process.Group) Option {
	return func(s *Session) {
		s.procs = g
	}
}

// New creates a session positioned at initialNode.
func New(id, initialNode string, opts ...Option) *Session {
	ctx, cancel := context.WithCancelCause(context.Background())
	now := time.Now()
	s := &Session{
		ID:        id,
		CreatedAt: now,
		nodeID:    initialNode,
		history:   []string{initialNode},
		values:    make(map[string]string),
		order:     order.New(),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastActive.Store(now.UnixNano())
	return s
}

func (s *Session) NodeID() string { return s.nodeID }
func (s *Session) Order() *order.Aggregate { return s.order }

// Processes returns the attached process group, or nil.
func (s *Session) Processes() *process.Group { return s.procs }

// History returns the visited nodes, oldest first.
func (s *Session) History() []string {
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

// MoveTo records a transition. Staying on the same node is not recorded twice.
func (s *Session) MoveTo(nodeID string) {
	if nodeID == s.nodeID {
		return
	}
	s.nodeID = nodeID
	s.history = append(s.history, nodeID)
}

func (s *Session) Value(key string) string { return s.values[key] }

func (s *Session) SetValue(key, value string) {
	if value == "" {
		delete(s.values, key)
		return
	}
	s.values[key] = value
}

// Values returns a copy of the slot values.
func (s *Session) Values() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Context is canceled when the session terminates.
func (s *Session) Context() context.Context { return s.ctx }

// Bind derives a context that is canceled when either ctx or the session ends.
// Work started for a turn, such as an order submission, is abandoned with the session.
func (s *Session) Bind(ctx context.Context) (context.Context, context.CancelFunc) {
	bound, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return bound, func() {
		stop()
		cancel()
	}
}

// Touch marks the session as active.
func (s *Session) Touch(now time.Time) { s.lastActive.Store(now.UnixNano()) }

// LastActive is the time of the last turn.
func (s *Session) LastActive() time.Time { return time.Unix(0, s.lastActive.Load()) }

// Terminated reports whether Terminate ran.
func (s *Session) Terminated() bool { return s.terminated.Load() }

// EndReason returns why the session was terminated.
func (s *Session) EndReason() string {
	if !s.Terminated() {
		return ""
	}
	return s.endReason
}

// Canceled reports whether the session context was canceled. A turn
// running on a canceled session must discard its result.
func (s *Session) Canceled() bool { return s.ctx.Err() != nil }

// Cancel cancels the session context without waiting for the running turn,
// so an in-flight submission is abandoned. The first reason wins.
func (s *Session) Cancel(reason string) {
	s.cancel(&TerminatedError{SessionID: s.ID, Reason: reason})
}

// Terminate ends the session: in-flight work is canceled, then, once the
// running turn has returned, the order is reset and session processes are
// stopped (SIGTERM, then kill after the grace window). It is idempotent and
// blocks until processes exited. It must not be called from within a turn.
func (s *Session) Terminate(reason string) {
	s.Cancel(reason)
	s.endOnce.Do(func() {
		s.endReason = reason
		s.terminated.Store(true)

		s.mu.Lock()
		s.order.Reset()
		s.mu.Unlock()

		if s.procs != nil {
			s.procs.Stop()
		}
	})
}

// State returns the persisted view of the session. It waits for the running
// turn, if any.
func (s *Session) State() *domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

func (s *Session) state() *domain.SessionState {
	return &domain.SessionState{
		ID:        s.ID,
		NodeID:    s.nodeID,
		History:   s.History(),
		Values:    s.Values(),
		Order:     s.order.Snapshot(),
		UpdatedAt: s.LastActive().UTC(),
	}
}

// Restore rebuilds a session from a persisted state.
func Restore(state *domain.SessionState, opts ...Option) *Session {
	s := New(state.ID, state.NodeID, opts...)
	if len(state.History) > 0 {
		s.history = append([]string(nil), state.History...)
	}
	for k, v := range state.Values {
		s.values[k] = v
	}
	s.order.Restore(state.Order)
	if !state.UpdatedAt.IsZero() {
		s.Touch(state.UpdatedAt)
	}
	return s
}
