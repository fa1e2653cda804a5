package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter    EventType = "node_enter"
	EventNodeLeave    EventType = "node_leave"
	EventActionCall   EventType = "action_call"
	EventActionReturn EventType = "action_return"
	EventOrderPlaced  EventType = "order_placed"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID string `json:"node_id"`
}

// ActionEvent represents an action execution.
type ActionEvent struct {
	EventBase
	NodeID   string        `json:"node_id"`
	Action   string        `json:"action"`
	Outcome  string        `json:"outcome,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
}

// OrderEvent is emitted once the order service accepted an order.
type OrderEvent struct {
	EventBase
	OrderID    string `json:"order_id"`
	GuestID    string `json:"guest_id"`
	RoomNumber string `json:"room_number"`
	Total      Money  `json:"total"`
	Lines      int    `json:"lines"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeEnter    func(context.Context, *NodeEvent)
	OnNodeLeave    func(context.Context, *NodeEvent)
	OnActionCall   func(context.Context, *ActionEvent)
	OnActionReturn func(context.Context, *ActionEvent)
	OnOrderPlaced  func(context.Context, *OrderEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter:    chain(h.OnNodeEnter, other.OnNodeEnter),
		OnNodeLeave:    chain(h.OnNodeLeave, other.OnNodeLeave),
		OnActionCall:   chain(h.OnActionCall, other.OnActionCall),
		OnActionReturn: chain(h.OnActionReturn, other.OnActionReturn),
		OnOrderPlaced:  chain(h.OnOrderPlaced, other.OnOrderPlaced),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
