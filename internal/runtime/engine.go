package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/roomservice/internal/logging"
	"github.com/aretw0/roomservice/pkg/domain"
	"github.com/aretw0/roomservice/pkg/schema"
	"github.com/aretw0/roomservice/pkg/session"
)

var (
	// ErrHandlerPanic marks a recovered panic inside an action handler.
	ErrHandlerPanic = errors.New("action handler panicked")
	// ErrUndeclaredSuccessor marks a handler that chose a node its action does not declare.
	ErrUndeclaredSuccessor = errors.New("handler chose an undeclared successor")
)

// Outcome is the result of one turn.
type Outcome struct {
	Result   domain.Result `json:"result,omitempty"`
	From     string        `json:"from"`
	Node     string        `json:"node"`
	Prompt   string        `json:"prompt"`
	Terminal bool          `json:"terminal"`
	// Fault is the handler or validation error that routed the turn to the
	// action's fallback node. It is informational: the turn itself succeeded.
	Fault error `json:"-"`
}

// Engine drives sessions through the node registry.
type Engine struct {
	registry *Registry
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	sanitize func(string) (string, error)
	tracer   trace.Tracer
	now      func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithInputSanitizer replaces SanitizeInput for string parameters. A nil
// function disables sanitisation.
func WithInputSanitizer(fn func(string) (string, error)) Option {
	return func(e *Engine) {
		e.sanitize = fn
	}
}

// NewEngine validates the registry and creates an engine for it.
func NewEngine(registry *Registry, opts ...Option) (*Engine, error) {
	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid node registry: %w", err)
	}
	e := &Engine{
		registry: registry,
		logger:   logging.NewNop(),
		sanitize: SanitizeInput,
		tracer:   otel.Tracer("github.com/aretw0/roomservice/internal/runtime"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Registry returns the node table the engine runs.
func (e *Engine) Registry() *Registry { return e.registry }

// Begin announces the session's current node and renders its prompt.
// It is called once when a conversation starts or is resumed.
func (e *Engine) Begin(ctx context.Context, s *session.Session) (Outcome, error) {
	node, ok := e.registry.Node(s.NodeID())
	if !ok {
		return Outcome{}, fmt.Errorf("session %s is at unknown node %q", s.ID, s.NodeID())
	}
	e.emitNodeEnter(ctx, s.ID, node.ID)
	return Outcome{
		From:     node.ID,
		Node:     node.ID,
		Prompt:   e.render(s, node),
		Terminal: node.Terminal,
	}, nil
}

// Transition runs one action for the session.
//
// An action that the current node does not allow is rejected with a
// *domain.StateError and the session is left untouched. Any other failure
// (bad parameters, handler error or panic, undeclared successor) is logged and
// the session is moved to the action's fallback node with an ErrorResult, so
// the conversation always lands on a defined node.
func (e *Engine) Transition(ctx context.Context, s *session.Session, action string, params map[string]any) (Outcome, error) {
	current, ok := e.registry.Node(s.NodeID())
	if !ok {
		return Outcome{}, fmt.Errorf("session %s is at unknown node %q", s.ID, s.NodeID())
	}
	act, registered := e.registry.Action(action)
	if !registered || !current.Allows(action) {
		e.logger.Warn("action rejected in current node",
			"session_id", s.ID, "room", s.Order().RoomNumber(), "node", current.ID, "action", action)
		return Outcome{}, &domain.StateError{NodeID: current.ID, Action: action}
	}

	ctx, span := e.tracer.Start(ctx, "roomservice.transition", trace.WithAttributes(
		attribute.String("session.id", s.ID),
		attribute.String("node.id", current.ID),
		attribute.String("action", action),
	))
	defer span.End()

	start := e.now()
	e.emitActionCall(ctx, s.ID, current.ID, action)

	result, next, fault := e.execute(ctx, act, params, s)
	if fault != nil {
		e.logger.Error("action failed",
			"session_id", s.ID, "room", s.Order().RoomNumber(), "node", current.ID, "action", action,
			"fallback", act.Fallback, "err", fault)
		span.RecordError(fault)
		span.SetStatus(codes.Error, fault.Error())
		next = act.Fallback
		result = domain.ErrorResult{Action: action, Message: faultMessage(fault)}
	}
	if result == nil {
		result = domain.PromptResult{}
	}

	e.emitActionReturn(ctx, s.ID, current.ID, action, domain.Outcome(result), e.now().Sub(start), fault != nil)

	if next != current.ID {
		e.emitNodeLeave(ctx, s.ID, current.ID)
		s.MoveTo(next)
		e.emitNodeEnter(ctx, s.ID, next)
	}
	target, _ := e.registry.Node(next)
	span.SetAttributes(attribute.String("node.next", next))

	e.logger.Debug("transition",
		"session_id", s.ID, "room", s.Order().RoomNumber(), "from", current.ID, "to", next, "action", action)

	return Outcome{
		Result:   result,
		From:     current.ID,
		Node:     next,
		Prompt:   e.render(s, target),
		Terminal: target.Terminal,
		Fault:    fault,
	}, nil
}

// execute prepares the parameters and runs the handler, converting every
// failure into a fault.
func (e *Engine) execute(ctx context.Context, act Action, params map[string]any, s *session.Session) (domain.Result, string, error) {
	if params == nil {
		params = map[string]any{}
	}
	if e.sanitize != nil {
		clean, err := sanitizeParams(params, e.sanitize)
		if err != nil {
			return nil, "", &domain.ValidationError{Action: act.Name, Err: err}
		}
		params = clean
	}
	if err := schema.Validate(act.Params, params); err != nil {
		return nil, "", &domain.ValidationError{Action: act.Name, Err: err}
	}

	result, next, err := e.invoke(ctx, act, params, s)
	if err != nil {
		return nil, "", err
	}
	if !act.Leads(next) {
		return nil, "", fmt.Errorf("%w: %s returned %q", ErrUndeclaredSuccessor, act.Name, next)
	}
	return result, next, nil
}

func (e *Engine) invoke(ctx context.Context, act Action, params map[string]any, s *session.Session) (result domain.Result, next string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	bound, cancel := s.Bind(ctx)
	defer cancel()
	return act.Handler.Execute(bound, params, s)
}

func (e *Engine) render(s *session.Session, node domain.Node) string {
	prompt, err := e.registry.Render(node.ID, s.Values())
	if err != nil {
		e.logger.Warn("prompt rendering failed", "session_id", s.ID, "node", node.ID, "err", err)
		return node.Prompt
	}
	return prompt
}

// faultMessage is the guest-safe description of a fault.
func faultMessage(err error) string {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	var serr *domain.SubmissionError
	if errors.As(err, &serr) {
		return serr.Message
	}
	return "Something went wrong on our side."
}

func (e *Engine) emitNodeEnter(ctx context.Context, sessionID, nodeID string) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventNodeEnter, SessionID: sessionID},
		NodeID:    nodeID,
	})
}

func (e *Engine) emitNodeLeave(ctx context.Context, sessionID, nodeID string) {
	if e.hooks.OnNodeLeave == nil {
		return
	}
	e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventNodeLeave, SessionID: sessionID},
		NodeID:    nodeID,
	})
}

func (e *Engine) emitActionCall(ctx context.Context, sessionID, nodeID, action string) {
	if e.hooks.OnActionCall == nil {
		return
	}
	e.hooks.OnActionCall(ctx, &domain.ActionEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventActionCall, SessionID: sessionID},
		NodeID:    nodeID,
		Action:    action,
	})
}

func (e *Engine) emitActionReturn(ctx context.Context, sessionID, nodeID, action, outcome string, took time.Duration, isErr bool) {
	if e.hooks.OnActionReturn == nil {
		return
	}
	e.hooks.OnActionReturn(ctx, &domain.ActionEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventActionReturn, SessionID: sessionID},
		NodeID:    nodeID,
		Action:    action,
		Outcome:   outcome,
		Duration:  took,
		IsError:   isErr,
	})
}
