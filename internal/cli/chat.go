// Package cli runs a room-service conversation in the terminal, standing in
// for the voice driver: the operator types actions and reads the prompts.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/roomservice"
	"github.com/aretw0/roomservice/internal/logging"
	"github.com/aretw0/roomservice/internal/runtime"
	"github.com/aretw0/roomservice/pkg/domain"
)

// Service is the engine surface the chat drives.
type Service interface {
	Start(ctx context.Context) (string, runtime.Outcome, error)
	Act(ctx context.Context, sessionID, action string, params map[string]any) (runtime.Outcome, error)
	Session(ctx context.Context, sessionID string) (roomservice.View, error)
	End(ctx context.Context, sessionID string) error
	Registry() *runtime.Registry
}

// Chat is an interactive session on a line-oriented terminal.
type Chat struct {
	svc    Service
	in     io.Reader
	out    io.Writer
	render func(string) (string, error)
	json   bool
	logger *slog.Logger
}

// Option configures the Chat.
type Option func(*Chat)

// WithRenderer formats prompts as markdown (see tui.NewRenderer).
func WithRenderer(fn func(string) (string, error)) Option {
	return func(c *Chat) {
		c.render = fn
	}
}

// WithJSON switches to NDJSON: one {"action":..,"params":{..}} object per
// input line and one turn object per output line.
func WithJSON(enabled bool) Option {
	return func(c *Chat) {
		c.json = enabled
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Chat) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewChat creates a chat reading commands from in and writing to out.
func NewChat(svc Service, in io.Reader, out io.Writer, opts ...Option) *Chat {
	c := &Chat{svc: svc, in: in, out: out, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run plays one conversation until it reaches a terminal node, the operator
// quits, input ends or ctx is canceled. An unfinished session is hung up.
func (c *Chat) Run(ctx context.Context) error {
	id, out, err := c.svc.Start(ctx)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	finished := false
	defer func() {
		if !finished {
			if err := c.svc.End(context.WithoutCancel(ctx), id); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
				c.logger.Warn("Failed to end session", "session_id", id, "err", err)
			}
		}
	}()

	c.logger.Info("Chat session started", "session_id", id)
	c.show(id, out)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	node := out.Node
	for {
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}

		action, params, quit, err := c.command(ctx, id, node, line)
		if quit {
			return nil
		}
		if err != nil {
			c.notice("%v", err)
			continue
		}
		if action == "" {
			continue
		}

		out, err := c.svc.Act(ctx, id, action, params)
		var stateErr *domain.StateError
		if errors.As(err, &stateErr) {
			c.notice("%s is not available here. Try: %s", action, c.offered(node))
			continue
		}
		if err != nil {
			return err
		}

		node = out.Node
		c.show(id, out)
		if out.Terminal {
			finished = true
			return nil
		}
	}
}

// command interprets one input line. Meta commands return an empty action.
func (c *Chat) command(ctx context.Context, id, node, line string) (string, map[string]any, bool, error) {
	if c.json {
		var req struct {
			Action string         `json:"action"`
			Params map[string]any `json:"params"`
		}
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			return "", nil, false, fmt.Errorf("invalid JSON command: %w", err)
		}
		return req.Action, req.Params, false, nil
	}

	switch line {
	case "quit", "exit", "/quit":
		return "", nil, true, nil
	case "help", "?":
		c.notice("Type an action (or its number) followed by its parameters. Available: %s", c.offered(node))
		c.notice("Other commands: order, quit")
		return "", nil, false, nil
	case "order":
		c.printOrder(ctx, id)
		return "", nil, false, nil
	}

	action, params, err := ParseCommand(line, c.svc.Registry(), c.svc.Registry().ActionsFor(node))
	return action, params, false, err
}

func (c *Chat) offered(node string) string {
	var names []string
	for i, spec := range c.svc.Registry().ActionsFor(node) {
		names = append(names, fmt.Sprintf("%d) %s", i+1, spec.Name))
	}
	return strings.Join(names, "  ")
}

func (c *Chat) show(id string, out runtime.Outcome) {
	if c.json {
		payload, err := json.Marshal(map[string]any{
			"session_id": id,
			"node":       out.Node,
			"prompt":     out.Prompt,
			"terminal":   out.Terminal,
			"result":     out.Result,
			"actions":    c.svc.Registry().ActionsFor(out.Node),
		})
		if err != nil {
			c.logger.Error("Failed to encode turn", "err", err)
			return
		}
		fmt.Fprintln(c.out, string(payload))
		return
	}

	if msg := resultMessage(out.Result); msg != "" {
		c.notice("%s", msg)
	}

	var md strings.Builder
	fmt.Fprintf(&md, "%s\n", out.Prompt)
	if !out.Terminal {
		md.WriteString("\n")
		for i, spec := range c.svc.Registry().ActionsFor(out.Node) {
			fmt.Fprintf(&md, "%d. **%s** %s\n", i+1, spec.Name, paramHint(spec))
		}
	}

	text := md.String()
	if c.render != nil {
		if rendered, err := c.render(text); err == nil {
			text = rendered
		} else {
			c.logger.Warn("Markdown rendering failed", "err", err)
		}
	}
	fmt.Fprint(c.out, text)
}

func (c *Chat) printOrder(ctx context.Context, id string) {
	view, err := c.svc.Session(ctx, id)
	if err != nil {
		c.notice("%v", err)
		return
	}
	o := view.State.Order
	if len(o.Lines) == 0 {
		c.notice("The order is empty.")
		return
	}
	for _, l := range o.Lines {
		c.notice("%d x %s  %s", l.Quantity, l.Name, l.TotalPrice)
	}
	c.notice("Total: %s", o.RunningTotal)
}

// notice prints a system message, kept out of the NDJSON stream.
func (c *Chat) notice(format string, args ...any) {
	if c.json {
		c.logger.Info(fmt.Sprintf(format, args...))
		return
	}
	fmt.Fprintf(c.out, ">>> %s\n", fmt.Sprintf(format, args...))
}

func paramHint(spec domain.ActionSpec) string {
	var hints []string
	for _, k := range spec.Params.Keys() {
		if spec.Params[k].Required {
			hints = append(hints, "<"+k+">")
		} else {
			hints = append(hints, "["+k+"=...]")
		}
	}
	return strings.Join(hints, " ")
}

// resultMessage is the one-line summary of an action's outcome.
func resultMessage(r domain.Result) string {
	switch v := r.(type) {
	case domain.ErrorResult:
		return v.Message
	case domain.AddToOrderResult:
		if v.Status == domain.StatusOK {
			return fmt.Sprintf("Added %d x %s. Running total %s.", v.Quantity, v.ItemName, v.OrderTotal)
		}
		return v.Message
	case domain.RemoveFromOrderResult:
		if v.Status == domain.StatusOK {
			return fmt.Sprintf("Removed %s. Running total %s.", v.ItemName, v.OrderTotal)
		}
		return v.Message
	case domain.PlaceOrderResult:
		if v.Status == domain.StatusOK {
			return fmt.Sprintf("Order %s placed, total %s.", v.Reference, v.Total)
		}
		return v.Message
	}
	return ""
}
