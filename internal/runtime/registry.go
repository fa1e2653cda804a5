package runtime

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"text/template"

	"github.com/aretw0/roomservice/pkg/domain"
	"github.com/aretw0/roomservice/pkg/session"
)

// Handler executes an action for a session and names the node to move to.
// The returned node must be one of the action's declared successors.
type Handler interface {
	Execute(ctx context.Context, params map[string]any, s *session.Session) (domain.Result, string, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, params map[string]any, s *session.Session) (domain.Result, string, error)

func (f HandlerFunc) Execute(ctx context.Context, params map[string]any, s *session.Session) (domain.Result, string, error) {
	return f(ctx, params, s)
}

// Action binds an action description to its handler.
type Action struct {
	domain.ActionSpec
	Handler Handler
}

// Registry is the static table of nodes and actions of a conversation.
type Registry struct {
	initial string
	nodes   map[string]domain.Node
	order   []string
	actions map[string]Action
	prompts map[string]*template.Template
}

// NewRegistry creates an empty registry whose conversations start at initial.
func NewRegistry(initial string) *Registry {
	return &Registry{
		initial: initial,
		nodes:   make(map[string]domain.Node),
		actions: make(map[string]Action),
		prompts: make(map[string]*template.Template),
	}
}

// AddNode registers a node and compiles its prompt template.
// Prompts use text/template syntax over the session slot values, e.g. {{.guest_name}}.
func (r *Registry) AddNode(n domain.Node) error {
	if n.ID == "" {
		return errors.New("node id is required")
	}
	if _, exists := r.nodes[n.ID]; exists {
		return fmt.Errorf("node %q registered twice", n.ID)
	}
	tmpl, err := template.New(n.ID).Option("missingkey=zero").Parse(n.Prompt)
	if err != nil {
		return fmt.Errorf("node %q: invalid prompt: %w", n.ID, err)
	}
	r.nodes[n.ID] = n
	r.order = append(r.order, n.ID)
	r.prompts[n.ID] = tmpl
	return nil
}

// AddAction registers an action.
func (r *Registry) AddAction(a Action) error {
	if a.Name == "" {
		return errors.New("action name is required")
	}
	if _, exists := r.actions[a.Name]; exists {
		return fmt.Errorf("action %q registered twice", a.Name)
	}
	r.actions[a.Name] = a
	return nil
}

// Validate checks the table once at load time so that no turn can lead to an
// undefined node. All problems are reported together.
func (r *Registry) Validate() error {
	var errs []error
	if _, ok := r.nodes[r.initial]; !ok {
		errs = append(errs, fmt.Errorf("initial node %q is not defined", r.initial))
	}
	for _, id := range r.order {
		n := r.nodes[id]
		if n.Terminal && len(n.Actions) > 0 {
			errs = append(errs, fmt.Errorf("terminal node %q exposes actions", id))
		}
		if !n.Terminal && len(n.Actions) == 0 {
			errs = append(errs, fmt.Errorf("node %q has no actions and is not terminal", id))
		}
		for _, name := range n.Actions {
			if _, ok := r.actions[name]; !ok {
				errs = append(errs, fmt.Errorf("node %q: action %q is not registered", id, name))
			}
		}
	}
	for _, name := range r.actionNames() {
		a := r.actions[name]
		if a.Handler == nil {
			errs = append(errs, fmt.Errorf("action %q has no handler", name))
		}
		if len(a.Next) == 0 {
			errs = append(errs, fmt.Errorf("action %q declares no successor", name))
		}
		for _, next := range a.Next {
			if _, ok := r.nodes[next]; !ok {
				errs = append(errs, fmt.Errorf("action %q: successor %q is not defined", name, next))
			}
		}
		if !a.Leads(a.Fallback) {
			errs = append(errs, fmt.Errorf("action %q: fallback %q is not a declared successor", name, a.Fallback))
		}
	}
	return errors.Join(errs...)
}

// Initial returns the node every conversation starts at.
func (r *Registry) Initial() string { return r.initial }

// Node returns a node by id.
func (r *Registry) Node(id string) (domain.Node, bool) {
	n, ok := r.nodes[id]
	return n, ok
}

// Nodes returns all nodes in registration order.
func (r *Registry) Nodes() []domain.Node {
	out := make([]domain.Node, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.nodes[id])
	}
	return out
}

// Action returns an action by name.
func (r *Registry) Action(name string) (Action, bool) {
	a, ok := r.actions[name]
	return a, ok
}

// Specs returns every action description sorted by name.
func (r *Registry) Specs() []domain.ActionSpec {
	names := r.actionNames()
	out := make([]domain.ActionSpec, 0, len(names))
	for _, name := range names {
		out = append(out, r.actions[name].ActionSpec)
	}
	return out
}

// ActionsFor returns the descriptions of the actions legal in a node, in the
// order the node lists them.
func (r *Registry) ActionsFor(nodeID string) []domain.ActionSpec {
	n, ok := r.nodes[nodeID]
	if !ok {
		return nil
	}
	out := make([]domain.ActionSpec, 0, len(n.Actions))
	for _, name := range n.Actions {
		if a, ok := r.actions[name]; ok {
			out = append(out, a.ActionSpec)
		}
	}
	return out
}

// Render fills the node prompt with slot values. Missing slots render empty.
func (r *Registry) Render(nodeID string, values map[string]string) (string, error) {
	tmpl, ok := r.prompts[nodeID]
	if !ok {
		return "", fmt.Errorf("node %q is not defined", nodeID)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, values); err != nil {
		return "", fmt.Errorf("render %q: %w", nodeID, err)
	}
	return strings.TrimSpace(b.String()), nil
}

func (r *Registry) actionNames() []string {
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
