// Package flow defines the room-service conversation: the node table and the
// handlers behind each action.
package flow

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/roomservice/internal/logging"
	"github.com/aretw0/roomservice/internal/runtime"
	"github.com/aretw0/roomservice/pkg/domain"
	"github.com/aretw0/roomservice/pkg/ports"
	"github.com/aretw0/roomservice/pkg/resolver"
)

//go:embed nodes.yaml
var nodesYAML []byte

// Table is the declarative part of the conversation.
type Table struct {
	Initial string              `yaml:"initial"`
	Nodes   []domain.Node       `yaml:"nodes"`
	Actions []domain.ActionSpec `yaml:"actions"`
}

// LoadTable parses the embedded node table and attaches parameter schemas.
func LoadTable() (Table, error) {
	return ParseTable(nodesYAML)
}

// ParseTable parses a node table document.
func ParseTable(data []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("parse node table: %w", err)
	}
	for i := range t.Actions {
		t.Actions[i].Params = paramSchemas[t.Actions[i].Name]
	}
	return t, nil
}

// Catalog is the read side of the menu used by the handlers.
type Catalog interface {
	Categories(ctx context.Context, forceRefresh bool) []domain.Category
	Items(ctx context.Context, forceRefresh bool) []domain.MenuItem
	ItemsByCategory(ctx context.Context, categoryID string) []domain.MenuItem
}

// Submitter places a finished order.
type Submitter interface {
	Submit(ctx context.Context, o domain.OrderSnapshot) (domain.PlacedOrder, error)
}

// Flow holds the collaborators of the action handlers.
type Flow struct {
	catalog   Catalog
	guests    ports.GuestService
	submitter Submitter
	resolver  *resolver.Resolver
	publisher ports.EventPublisher
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
}

// Option configures a Flow.
type Option func(*Flow)

// WithResolver replaces the default menu item resolver.
func WithResolver(r *resolver.Resolver) Option {
	return func(f *Flow) {
		if r != nil {
			f.resolver = r
		}
	}
}

// WithPublisher announces placed orders to other systems.
func WithPublisher(p ports.EventPublisher) Option {
	return func(f *Flow) {
		f.publisher = p
	}
}

// WithLifecycleHooks registers the OnOrderPlaced callback.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(f *Flow) {
		f.hooks = f.hooks.Merge(hooks)
	}
}

// WithLogger sets the handler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates the room-service flow.
func New(catalog Catalog, guests ports.GuestService, submitter Submitter, opts ...Option) *Flow {
	f := &Flow{
		catalog:   catalog,
		guests:    guests,
		submitter: submitter,
		resolver:  resolver.New(),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Registry builds the validated node registry with the flow's handlers bound.
func (f *Flow) Registry() (*runtime.Registry, error) {
	table, err := LoadTable()
	if err != nil {
		return nil, err
	}
	return f.build(table)
}

func (f *Flow) build(table Table) (*runtime.Registry, error) {
	handlers := f.handlers()
	reg := runtime.NewRegistry(table.Initial)
	for _, n := range table.Nodes {
		if err := reg.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, spec := range table.Actions {
		h, ok := handlers[spec.Name]
		if !ok {
			return nil, fmt.Errorf("action %q has no handler", spec.Name)
		}
		if err := reg.AddAction(runtime.Action{ActionSpec: spec, Handler: h}); err != nil {
			return nil, err
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

func (f *Flow) handlers() map[string]runtime.Handler {
	return map[string]runtime.Handler{
		domain.ActionRequestRoomNumber:  runtime.HandlerFunc(f.requestRoomNumber),
		domain.ActionValidateRoom:       runtime.HandlerFunc(f.validateRoom),
		domain.ActionShowCategories:     runtime.HandlerFunc(f.showCategories),
		domain.ActionSelectCategory:     runtime.HandlerFunc(f.selectCategory),
		domain.ActionAddToOrder:         runtime.HandlerFunc(f.addToOrder),
		domain.ActionRemoveFromOrder:    runtime.HandlerFunc(f.removeFromOrder),
		domain.ActionContinueOrdering:   runtime.HandlerFunc(f.continueOrdering),
		domain.ActionSetSpecialRequests: runtime.HandlerFunc(f.setSpecialRequests),
		domain.ActionPlaceOrder:         runtime.HandlerFunc(f.placeOrder),
		domain.ActionEndCall:            runtime.HandlerFunc(f.endCall),
	}
}
