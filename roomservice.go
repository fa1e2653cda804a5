package roomservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/roomservice/internal/flow"
	"github.com/aretw0/roomservice/internal/logging"
	"github.com/aretw0/roomservice/internal/runtime"
	"github.com/aretw0/roomservice/pkg/adapters/memory"
	"github.com/aretw0/roomservice/pkg/adapters/process"
	"github.com/aretw0/roomservice/pkg/catalog"
	"github.com/aretw0/roomservice/pkg/domain"
	"github.com/aretw0/roomservice/pkg/gateway"
	"github.com/aretw0/roomservice/pkg/observability"
	"github.com/aretw0/roomservice/pkg/order"
	"github.com/aretw0/roomservice/pkg/ports"
	"github.com/aretw0/roomservice/pkg/resolver"
	"github.com/aretw0/roomservice/pkg/session"
)

// Version is overridden at build time with -ldflags "-X github.com/aretw0/roomservice.Version=...".
var Version = "0.1.0-dev"

// Service is the room-service ordering engine: the dialogue state machine,
// its live sessions and the backends the actions talk to.
type Service struct {
	engine  *runtime.Engine
	manager *session.Manager
	catalog *catalog.Cache
	metrics *observability.Metrics
	logger  *slog.Logger
}

type settings struct {
	logger        *slog.Logger
	hooks         domain.LifecycleHooks
	store         ports.SessionStore
	locker        ports.DistributedLocker
	lockTTL       time.Duration
	publisher     ports.EventPublisher
	registerer    prometheus.Registerer
	threshold     float64
	maxOrderItems int
	catalogMaxAge time.Duration
	fetchTimeout  time.Duration
	processes     []process.Spec
	processGrace  time.Duration
}

// Option configures the Service.
type Option func(*settings)

// WithLogger sets the structured logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks. Multiple calls are merged.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *settings) {
		s.hooks = s.hooks.Merge(hooks)
	}
}

// WithSessionStore persists session snapshots. Defaults to an in-memory store.
func WithSessionStore(store ports.SessionStore) Option {
	return func(s *settings) {
		s.store = store
	}
}

// WithLocker serialises turns of one session across replicas.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(s *settings) {
		s.locker = locker
		s.lockTTL = ttl
	}
}

// WithPublisher announces placed orders to other systems.
func WithPublisher(p ports.EventPublisher) Option {
	return func(s *settings) {
		s.publisher = p
	}
}

// WithMetrics registers the Prometheus collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *settings) {
		s.registerer = reg
	}
}

// WithResolverThreshold tunes how much of a spoken name must match a menu item.
func WithResolverThreshold(t float64) Option {
	return func(s *settings) {
		s.threshold = t
	}
}

// WithMaxOrderItems caps the number of lines per order.
func WithMaxOrderItems(n int) Option {
	return func(s *settings) {
		s.maxOrderItems = n
	}
}

// WithCatalogMaxAge refreshes the catalog snapshot once it is older than d.
// Zero keeps the first snapshot for the lifetime of the process.
func WithCatalogMaxAge(d time.Duration) Option {
	return func(s *settings) {
		s.catalogMaxAge = d
	}
}

// WithCatalogFetchTimeout bounds a catalog refresh.
func WithCatalogFetchTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.fetchTimeout = d
	}
}

// WithProcesses starts specs alongside every new session and stops them when
// the session ends.
func WithProcesses(specs []process.Spec, grace time.Duration) Option {
	return func(s *settings) {
		s.processes = specs
		s.processGrace = grace
	}
}

// New wires a Service on top of the hotel backends.
func New(catalogSvc ports.CatalogService, guests ports.GuestService, orders ports.OrderService, opts ...Option) (*Service, error) {
	cfg := settings{
		logger:    logging.NewNop(),
		threshold: resolver.DefaultThreshold,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.store == nil {
		cfg.store = memory.NewStore()
	}

	svc := &Service{logger: cfg.logger}

	if cfg.registerer != nil {
		m, err := observability.NewMetrics(cfg.registerer)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		svc.metrics = m
		cfg.hooks = cfg.hooks.Merge(m.Hooks())
	}

	cacheOpts := []catalog.Option{catalog.WithLogger(cfg.logger), catalog.WithMaxAge(cfg.catalogMaxAge)}
	if cfg.fetchTimeout > 0 {
		cacheOpts = append(cacheOpts, catalog.WithFetchTimeout(cfg.fetchTimeout))
	}
	if svc.metrics != nil {
		cacheOpts = append(cacheOpts, catalog.WithObserver(svc.metrics.ObserveCatalogRefresh))
	}
	svc.catalog = catalog.New(catalogSvc, cacheOpts...)

	flowOpts := []flow.Option{
		flow.WithResolver(resolver.New(resolver.WithThreshold(cfg.threshold))),
		flow.WithLifecycleHooks(cfg.hooks),
		flow.WithLogger(cfg.logger),
	}
	if cfg.publisher != nil {
		flowOpts = append(flowOpts, flow.WithPublisher(cfg.publisher))
	}
	f := flow.New(svc.catalog, guests, gateway.New(orders, gateway.WithLogger(cfg.logger)), flowOpts...)

	reg, err := f.Registry()
	if err != nil {
		return nil, err
	}
	svc.engine, err = runtime.NewEngine(reg,
		runtime.WithLogger(cfg.logger),
		runtime.WithLifecycleHooks(cfg.hooks))
	if err != nil {
		return nil, err
	}

	svc.manager = session.NewManager(cfg.store, svc.managerOptions(cfg, reg.Initial())...)
	return svc, nil
}

// NewDemo runs the Service against the seeded in-memory hotel.
func NewDemo(opts ...Option) (*Service, *memory.Backend, error) {
	b := memory.NewDemoBackend()
	svc, err := New(b, b, b, opts...)
	if err != nil {
		return nil, nil, err
	}
	return svc, b, nil
}

func (svc *Service) managerOptions(cfg settings, initial string) []session.ManagerOption {
	var orderOpts []order.Option
	if cfg.maxOrderItems > 0 {
		orderOpts = append(orderOpts, order.WithMaxLines(cfg.maxOrderItems))
	}
	procLogger := cfg.logger.With("component", "process")

	opts := []session.ManagerOption{
		session.WithLogger(cfg.logger),
		session.WithInitialNode(initial),
		session.WithSessionOptions(func() []session.Option {
			sopts := []session.Option{session.WithOrderOptions(orderOpts...)}
			if len(cfg.processes) > 0 {
				sopts = append(sopts, session.WithProcesses(
					process.NewGroup(process.WithGrace(cfg.processGrace), process.WithLogger(procLogger))))
			}
			return sopts
		}),
		session.WithStartHook(func(ctx context.Context, s *session.Session) error {
			if svc.metrics != nil {
				svc.metrics.SessionStarted()
			}
			group := s.Processes()
			if group == nil {
				return nil
			}
			for _, spec := range cfg.processes {
				if _, err := group.Start(ctx, spec, map[string]string{"SESSION_ID": s.ID}); err != nil {
					return fmt.Errorf("start process %s: %w", spec.Name, err)
				}
			}
			return nil
		}),
		session.WithEndHook(func(s *session.Session) {
			if svc.metrics != nil {
				svc.metrics.SessionEnded(s.EndReason())
			}
			svc.logger.Info("Session ended", "session_id", s.ID, "reason", s.EndReason())
		}),
	}
	if cfg.locker != nil {
		opts = append(opts, session.WithLocker(cfg.locker, cfg.lockTTL))
	}
	return opts
}

// Start opens a new conversation and returns its greeting.
func (svc *Service) Start(ctx context.Context) (string, runtime.Outcome, error) {
	s, err := svc.manager.Start(ctx)
	if err != nil {
		return "", runtime.Outcome{}, err
	}
	var out runtime.Outcome
	err = svc.manager.Turn(ctx, s.ID, func(ctx context.Context, s *session.Session) (bool, error) {
		var err error
		out, err = svc.engine.Begin(ctx, s)
		return false, err
	})
	if err != nil {
		return "", runtime.Outcome{}, err
	}
	return s.ID, out, nil
}

// Act runs one action on the session. The session ends once it reaches a
// terminal node. A *domain.StateError means the action is not available at
// the current node and nothing changed. A *session.TerminatedError means the
// session ended while the action ran and its outcome was discarded.
func (svc *Service) Act(ctx context.Context, sessionID, action string, params map[string]any) (runtime.Outcome, error) {
	var out runtime.Outcome
	err := svc.manager.Turn(ctx, sessionID, func(ctx context.Context, s *session.Session) (bool, error) {
		var err error
		out, err = svc.engine.Transition(ctx, s, action, params)
		if err != nil {
			return false, err
		}
		return out.Terminal, nil
	})
	if err != nil {
		return runtime.Outcome{}, err
	}
	return out, nil
}

// View is a read-only look at a live session.
type View struct {
	State   *domain.SessionState `json:"state"`
	Prompt  string               `json:"prompt"`
	Actions []domain.ActionSpec  `json:"actions"`
}

// Session returns the current view of a session.
func (svc *Service) Session(ctx context.Context, sessionID string) (View, error) {
	state, err := svc.manager.State(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	prompt, err := svc.engine.Registry().Render(state.NodeID, state.Values)
	if err != nil {
		return View{}, err
	}
	return View{
		State:   state,
		Prompt:  prompt,
		Actions: svc.engine.Registry().ActionsFor(state.NodeID),
	}, nil
}

// End hangs up the session. An action in flight is abandoned: a pending
// submission is canceled and its outcome discarded. Unknown sessions report domain.ErrSessionNotFound.
func (svc *Service) End(ctx context.Context, sessionID string) error {
	err := svc.manager.End(ctx, sessionID, session.ReasonHangUp)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.ErrSessionNotFound
	}
	return err
}

// ReapIdle ends sessions without a turn for longer than maxIdle.
func (svc *Service) ReapIdle(ctx context.Context, maxIdle time.Duration) []string {
	return svc.manager.ReapIdle(ctx, maxIdle)
}

// Shutdown terminates every live session.
func (svc *Service) Shutdown(ctx context.Context) int {
	return svc.manager.Shutdown(ctx)
}

// Registry exposes the node table for drivers that list nodes and actions.
func (svc *Service) Registry() *runtime.Registry { return svc.engine.Registry() }

// Catalog is the shared menu snapshot.
func (svc *Service) Catalog() *catalog.Cache { return svc.catalog }

// LiveSessions is the number of sessions currently in memory.
func (svc *Service) LiveSessions() int { return svc.manager.Registry().Len() }
