package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/roomservice/internal/logging"
	"github.com/aretw0/roomservice/pkg/domain"
	"github.com/aretw0/roomservice/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a distributed session lock is held.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring turns of one session never
// run concurrently. It uses reference counting to garbage collect unused locks.
type Manager struct {
	store    ports.SessionStore
	registry *Registry

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger

	initialNode string
	newID       func() string
	sessionOpts func() []Option
	onStart     func(context.Context, *Session) error
	onEnd       func(*Session)
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.locker = locker
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithInitialNode sets the node new sessions start at.
func WithInitialNode(nodeID string) ManagerOption {
	return func(m *Manager) {
		m.initialNode = nodeID
	}
}

// WithIDGenerator overrides session ID generation.
func WithIDGenerator(fn func() string) ManagerOption {
	return func(m *Manager) {
		m.newID = fn
	}
}

// WithSessionOptions supplies per-session options. It is called once per
// session so each gets its own aggregate and process group.
func WithSessionOptions(fn func() []Option) ManagerOption {
	return func(m *Manager) {
		m.sessionOpts = fn
	}
}

// WithStartHook runs after a session is registered, e.g. to launch its processes.
// A failing hook ends the session.
func WithStartHook(fn func(context.Context, *Session) error) ManagerOption {
	return func(m *Manager) {
		m.onStart = fn
	}
}

// WithEndHook runs after a session was terminated.
func WithEndHook(fn func(*Session)) ManagerOption {
	return func(m *Manager) {
		m.onEnd = fn
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.SessionStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:       store,
		locks:       make(map[string]*lockEntry),
		lockTTL:     DefaultLockTTL,
		logger:      logging.NewNop(),
		initialNode: domain.NodeGreeting,
		newID:       uuid.NewString,
		sessionOpts: func() []Option { return nil },
	}
	for _, opt := range opts {
		opt(m)
	}
	m.registry = NewRegistry(m.logger)
	return m
}

// Registry returns the live session registry.
func (m *Manager) Registry() *Registry { return m.registry }

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore { return m.store }

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Start creates, registers and persists a new session.
func (m *Manager) Start(ctx context.Context) (*Session, error) {
	s := New(m.newID(), m.initialNode, m.sessionOpts()...)
	if err := m.registry.Add(s); err != nil {
		return nil, err
	}

	err := m.WithLock(ctx, s.ID, func(ctx context.Context) error {
		return m.store.Save(ctx, s.ID, s.State())
	})
	if err == nil && m.onStart != nil {
		err = m.onStart(ctx, s)
	}
	if err != nil {
		m.registry.Remove(s.ID, ReasonHangUp)
		_ = m.store.Delete(context.WithoutCancel(ctx), s.ID)
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	m.logger.Info("Session started", "session_id", s.ID, "node", s.NodeID())
	return s, nil
}

// Turn runs fn with exclusive access to the session and persists the result.
// A session evicted from memory (restart, another replica) is restored from
// the store. If fn reports the session finished it is ended instead. When the
// session is canceled during the turn the result is discarded and the
// *TerminatedError is returned.
func (m *Manager) Turn(ctx context.Context, sessionID string, fn func(context.Context, *Session) (finished bool, err error)) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		s, err := m.lookup(ctx, sessionID)
		if err != nil {
			return err
		}
		if s.Canceled() {
			return context.Cause(s.Context())
		}

		s.mu.Lock()
		finished, fnErr := fn(ctx, s)
		state := s.state()
		s.mu.Unlock()
		s.Touch(time.Now())

		if s.Canceled() {
			m.logger.Info("Turn discarded, session terminated",
				"session_id", s.ID, "node", state.NodeID, "room", state.Order.RoomNumber)
			return context.Cause(s.Context())
		}
		if finished {
			m.endLocked(ctx, s.ID, ReasonCompleted)
			return fnErr
		}
		if err := m.store.Save(ctx, s.ID, state); err != nil {
			m.logger.Error("Failed to persist session", "session_id", s.ID, "err", err)
			if fnErr == nil {
				fnErr = err
			}
		}
		return fnErr
	})
}

// State returns a snapshot of the session taken between turns.
func (m *Manager) State(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	var state *domain.SessionState
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		s, err := m.lookup(ctx, sessionID)
		if err != nil {
			return err
		}
		state = s.State()
		return nil
	})
	return state, err
}

// Get returns the live session, restoring it from the store if needed.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	var s *Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		s, err = m.lookup(ctx, sessionID)
		return err
	})
	return s, err
}

func (m *Manager) lookup(ctx context.Context, sessionID string) (*Session, error) {
	if s, ok := m.registry.Get(sessionID); ok {
		return s, nil
	}

	state, err := m.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	s := Restore(state, m.sessionOpts()...)
	if err := m.registry.Add(s); err != nil {
		if live, ok := m.registry.Get(sessionID); ok {
			return live, nil
		}
		return nil, err
	}
	m.logger.Info("Session restored", "session_id", s.ID, "node", s.NodeID())
	return s, nil
}

// End terminates the session and deletes its persisted state. A turn in
// flight is canceled first rather than awaited, so its result is discarded.
func (m *Manager) End(ctx context.Context, sessionID, reason string) error {
	m.registry.Cancel(sessionID, reason)
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		if _, ok := m.registry.Get(sessionID); !ok {
			if _, err := m.store.Load(ctx, sessionID); err != nil {
				return err
			}
		}
		m.endLocked(ctx, sessionID, reason)
		return nil
	})
}

func (m *Manager) endLocked(ctx context.Context, sessionID, reason string) {
	s, ok := m.registry.Remove(sessionID, reason)
	if err := m.store.Delete(context.WithoutCancel(ctx), sessionID); err != nil {
		m.logger.Warn("Failed to delete session state", "session_id", sessionID, "err", err)
	}
	if ok && m.onEnd != nil {
		m.onEnd(s)
	}
}

// ReapIdle ends sessions inactive for longer than maxIdle and returns their IDs.
func (m *Manager) ReapIdle(ctx context.Context, maxIdle time.Duration) []string {
	ids := m.registry.Idle(maxIdle, time.Now())
	for _, id := range ids {
		if err := m.End(ctx, id, ReasonIdle); err != nil {
			m.logger.Warn("Failed to reap idle session", "session_id", id, "err", err)
		}
	}
	return ids
}

// Shutdown terminates every live session. It is meant for signal handlers.
// In-flight turns are canceled; persisted state is deleted once they returned.
func (m *Manager) Shutdown(ctx context.Context) int {
	var live []*Session
	for _, id := range m.registry.IDs() {
		if s, ok := m.registry.Get(id); ok {
			live = append(live, s)
		}
	}

	n := m.registry.TerminateAll(ReasonShutdown)
	for _, s := range live {
		err := m.WithLock(ctx, s.ID, func(ctx context.Context) error {
			return m.store.Delete(ctx, s.ID)
		})
		if err != nil {
			m.logger.Warn("Failed to delete session state", "session_id", s.ID, "err", err)
		}
		if m.onEnd != nil {
			m.onEnd(s)
		}
	}
	return n
}
