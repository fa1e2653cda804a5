package session

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/roomservice/internal/logging"
)

// Registry is the set of live sessions, keyed by ID.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Add registers s.
func (r *Registry) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.ID]; exists {
		return ErrDuplicateSession
	}
	r.sessions[s.ID] = s
	return nil
}

// Get returns the live session with the given ID.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove unregisters and terminates the session.
func (r *Registry) Remove(id, reason string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.Terminate(reason)
		r.logger.Info("Session removed", "session_id", id, "reason", reason)
	}
	return s, ok
}

// Cancel cancels the live session's context without unregistering it or
// waiting for its running turn. It reports whether the session was live.
func (r *Registry) Cancel(id, reason string) bool {
	s, ok := r.Get(id)
	if ok {
		s.Cancel(reason)
	}
	return ok
}

// TerminateAll terminates every live session concurrently and empties the
// registry. Every session is canceled before any is waited on. It returns the
// number of sessions terminated.
func (r *Registry) TerminateAll(reason string) int {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Cancel(reason)
	}

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Terminate(reason)
		}(s)
	}
	wg.Wait()

	if len(sessions) > 0 {
		r.logger.Info("Sessions terminated", "count", len(sessions), "reason", reason)
	}
	return len(sessions)
}

// Idle returns the IDs of sessions inactive for longer than maxIdle.
func (r *Registry) Idle(maxIdle time.Duration, now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for id, s := range r.sessions {
		if now.Sub(s.LastActive()) > maxIdle {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// IDs returns the live session IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
