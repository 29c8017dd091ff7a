package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/username/church-calendar/internal/calendar"
	"go.uber.org/zap"
)

// EngineFactory builds the engine of a new session
type EngineFactory func() *calendar.Engine

// Session is one visitor's calendar view; engines are never shared
type Session struct {
	ID     string
	Engine *calendar.Engine

	lastSeen time.Time
}

// Registry owns the open sessions
type Registry struct {
	factory EngineFactory
	hub     *Hub
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a new session registry; hub may be nil
func NewRegistry(factory EngineFactory, hub *Hub, logger *zap.Logger) *Registry {
	return &Registry{
		factory:  factory,
		hub:      hub,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create opens a new session with a fresh engine
func (r *Registry) Create() *Session {
	s := &Session{
		ID:     uuid.NewString(),
		Engine: r.factory(),
	}

	if r.hub != nil {
		id := s.ID
		s.Engine.OnCommit(func(c calendar.Commit) {
			r.hub.Publish(id, NewMessage(TypeAnnotationsCommitted, AnnotationsCommittedPayload{
				SessionID: id,
				Month:     c.Month.Format("2006-01"),
				Epoch:     c.Epoch,
				Enriched:  c.Enriched,
			}))
		})
	}

	r.mu.Lock()
	s.lastSeen = r.now()
	r.sessions[s.ID] = s
	total := len(r.sessions)
	r.mu.Unlock()

	r.logger.Info("Session created",
		zap.String("session_id", s.ID),
		zap.Int("sessions", total))
	return s
}

// Get returns the session and marks it as used
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if ok {
		s.lastSeen = r.now()
	}
	return s, ok
}

// Resolve returns the session with id, or a new session when id is empty or unknown
func (r *Registry) Resolve(id string) (s *Session, created bool) {
	if id != "" {
		if s, ok := r.Get(id); ok {
			return s, false
		}
	}
	return r.Create(), true
}

// Len returns the number of open sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) snapshot() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// RefreshAll re-runs enrichment of every open session
func (r *Registry) RefreshAll() int {
	sessions := r.snapshot()
	for _, s := range sessions {
		s.Engine.Refresh()
	}
	return len(sessions)
}

// EvictIdle closes sessions unused for longer than maxIdle
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		if r.hub != nil {
			r.hub.Publish(s.ID, NewMessage(TypeSessionExpired, SessionExpiredPayload{SessionID: s.ID}))
		}
		s.Engine.Close()
		r.logger.Debug("Session evicted", zap.String("session_id", s.ID))
	}
	return len(expired)
}

// Close closes every session
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Engine.Close()
	}
}
