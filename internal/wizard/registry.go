package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aiimpactmedia/casting/internal/metrics"
	"github.com/aiimpactmedia/casting/internal/model"
)

// Factory builds the options for a new session's wizard
type Factory func(sessionID string) Options

// Registry holds one wizard per applicant session and expires idle ones
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Wizard
	factory  Factory
	ttl      time.Duration
	logger   *zap.Logger
}

// NewRegistry creates a registry. A non-positive ttl disables expiry.
func NewRegistry(factory Factory, ttl time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*Wizard),
		factory:  factory,
		ttl:      ttl,
		logger:   logger.With(zap.String("component", "sessions")),
	}
}

// Create starts a new session
func (r *Registry) Create() *Wizard {
	id := uuid.New().String()
	w := New(r.factory(id))

	r.mu.Lock()
	r.sessions[id] = w
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	r.logger.Debug("session created", zap.String("sessionId", id))
	return w
}

// Get returns a live session and marks it used
func (r *Registry) Get(id string) (*Wizard, error) {
	r.mu.RLock()
	w, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, model.ErrSessionNotFound
	}
	w.Touch()
	return w, nil
}

// Remove closes and forgets a session
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	w, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return model.ErrSessionNotFound
	}
	w.Close()
	metrics.ActiveSessions.Set(float64(n))
	return nil
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep closes every session idle since before now-ttl
func (r *Registry) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-r.ttl)

	var expired []*Wizard
	r.mu.Lock()
	for id, w := range r.sessions {
		if w.IdleSince().Before(cutoff) {
			expired = append(expired, w)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, w := range expired {
		w.Close()
	}
	if len(expired) > 0 {
		metrics.ActiveSessions.Set(float64(n))
		r.logger.Info("expired idle sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done, then closes every session
func (r *Registry) Run(ctx context.Context) {
	interval := r.ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Wizard)
	r.mu.Unlock()

	for _, w := range sessions {
		w.Close()
	}
	metrics.ActiveSessions.Set(0)
}
