package engine

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/bluebook-labs/satprep/internal/testbank"
)

var ErrSessionNotFound = errors.New("session not found")

// Registry holds live sessions in memory. A session exists here from start
// until completion or abandonment; nothing about it is persisted mid-module.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: map[string]*Session{}}
}

// Start creates a session over the grouped set and registers it. The
// completion callback removes the session from the registry after flushing.
func (r *Registry) Start(set *testbank.ModuleSet, opts Options) (*Session, error) {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	id := opts.ID
	userComplete := opts.OnComplete
	opts.OnComplete = func(snap Snapshot) {
		if userComplete != nil {
			userComplete(snap)
		}
		r.Remove(id)
	}
	s, err := NewSession(set, opts)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return s, nil
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove drops a session without tearing it down (used after completion).
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Abandon tears down and drops a session; in-memory answers are discarded.
func (r *Registry) Abandon(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.Teardown()
	}
}
