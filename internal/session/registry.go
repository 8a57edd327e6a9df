package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

type entry struct {
	session  Session
	lastSeen time.Time
}

// Registry holds one Session per client. Entries untouched for longer than
// the idle timeout are dropped by Sweep.
type Registry struct {
	factory func() Session
	idle    time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewRegistry(factory func() Session, idle time.Duration) *Registry {
	return &Registry{
		factory:  factory,
		idle:     idle,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

func (r *Registry) Create() (string, Session) {
	id := uuid.NewString()
	s := r.factory()
	r.mu.Lock()
	r.sessions[id] = &entry{session: s, lastSeen: r.now()}
	r.mu.Unlock()
	return id, s
}

func (r *Registry) Get(id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastSeen = r.now()
	return e.session, nil
}

func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if ok {
		e.session.Reset()
		delete(r.sessions, id)
	}
	return ok
}

// Sweep removes idle sessions and returns how many were dropped. Sessions
// that are still processing are kept.
func (r *Registry) Sweep() int {
	if r.idle <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	defer r.mu.Unlock()
	dropped := 0
	for id, e := range r.sessions {
		if e.lastSeen.After(cutoff) || e.session.Snapshot().Status == Processing {
			continue
		}
		e.session.Reset()
		delete(r.sessions, id)
		dropped++
	}
	return dropped
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
