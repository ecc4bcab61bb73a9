package scans

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sessions keeps one orchestrator per scanner session.
type Sessions struct {
	mu    sync.RWMutex
	items map[string]*Orchestrator
	deps  Deps
	ttl   time.Duration
}

// NewSessions; ttl <= 0 disables sweeping.
func NewSessions(deps Deps, ttl time.Duration) *Sessions {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	return &Sessions{items: make(map[string]*Orchestrator), deps: deps, ttl: ttl}
}

func (s *Sessions) Create() *Orchestrator {
	o := NewOrchestrator(uuid.New().String(), s.deps)
	s.mu.Lock()
	s.items[o.ID()] = o
	s.mu.Unlock()
	return o
}

func (s *Sessions) Get(id string) (*Orchestrator, error) {
	s.mu.RLock()
	o, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return o, nil
}

func (s *Sessions) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Sweep drops sessions idle for longer than the ttl. Sessions with a scan in
// flight are kept.
func (s *Sessions) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cut := s.deps.Clock.Now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, o := range s.items {
		last, busy := o.idleSince()
		if !busy && last.Before(cut) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
