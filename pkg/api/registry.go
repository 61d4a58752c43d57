package api

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xtaveras38/Parcheesi/pkg/engine"
)

// Session is one live game with its own dice stream and connected
// WebSocket clients. All access to Game goes through the session mutex;
// handlers lock for the whole read-modify-broadcast cycle.
type Session struct {
	ID     string
	Game   *engine.GameState
	Roller engine.Roller

	hub *Hub
	mu  sync.Mutex

	CreatedAt time.Time
}

// Lock acquires the session for exclusive game access.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// Snapshot returns a deep copy of the game state under the session
// lock, safe to serialize or archive without further locking.
func (s *Session) Snapshot() *engine.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Game.Clone()
}

// Registry tracks live sessions by ID.
type Registry struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create builds a new game session and registers it under a fresh UUID.
func (r *Registry) Create(configs []engine.PlayerConfig, seed int64) (*Session, error) {
	game, err := engine.NewGame(configs)
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:        uuid.NewString(),
		Game:      game,
		Roller:    engine.NewRoller(seed),
		hub:       NewHub(),
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s, nil
}

// Get returns the session for an ID, or an error when none exists.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("game %s not found", id)
	}
	return s, nil
}

// Remove drops a session from the registry and disconnects its clients.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.hub.Close()
	}
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Prune removes sessions idle for longer than maxAge and returns how
// many were dropped. The server runs this periodically.
func (r *Registry) Prune(maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)

	r.mu.Lock()
	var stale []*Session
	for id, s := range r.sessions {
		s.mu.Lock()
		updated := s.Game.UpdatedAt
		s.mu.Unlock()
		if updated.Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.hub.Close()
	}
	return len(stale)
}
