package session

import (
	"sort"
	"sync"
)

// Store is the registry of connected sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*ConnectionSession
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*ConnectionSession),
	}
}

func (s *Store) Get(id string) (*ConnectionSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs, ok := s.sessions[id]
	return cs, ok
}

// GetAll returns snapshots ordered by connection time.
func (s *Store) GetAll() []Snapshot {
	s.mu.RLock()
	result := make([]Snapshot, 0, len(s.sessions))
	for _, cs := range s.sessions {
		result = append(result, cs.Snapshot())
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].ConnectedAt.Equal(result[j].ConnectedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].ConnectedAt.Before(result[j].ConnectedAt)
	})
	return result
}

func (s *Store) Add(cs *ConnectionSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[cs.ID] = cs
}

// Remove deletes the session and returns it, if it was registered.
func (s *Store) Remove(id string) (*ConnectionSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	return cs, ok
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
