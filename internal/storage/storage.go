package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/sistema-agil/vistoria/internal/session"
)

type SessionStore struct {
	sessions map[string]*session.Session
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session.Session),
	}
}

func (s *SessionStore) Get(sessionID string) (*session.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, exists := s.sessions[sessionID]
	return sess, exists
}

func (s *SessionStore) Set(sessionID string, sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = sess
}

// List returns every session, oldest first.
func (s *SessionStore) List() []*session.Session {
	s.mu.RLock()
	result := make([]*session.Session, 0, len(s.sessions))
	for _, v := range s.sessions {
		result = append(result, v)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (s *SessionStore) Delete(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return exists
}

// Prune drops sessions idle since before cutoff and returns how many
// went. A session with a submission in flight is kept.
func (s *SessionStore) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.Idle(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}
