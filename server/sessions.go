package server

import (
	"sync"

	"github.com/chazu/treelox/interpreter"
	"github.com/chazu/treelox/session"
)

// Session is an interpreter session bound to one document, holding the
// globals left behind by the document's last run.
type Session struct {
	*session.Session
	Output *interpreter.Transcript
}

// SessionStore manages document sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates a new session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
	}
}

// Create replaces the session for uri with a fresh one.
func (s *SessionStore) Create(uri string) *Session {
	out := &interpreter.Transcript{}
	sess := &Session{
		Session: session.New(
			session.WithName(uri),
			session.WithEcho(true),
			session.WithOutput(out),
		),
		Output: out,
	}

	s.mu.Lock()
	s.sessions[uri] = sess
	s.mu.Unlock()

	return sess
}

// Get retrieves the session for uri.
func (s *SessionStore) Get(uri string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[uri]
	return sess, ok
}

// Destroy drops the session for uri.
func (s *SessionStore) Destroy(uri string) {
	s.mu.Lock()
	delete(s.sessions, uri)
	s.mu.Unlock()
}
