package oauth

import "sync"

// Session tracks the token state of one logical request. It must not be shared across requests.
type Session struct {
	mu        sync.Mutex
	refreshed bool
}

// NewSession creates a request-scoped session
func NewSession() *Session {
	return &Session{}
}

// Refreshed reports whether a token was refreshed during this session.
func (s *Session) Refreshed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshed
}

func (s *Session) markRefreshed() {
	s.mu.Lock()
	s.refreshed = true
	s.mu.Unlock()
}
