// Package killswitch implements the shared killed-backend set gating
// the meta-dispatcher before it ever reaches the circuit breaker: an
// operator-controlled kill/revive switch, and an automatic error-
// budget kill switch sharing the same set.
package killswitch

import "sync"

// Switch holds the process-wide set of killed backend names.
// Installed once at startup as the kind of process-wide singleton the
// teacher's design favors for shared state (see middleware.go's
// rateLimiter, store.MemoryStore). Access is not lock-free: reads take
// the RWMutex's shared read lock, Kill and Revive take its write lock.
type Switch struct {
	mu     sync.RWMutex
	killed map[string]string // backend -> reason
}

// New constructs an empty Switch.
func New() *Switch {
	return &Switch{killed: make(map[string]string)}
}

// Kill adds a backend to the killed set with an operator-supplied reason.
func (s *Switch) Kill(backend, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killed[backend] = reason
}

// Revive removes a backend from the killed set.
func (s *Switch) Revive(backend string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.killed, backend)
}

// IsKilled reports whether backend is currently in the killed set.
func (s *Switch) IsKilled(backend string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.killed[backend]
	return ok
}

// Reason returns why backend was killed, or "" if it isn't killed.
func (s *Switch) Reason(backend string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.killed[backend]
}

// Snapshot returns a copy of the current killed set for status reporting.
func (s *Switch) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.killed))
	for k, v := range s.killed {
		out[k] = v
	}
	return out
}
