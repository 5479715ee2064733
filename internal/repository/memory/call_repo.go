package memory

import (
	"sync"

	"signaling-relay/internal/domain"
)

// CallRepository owns every live call session, keyed by call ID.
// Callers only ever receive copies.
type CallRepository struct {
	mu    sync.RWMutex
	calls map[string]*domain.CallSession
}

// NewCallRepository creates an empty CallRepository
func NewCallRepository() *CallRepository {
	return &CallRepository{
		calls: make(map[string]*domain.CallSession),
	}
}

// Create stores a new session. Returns false if the call ID is already live.
func (r *CallRepository) Create(session domain.CallSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.calls[session.CallID]; exists {
		return false
	}
	s := session
	r.calls[session.CallID] = &s
	return true
}

// Get returns a copy of the session
func (r *CallRepository) Get(callID string) (domain.CallSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.calls[callID]
	if !ok {
		return domain.CallSession{}, false
	}
	return *s, true
}

// SetStatus moves a session to status to. When from is non-empty the
// session must currently be in from. Returns false if nothing changed.
func (r *CallRepository) SetStatus(callID string, from, to domain.CallStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.calls[callID]
	if !ok {
		return false
	}
	if from != "" && s.Status != from {
		return false
	}
	s.Status = to
	return true
}

// Delete removes the session and returns its last state
func (r *CallRepository) Delete(callID string) (domain.CallSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.calls[callID]
	if !ok {
		return domain.CallSession{}, false
	}
	delete(r.calls, callID)
	return *s, true
}

// ListByParticipant returns copies of every session where userID is the
// caller or the target
func (r *CallRepository) ListByParticipant(userID string) []domain.CallSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []domain.CallSession
	for _, s := range r.calls {
		if s.HasParticipant(userID) {
			sessions = append(sessions, *s)
		}
	}
	return sessions
}

// Count returns the number of live sessions
func (r *CallRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.calls)
}
