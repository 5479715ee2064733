package memory

import (
	"sync"
	"time"

	"signaling-relay/internal/domain"
)

// PresenceRepository maps user identities to their single live connection.
// Registering again for the same user replaces the previous connection.
type PresenceRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.UserPresence
	now   func() time.Time
}

// NewPresenceRepository creates an empty PresenceRepository
func NewPresenceRepository() *PresenceRepository {
	return &PresenceRepository{
		users: make(map[string]*domain.UserPresence),
		now:   time.Now,
	}
}

// Register records conn as the live connection of userID.
// Availability starts false.
func (r *PresenceRepository) Register(userID string, conn domain.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[userID] = &domain.UserPresence{
		UserID:      userID,
		Conn:        conn,
		IsAvailable: false,
		ConnectedAt: r.now(),
	}
}

// SetAvailability updates the availability flag. Unknown users are ignored.
func (r *PresenceRepository) SetAvailability(userID string, isAvailable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.users[userID]; ok {
		p.IsAvailable = isAvailable
	}
}

// Resolve returns the live connection of userID
func (r *PresenceRepository) Resolve(userID string) (domain.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.users[userID]
	if !ok {
		return nil, false
	}
	return p.Conn, true
}

// Get returns a copy of the presence record
func (r *PresenceRepository) Get(userID string) (domain.UserPresence, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.users[userID]
	if !ok {
		return domain.UserPresence{}, false
	}
	return *p, true
}

// Remove deletes the presence record of userID regardless of which
// connection holds it. The disconnect path uses RemoveConnection instead.
func (r *PresenceRepository) Remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.users, userID)
}

// RemoveConnection deletes the record only while connID is still the
// registered connection of userID. Reports whether a record was removed.
func (r *PresenceRepository) RemoveConnection(userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.users[userID]
	if !ok || p.Conn == nil || p.Conn.ID() != connID {
		return false
	}
	delete(r.users, userID)
	return true
}

// Count returns the number of registered users
func (r *PresenceRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.users)
}
