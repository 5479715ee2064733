package redis

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"signaling-relay/pkg/logger"
)

// presenceStore is the subset of PresenceRepository the mirror writes through
type presenceStore interface {
	SetUserOnline(ctx context.Context, userID string, isAvailable bool) error
	SetUserOffline(ctx context.Context, userID string) error
	RefreshPresence(ctx context.Context, userID string) error
}

// DropRecorder counts updates discarded on a full queue
type DropRecorder interface {
	RecordPresenceMirrorDrop()
}

type presenceUpdate struct {
	userID    string
	online    bool
	available bool
}

// PresenceMirror copies registry changes into Redis from a single worker.
// Enqueueing never blocks; a full queue drops the update.
type PresenceMirror struct {
	store    presenceStore
	updates  chan presenceUpdate
	drops    DropRecorder
	timeout  time.Duration
	interval time.Duration

	mu     sync.Mutex
	online map[string]struct{}

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPresenceMirror creates a mirror with the given queue size. Keys of users
// still online are refreshed every refreshInterval. drops may be nil.
func NewPresenceMirror(store presenceStore, bufferSize int, refreshInterval time.Duration, drops DropRecorder) *PresenceMirror {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &PresenceMirror{
		store:    store,
		updates:  make(chan presenceUpdate, bufferSize),
		drops:    drops,
		timeout:  2 * time.Second,
		interval: refreshInterval,
		online:   make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the worker
func (m *PresenceMirror) Start() {
	m.wg.Add(1)
	go m.run()
}

// Online queues an online or availability update
func (m *PresenceMirror) Online(userID string, isAvailable bool) {
	m.enqueue(presenceUpdate{userID: userID, online: true, available: isAvailable})
}

// Offline queues an offline update
func (m *PresenceMirror) Offline(userID string) {
	m.enqueue(presenceUpdate{userID: userID})
}

func (m *PresenceMirror) enqueue(u presenceUpdate) {
	select {
	case <-m.done:
		return
	default:
	}

	select {
	case m.updates <- u:
	default:
		if m.drops != nil {
			m.drops.RecordPresenceMirrorDrop()
		}
		logger.Debug("Presence mirror queue full, update dropped", zap.String("user_id", u.userID))
	}
}

// Stop drains queued updates and stops the worker
func (m *PresenceMirror) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()
}

func (m *PresenceMirror) run() {
	defer m.wg.Done()

	var refresh <-chan time.Time
	if m.interval > 0 {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		refresh = ticker.C
	}

	for {
		select {
		case u := <-m.updates:
			m.apply(u)
		case <-refresh:
			m.refreshAll()
		case <-m.done:
			for {
				select {
				case u := <-m.updates:
					m.apply(u)
				default:
					return
				}
			}
		}
	}
}

func (m *PresenceMirror) apply(u presenceUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.Lock()
	if u.online {
		m.online[u.userID] = struct{}{}
	} else {
		delete(m.online, u.userID)
	}
	m.mu.Unlock()

	var err error
	if u.online {
		err = m.store.SetUserOnline(ctx, u.userID, u.available)
	} else {
		err = m.store.SetUserOffline(ctx, u.userID)
	}
	if err != nil {
		logger.Debug("Presence mirror write failed",
			zap.String("user_id", u.userID),
			zap.Bool("online", u.online),
			zap.Error(err))
	}
}

func (m *PresenceMirror) refreshAll() {
	m.mu.Lock()
	users := make([]string, 0, len(m.online))
	for id := range m.online {
		users = append(users, id)
	}
	m.mu.Unlock()

	for _, id := range users {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		if err := m.store.RefreshPresence(ctx, id); err != nil {
			logger.Debug("Presence refresh failed", zap.String("user_id", id), zap.Error(err))
		}
		cancel()
	}
}
