package redis

import (
	"context"
	"fmt"
	"time"

	"signaling-relay/internal/database"
)

const onlineSetKey = "presence:online"

// PresenceRepository mirrors user online/offline status into Redis
type PresenceRepository struct {
	client *database.RedisClient
	ttl    time.Duration
}

// NewPresenceRepository creates a new PresenceRepository
func NewPresenceRepository(client *database.RedisClient, ttl time.Duration) *PresenceRepository {
	return &PresenceRepository{client: client, ttl: ttl}
}

func presenceKey(userID string) string {
	return fmt.Sprintf("presence:%s", userID)
}

// SetUserOnline marks user as online, or available when isAvailable is set
func (r *PresenceRepository) SetUserOnline(ctx context.Context, userID string, isAvailable bool) error {
	status := "online"
	if isAvailable {
		status = "available"
	}

	// Expires on its own if the relay dies without cleaning up
	if err := r.client.SafeSet(ctx, presenceKey(userID), status, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set user online: %w", err)
	}

	if err := r.client.SafeSAdd(ctx, onlineSetKey, userID).Err(); err != nil {
		return fmt.Errorf("failed to add to online set: %w", err)
	}

	return nil
}

// SetUserOffline marks user as offline
func (r *PresenceRepository) SetUserOffline(ctx context.Context, userID string) error {
	if err := r.client.SafeDel(ctx, presenceKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete presence: %w", err)
	}

	if err := r.client.SafeSRem(ctx, onlineSetKey, userID).Err(); err != nil {
		return fmt.Errorf("failed to remove from online set: %w", err)
	}

	return nil
}

// RefreshPresence extends the TTL of a user's presence key
func (r *PresenceRepository) RefreshPresence(ctx context.Context, userID string) error {
	if err := r.client.SafeExpire(ctx, presenceKey(userID), r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to refresh presence: %w", err)
	}
	return nil
}
