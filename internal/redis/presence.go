package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// driverHeartbeatKey is a sorted set of online drivers scored by their last
// heartbeat in unix milliseconds.
const driverHeartbeatKey = "drivers:heartbeat"

// PresenceStore tracks which drivers are online and when they last reported.
type PresenceStore struct {
	client *redis.Client
}

// NewPresenceStore creates a new PresenceStore.
func NewPresenceStore(client *redis.Client) *PresenceStore {
	return &PresenceStore{client: client}
}

// Heartbeat marks the driver online as of at.
func (s *PresenceStore) Heartbeat(ctx context.Context, driverID string, at time.Time) error {
	return s.client.ZAdd(ctx, driverHeartbeatKey, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: driverID,
	}).Err()
}

// LastHeartbeat returns the driver's last heartbeat. ok is false when the
// driver is offline.
func (s *PresenceStore) LastHeartbeat(ctx context.Context, driverID string) (time.Time, bool, error) {
	score, err := s.client.ZScore(ctx, driverHeartbeatKey, driverID).Result()
	if err != nil {
		if err == redis.Nil {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return time.UnixMilli(int64(score)), true, nil
}

// GoOffline removes the driver from the online set.
func (s *PresenceStore) GoOffline(ctx context.Context, driverID string) error {
	return s.client.ZRem(ctx, driverHeartbeatKey, driverID).Err()
}
