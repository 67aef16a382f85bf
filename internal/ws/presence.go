package ws

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceTTL = 60 * time.Second

// PresenceStore marks a user online for other services to read. Entries
// expire on their own, so a crashed instance leaves no ghosts behind.
type PresenceStore interface {
	Refresh(ctx context.Context, userID string) error
	Clear(ctx context.Context, userID string) error
}

type RedisPresence struct {
	rdb *redis.Client
}

func NewRedisPresence(rdb *redis.Client) *RedisPresence {
	return &RedisPresence{rdb: rdb}
}

func (p *RedisPresence) Refresh(ctx context.Context, userID string) error {
	return p.rdb.Set(ctx, "presence:"+userID, "online", presenceTTL).Err()
}

func (p *RedisPresence) Clear(ctx context.Context, userID string) error {
	return p.rdb.Del(ctx, "presence:"+userID).Err()
}

// keepPresence re-arms the presence TTL until done closes. The interval
// must stay well under presenceTTL so a live connection never expires.
func keepPresence(store PresenceStore, userID string, interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			_ = store.Refresh(context.Background(), userID)
		}
	}
}
