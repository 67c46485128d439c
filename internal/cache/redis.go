package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wastewise/backend/internal/domain"
)

const (
	keyPrefix = "wastewise"
	entryTTL  = 5 * time.Minute
)

// UnreadCache caches per-account unread notification counts in Redis so the
// badge endpoint does not hit Postgres on every poll. Every operation is
// best effort: failures are logged and treated as cache misses.
//
// Broadcast invalidation cannot enumerate per-account keys, so each category
// carries an epoch counter baked into the entry keys; bumping the epoch
// orphans the whole category at once and the stale entries age out via TTL.
type UnreadCache struct {
	client *redis.Client
	logger *zap.Logger
}

func NewUnreadCache(addr string, logger *zap.Logger) *UnreadCache {
	return &UnreadCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		logger: logger,
	}
}

// Ping verifies the connection. Callers may run without the cache when this
// fails.
func (c *UnreadCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *UnreadCache) GetUnread(ctx context.Context, category domain.Category, accountID uuid.UUID) (int, bool) {
	key, err := c.entryKey(ctx, category, accountID)
	if err != nil {
		return 0, false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("unread cache read failed", zap.Error(err))
		}
		return 0, false
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return count, true
}

func (c *UnreadCache) SetUnread(ctx context.Context, category domain.Category, accountID uuid.UUID, count int) {
	key, err := c.entryKey(ctx, category, accountID)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, count, entryTTL).Err(); err != nil {
		c.logger.Warn("unread cache write failed", zap.Error(err))
	}
}

// InvalidateUnread drops one account's cached count, or the whole category
// when accountID is nil (broadcasts).
func (c *UnreadCache) InvalidateUnread(ctx context.Context, category domain.Category, accountID *uuid.UUID) {
	if accountID == nil {
		if err := c.client.Incr(ctx, c.epochKey(category)).Err(); err != nil {
			c.logger.Warn("unread cache epoch bump failed", zap.Error(err))
		}
		return
	}
	key, err := c.entryKey(ctx, category, *accountID)
	if err != nil {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("unread cache invalidation failed", zap.Error(err))
	}
}

func (c *UnreadCache) epochKey(category domain.Category) string {
	return fmt.Sprintf("%s:unread-epoch:%s", keyPrefix, category)
}

func (c *UnreadCache) entryKey(ctx context.Context, category domain.Category, accountID uuid.UUID) (string, error) {
	epoch, err := c.client.Get(ctx, c.epochKey(category)).Result()
	if err == redis.Nil {
		epoch = "0"
	} else if err != nil {
		c.logger.Warn("unread cache epoch read failed", zap.Error(err))
		return "", err
	}
	return fmt.Sprintf("%s:unread:%s:%s:%s", keyPrefix, category, epoch, accountID), nil
}
