package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/retrieveapp/retrieve-api/cache"
	"github.com/retrieveapp/retrieve-api/metrics"
	"go.uber.org/zap"
)

// UnreadCounter yields the total number of unread messages for a user.
type UnreadCounter interface {
	CountUnreadForUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// CachedUnreadCounter serves counts from Redis and falls back to next on a miss.
// Entries are dropped whenever a message is written to, or read in, one of the
// user's threads, and otherwise expire after cache.TTLUnread.
type CachedUnreadCounter struct {
	next  UnreadCounter
	cache cache.Service
	log   *zap.Logger
}

func NewCachedUnreadCounter(next UnreadCounter, c cache.Service, log *zap.Logger) UnreadCounter {
	if c == nil || !c.Available() {
		return next
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedUnreadCounter{next: next, cache: c, log: log}
}

func (c *CachedUnreadCounter) CountUnreadForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	key := cache.UnreadKey(userID.String())

	var cached int64
	err := c.cache.Get(ctx, key, &cached)
	if err == nil {
		metrics.UnreadCacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		c.log.Warn("unread cache read failed", zap.Error(err))
	}
	metrics.UnreadCacheLookups.WithLabelValues("miss").Inc()

	count, err := c.next.CountUnreadForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := c.cache.Set(ctx, key, count, cache.TTLUnread); err != nil {
		c.log.Warn("unread cache write failed", zap.Error(err))
	}
	return count, nil
}

func invalidateUnread(ctx context.Context, c cache.Service, log *zap.Logger, userIDs ...uuid.UUID) {
	if c == nil || !c.Available() {
		return
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = cache.UnreadKey(id.String())
	}
	if err := c.Delete(ctx, keys...); err != nil {
		log.Warn("unread cache invalidation failed", zap.Error(err))
	}
}
