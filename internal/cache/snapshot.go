package cache

import (
	"fmt"
	"time"

	"famfin/internal/core"
)

// SnapshotCache holds agency snapshots keyed by user and calculation date.
type SnapshotCache struct {
	lru *LRUCache[core.AgencySnapshot]
}

func NewSnapshotCache(maxSize int, ttl time.Duration, opts ...Option) *SnapshotCache {
	return &SnapshotCache{lru: NewLRUCache[core.AgencySnapshot](maxSize, ttl, opts...)}
}

func snapshotKey(userID int64, calculatedFor core.Date) string {
	return fmt.Sprintf("snapshot:%d:%s", userID, calculatedFor)
}

func (c *SnapshotCache) Get(userID int64, calculatedFor core.Date) (core.AgencySnapshot, bool) {
	return c.lru.Get(snapshotKey(userID, calculatedFor))
}

// Put stores s, replacing whatever was cached for the same user and date.
func (c *SnapshotCache) Put(s core.AgencySnapshot) {
	c.lru.Set(snapshotKey(s.UserID, s.CalculatedFor), s)
}

func (c *SnapshotCache) Invalidate(userID int64, calculatedFor core.Date) {
	c.lru.Delete(snapshotKey(userID, calculatedFor))
}

func (c *SnapshotCache) CleanExpired() int {
	return c.lru.CleanExpired()
}

func (c *SnapshotCache) Size() int {
	return c.lru.Size()
}
