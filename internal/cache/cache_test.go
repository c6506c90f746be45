package cache

import (
	"context"
	"testing"
	"time"

	"famfin/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", 3)
	_, ok = c.Get("b")
	assert.False(t, ok, "b was the least recently used entry")
	assert.Equal(t, 2, c.Size())

	c.Set("a", 10)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestLRUCache_Expiry(t *testing.T) {
	clock := newClock()
	c := NewLRUCache[string](10, time.Minute, WithClock(clock.now))
	c.Set("x", "first")
	clock.t = clock.t.Add(30 * time.Second)
	c.Set("y", "second")

	clock.t = clock.t.Add(45 * time.Second)
	_, ok := c.Get("x")
	assert.False(t, ok)

	v, ok := c.Get("y")
	require.True(t, ok)
	assert.Equal(t, "second", v)

	clock.t = clock.t.Add(time.Minute)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Zero(t, c.Size())
}

func TestSnapshotCache(t *testing.T) {
	clock := newClock()
	c := NewSnapshotCache(8, time.Minute, WithClock(clock.now))
	day := core.NewDate(2025, time.March, 10)

	c.Put(core.AgencySnapshot{ID: 1, UserID: 7, CalculatedFor: day, CreditAgencyCents: 100})
	c.Put(core.AgencySnapshot{ID: 2, UserID: 8, CalculatedFor: day, CreditAgencyCents: 200})

	got, ok := c.Get(7, day)
	require.True(t, ok)
	assert.Equal(t, int64(100), got.CreditAgencyCents)

	_, ok = c.Get(7, core.AddDays(day, 1))
	assert.False(t, ok)

	c.Put(core.AgencySnapshot{ID: 1, UserID: 7, CalculatedFor: day, CreditAgencyCents: 150})
	got, _ = c.Get(7, day)
	assert.Equal(t, int64(150), got.CreditAgencyCents)
	assert.Equal(t, 2, c.Size())

	c.Invalidate(8, day)
	_, ok = c.Get(8, day)
	assert.False(t, ok)
}

func TestManager_Sweep(t *testing.T) {
	clock := newClock()
	a := NewLRUCache[int](10, time.Second, WithClock(clock.now))
	b := NewSnapshotCache(10, time.Second, WithClock(clock.now))
	a.Set("k", 1)
	b.Put(core.AgencySnapshot{UserID: 1, CalculatedFor: core.NewDate(2025, time.March, 10)})

	m := NewManager()
	m.Register(a)
	m.Register(b)
	assert.Zero(t, m.Sweep())

	clock.t = clock.t.Add(2 * time.Second)
	assert.Equal(t, 2, m.Sweep())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
