package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_AddRejectsBadSpec(t *testing.T) {
	s := NewScheduler(time.Second)
	err := s.Add("broken", "every tuesday", func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Empty(t, s.Entries())
}

func TestScheduler_Entries(t *testing.T) {
	s := NewScheduler(time.Second)
	require.NoError(t, s.Add("recalculate", "0 6 * * *", func(context.Context) error { return nil }))
	require.NoError(t, s.Add("reminders", "0 8 * * *", func(context.Context) error { return nil }))

	s.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, s.Stop(ctx))
	}()

	next := s.Entries()
	require.Len(t, next, 2)
	for _, at := range next {
		assert.Equal(t, time.UTC, at.Location())
		assert.True(t, at.After(time.Now()))
	}
}

func TestScheduler_RunNow(t *testing.T) {
	s := NewScheduler(50 * time.Millisecond)

	var calls atomic.Int32
	s.RunNow("ok", func(context.Context) error {
		calls.Add(1)
		return nil
	})
	s.RunNow("failing", func(context.Context) error {
		calls.Add(1)
		return errors.New("boom")
	})
	s.RunNow("panicking", func(context.Context) error {
		calls.Add(1)
		panic("unexpected")
	})
	assert.Equal(t, int32(3), calls.Load())

	var deadline bool
	s.RunNow("timeout", func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		<-ctx.Done()
		return ctx.Err()
	})
	assert.True(t, deadline)
}

func TestScheduler_StopCancelsRunningJobs(t *testing.T) {
	s := NewScheduler(0)
	started := make(chan struct{})
	finished := make(chan error, 1)

	go s.RunNow("long", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		finished <- ctx.Err()
		return ctx.Err()
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	select {
	case err := <-finished:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("job was not cancelled")
	}
}
