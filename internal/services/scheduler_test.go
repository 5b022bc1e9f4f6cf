package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeRecomputer struct {
	mu    sync.Mutex
	calls map[uint]int
	done  chan uint
}

func newFakeRecomputer() *fakeRecomputer {
	return &fakeRecomputer{calls: make(map[uint]int), done: make(chan uint, 100)}
}

func (f *fakeRecomputer) Recompute(_ context.Context, userID uint) (int, error) {
	f.mu.Lock()
	f.calls[userID]++
	f.mu.Unlock()
	f.done <- userID
	return 0, nil
}

func (f *fakeRecomputer) count(userID uint) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[userID]
}

type countingTrustObserver struct {
	mu      sync.Mutex
	ok      int
	dropped int
}

func (o *countingTrustObserver) ObserveTrustRecompute(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err == nil {
		o.ok++
	}
}

func (o *countingTrustObserver) ObserveTrustDropped() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dropped++
}

func TestTrustScheduler_CoalescesPendingUsers(t *testing.T) {
	rec := newFakeRecomputer()
	s := NewTrustScheduler(rec, 10, 10*time.Millisecond, zap.NewNop(), nil)

	s.Schedule(7)
	s.Schedule(7)
	s.Schedule(7)
	s.Schedule(8)
	assert.Len(t, s.queue, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	for i := 0; i < 2; i++ {
		select {
		case <-rec.done:
		case <-time.After(2 * time.Second):
			t.Fatal("recompute not triggered")
		}
	}
	assert.Equal(t, 1, rec.count(7))
	assert.Equal(t, 1, rec.count(8))
}

func TestTrustScheduler_DropsWhenFull(t *testing.T) {
	obs := &countingTrustObserver{}
	s := NewTrustScheduler(newFakeRecomputer(), 1, time.Second, zap.NewNop(), obs)

	s.Schedule(1)
	s.Schedule(2)

	assert.Len(t, s.queue, 1)
	assert.Equal(t, 1, obs.dropped)
	// a dropped user can be scheduled again later
	assert.False(t, s.pending[2])
}

func TestTrustScheduler_IgnoresZeroUser(t *testing.T) {
	s := NewTrustScheduler(newFakeRecomputer(), 1, time.Second, zap.NewNop(), nil)
	s.Schedule(0)
	assert.Empty(t, s.queue)
}

func TestTrustScheduler_FlushesOnShutdown(t *testing.T) {
	rec := newFakeRecomputer()
	s := NewTrustScheduler(rec, 10, time.Hour, zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(stopped)
	}()

	s.Schedule(3)
	assert.Eventually(t, func() bool { return len(s.queue) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-stopped

	assert.Equal(t, 1, rec.count(3))
}

func TestTrustScheduler_DrainsQueueOnShutdown(t *testing.T) {
	rec := newFakeRecomputer()
	s := NewTrustScheduler(rec, 10, time.Hour, zap.NewNop(), nil)
	for id := uint(1); id <= 5; id++ {
		s.Schedule(id)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx)

	for id := uint(1); id <= 5; id++ {
		assert.Equal(t, 1, rec.count(id), "user %d", id)
	}
	assert.Empty(t, s.queue)
	assert.Empty(t, s.pending)
}
