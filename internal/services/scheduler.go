package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const trustBatchSize = 50

// Recomputer recomputes one user's trust score.
type Recomputer interface {
	Recompute(ctx context.Context, userID uint) (int, error)
}

// Scheduler accepts deferred trust recomputations. Schedule must not block.
type Scheduler interface {
	Schedule(userID uint)
}

// TrustObserver receives scheduler outcomes; metrics.Metrics implements it.
type TrustObserver interface {
	ObserveTrustRecompute(err error)
	ObserveTrustDropped()
}

// TrustScheduler recomputes trust scores off the request path. Requests for a user already
// queued are coalesced.
type TrustScheduler struct {
	engine   Recomputer
	queue    chan uint
	pending  map[uint]bool
	mu       sync.Mutex
	interval time.Duration
	log      *zap.Logger
	observer TrustObserver
}

func NewTrustScheduler(engine Recomputer, queueSize int, interval time.Duration, log *zap.Logger, observer TrustObserver) *TrustScheduler {
	if queueSize <= 0 {
		queueSize = 1000
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &TrustScheduler{
		engine:   engine,
		queue:    make(chan uint, queueSize),
		pending:  make(map[uint]bool),
		interval: interval,
		log:      log,
		observer: observer,
	}
}

func (s *TrustScheduler) Schedule(userID uint) {
	if userID == 0 {
		return
	}
	s.mu.Lock()
	if s.pending[userID] {
		s.mu.Unlock()
		return
	}
	s.pending[userID] = true
	s.mu.Unlock()

	select {
	case s.queue <- userID:
	default:
		s.mu.Lock()
		delete(s.pending, userID)
		s.mu.Unlock()
		if s.observer != nil {
			s.observer.ObserveTrustDropped()
		}
		s.log.Warn("trust queue full, skipping recompute", zap.Uint("user_id", userID))
	}
}

// Run processes the queue in batches until ctx is cancelled, then drains the queue and
// flushes everything still pending.
func (s *TrustScheduler) Run(ctx context.Context) {
	batch := make([]uint, 0, trustBatchSize)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.processBatch(context.Background(), s.drain(batch))
			return
		case userID := <-s.queue:
			batch = append(batch, userID)
			if len(batch) >= trustBatchSize {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

// drain appends every queued id to batch without blocking.
func (s *TrustScheduler) drain(batch []uint) []uint {
	for {
		select {
		case userID := <-s.queue:
			batch = append(batch, userID)
		default:
			return batch
		}
	}
}

func (s *TrustScheduler) processBatch(ctx context.Context, userIDs []uint) {
	for _, userID := range userIDs {
		// clear first so changes made during recompute schedule another pass
		s.mu.Lock()
		delete(s.pending, userID)
		s.mu.Unlock()

		_, err := s.engine.Recompute(ctx, userID)
		if s.observer != nil {
			s.observer.ObserveTrustRecompute(err)
		}
		if err != nil {
			s.log.Warn("trust recompute failed", zap.Uint("user_id", userID), zap.Error(err))
		}
	}
}
