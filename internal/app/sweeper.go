package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

type LapsedHoldLister interface {
	ListLapsed(ctx context.Context, limit int) ([]domain.Hold, error)
}

type HoldExpirer interface {
	ExpireHold(ctx context.Context, holdID string) (domain.Booking, bool, error)
}

// Locker grants a short lease so only one replica sweeps per tick.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

const (
	sweeperLockKey      = "sweeper"
	defaultSweepEvery   = 30 * time.Second
	defaultSweepBatch   = 100
	sweepLeaseMultiple  = 2
	sweepReleaseTimeout = 2 * time.Second
)

// Sweeper writes the expiry of lapsed holds back to storage. Reads never
// depend on it; they apply lazy expiry themselves.
type Sweeper struct {
	holds    LapsedHoldLister
	expirer  HoldExpirer
	locker   Locker
	interval time.Duration
	batch    int
	logger   *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(holds LapsedHoldLister, expirer HoldExpirer, opts ...SweeperOption) *Sweeper {
	sw := &Sweeper{
		holds:    holds,
		expirer:  expirer,
		interval: defaultSweepEvery,
		batch:    defaultSweepBatch,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(sw)
	}
	return sw
}

type SweeperOption func(*Sweeper)

func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithSweepBatch(n int) SweeperOption {
	return func(s *Sweeper) {
		if n > 0 {
			s.batch = n
		}
	}
}

func WithSweepLocker(l Locker) SweeperOption {
	return func(s *Sweeper) {
		s.locker = l
	}
}

func WithSweepLogger(l *log.Logger) SweeperOption {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

// Start runs the sweep loop until Stop is called or ctx ends.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Sweeper) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.Printf("WARN: hold sweep failed: %v", err)
			}
		}
	}
}

// RunOnce expires one batch of lapsed holds and returns how many bookings
// moved to expired.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	if s.locker != nil {
		token, ok, err := s.locker.Acquire(ctx, sweeperLockKey, s.interval*sweepLeaseMultiple)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, nil
		}
		defer func() {
			relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sweepReleaseTimeout)
			defer cancel()
			if err := s.locker.Release(relCtx, sweeperLockKey, token); err != nil {
				s.logger.Printf("WARN: sweeper lease release failed: %v", err)
			}
		}()
	}

	holds, err := s.holds.ListLapsed(ctx, s.batch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, h := range holds {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		b, changed, err := s.expirer.ExpireHold(ctx, h.ID)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrHoldNotLapsed), errors.Is(err, domain.ErrBookingNotFound):
			continue
		default:
			s.logger.Printf("WARN: expire hold failed hold_id=%s: %v", h.ID, err)
			continue
		}
		if changed {
			expired++
			s.logger.Printf("booking expired booking_id=%s hold_id=%s", b.ID, h.ID)
		}
	}
	return expired, nil
}
