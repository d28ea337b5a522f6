package app

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/attention"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/auth"
)

// AttentionRepository runs one query per stream. Each returns the ids of
// the host's bookings matching that stream's predicate.
type AttentionRepository interface {
	ListStatusAttention(ctx context.Context, hostID string, statuses []string) ([]string, error)
	ListFlagAttention(ctx context.Context, hostID string) ([]string, error)
	ListRequestAttention(ctx context.Context, hostID string) ([]string, error)
}

type AttentionService struct {
	repo      AttentionRepository
	set       *attention.Set
	statuses  []string
	version   atomic.Int64
	opTimeout time.Duration
	logger    *log.Logger
}

func NewAttentionService(repo AttentionRepository, set *attention.Set, opts ...AttentionServiceOption) *AttentionService {
	svc := &AttentionService{
		repo:      repo,
		set:       set,
		statuses:  attention.DefaultStatuses,
		opTimeout: defaultOpTimeout,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type AttentionServiceOption func(*AttentionService)

// WithAttentionStatuses replaces the status values counted by the status
// stream.
func WithAttentionStatuses(statuses []string) AttentionServiceOption {
	return func(s *AttentionService) {
		if len(statuses) > 0 {
			s.statuses = statuses
		}
	}
}

func WithAttentionOpTimeout(d time.Duration) AttentionServiceOption {
	return func(s *AttentionService) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

func WithAttentionLogger(l *log.Logger) AttentionServiceOption {
	return func(s *AttentionService) {
		if l != nil {
			s.logger = l
		}
	}
}

type AttentionSnapshot struct {
	Count      int
	BookingIDs []string
	// Streams names, per booking id, the streams that flagged it.
	Streams map[string][]attention.Stream
}

// Refresh re-runs every stream query for the host. The version is taken
// before the query starts, so a slow query finishing after a newer one is
// dropped by the set.
func (s *AttentionService) Refresh(ctx context.Context, hostID string) error {
	ctx, cancel := bounded(ctx, s.opTimeout)
	defer cancel()

	for _, stream := range attention.Streams {
		version := s.version.Add(1)
		ids, err := s.query(ctx, stream, hostID)
		if err != nil {
			return mapTimeout(fmt.Errorf("refresh %s stream: %w", stream, err))
		}
		s.set.Apply(attention.Update{
			HostID:     hostID,
			Stream:     stream,
			Version:    version,
			BookingIDs: ids,
		})
	}
	return nil
}

func (s *AttentionService) query(ctx context.Context, stream attention.Stream, hostID string) ([]string, error) {
	switch stream {
	case attention.StreamStatus:
		return s.repo.ListStatusAttention(ctx, hostID, s.statuses)
	case attention.StreamFlag:
		return s.repo.ListFlagAttention(ctx, hostID)
	case attention.StreamRequest:
		return s.repo.ListRequestAttention(ctx, hostID)
	default:
		return nil, fmt.Errorf("unknown stream %q", stream)
	}
}

// Snapshot refreshes and returns the caller's own attention set.
func (s *AttentionService) Snapshot(ctx context.Context, ac auth.Context) (AttentionSnapshot, error) {
	if err := ac.Require(); err != nil {
		return AttentionSnapshot{}, err
	}
	if err := s.Refresh(ctx, ac.UserID); err != nil {
		return AttentionSnapshot{}, err
	}
	ids := s.set.IDs(ac.UserID)
	streams := make(map[string][]attention.Stream, len(ids))
	for _, id := range ids {
		streams[id] = s.set.Tags(ac.UserID, id)
	}
	return AttentionSnapshot{
		Count:      s.set.Count(ac.UserID),
		BookingIDs: ids,
		Streams:    streams,
	}, nil
}

// Subscribe delivers the host's count whenever it changes. The returned
// func stops delivery.
func (s *AttentionService) Subscribe(hostID string) (<-chan int, func()) {
	return s.set.Subscribe(hostID)
}

// BookingChanged implements ChangeNotifier.
func (s *AttentionService) BookingChanged(ctx context.Context, hostID string) {
	if err := s.Refresh(ctx, hostID); err != nil {
		s.logger.Printf("WARN: attention refresh failed host_id=%s: %v", hostID, err)
	}
}
