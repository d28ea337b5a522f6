package app

import (
	"context"
	"time"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/clock"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

type AvailabilityRepository interface {
	GetListing(ctx context.Context, listingID string) (domain.Listing, error)
	HasOverlap(ctx context.Context, listingID string, checkIn, checkOut, now time.Time, excludeHoldID string) (bool, error)
}

// AvailabilityService answers read-only availability checks. The answer is
// advisory; CreateHold repeats the check under the listing lock.
type AvailabilityService struct {
	repo      AvailabilityRepository
	clock     clock.Clock
	opTimeout time.Duration
}

func NewAvailabilityService(repo AvailabilityRepository, clk clock.Clock, opts ...AvailabilityServiceOption) *AvailabilityService {
	svc := &AvailabilityService{repo: repo, clock: clk, opTimeout: defaultOpTimeout}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type AvailabilityServiceOption func(*AvailabilityService)

func WithAvailabilityOpTimeout(d time.Duration) AvailabilityServiceOption {
	return func(s *AvailabilityService) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

func (s *AvailabilityService) Check(ctx context.Context, listingID string, checkIn, checkOut time.Time) (bool, error) {
	if listingID == "" {
		return false, domain.ErrInvalidID
	}
	checkIn, checkOut = clock.Today(checkIn), clock.Today(checkOut)
	if !checkIn.Before(checkOut) {
		return false, domain.ErrInvalidDateRange
	}

	ctx, cancel := bounded(ctx, s.opTimeout)
	defer cancel()

	if _, err := s.repo.GetListing(ctx, listingID); err != nil {
		return false, mapTimeout(err)
	}
	taken, err := s.repo.HasOverlap(ctx, listingID, checkIn, checkOut, s.clock.Now(), "")
	if err != nil {
		return false, mapTimeout(err)
	}
	return !taken, nil
}
