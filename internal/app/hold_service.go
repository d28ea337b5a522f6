package app

import (
	"context"
	"log"
	"time"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/clock"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

type HoldRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetListingForUpdate(ctx context.Context, listingID string) (domain.Listing, error)
	FindActiveHoldBySignature(ctx context.Context, signature string, now time.Time) (*domain.Hold, error)
	HasOverlap(ctx context.Context, listingID string, checkIn, checkOut, now time.Time, excludeHoldID string) (bool, error)
	CreateHold(ctx context.Context, hold domain.Hold) error
	CreateBooking(ctx context.Context, booking domain.Booking) error
	GetHold(ctx context.Context, holdID string) (domain.Hold, error)
	GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error)
	GetBookingByHoldID(ctx context.Context, holdID string) (domain.Booking, error)
	UpdateHoldStatus(ctx context.Context, holdID string, status domain.HoldStatus) error
	ListLapsedHolds(ctx context.Context, now time.Time, limit int) ([]domain.Hold, error)
}

// HoldService is the only writer of hold state.
type HoldService struct {
	repo      HoldRepository
	clock     clock.Clock
	holdTTL   time.Duration
	maxTTL    time.Duration
	opTimeout time.Duration
	logger    *log.Logger
}

const defaultMaxHoldTTL = 24 * time.Hour

func NewHoldService(repo HoldRepository, clk clock.Clock, opts ...HoldServiceOption) *HoldService {
	svc := &HoldService{
		repo:      repo,
		clock:     clk,
		holdTTL:   domain.DefaultHoldTTL,
		maxTTL:    defaultMaxHoldTTL,
		opTimeout: defaultOpTimeout,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type HoldServiceOption func(*HoldService)

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) HoldServiceOption {
	return func(s *HoldService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

// WithMaxHoldTTL caps the TTL a client may ask for.
func WithMaxHoldTTL(d time.Duration) HoldServiceOption {
	return func(s *HoldService) {
		if d > 0 {
			s.maxTTL = d
		}
	}
}

func WithHoldOpTimeout(d time.Duration) HoldServiceOption {
	return func(s *HoldService) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

func WithHoldLogger(l *log.Logger) HoldServiceOption {
	return func(s *HoldService) {
		if l != nil {
			s.logger = l
		}
	}
}

type CreateHoldInput struct {
	ListingID string
	GuestID   string
	CheckIn   time.Time
	CheckOut  time.Time
	// TTL zero means the service default.
	TTL    time.Duration
	Guests int
	// Nights and Amount are optional client echoes checked against the
	// server's own computation.
	Nights int
	Amount int64
}

type CreateHoldResult struct {
	Hold    domain.Hold
	Booking domain.Booking
	Created bool
}

// CreateHold reserves the date range and opens a pending booking for it.
// The availability check and both inserts run under the listing row lock.
func (s *HoldService) CreateHold(ctx context.Context, in CreateHoldInput) (CreateHoldResult, error) {
	if in.ListingID == "" || in.GuestID == "" {
		return CreateHoldResult{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	checkIn, checkOut := clock.Today(in.CheckIn), clock.Today(in.CheckOut)
	if !checkIn.Before(checkOut) {
		return CreateHoldResult{}, domain.ErrInvalidDateRange
	}
	if checkIn.Before(clock.Today(now)) {
		return CreateHoldResult{}, domain.ErrDateInPast
	}

	ttl := in.TTL
	if ttl == 0 {
		ttl = s.holdTTL
	}
	if ttl < 0 || ttl > s.maxTTL {
		return CreateHoldResult{}, domain.ErrInvalidTTL
	}

	guests := in.Guests
	if guests == 0 {
		guests = 1
	}
	if guests < 0 {
		return CreateHoldResult{}, domain.ErrInvalidGuests
	}

	nights := domain.Nights(checkIn, checkOut)
	if in.Nights != 0 && in.Nights != nights {
		return CreateHoldResult{}, domain.ErrNightsMismatch
	}
	signature := domain.HoldSignature(in.GuestID, in.ListingID, checkIn, checkOut)

	ctx, cancel := bounded(ctx, s.opTimeout)
	defer cancel()

	var result CreateHoldResult
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		listing, err := s.repo.GetListingForUpdate(txCtx, in.ListingID)
		if err != nil {
			return err
		}

		existing, err := s.repo.FindActiveHoldBySignature(txCtx, signature, now)
		if err != nil {
			return err
		}
		if existing != nil {
			booking, err := s.repo.GetBookingByHoldID(txCtx, existing.ID)
			if err != nil {
				return err
			}
			result = CreateHoldResult{Hold: *existing, Booking: booking, Created: false}
			return nil
		}

		amount := listing.PricePerNight * int64(nights)
		if in.Amount != 0 && in.Amount != amount {
			return domain.ErrAmountMismatch
		}

		taken, err := s.repo.HasOverlap(txCtx, listing.ID, checkIn, checkOut, now, "")
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrDatesUnavailable
		}

		hold := domain.Hold{
			ID:        newUUID(),
			ListingID: listing.ID,
			GuestID:   in.GuestID,
			CheckIn:   checkIn,
			CheckOut:  checkOut,
			Status:    domain.HoldStatusActive,
			Signature: signature,
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
		}
		booking := domain.Booking{
			ID:        newUUID(),
			HoldID:    hold.ID,
			ListingID: listing.ID,
			GuestID:   in.GuestID,
			HostID:    listing.OwnerID,
			Amount:    amount,
			Nights:    nights,
			Guests:    guests,
			CheckIn:   checkIn,
			CheckOut:  checkOut,
			Reference: newReference(),
			Status:    domain.BookingStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := s.repo.CreateHold(txCtx, hold); err != nil {
			return err
		}
		if err := s.repo.CreateBooking(txCtx, booking); err != nil {
			return err
		}

		result = CreateHoldResult{Hold: hold, Booking: booking, Created: true}
		return nil
	})
	if err != nil {
		return CreateHoldResult{}, mapTimeout(err)
	}

	if result.Created {
		s.logger.Printf("hold created hold_id=%s listing_id=%s booking_id=%s reference=%s expires_at=%s",
			result.Hold.ID, result.Hold.ListingID, result.Booking.ID, result.Booking.Reference,
			result.Hold.ExpiresAt.Format(time.RFC3339))
	}
	return result, nil
}

// GetHold returns the hold with lazy expiry applied to its status.
func (s *HoldService) GetHold(ctx context.Context, holdID string) (domain.Hold, error) {
	if holdID == "" {
		return domain.Hold{}, domain.ErrInvalidID
	}
	hold, err := s.repo.GetHold(ctx, holdID)
	if err != nil {
		return domain.Hold{}, err
	}
	hold.Status = hold.EffectiveStatus(s.clock.Now())
	return hold, nil
}

// Expire records the expiry of a lapsed hold. Holds that are no longer
// active are returned unchanged.
func (s *HoldService) Expire(ctx context.Context, holdID string) (domain.Hold, error) {
	return s.transition(ctx, holdID, func(h domain.Hold, now time.Time) (domain.HoldStatus, error) {
		if h.Status != domain.HoldStatusActive {
			return h.Status, nil
		}
		if !h.Lapsed(now) {
			return "", domain.ErrHoldNotLapsed
		}
		return domain.HoldStatusExpired, nil
	})
}

// Convert marks the hold as superseded by its settled booking. Callers must
// have checked that a lapsed hold's interval is still free.
func (s *HoldService) Convert(ctx context.Context, holdID string) (domain.Hold, error) {
	return s.transition(ctx, holdID, func(h domain.Hold, _ time.Time) (domain.HoldStatus, error) {
		switch h.Status {
		case domain.HoldStatusActive, domain.HoldStatusConverted:
			return domain.HoldStatusConverted, nil
		case domain.HoldStatusExpired:
			return "", domain.ErrHoldExpired
		default:
			return "", domain.ErrInvalidTransition
		}
	})
}

// Cancel releases the hold's interval.
func (s *HoldService) Cancel(ctx context.Context, holdID string) (domain.Hold, error) {
	return s.transition(ctx, holdID, func(h domain.Hold, _ time.Time) (domain.HoldStatus, error) {
		switch h.Status {
		case domain.HoldStatusActive:
			return domain.HoldStatusCancelRequest, nil
		case domain.HoldStatusConverted:
			return "", domain.ErrInvalidTransition
		default:
			return h.Status, nil
		}
	})
}

// ListLapsed returns stored-active holds past their TTL.
func (s *HoldService) ListLapsed(ctx context.Context, limit int) ([]domain.Hold, error) {
	return s.repo.ListLapsedHolds(ctx, s.clock.Now(), limit)
}

func (s *HoldService) transition(ctx context.Context, holdID string, next func(domain.Hold, time.Time) (domain.HoldStatus, error)) (domain.Hold, error) {
	if holdID == "" {
		return domain.Hold{}, domain.ErrInvalidID
	}

	ctx, cancel := bounded(ctx, s.opTimeout)
	defer cancel()

	now := s.clock.Now()
	var result domain.Hold
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetHoldForUpdate(txCtx, holdID)
		if err != nil {
			return err
		}
		status, err := next(hold, now)
		if err != nil {
			return err
		}
		if status != hold.Status {
			if err := s.repo.UpdateHoldStatus(txCtx, holdID, status); err != nil {
				return err
			}
			s.logger.Printf("hold transition hold_id=%s from=%s to=%s", holdID, hold.Status, status)
			hold.Status = status
		}
		result = hold
		return nil
	})
	if err != nil {
		return domain.Hold{}, mapTimeout(err)
	}
	return result, nil
}
