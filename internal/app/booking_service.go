package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/auth"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/clock"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

type BookingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetListingForUpdate(ctx context.Context, listingID string) (domain.Listing, error)
	HasOverlap(ctx context.Context, listingID string, checkIn, checkOut, now time.Time, excludeHoldID string) (bool, error)
	GetBooking(ctx context.Context, bookingID string) (domain.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (domain.Booking, error)
	GetBookingForUpdate(ctx context.Context, bookingID string) (domain.Booking, error)
	GetBookingByReferenceForUpdate(ctx context.Context, reference string) (domain.Booking, error)
	GetBookingByHoldIDForUpdate(ctx context.Context, holdID string) (domain.Booking, error)
	UpdateBooking(ctx context.Context, booking domain.Booking) error
}

// HoldManager is the part of the hold service the engine drives.
type HoldManager interface {
	GetHold(ctx context.Context, holdID string) (domain.Hold, error)
	Expire(ctx context.Context, holdID string) (domain.Hold, error)
	Convert(ctx context.Context, holdID string) (domain.Hold, error)
	Cancel(ctx context.Context, holdID string) (domain.Hold, error)
}

// ChangeNotifier hears about committed booking changes, keyed by host.
type ChangeNotifier interface {
	BookingChanged(ctx context.Context, hostID string)
}

// BookingService owns the booking state machine. Nothing else writes
// booking status.
type BookingService struct {
	repo      BookingRepository
	holds     HoldManager
	clock     clock.Clock
	opTimeout time.Duration
	logger    *log.Logger
	notifier  ChangeNotifier
}

func NewBookingService(repo BookingRepository, holds HoldManager, clk clock.Clock, opts ...BookingServiceOption) *BookingService {
	svc := &BookingService{
		repo:      repo,
		holds:     holds,
		clock:     clk,
		opTimeout: defaultOpTimeout,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type BookingServiceOption func(*BookingService)

func WithBookingOpTimeout(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

func WithBookingLogger(l *log.Logger) BookingServiceOption {
	return func(s *BookingService) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithChangeNotifier(n ChangeNotifier) BookingServiceOption {
	return func(s *BookingService) {
		s.notifier = n
	}
}

type PaymentSignal struct {
	Reference string
	Outcome   domain.PaymentOutcome
	Provider  string
	Meta      map[string]any
}

type PaymentResult struct {
	Booking domain.Booking
	// Applied is false when the signal was a duplicate or arrived after the
	// booking had already left pending.
	Applied bool
}

// ApplyPaymentSignal settles a pending booking from a gateway outcome.
// Re-delivery of a signal for a booking that already left pending returns
// the current booking without touching it.
func (s *BookingService) ApplyPaymentSignal(ctx context.Context, sig PaymentSignal) (PaymentResult, error) {
	if sig.Reference == "" {
		return PaymentResult{}, domain.ErrInvalidReference
	}
	if !sig.Outcome.Valid() {
		return PaymentResult{}, domain.ErrInvalidOutcome
	}

	opCtx, cancel := bounded(ctx, s.opTimeout)
	defer cancel()

	now := s.clock.Now()
	var result PaymentResult
	err := s.repo.WithTx(opCtx, func(txCtx context.Context) error {
		b, err := s.repo.GetBookingByReferenceForUpdate(txCtx, sig.Reference)
		if err != nil {
			return err
		}
		if b.Status != domain.BookingStatusPending {
			if sig.Outcome == domain.PaymentSucceeded && b.Status.Terminal() && b.Status != domain.BookingStatusRefunded {
				s.logger.Printf("WARN: payment succeeded for closed booking booking_id=%s reference=%s status=%s; refund required",
					b.ID, b.Reference, b.Status)
			}
			result = PaymentResult{Booking: b, Applied: false}
			return nil
		}

		if sig.Provider != "" {
			b.Provider = sig.Provider
		}
		if sig.Meta != nil {
			b.ProviderMeta = sig.Meta
		}

		switch sig.Outcome {
		case domain.PaymentSucceeded:
			ok, err := s.settle(txCtx, &b)
			if err != nil {
				return err
			}
			if !ok {
				b.Status = domain.BookingStatusFailed
				s.logger.Printf("WARN: payment succeeded after hold lapsed and dates were taken booking_id=%s reference=%s; refund required",
					b.ID, b.Reference)
			}
		case domain.PaymentFailed:
			if err := s.release(txCtx, &b, domain.BookingStatusFailed); err != nil {
				return err
			}
		case domain.PaymentCancelled:
			if err := s.release(txCtx, &b, domain.BookingStatusCancelled); err != nil {
				return err
			}
		}

		b.UpdatedAt = now
		if err := s.repo.UpdateBooking(txCtx, b); err != nil {
			return err
		}
		result = PaymentResult{Booking: b, Applied: true}
		return nil
	})
	if err != nil {
		return PaymentResult{}, mapTimeout(err)
	}

	if result.Applied {
		s.logger.Printf("payment applied booking_id=%s reference=%s outcome=%s status=%s",
			result.Booking.ID, result.Booking.Reference, sig.Outcome, result.Booking.Status)
		s.notify(ctx, result.Booking.HostID)
	}
	return result, nil
}

// HostTransition applies a host or admin decision to a booking.
func (s *BookingService) HostTransition(ctx context.Context, ac auth.Context, bookingID string, action domain.HostAction) (domain.Booking, error) {
	if err := ac.Require(); err != nil {
		return domain.Booking{}, err
	}
	if bookingID == "" {
		return domain.Booking{}, domain.ErrInvalidID
	}
	switch action {
	case domain.HostActionConfirm, domain.HostActionCancel, domain.HostActionRefund:
	default:
		return domain.Booking{}, domain.ErrInvalidAction
	}

	opCtx, cancel := bounded(ctx, s.opTimeout)
	defer cancel()

	now := s.clock.Now()
	var result domain.Booking
	err := s.repo.WithTx(opCtx, func(txCtx context.Context) error {
		b, err := s.repo.GetBookingForUpdate(txCtx, bookingID)
		if err != nil {
			return err
		}
		if !ac.IsAdmin() && ac.UserID != b.HostID {
			return domain.ErrNotBookingHost
		}

		switch action {
		case domain.HostActionConfirm:
			switch {
			case b.Status == domain.BookingStatusPending:
				ok, err := s.settle(txCtx, &b)
				if err != nil {
					return err
				}
				if !ok {
					return domain.ErrDatesUnavailable
				}
				closeRequest(&b, domain.RequestStateResolved)
			case b.Status.Settled() && b.HasOpenRequest():
				closeRequest(&b, domain.RequestStateDeclined)
			default:
				return domain.ErrInvalidTransition
			}
		case domain.HostActionCancel:
			switch {
			case b.Status == domain.BookingStatusPending:
				if err := s.release(txCtx, &b, domain.BookingStatusCancelled); err != nil {
					return err
				}
			case b.Status.Settled():
				b.Status = domain.BookingStatusCancelled
			default:
				return domain.ErrInvalidTransition
			}
			closeRequest(&b, domain.RequestStateResolved)
		case domain.HostActionRefund:
			if !b.Status.Settled() {
				return domain.ErrInvalidTransition
			}
			b.Status = domain.BookingStatusRefunded
			closeRequest(&b, domain.RequestStateResolved)
		}

		b.UpdatedAt = now
		if err := s.repo.UpdateBooking(txCtx, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return domain.Booking{}, mapTimeout(err)
	}

	s.logger.Printf("host transition booking_id=%s actor=%s role=%s action=%s status=%s",
		result.ID, ac.UserID, ac.Role, action, result.Status)
	s.notify(ctx, result.HostID)
	return result, nil
}

type GuestRequestInput struct {
	Kind     domain.GuestRequestKind
	CheckIn  time.Time
	CheckOut time.Time
	Reason   string
}

// GuestRequest records a cancellation or date-change request. It never
// changes the booking status; a host or admin acts on it later.
func (s *BookingService) GuestRequest(ctx context.Context, ac auth.Context, bookingID string, in GuestRequestInput) (domain.Booking, error) {
	if err := ac.Require(); err != nil {
		return domain.Booking{}, err
	}
	if bookingID == "" {
		return domain.Booking{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	today := clock.Today(now)

	req := &domain.BookingRequest{
		State:       domain.RequestStateRequested,
		Reason:      in.Reason,
		RequestedAt: now,
	}
	switch in.Kind {
	case domain.GuestRequestCancellation:
		req.Type = domain.RequestTypeCancel
	case domain.GuestRequestDateChange:
		checkIn, checkOut := clock.Today(in.CheckIn), clock.Today(in.CheckOut)
		if !checkIn.Before(checkOut) {
			return domain.Booking{}, domain.ErrInvalidDateRange
		}
		if checkIn.Before(today) {
			return domain.Booking{}, domain.ErrDateInPast
		}
		req.Type = domain.RequestTypeDateChange
		req.ProposedCheckIn = &checkIn
		req.ProposedCheckOut = &checkOut
	default:
		return domain.Booking{}, domain.ErrInvalidRequestKind
	}

	opCtx, cancel := bounded(ctx, s.opTimeout)
	defer cancel()

	var result domain.Booking
	err := s.repo.WithTx(opCtx, func(txCtx context.Context) error {
		b, err := s.repo.GetBookingForUpdate(txCtx, bookingID)
		if err != nil {
			return err
		}
		if b.GuestID != ac.UserID {
			return domain.ErrNotBookingGuest
		}
		if !b.Status.Settled() || !b.CheckIn.After(today) {
			return domain.ErrRequestNotAllowed
		}

		if req.Type == domain.RequestTypeCancel {
			b.CancellationRequested = true
		} else {
			b.DateChangeRequested = true
		}
		b.Request = req
		b.UpdatedAt = now
		if err := s.repo.UpdateBooking(txCtx, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return domain.Booking{}, mapTimeout(err)
	}

	s.logger.Printf("guest request booking_id=%s kind=%s", result.ID, in.Kind)
	s.notify(ctx, result.HostID)
	return result, nil
}

// GetBooking looks a booking up by id or payment reference. Callers that
// are not a party to the booking get ErrBookingNotFound.
func (s *BookingService) GetBooking(ctx context.Context, ac auth.Context, idOrRef string) (domain.Booking, error) {
	if err := ac.Require(); err != nil {
		return domain.Booking{}, err
	}
	if idOrRef == "" {
		return domain.Booking{}, domain.ErrInvalidID
	}

	ctx, cancel := bounded(ctx, s.opTimeout)
	defer cancel()

	var (
		b   domain.Booking
		err error
	)
	if isUUID(idOrRef) {
		b, err = s.repo.GetBooking(ctx, idOrRef)
	} else {
		b, err = s.repo.GetBookingByReference(ctx, idOrRef)
	}
	if err != nil {
		return domain.Booking{}, mapTimeout(err)
	}
	if !ac.IsAdmin() && !b.IsParty(ac.UserID) {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return b, nil
}

// Abandon settles a pending booking whose guest left the payment flow.
func (s *BookingService) Abandon(ctx context.Context, ac auth.Context, bookingID string) (PaymentResult, error) {
	b, err := s.GetBooking(ctx, ac, bookingID)
	if err != nil {
		return PaymentResult{}, err
	}
	if !ac.IsAdmin() && b.GuestID != ac.UserID {
		return PaymentResult{}, domain.ErrNotBookingGuest
	}
	return s.ApplyPaymentSignal(ctx, PaymentSignal{
		Reference: b.Reference,
		Outcome:   domain.PaymentCancelled,
	})
}

// ExpireHold records a lapsed hold as expired and moves its pending booking
// to expired in the same transaction. It reports whether the booking moved.
func (s *BookingService) ExpireHold(ctx context.Context, holdID string) (domain.Booking, bool, error) {
	if holdID == "" {
		return domain.Booking{}, false, domain.ErrInvalidID
	}

	opCtx, cancel := bounded(ctx, s.opTimeout)
	defer cancel()

	now := s.clock.Now()
	var (
		result  domain.Booking
		changed bool
	)
	err := s.repo.WithTx(opCtx, func(txCtx context.Context) error {
		// Booking row first: the payment path locks booking then hold.
		b, err := s.repo.GetBookingByHoldIDForUpdate(txCtx, holdID)
		orphan := errors.Is(err, domain.ErrBookingNotFound)
		if err != nil && !orphan {
			return err
		}
		if _, err := s.holds.Expire(txCtx, holdID); err != nil {
			return err
		}
		if orphan {
			return nil
		}
		if b.Status == domain.BookingStatusPending {
			b.Status = domain.BookingStatusExpired
			b.UpdatedAt = now
			if err := s.repo.UpdateBooking(txCtx, b); err != nil {
				return err
			}
			changed = true
		}
		result = b
		return nil
	})
	if err != nil {
		return domain.Booking{}, false, mapTimeout(err)
	}
	if changed {
		s.notify(ctx, result.HostID)
	}
	return result, changed, nil
}

// settle confirms a pending booking and converts its hold. It returns false
// when the hold had lapsed and its dates were taken in the meantime. The
// listing lock is taken before the hold is read so hold creation for the
// same listing cannot interleave with the expiry decision.
func (s *BookingService) settle(txCtx context.Context, b *domain.Booking) (bool, error) {
	if _, err := s.repo.GetListingForUpdate(txCtx, b.ListingID); err != nil {
		return false, err
	}
	hold, err := s.holds.GetHold(txCtx, b.HoldID)
	if err != nil {
		return false, err
	}
	now := s.clock.Now()

	switch hold.EffectiveStatus(now) {
	case domain.HoldStatusActive, domain.HoldStatusConverted:
	case domain.HoldStatusExpired:
		taken, err := s.repo.HasOverlap(txCtx, b.ListingID, b.CheckIn, b.CheckOut, now, b.HoldID)
		if err != nil {
			return false, err
		}
		if taken {
			return false, nil
		}
	default:
		return false, domain.ErrInvalidTransition
	}

	if _, err := s.holds.Convert(txCtx, b.HoldID); err != nil {
		if errors.Is(err, domain.ErrHoldExpired) {
			return false, nil
		}
		return false, err
	}
	b.Status = domain.BookingStatusConfirmed
	return true, nil
}

func (s *BookingService) release(txCtx context.Context, b *domain.Booking, status domain.BookingStatus) error {
	if _, err := s.holds.Cancel(txCtx, b.HoldID); err != nil {
		return err
	}
	b.Status = status
	return nil
}

func (s *BookingService) notify(ctx context.Context, hostID string) {
	if s.notifier == nil || hostID == "" {
		return
	}
	s.notifier.BookingChanged(ctx, hostID)
}

func closeRequest(b *domain.Booking, state domain.RequestState) {
	b.CancellationRequested = false
	b.DateChangeRequested = false
	if b.Request != nil && b.Request.State.Open() {
		b.Request.State = state
	}
}
