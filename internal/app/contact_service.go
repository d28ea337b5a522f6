package app

import (
	"context"
	"errors"
	"time"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/auth"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/clock"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

type DirectoryRepository interface {
	GetListing(ctx context.Context, listingID string) (domain.Listing, error)
	GetContact(ctx context.Context, listingID string) (domain.ContactRecord, error)
	GetProfile(ctx context.Context, userID string) (domain.UserProfile, error)
	HasSettledBooking(ctx context.Context, listingID, guestID string) (bool, error)
}

type BookingReader interface {
	GetBooking(ctx context.Context, ac auth.Context, idOrRef string) (domain.Booking, error)
}

// DisclosureInput is everything the disclosure rule looks at.
type DisclosureInput struct {
	Caller            auth.Context
	Listing           domain.Listing
	HasSettledBooking bool
	CallerSub         domain.Subscription
	OwnerSub          domain.Subscription
	Now               time.Time
}

// DecideDisclosure returns nil when the caller may see the listing owner's
// contact details, or the denial to report.
func DecideDisclosure(in DisclosureInput) error {
	if !in.Caller.Authenticated() {
		return domain.ErrUnauthenticated
	}
	if !in.Listing.OwnerType.Valid() {
		return domain.ErrUnknownOwnerType
	}
	if in.Caller.UserID == in.Listing.OwnerID {
		return nil
	}

	switch in.Listing.OwnerType {
	case domain.OwnerTypeHost:
		if !in.HasSettledBooking {
			return domain.ErrBookingRequired
		}
		return nil
	case domain.OwnerTypeAgent:
		callerOK := in.CallerSub.ActiveAt(in.Now)
		ownerOK := in.OwnerSub.ActiveAt(in.Now)
		switch {
		case callerOK && ownerOK:
			return nil
		case !callerOK && !ownerOK:
			return domain.ErrSubscriptionsInactive
		case !callerOK:
			return domain.ErrCallerNotSubscribed
		default:
			return domain.ErrOwnerNotSubscribed
		}
	default:
		return domain.ErrUnknownOwnerType
	}
}

// ContactService evaluates disclosure on every call. Nothing is cached:
// a lapsed subscription or a cancelled booking takes effect immediately.
type ContactService struct {
	repo      DirectoryRepository
	bookings  BookingReader
	clock     clock.Clock
	opTimeout time.Duration
}

func NewContactService(repo DirectoryRepository, bookings BookingReader, clk clock.Clock, opts ...ContactServiceOption) *ContactService {
	svc := &ContactService{repo: repo, bookings: bookings, clock: clk, opTimeout: defaultOpTimeout}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ContactServiceOption func(*ContactService)

func WithContactOpTimeout(d time.Duration) ContactServiceOption {
	return func(s *ContactService) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

func (s *ContactService) Reveal(ctx context.Context, ac auth.Context, listingID string) (domain.ContactRecord, error) {
	ctx, cancel := bounded(ctx, s.opTimeout)
	defer cancel()

	c, err := s.reveal(ctx, ac, listingID)
	return c, mapTimeout(err)
}

// RevealForBooking resolves the listing through a booking the caller is a
// party to.
func (s *ContactService) RevealForBooking(ctx context.Context, ac auth.Context, bookingID string) (domain.ContactRecord, error) {
	ctx, cancel := bounded(ctx, s.opTimeout)
	defer cancel()

	b, err := s.bookings.GetBooking(ctx, ac, bookingID)
	if err != nil {
		return domain.ContactRecord{}, mapTimeout(err)
	}
	c, err := s.reveal(ctx, ac, b.ListingID)
	return c, mapTimeout(err)
}

func (s *ContactService) reveal(ctx context.Context, ac auth.Context, listingID string) (domain.ContactRecord, error) {
	if err := ac.Require(); err != nil {
		return domain.ContactRecord{}, err
	}
	if listingID == "" {
		return domain.ContactRecord{}, domain.ErrInvalidID
	}

	listing, err := s.repo.GetListing(ctx, listingID)
	if err != nil {
		return domain.ContactRecord{}, err
	}

	in := DisclosureInput{Caller: ac, Listing: listing, Now: s.clock.Now()}
	if ac.UserID != listing.OwnerID {
		switch listing.OwnerType {
		case domain.OwnerTypeHost:
			in.HasSettledBooking, err = s.repo.HasSettledBooking(ctx, listing.ID, ac.UserID)
			if err != nil {
				return domain.ContactRecord{}, err
			}
		case domain.OwnerTypeAgent:
			if in.CallerSub, err = s.subscription(ctx, ac.UserID); err != nil {
				return domain.ContactRecord{}, err
			}
			if in.OwnerSub, err = s.subscription(ctx, listing.OwnerID); err != nil {
				return domain.ContactRecord{}, err
			}
		}
	}

	if err := DecideDisclosure(in); err != nil {
		return domain.ContactRecord{}, err
	}
	return s.repo.GetContact(ctx, listing.ID)
}

// subscription treats a missing profile as having no subscription.
func (s *ContactService) subscription(ctx context.Context, userID string) (domain.Subscription, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		return domain.Subscription{}, nil
	}
	if err != nil {
		return domain.Subscription{}, err
	}
	return p.Subscription, nil
}
