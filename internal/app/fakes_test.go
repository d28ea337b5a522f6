package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

// fakeStore stands in for Postgres. A single mutex plays the role of the
// row locks: the outermost WithTx holds it until fn returns, nested calls
// join the outer transaction, and a failed fn restores the prior state.
type fakeStore struct {
	txMu sync.Mutex

	listings map[string]domain.Listing
	contacts map[string]domain.ContactRecord
	profiles map[string]domain.UserProfile
	holds    map[string]domain.Hold
	bookings map[string]domain.Booking

	listingLocks int
	// held records listing rows locked by the open transaction.
	held     map[string]bool
	failNext error
}

type inTxKey struct{}

func newFakeStore() *fakeStore {
	return &fakeStore{
		listings: make(map[string]domain.Listing),
		contacts: make(map[string]domain.ContactRecord),
		profiles: make(map[string]domain.UserProfile),
		holds:    make(map[string]domain.Hold),
		bookings: make(map[string]domain.Booking),
		held:     make(map[string]bool),
	}
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}
	f.txMu.Lock()
	defer f.txMu.Unlock()
	defer func() { f.held = make(map[string]bool) }()

	holds := make(map[string]domain.Hold, len(f.holds))
	for k, v := range f.holds {
		holds[k] = v
	}
	bookings := make(map[string]domain.Booking, len(f.bookings))
	for k, v := range f.bookings {
		bookings[k] = v
	}

	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		f.holds, f.bookings = holds, bookings
		return err
	}
	return nil
}

func (f *fakeStore) GetListing(_ context.Context, listingID string) (domain.Listing, error) {
	l, ok := f.listings[listingID]
	if !ok {
		return domain.Listing{}, domain.ErrListingNotFound
	}
	return l, nil
}

func (f *fakeStore) GetListingForUpdate(ctx context.Context, listingID string) (domain.Listing, error) {
	f.listingLocks++
	if ctx.Value(inTxKey{}) != nil {
		f.held[listingID] = true
	}
	return f.GetListing(ctx, listingID)
}

func (f *fakeStore) FindActiveHoldBySignature(_ context.Context, signature string, now time.Time) (*domain.Hold, error) {
	for _, h := range f.holds {
		if h.Signature == signature && h.Blocking(now) {
			h := h
			return &h, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) HasOverlap(_ context.Context, listingID string, checkIn, checkOut, now time.Time, excludeHoldID string) (bool, error) {
	for _, h := range f.holds {
		if h.ListingID != listingID || h.ID == excludeHoldID || !h.Blocking(now) {
			continue
		}
		if domain.Overlaps(h.CheckIn, h.CheckOut, checkIn, checkOut) {
			return true, nil
		}
	}
	for _, b := range f.bookings {
		if b.ListingID != listingID || !b.Status.Settled() {
			continue
		}
		if domain.Overlaps(b.CheckIn, b.CheckOut, checkIn, checkOut) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateHold(_ context.Context, hold domain.Hold) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.holds[hold.ID] = hold
	return nil
}

func (f *fakeStore) CreateBooking(_ context.Context, booking domain.Booking) error {
	f.bookings[booking.ID] = booking
	return nil
}

func (f *fakeStore) GetHold(_ context.Context, holdID string) (domain.Hold, error) {
	h, ok := f.holds[holdID]
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return h, nil
}

func (f *fakeStore) GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error) {
	return f.GetHold(ctx, holdID)
}

func (f *fakeStore) UpdateHoldStatus(_ context.Context, holdID string, status domain.HoldStatus) error {
	h, ok := f.holds[holdID]
	if !ok {
		return domain.ErrHoldNotFound
	}
	h.Status = status
	f.holds[holdID] = h
	return nil
}

func (f *fakeStore) ListLapsedHolds(_ context.Context, now time.Time, limit int) ([]domain.Hold, error) {
	var out []domain.Hold
	for _, h := range f.holds {
		if h.Lapsed(now) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) GetBooking(_ context.Context, bookingID string) (domain.Booking, error) {
	b, ok := f.bookings[bookingID]
	if !ok {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return b, nil
}

func (f *fakeStore) GetBookingForUpdate(ctx context.Context, bookingID string) (domain.Booking, error) {
	return f.GetBooking(ctx, bookingID)
}

func (f *fakeStore) GetBookingByReference(_ context.Context, reference string) (domain.Booking, error) {
	for _, b := range f.bookings {
		if b.Reference == reference {
			return b, nil
		}
	}
	return domain.Booking{}, domain.ErrBookingNotFound
}

func (f *fakeStore) GetBookingByReferenceForUpdate(ctx context.Context, reference string) (domain.Booking, error) {
	return f.GetBookingByReference(ctx, reference)
}

func (f *fakeStore) GetBookingByHoldID(_ context.Context, holdID string) (domain.Booking, error) {
	for _, b := range f.bookings {
		if b.HoldID == holdID {
			return b, nil
		}
	}
	return domain.Booking{}, domain.ErrBookingNotFound
}

func (f *fakeStore) GetBookingByHoldIDForUpdate(ctx context.Context, holdID string) (domain.Booking, error) {
	return f.GetBookingByHoldID(ctx, holdID)
}

func (f *fakeStore) UpdateBooking(_ context.Context, booking domain.Booking) error {
	if _, ok := f.bookings[booking.ID]; !ok {
		return domain.ErrBookingNotFound
	}
	f.bookings[booking.ID] = booking
	return nil
}

func (f *fakeStore) GetContact(_ context.Context, listingID string) (domain.ContactRecord, error) {
	c, ok := f.contacts[listingID]
	if !ok {
		return domain.ContactRecord{}, domain.ErrContactNotFound
	}
	return c, nil
}

func (f *fakeStore) GetProfile(_ context.Context, userID string) (domain.UserProfile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return domain.UserProfile{}, domain.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeStore) HasSettledBooking(_ context.Context, listingID, guestID string) (bool, error) {
	for _, b := range f.bookings {
		if b.ListingID == listingID && b.GuestID == guestID && b.Status.Settled() {
			return true, nil
		}
	}
	return false, nil
}

// counts returns holds and bookings for a listing, for assertions.
func (f *fakeStore) counts(listingID string) (holds, bookings int) {
	f.txMu.Lock()
	defer f.txMu.Unlock()
	for _, h := range f.holds {
		if h.ListingID == listingID {
			holds++
		}
	}
	for _, b := range f.bookings {
		if b.ListingID == listingID {
			bookings++
		}
	}
	return holds, bookings
}

// listingHeld is only meaningful from inside a transaction.
func (f *fakeStore) listingHeld(listingID string) bool {
	return f.held[listingID]
}

func (f *fakeStore) bookingStatus(id string) domain.BookingStatus {
	f.txMu.Lock()
	defer f.txMu.Unlock()
	return f.bookings[id].Status
}

func date(s string) time.Time {
	t, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

type recordingNotifier struct {
	mu    sync.Mutex
	hosts []string
}

func (r *recordingNotifier) BookingChanged(_ context.Context, hostID string) {
	r.mu.Lock()
	r.hosts = append(r.hosts, hostID)
	r.mu.Unlock()
}

func (r *recordingNotifier) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.hosts...)
}
