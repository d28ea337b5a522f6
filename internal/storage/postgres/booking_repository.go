package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

type BookingRepository struct {
	db
}

func NewBookingRepository(pool *pgxpool.Pool, opts ...Option) *BookingRepository {
	return &BookingRepository{db: newDB(pool, opts...)}
}

func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.withTx(ctx, fn)
}

func (r *BookingRepository) GetListingForUpdate(ctx context.Context, listingID string) (domain.Listing, error) {
	return r.getListing(ctx, listingID, true)
}

func (r *BookingRepository) HasOverlap(ctx context.Context, listingID string, checkIn, checkOut, now time.Time, excludeHoldID string) (bool, error) {
	return r.hasOverlap(ctx, listingID, checkIn, checkOut, now, excludeHoldID)
}

func (r *BookingRepository) GetBooking(ctx context.Context, bookingID string) (domain.Booking, error) {
	return r.getBooking(ctx, "id", bookingID, false)
}

func (r *BookingRepository) GetBookingByReference(ctx context.Context, reference string) (domain.Booking, error) {
	return r.getBooking(ctx, "reference", reference, false)
}

func (r *BookingRepository) GetBookingForUpdate(ctx context.Context, bookingID string) (domain.Booking, error) {
	return r.getBooking(ctx, "id", bookingID, true)
}

func (r *BookingRepository) GetBookingByReferenceForUpdate(ctx context.Context, reference string) (domain.Booking, error) {
	return r.getBooking(ctx, "reference", reference, true)
}

func (r *BookingRepository) GetBookingByHoldIDForUpdate(ctx context.Context, holdID string) (domain.Booking, error) {
	return r.getBooking(ctx, "hold_id", holdID, true)
}

// UpdateBooking writes the mutable fields. host_id and amount are left
// out; the table trigger rejects changes to them anyway.
func (r *BookingRepository) UpdateBooking(ctx context.Context, booking domain.Booking) error {
	const stmt = `
UPDATE bookings SET
	provider = $2,
	provider_meta = $3,
	status = $4,
	cancellation_requested = $5,
	date_change_requested = $6,
	request = $7,
	updated_at = $8
WHERE id = $1`

	meta, err := jsonParam(booking.ProviderMeta)
	if err != nil {
		return fmt.Errorf("encode provider_meta: %w", err)
	}
	request, err := jsonParam(booking.Request)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	tag, err := r.exec(ctx, stmt,
		booking.ID,
		booking.Provider,
		meta,
		booking.Status,
		booking.CancellationRequested,
		booking.DateChangeRequested,
		request,
		booking.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}
