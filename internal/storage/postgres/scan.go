package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

const listingColumns = `id, owner_id, owner_type, price_per_night`

const holdColumns = `id, listing_id, guest_id, check_in, check_out, status, signature, created_at, expires_at`

const bookingColumns = `id, hold_id, listing_id, guest_id, host_id, amount, nights, guests, check_in, check_out,
provider, reference, provider_meta, status, cancellation_requested, date_change_requested, request,
created_at, updated_at`

func scanListing(row pgx.Row) (domain.Listing, error) {
	var l domain.Listing
	err := row.Scan(&l.ID, &l.OwnerID, &l.OwnerType, &l.PricePerNight)
	return l, err
}

func scanHold(row pgx.Row) (domain.Hold, error) {
	var h domain.Hold
	err := row.Scan(&h.ID, &h.ListingID, &h.GuestID, &h.CheckIn, &h.CheckOut, &h.Status, &h.Signature, &h.CreatedAt, &h.ExpiresAt)
	return h, err
}

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var (
		b       domain.Booking
		meta    []byte
		request []byte
	)
	err := row.Scan(
		&b.ID, &b.HoldID, &b.ListingID, &b.GuestID, &b.HostID, &b.Amount, &b.Nights, &b.Guests, &b.CheckIn, &b.CheckOut,
		&b.Provider, &b.Reference, &meta, &b.Status, &b.CancellationRequested, &b.DateChangeRequested, &request,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return domain.Booking{}, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &b.ProviderMeta); err != nil {
			return domain.Booking{}, fmt.Errorf("decode provider_meta: %w", err)
		}
	}
	if len(request) > 0 && string(request) != "null" {
		b.Request = &domain.BookingRequest{}
		if err := json.Unmarshal(request, b.Request); err != nil {
			return domain.Booking{}, fmt.Errorf("decode request: %w", err)
		}
	}
	return b, nil
}

// jsonParam encodes v for a JSONB column, mapping empty values to NULL.
func jsonParam(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		if len(x) == 0 {
			return nil, nil
		}
	case *domain.BookingRequest:
		if x == nil {
			return nil, nil
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (d db) getListing(ctx context.Context, listingID string, forUpdate bool) (domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	l, err := scanListing(d.queryRow(ctx, query, listingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Listing{}, domain.ErrListingNotFound
		}
		return domain.Listing{}, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}

// getBooking loads one booking by the given column. Invalid uuids surface
// as ErrInvalidID.
func (d db) getBooking(ctx context.Context, column, value string, forUpdate bool) (domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + column + ` = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	b, err := scanBooking(d.queryRow(ctx, query, value))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Booking{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, fmt.Errorf("get booking by %s: %w", column, err)
	}
	return b, nil
}

// hasOverlap reports a blocking hold or settled booking intersecting the
// half-open range [checkIn, checkOut).
func (d db) hasOverlap(ctx context.Context, listingID string, checkIn, checkOut, now time.Time, excludeHoldID string) (bool, error) {
	const query = `
SELECT EXISTS (
	SELECT 1 FROM holds
	WHERE listing_id = $1
	  AND status = 'active'
	  AND expires_at > $4
	  AND check_in < $3 AND $2 < check_out
	  AND ($5::uuid IS NULL OR id <> $5::uuid)
) OR EXISTS (
	SELECT 1 FROM bookings
	WHERE listing_id = $1
	  AND status IN ('confirmed', 'paid')
	  AND check_in < $3 AND $2 < check_out
)`

	var exclude any
	if excludeHoldID != "" {
		exclude = excludeHoldID
	}
	var taken bool
	if err := d.queryRow(ctx, query, listingID, checkIn, checkOut, now, exclude).Scan(&taken); err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("check overlap: %w", err)
	}
	return taken, nil
}
