package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

type HoldRepository struct {
	db
}

func NewHoldRepository(pool *pgxpool.Pool, opts ...Option) *HoldRepository {
	return &HoldRepository{db: newDB(pool, opts...)}
}

func (r *HoldRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.withTx(ctx, fn)
}

func (r *HoldRepository) GetListing(ctx context.Context, listingID string) (domain.Listing, error) {
	return r.getListing(ctx, listingID, false)
}

// GetListingForUpdate takes the row lock that serializes hold creation for
// the listing.
func (r *HoldRepository) GetListingForUpdate(ctx context.Context, listingID string) (domain.Listing, error) {
	return r.getListing(ctx, listingID, true)
}

func (r *HoldRepository) FindActiveHoldBySignature(ctx context.Context, signature string, now time.Time) (*domain.Hold, error) {
	const query = `
SELECT ` + holdColumns + `
FROM holds
WHERE signature = $1 AND status = 'active' AND expires_at > $2
ORDER BY created_at DESC
LIMIT 1`

	h, err := scanHold(r.queryRow(ctx, query, signature, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find hold by signature: %w", err)
	}
	return &h, nil
}

func (r *HoldRepository) HasOverlap(ctx context.Context, listingID string, checkIn, checkOut, now time.Time, excludeHoldID string) (bool, error) {
	return r.hasOverlap(ctx, listingID, checkIn, checkOut, now, excludeHoldID)
}

func (r *HoldRepository) CreateHold(ctx context.Context, hold domain.Hold) error {
	const stmt = `
INSERT INTO holds (id, listing_id, guest_id, check_in, check_out, status, signature, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.exec(ctx, stmt,
		hold.ID,
		hold.ListingID,
		hold.GuestID,
		hold.CheckIn,
		hold.CheckOut,
		hold.Status,
		hold.Signature,
		hold.CreatedAt,
		hold.ExpiresAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrListingNotFound
		}
		return fmt.Errorf("create hold: %w", err)
	}
	return nil
}

func (r *HoldRepository) CreateBooking(ctx context.Context, booking domain.Booking) error {
	const stmt = `
INSERT INTO bookings (
	id, hold_id, listing_id, guest_id, host_id, amount, nights, guests, check_in, check_out,
	provider, reference, provider_meta, status, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	meta, err := jsonParam(booking.ProviderMeta)
	if err != nil {
		return fmt.Errorf("encode provider_meta: %w", err)
	}
	_, err = r.exec(ctx, stmt,
		booking.ID,
		booking.HoldID,
		booking.ListingID,
		booking.GuestID,
		booking.HostID,
		booking.Amount,
		booking.Nights,
		booking.Guests,
		booking.CheckIn,
		booking.CheckOut,
		booking.Provider,
		booking.Reference,
		meta,
		booking.Status,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("create booking: duplicate reference or hold: %w", err)
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func (r *HoldRepository) GetHold(ctx context.Context, holdID string) (domain.Hold, error) {
	return r.getHold(ctx, holdID, false)
}

func (r *HoldRepository) GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error) {
	return r.getHold(ctx, holdID, true)
}

func (r *HoldRepository) getHold(ctx context.Context, holdID string, forUpdate bool) (domain.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	h, err := scanHold(r.queryRow(ctx, query, holdID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Hold{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Hold{}, domain.ErrHoldNotFound
		}
		return domain.Hold{}, fmt.Errorf("get hold: %w", err)
	}
	return h, nil
}

func (r *HoldRepository) GetBookingByHoldID(ctx context.Context, holdID string) (domain.Booking, error) {
	return r.getBooking(ctx, "hold_id", holdID, false)
}

func (r *HoldRepository) UpdateHoldStatus(ctx context.Context, holdID string, status domain.HoldStatus) error {
	const stmt = `UPDATE holds SET status = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, holdID, status)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update hold status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHoldNotFound
	}
	return nil
}

func (r *HoldRepository) ListLapsedHolds(ctx context.Context, now time.Time, limit int) ([]domain.Hold, error) {
	const query = `
SELECT ` + holdColumns + `
FROM holds
WHERE status = 'active' AND expires_at <= $1
ORDER BY expires_at ASC
LIMIT $2`

	rows, err := r.query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list lapsed holds: %w", err)
	}
	defer rows.Close()

	var holds []domain.Hold
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hold: %w", err)
		}
		holds = append(holds, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holds: %w", err)
	}
	return holds, nil
}
