package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

// DirectoryRepository reads listings, contacts and profiles for the
// disclosure decision. It never writes.
type DirectoryRepository struct {
	db
}

func NewDirectoryRepository(pool *pgxpool.Pool, opts ...Option) *DirectoryRepository {
	return &DirectoryRepository{db: newDB(pool, opts...)}
}

func (r *DirectoryRepository) GetListing(ctx context.Context, listingID string) (domain.Listing, error) {
	return r.getListing(ctx, listingID, false)
}

func (r *DirectoryRepository) GetContact(ctx context.Context, listingID string) (domain.ContactRecord, error) {
	const query = `
SELECT listing_id, phone, email, whatsapp, other
FROM listing_contacts
WHERE listing_id = $1`

	var c domain.ContactRecord
	err := r.queryRow(ctx, query, listingID).Scan(&c.ListingID, &c.Phone, &c.Email, &c.WhatsApp, &c.Other)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ContactRecord{}, domain.ErrContactNotFound
		}
		return domain.ContactRecord{}, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

func (r *DirectoryRepository) GetProfile(ctx context.Context, userID string) (domain.UserProfile, error) {
	const query = `
SELECT id, role, kyc_status, subscription_active, subscription_expires_at
FROM user_profiles
WHERE id = $1`

	var p domain.UserProfile
	err := r.queryRow(ctx, query, userID).
		Scan(&p.ID, &p.Role, &p.KYCStatus, &p.Subscription.Active, &p.Subscription.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserProfile{}, domain.ErrProfileNotFound
		}
		return domain.UserProfile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// HasSettledBooking reports a confirmed or paid booking by the guest on the
// listing.
func (r *DirectoryRepository) HasSettledBooking(ctx context.Context, listingID, guestID string) (bool, error) {
	const query = `
SELECT EXISTS (
	SELECT 1 FROM bookings
	WHERE listing_id = $1 AND guest_id = $2 AND status IN ('confirmed', 'paid')
)`

	var ok bool
	if err := r.queryRow(ctx, query, listingID, guestID).Scan(&ok); err != nil {
		return false, fmt.Errorf("check settled booking: %w", err)
	}
	return ok, nil
}
