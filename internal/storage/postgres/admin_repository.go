package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

// AdminRepository writes the listing directory.
type AdminRepository struct {
	db
}

func NewAdminRepository(pool *pgxpool.Pool, opts ...Option) *AdminRepository {
	return &AdminRepository{db: newDB(pool, opts...)}
}

func (r *AdminRepository) CreateListing(ctx context.Context, listing domain.Listing) error {
	const stmt = `
INSERT INTO listings (id, owner_id, owner_type, price_per_night)
VALUES ($1, $2, $3, $4)`
	_, err := r.exec(ctx, stmt, listing.ID, listing.OwnerID, listing.OwnerType, listing.PricePerNight)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create listing %s: already exists: %w", listing.ID, err)
		}
		return fmt.Errorf("create listing: %w", err)
	}
	return nil
}

func (r *AdminRepository) ListListings(ctx context.Context) ([]domain.Listing, error) {
	const query = `
SELECT ` + listingColumns + `
FROM listings
ORDER BY created_at ASC, id ASC`
	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	listings := []domain.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate listings: %w", rows.Err())
	}
	return listings, nil
}

func (r *AdminRepository) UpsertContact(ctx context.Context, contact domain.ContactRecord) error {
	const stmt = `
INSERT INTO listing_contacts (listing_id, phone, email, whatsapp, other, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (listing_id) DO UPDATE SET
	phone = EXCLUDED.phone,
	email = EXCLUDED.email,
	whatsapp = EXCLUDED.whatsapp,
	other = EXCLUDED.other,
	updated_at = NOW()`
	_, err := r.exec(ctx, stmt, contact.ListingID, contact.Phone, contact.Email, contact.WhatsApp, contact.Other)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrListingNotFound
		}
		return fmt.Errorf("upsert contact: %w", err)
	}
	return nil
}

func (r *AdminRepository) UpsertProfile(ctx context.Context, profile domain.UserProfile) error {
	const stmt = `
INSERT INTO user_profiles (id, role, kyc_status, subscription_active, subscription_expires_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (id) DO UPDATE SET
	role = EXCLUDED.role,
	kyc_status = EXCLUDED.kyc_status,
	subscription_active = EXCLUDED.subscription_active,
	subscription_expires_at = EXCLUDED.subscription_expires_at,
	updated_at = NOW()`
	role := profile.Role
	if role == "" {
		role = "guest"
	}
	_, err := r.exec(ctx, stmt,
		profile.ID,
		role,
		profile.KYCStatus,
		profile.Subscription.Active,
		profile.Subscription.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
