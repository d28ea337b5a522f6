package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/testutil"
)

func TestAdminRepository_CreateAndListListings(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)
	repo := NewAdminRepository(pool)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)

	listing := domain.Listing{
		ID:            "00000000-0000-0000-0000-000000000010",
		OwnerID:       "agent-1",
		OwnerType:     domain.OwnerTypeAgent,
		PricePerNight: 40000,
	}
	if err := repo.CreateListing(ctx, listing); err != nil {
		t.Fatalf("create listing: %v", err)
	}
	if err := repo.CreateListing(ctx, listing); err == nil {
		t.Fatalf("expected duplicate listing to fail")
	}

	listings, err := repo.ListListings(ctx)
	if err != nil {
		t.Fatalf("list listings: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(listings))
	}
	if listings[0] != listing {
		t.Fatalf("unexpected listing: %+v", listings[0])
	}
}

func TestAdminRepository_ContactsAndProfiles(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)
	admin := NewAdminRepository(pool)
	directory := NewDirectoryRepository(pool)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	listingID := testutil.InsertListing(t, ctx, pool, "host-1", "host", 25000)

	t.Run("contact upsert replaces fields", func(t *testing.T) {
		first := domain.ContactRecord{ListingID: listingID, Phone: "+2348000000000", Email: "old@example.com"}
		if err := admin.UpsertContact(ctx, first); err != nil {
			t.Fatalf("upsert contact: %v", err)
		}
		second := domain.ContactRecord{ListingID: listingID, Phone: "+2348111111111", WhatsApp: "+2348111111111"}
		if err := admin.UpsertContact(ctx, second); err != nil {
			t.Fatalf("upsert contact: %v", err)
		}
		got, err := directory.GetContact(ctx, listingID)
		if err != nil {
			t.Fatalf("get contact: %v", err)
		}
		if got != second {
			t.Fatalf("expected %+v, got %+v", second, got)
		}
	})

	t.Run("contact for missing listing", func(t *testing.T) {
		err := admin.UpsertContact(ctx, domain.ContactRecord{ListingID: "missing", Phone: "1"})
		if !errors.Is(err, domain.ErrListingNotFound) {
			t.Fatalf("expected ErrListingNotFound, got %v", err)
		}
		if _, err := directory.GetContact(ctx, "missing"); !errors.Is(err, domain.ErrContactNotFound) {
			t.Fatalf("expected ErrContactNotFound, got %v", err)
		}
	})

	t.Run("profile upsert defaults role", func(t *testing.T) {
		expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		profile := domain.UserProfile{
			ID:           "agent-1",
			KYCStatus:    domain.KYCApproved,
			Subscription: domain.Subscription{Active: true, ExpiresAt: &expires},
		}
		if err := admin.UpsertProfile(ctx, profile); err != nil {
			t.Fatalf("upsert profile: %v", err)
		}
		got, err := directory.GetProfile(ctx, "agent-1")
		if err != nil {
			t.Fatalf("get profile: %v", err)
		}
		if got.Role != "guest" || got.KYCStatus != domain.KYCApproved {
			t.Fatalf("unexpected profile: %+v", got)
		}
		if got.Subscription.ExpiresAt == nil || !got.Subscription.ExpiresAt.Equal(expires) {
			t.Fatalf("expected expiry %v, got %v", expires, got.Subscription.ExpiresAt)
		}
		if _, err := directory.GetProfile(ctx, "nobody"); !errors.Is(err, domain.ErrProfileNotFound) {
			t.Fatalf("expected ErrProfileNotFound, got %v", err)
		}
	})
}
