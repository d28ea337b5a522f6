package app

import (
	"context"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/auth"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

type AdminRepository interface {
	CreateListing(ctx context.Context, listing domain.Listing) error
	ListListings(ctx context.Context) ([]domain.Listing, error)
	UpsertContact(ctx context.Context, contact domain.ContactRecord) error
	UpsertProfile(ctx context.Context, profile domain.UserProfile) error
}

// AdminService maintains the listing directory the booking engine reads.
type AdminService struct {
	repo AdminRepository
}

func NewAdminService(repo AdminRepository) *AdminService {
	return &AdminService{repo: repo}
}

type CreateListingInput struct {
	OwnerID       string
	OwnerType     domain.OwnerType
	PricePerNight int64
}

func (s *AdminService) CreateListing(ctx context.Context, ac auth.Context, in CreateListingInput) (domain.Listing, error) {
	if err := requireAdmin(ac); err != nil {
		return domain.Listing{}, err
	}
	if in.OwnerID == "" {
		return domain.Listing{}, domain.ErrInvalidID
	}
	switch in.OwnerType {
	case domain.OwnerTypeHost, domain.OwnerTypeAgent:
	default:
		return domain.Listing{}, domain.ErrInvalidOwnerType
	}
	if in.PricePerNight <= 0 {
		return domain.Listing{}, domain.ErrInvalidPrice
	}

	listing := domain.Listing{
		ID:            newUUID(),
		OwnerID:       in.OwnerID,
		OwnerType:     in.OwnerType,
		PricePerNight: in.PricePerNight,
	}
	if err := s.repo.CreateListing(ctx, listing); err != nil {
		return domain.Listing{}, err
	}
	return listing, nil
}

func (s *AdminService) ListListings(ctx context.Context, ac auth.Context) ([]domain.Listing, error) {
	if err := requireAdmin(ac); err != nil {
		return nil, err
	}
	return s.repo.ListListings(ctx)
}

func (s *AdminService) PutContact(ctx context.Context, ac auth.Context, contact domain.ContactRecord) error {
	if err := requireAdmin(ac); err != nil {
		return err
	}
	if contact.ListingID == "" {
		return domain.ErrInvalidID
	}
	return s.repo.UpsertContact(ctx, contact)
}

func (s *AdminService) PutProfile(ctx context.Context, ac auth.Context, profile domain.UserProfile) error {
	if err := requireAdmin(ac); err != nil {
		return err
	}
	if profile.ID == "" {
		return domain.ErrInvalidID
	}
	return s.repo.UpsertProfile(ctx, profile)
}

func requireAdmin(ac auth.Context) error {
	if err := ac.Require(); err != nil {
		return err
	}
	if !ac.IsAdmin() {
		return domain.ErrAdminOnly
	}
	return nil
}
