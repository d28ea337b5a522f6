package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/app"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/auth"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

// AdminListingService is the minimal interface needed for admin listing endpoints.
type AdminListingService interface {
	CreateListing(ctx context.Context, ac auth.Context, in app.CreateListingInput) (domain.Listing, error)
	ListListings(ctx context.Context, ac auth.Context) ([]domain.Listing, error)
}

// AdminDirectoryService is the minimal interface needed to maintain contacts and profiles.
type AdminDirectoryService interface {
	PutContact(ctx context.Context, ac auth.Context, contact domain.ContactRecord) error
	PutProfile(ctx context.Context, ac auth.Context, profile domain.UserProfile) error
}

// HandleAdminListings returns an HTTP handler for admin listing creation/listing.
func HandleAdminListings(svc AdminListingService, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac := auth.FromContext(r.Context())
		switch r.Method {
		case http.MethodGet:
			listings, err := svc.ListListings(r.Context(), ac)
			if err != nil {
				writeDomainError(w, logger, err)
				return
			}
			resp := make([]listingResponse, 0, len(listings))
			for _, l := range listings {
				resp = append(resp, toListingResponse(l))
			}
			writeJSON(w, http.StatusOK, resp)
		case http.MethodPost:
			var req createListingRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			listing, err := svc.CreateListing(r.Context(), ac, app.CreateListingInput{
				OwnerID:       req.OwnerID,
				OwnerType:     domain.OwnerType(req.OwnerType),
				PricePerNight: req.PricePerNight,
			})
			if err != nil {
				writeDomainError(w, logger, err)
				return
			}
			writeJSON(w, http.StatusCreated, toListingResponse(listing))
		default:
			methodNotAllowed(w)
		}
	}
}

// HandleAdminListingContact serves PUT /admin/listings/{id}/contact.
func HandleAdminListingContact(svc AdminDirectoryService, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := pathParts(r.URL.Path, "/admin/listings/")
		if len(parts) != 2 || parts[0] == "" || parts[1] != "contact" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPut {
			methodNotAllowed(w)
			return
		}
		var req contactRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		contact := domain.ContactRecord{
			ListingID: parts[0],
			Phone:     req.Phone,
			Email:     req.Email,
			WhatsApp:  req.WhatsApp,
			Other:     req.Other,
		}
		if err := svc.PutContact(r.Context(), auth.FromContext(r.Context()), contact); err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toContactResponse(contact))
	}
}

// HandleAdminProfiles serves PUT /admin/profiles/{id}.
func HandleAdminProfiles(svc AdminDirectoryService, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := pathParts(r.URL.Path, "/admin/profiles/")
		if len(parts) != 1 {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPut {
			methodNotAllowed(w)
			return
		}
		var req profileRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		profile := domain.UserProfile{
			ID:        parts[0],
			Role:      req.Role,
			KYCStatus: domain.KYCStatus(req.KYCStatus),
			Subscription: domain.Subscription{
				Active:    req.SubscriptionActive,
				ExpiresAt: req.SubscriptionExpiresAt,
			},
		}
		if err := svc.PutProfile(r.Context(), auth.FromContext(r.Context()), profile); err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, profileResponse{
			ID:                    profile.ID,
			Role:                  profile.Role,
			KYCStatus:             string(profile.KYCStatus),
			KYCVerified:           profile.KYCStatus.Verified(),
			SubscriptionActive:    profile.Subscription.Active,
			SubscriptionExpiresAt: profile.Subscription.ExpiresAt,
		})
	}
}

type createListingRequest struct {
	OwnerID       string `json:"ownerId" validate:"required"`
	OwnerType     string `json:"ownerType" validate:"required,oneof=host agent"`
	PricePerNight int64  `json:"pricePerNight" validate:"gt=0"`
}

type listingResponse struct {
	ID            string `json:"id"`
	OwnerID       string `json:"ownerId"`
	OwnerType     string `json:"ownerType"`
	PricePerNight int64  `json:"pricePerNight"`
}

func toListingResponse(l domain.Listing) listingResponse {
	return listingResponse{
		ID:            l.ID,
		OwnerID:       l.OwnerID,
		OwnerType:     string(l.OwnerType),
		PricePerNight: l.PricePerNight,
	}
}

type contactRequest struct {
	Phone    string `json:"phone" validate:"omitempty,max=64"`
	Email    string `json:"email" validate:"omitempty,email"`
	WhatsApp string `json:"whatsapp" validate:"omitempty,max=64"`
	Other    string `json:"other" validate:"omitempty,max=500"`
}

type profileRequest struct {
	Role                  string     `json:"role" validate:"omitempty,oneof=guest host agent admin"`
	KYCStatus             string     `json:"kycStatus"`
	SubscriptionActive    bool       `json:"subscriptionActive"`
	SubscriptionExpiresAt *time.Time `json:"subscriptionExpiresAt"`
}

type profileResponse struct {
	ID                    string     `json:"id"`
	Role                  string     `json:"role"`
	KYCStatus             string     `json:"kycStatus"`
	KYCVerified           bool       `json:"kycVerified"`
	SubscriptionActive    bool       `json:"subscriptionActive"`
	SubscriptionExpiresAt *time.Time `json:"subscriptionExpiresAt,omitempty"`
}
