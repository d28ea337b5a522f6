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

// HoldCreator is the minimal interface needed to create a hold.
type HoldCreator interface {
	CreateHold(ctx context.Context, in app.CreateHoldInput) (app.CreateHoldResult, error)
}

type HoldReader interface {
	GetHold(ctx context.Context, holdID string) (domain.Hold, error)
}

type AvailabilityChecker interface {
	Check(ctx context.Context, listingID string, checkIn, checkOut time.Time) (bool, error)
}

// HandleCreateHold serves POST /bookings/hold for the signed-in guest.
func HandleCreateHold(svc HoldCreator, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		ac := auth.FromContext(r.Context())
		if err := ac.Require(); err != nil {
			writeDomainError(w, logger, err)
			return
		}

		var req createHoldRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		checkIn, err := domain.ParseDate(req.CheckIn)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		checkOut, err := domain.ParseDate(req.CheckOut)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}

		res, err := svc.CreateHold(r.Context(), app.CreateHoldInput{
			ListingID: req.ListingID,
			GuestID:   ac.UserID,
			CheckIn:   checkIn,
			CheckOut:  checkOut,
			TTL:       time.Duration(req.TTLMinutes) * time.Minute,
			Guests:    req.Guests,
			Nights:    req.Nights,
			Amount:    req.Amount,
		})
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}

		status := http.StatusCreated
		if !res.Created {
			status = http.StatusOK
		}
		writeJSON(w, status, createHoldResponse{
			HoldID:    res.Hold.ID,
			BookingID: res.Booking.ID,
			Reference: res.Booking.Reference,
			ExpiresAt: res.Hold.ExpiresAt,
			Amount:    res.Booking.Amount,
			Nights:    res.Booking.Nights,
			Status:    string(res.Booking.Status),
		})
	}
}

// HandleGetHold serves GET /holds/{id}. Only the guest who placed the hold
// or an admin can see it.
func HandleGetHold(svc HoldReader, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		parts := pathParts(r.URL.Path, "/holds/")
		if len(parts) != 1 {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		ac := auth.FromContext(r.Context())
		if err := ac.Require(); err != nil {
			writeDomainError(w, logger, err)
			return
		}

		hold, err := svc.GetHold(r.Context(), parts[0])
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		if hold.GuestID != ac.UserID && !ac.IsAdmin() {
			writeDomainError(w, logger, domain.ErrHoldNotFound)
			return
		}
		writeJSON(w, http.StatusOK, holdResponse{
			ID:        hold.ID,
			ListingID: hold.ListingID,
			CheckIn:   domain.FormatDate(hold.CheckIn),
			CheckOut:  domain.FormatDate(hold.CheckOut),
			Status:    string(hold.Status),
			ExpiresAt: hold.ExpiresAt,
		})
	}
}

// HandleAvailability serves GET /availability. It needs no caller.
func HandleAvailability(svc AvailabilityChecker, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		q := r.URL.Query()
		listingID := q.Get("listingId")
		if listingID == "" {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "listingId is required")
			return
		}
		checkIn, err := domain.ParseDate(q.Get("checkIn"))
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		checkOut, err := domain.ParseDate(q.Get("checkOut"))
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}

		ok, err := svc.Check(r.Context(), listingID, checkIn, checkOut)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, availabilityResponse{Available: ok})
	}
}

type createHoldRequest struct {
	ListingID  string `json:"listingId" validate:"required"`
	CheckIn    string `json:"checkIn" validate:"required"`
	CheckOut   string `json:"checkOut" validate:"required"`
	Guests     int    `json:"guests" validate:"gte=0"`
	Nights     int    `json:"nights" validate:"gte=0"`
	Amount     int64  `json:"amountN" validate:"gte=0"`
	TTLMinutes int    `json:"ttlMinutes" validate:"gte=0"`
}

type createHoldResponse struct {
	HoldID    string    `json:"holdId"`
	BookingID string    `json:"bookingId"`
	Reference string    `json:"reference"`
	ExpiresAt time.Time `json:"expiresAt"`
	Amount    int64     `json:"amount"`
	Nights    int       `json:"nights"`
	Status    string    `json:"status"`
}

type holdResponse struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listingId"`
	CheckIn   string    `json:"checkIn"`
	CheckOut  string    `json:"checkOut"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type availabilityResponse struct {
	Available bool `json:"available"`
}
