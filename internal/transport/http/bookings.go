package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/app"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/auth"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/payment"
)

// BookingService is the minimal interface behind the /bookings/ routes.
type BookingService interface {
	GetBooking(ctx context.Context, ac auth.Context, idOrRef string) (domain.Booking, error)
	HostTransition(ctx context.Context, ac auth.Context, bookingID string, action domain.HostAction) (domain.Booking, error)
	GuestRequest(ctx context.Context, ac auth.Context, bookingID string, in app.GuestRequestInput) (domain.Booking, error)
	Abandon(ctx context.Context, ac auth.Context, bookingID string) (app.PaymentResult, error)
}

type PaymentNudger interface {
	Nudge(ctx context.Context, ac auth.Context, in payment.NudgeInput) (domain.Booking, error)
}

type BookingContactRevealer interface {
	RevealForBooking(ctx context.Context, ac auth.Context, bookingID string) (domain.ContactRecord, error)
}

// BookingHandlers groups the services behind /bookings/{id}[/action].
type BookingHandlers struct {
	Bookings BookingService
	Payments PaymentNudger
	Contacts BookingContactRevealer
	Logger   *log.Logger
}

var statusActions = map[string]domain.HostAction{
	"confirmed": domain.HostActionConfirm,
	"confirm":   domain.HostActionConfirm,
	"cancelled": domain.HostActionCancel,
	"cancel":    domain.HostActionCancel,
	"refunded":  domain.HostActionRefund,
	"refund":    domain.HostActionRefund,
}

// HandleBookings routes every /bookings/{id} sub-resource.
func HandleBookings(h BookingHandlers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := pathParts(r.URL.Path, "/bookings/")
		if len(parts) == 0 || len(parts) > 2 || parts[0] == "" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		id := parts[0]
		action := ""
		if len(parts) == 2 {
			action = parts[1]
		}
		ac := auth.FromContext(r.Context())
		if err := ac.Require(); err != nil {
			writeDomainError(w, h.Logger, err)
			return
		}

		switch {
		case action == "" && r.Method == http.MethodGet:
			h.get(w, r, ac, id)
		case action == "" && r.Method == http.MethodDelete:
			h.transition(w, r, ac, id, domain.HostActionCancel)
		case action == "status" && r.Method == http.MethodPatch:
			var req statusRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			h.transition(w, r, ac, id, statusActions[req.Status])
		case action == "verify" && r.Method == http.MethodPost:
			h.transition(w, r, ac, id, domain.HostActionConfirm)
		case action == "payment-received" && r.Method == http.MethodPost:
			h.paymentReceived(w, r, ac, id)
		case action == "abandon" && r.Method == http.MethodPost:
			res, err := h.Bookings.Abandon(r.Context(), ac, id)
			if err != nil {
				writeDomainError(w, h.Logger, err)
				return
			}
			writeJSON(w, http.StatusOK, toBookingResponse(res.Booking))
		case action == "requests" && r.Method == http.MethodPost:
			h.request(w, r, ac, id)
		case action == "contact" && r.Method == http.MethodGet:
			contact, err := h.Contacts.RevealForBooking(r.Context(), ac, id)
			if err != nil {
				writeDomainError(w, h.Logger, err)
				return
			}
			writeJSON(w, http.StatusOK, toContactResponse(contact))
		case knownBookingAction(action):
			methodNotAllowed(w)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func knownBookingAction(action string) bool {
	switch action {
	case "", "status", "verify", "payment-received", "abandon", "requests", "contact":
		return true
	default:
		return false
	}
}

func (h BookingHandlers) get(w http.ResponseWriter, r *http.Request, ac auth.Context, idOrRef string) {
	b, err := h.Bookings.GetBooking(r.Context(), ac, idOrRef)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h BookingHandlers) transition(w http.ResponseWriter, r *http.Request, ac auth.Context, id string, action domain.HostAction) {
	b, err := h.Bookings.HostTransition(r.Context(), ac, id, action)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h BookingHandlers) paymentReceived(w http.ResponseWriter, r *http.Request, ac auth.Context, id string) {
	var req paymentReceivedRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.Payments.Nudge(r.Context(), ac, payment.NudgeInput{
		BookingID: id,
		Provider:  req.Provider,
		Reference: req.Reference,
	})
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toBookingResponse(b))
}

func (h BookingHandlers) request(w http.ResponseWriter, r *http.Request, ac auth.Context, id string) {
	var req guestRequestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := app.GuestRequestInput{
		Kind:   domain.GuestRequestKind(req.Kind),
		Reason: req.Reason,
	}
	if in.Kind == domain.GuestRequestDateChange {
		var err error
		if in.CheckIn, err = domain.ParseDate(req.CheckIn); err != nil {
			writeDomainError(w, h.Logger, err)
			return
		}
		if in.CheckOut, err = domain.ParseDate(req.CheckOut); err != nil {
			writeDomainError(w, h.Logger, err)
			return
		}
	}
	b, err := h.Bookings.GuestRequest(r.Context(), ac, id, in)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed confirm cancelled cancel refunded refund"`
}

type paymentReceivedRequest struct {
	Provider  string `json:"provider"`
	Reference string `json:"reference"`
}

type guestRequestRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=cancellation dateChange"`
	CheckIn  string `json:"checkIn" validate:"required_if=Kind dateChange"`
	CheckOut string `json:"checkOut" validate:"required_if=Kind dateChange"`
	Reason   string `json:"reason" validate:"max=1000"`
}

type bookingRequestResponse struct {
	Type             string    `json:"type"`
	State            string    `json:"state"`
	ProposedCheckIn  string    `json:"proposedCheckIn,omitempty"`
	ProposedCheckOut string    `json:"proposedCheckOut,omitempty"`
	Reason           string    `json:"reason,omitempty"`
	RequestedAt      time.Time `json:"requestedAt"`
}

type bookingResponse struct {
	ID                    string                  `json:"id"`
	HoldID                string                  `json:"holdId"`
	ListingID             string                  `json:"listingId"`
	GuestID               string                  `json:"guestId"`
	HostID                string                  `json:"hostId"`
	Amount                int64                   `json:"amount"`
	Nights                int                     `json:"nights"`
	Guests                int                     `json:"guests"`
	CheckIn               string                  `json:"checkIn"`
	CheckOut              string                  `json:"checkOut"`
	Provider              string                  `json:"provider,omitempty"`
	Reference             string                  `json:"reference"`
	Status                string                  `json:"status"`
	CancellationRequested bool                    `json:"cancellationRequested"`
	DateChangeRequested   bool                    `json:"dateChangeRequested"`
	Request               *bookingRequestResponse `json:"request,omitempty"`
	CreatedAt             time.Time               `json:"createdAt"`
	UpdatedAt             time.Time               `json:"updatedAt"`
}

func toBookingResponse(b domain.Booking) bookingResponse {
	resp := bookingResponse{
		ID:                    b.ID,
		HoldID:                b.HoldID,
		ListingID:             b.ListingID,
		GuestID:               b.GuestID,
		HostID:                b.HostID,
		Amount:                b.Amount,
		Nights:                b.Nights,
		Guests:                b.Guests,
		CheckIn:               domain.FormatDate(b.CheckIn),
		CheckOut:              domain.FormatDate(b.CheckOut),
		Provider:              b.Provider,
		Reference:             b.Reference,
		Status:                string(b.Status),
		CancellationRequested: b.CancellationRequested,
		DateChangeRequested:   b.DateChangeRequested,
		CreatedAt:             b.CreatedAt,
		UpdatedAt:             b.UpdatedAt,
	}
	if b.Request != nil {
		req := &bookingRequestResponse{
			Type:        string(b.Request.Type),
			State:       string(b.Request.State),
			Reason:      b.Request.Reason,
			RequestedAt: b.Request.RequestedAt,
		}
		if b.Request.ProposedCheckIn != nil {
			req.ProposedCheckIn = domain.FormatDate(*b.Request.ProposedCheckIn)
		}
		if b.Request.ProposedCheckOut != nil {
			req.ProposedCheckOut = domain.FormatDate(*b.Request.ProposedCheckOut)
		}
		resp.Request = req
	}
	return resp
}
