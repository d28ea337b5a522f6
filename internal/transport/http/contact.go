package http

import (
	"context"
	"log"
	"net/http"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/auth"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

type ContactRevealer interface {
	Reveal(ctx context.Context, ac auth.Context, listingID string) (domain.ContactRecord, error)
}

// HandleListingContact serves GET /listings/{id}/contact. A denial is
// returned with its stable code so the client can say why.
func HandleListingContact(svc ContactRevealer, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := pathParts(r.URL.Path, "/listings/")
		if len(parts) != 2 || parts[0] == "" || parts[1] != "contact" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		contact, err := svc.Reveal(r.Context(), auth.FromContext(r.Context()), parts[0])
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toContactResponse(contact))
	}
}

type contactResponse struct {
	ListingID string `json:"listingId"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	WhatsApp  string `json:"whatsapp,omitempty"`
	Other     string `json:"other,omitempty"`
}

func toContactResponse(c domain.ContactRecord) contactResponse {
	return contactResponse{
		ListingID: c.ListingID,
		Phone:     c.Phone,
		Email:     c.Email,
		WhatsApp:  c.WhatsApp,
		Other:     c.Other,
	}
}
