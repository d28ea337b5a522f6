package http

import (
	"context"
	"io"
	"log"
	"net/http"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/payment"
)

type WebhookHandler interface {
	HandleWebhook(ctx context.Context, secret, body []byte, signature, deliveryID string) (payment.WebhookResult, error)
}

// HandlePaymentWebhook serves POST /webhooks/payments. Redeliveries of an
// applied notification answer 200 so the gateway stops retrying.
func HandlePaymentWebhook(svc WebhookHandler, secret []byte, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		res, err := svc.HandleWebhook(r.Context(), secret, body,
			r.Header.Get(payment.SignatureHeader), r.Header.Get(payment.DeliveryHeader))
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, webhookResponse{
			Received:  true,
			Applied:   res.Applied,
			Duplicate: res.Duplicate,
			Pending:   res.Pending,
			Status:    string(res.Booking.Status),
		})
	}
}

type webhookResponse struct {
	Received  bool   `json:"received"`
	Applied   bool   `json:"applied"`
	Duplicate bool   `json:"duplicate"`
	Pending   bool   `json:"pending"`
	Status    string `json:"status,omitempty"`
}
