package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/payment"
)

func TestHandlePaymentWebhook(t *testing.T) {
	secret := []byte("whsec")
	body := `{"reference":"NST-1","status":"success"}`

	tests := []struct {
		name       string
		method     string
		result     payment.WebhookResult
		err        error
		wantStatus int
		wantSubstr string
	}{
		{"applied", http.MethodPost, payment.WebhookResult{Applied: true, Booking: domain.Booking{Status: domain.BookingStatusConfirmed}}, nil, http.StatusOK, `"applied":true`},
		{"duplicate", http.MethodPost, payment.WebhookResult{Duplicate: true}, nil, http.StatusOK, `"duplicate":true`},
		{"duplicate reports status", http.MethodPost, payment.WebhookResult{Duplicate: true, Booking: domain.Booking{Status: domain.BookingStatusConfirmed}}, nil, http.StatusOK, `"status":"confirmed"`},
		{"bad signature", http.MethodPost, payment.WebhookResult{}, domain.ErrInvalidSignature, http.StatusUnauthorized, `"code":"invalid_signature"`},
		{"unknown reference", http.MethodPost, payment.WebhookResult{}, domain.ErrBookingNotFound, http.StatusNotFound, ""},
		{"get", http.MethodGet, payment.WebhookResult{}, nil, http.StatusMethodNotAllowed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubWebhook{result: tt.result, err: tt.err}
			req := httptest.NewRequest(tt.method, "/webhooks/payments", strings.NewReader(body))
			req.Header.Set(payment.SignatureHeader, "abc")
			req.Header.Set(payment.DeliveryHeader, "evt-9")
			rec := httptest.NewRecorder()

			HandlePaymentWebhook(stub, secret, discardLogger()).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantSubstr != "" && !strings.Contains(rec.Body.String(), tt.wantSubstr) {
				t.Fatalf("expected %q in %s", tt.wantSubstr, rec.Body.String())
			}
			if tt.method == http.MethodPost {
				if stub.body != body || stub.signature != "abc" || stub.delivery != "evt-9" || string(stub.secret) != "whsec" {
					t.Fatalf("unexpected forwarded values: %+v", stub)
				}
			}
		})
	}
}

type stubWebhook struct {
	result    payment.WebhookResult
	err       error
	secret    []byte
	body      string
	signature string
	delivery  string
}

func (s *stubWebhook) HandleWebhook(_ context.Context, secret, body []byte, signature, deliveryID string) (payment.WebhookResult, error) {
	s.secret, s.body, s.signature, s.delivery = secret, string(body), signature, deliveryID
	return s.result, s.err
}
