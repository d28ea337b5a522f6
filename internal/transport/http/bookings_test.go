package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/app"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/auth"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/payment"
)

func TestHandleBookings_Routes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		caller     auth.Context
		wantStatus int
		wantCall   string
		wantAction domain.HostAction
	}{
		{"get", http.MethodGet, "/bookings/b1", "", guestCaller, http.StatusOK, "get:b1", ""},
		{"get by reference", http.MethodGet, "/bookings/NST-1", "", guestCaller, http.StatusOK, "get:NST-1", ""},
		{"delete cancels", http.MethodDelete, "/bookings/b1", "", hostCaller, http.StatusOK, "transition:b1", domain.HostActionCancel},
		{"patch confirmed", http.MethodPatch, "/bookings/b1/status", `{"status":"confirmed"}`, hostCaller, http.StatusOK, "transition:b1", domain.HostActionConfirm},
		{"patch refunded", http.MethodPatch, "/bookings/b1/status", `{"status":"refunded"}`, adminCaller, http.StatusOK, "transition:b1", domain.HostActionRefund},
		{"patch unknown status", http.MethodPatch, "/bookings/b1/status", `{"status":"paid"}`, hostCaller, http.StatusBadRequest, "", ""},
		{"verify confirms", http.MethodPost, "/bookings/b1/verify", "", hostCaller, http.StatusOK, "transition:b1", domain.HostActionConfirm},
		{"payment received", http.MethodPost, "/bookings/b1/payment-received", `{"provider":"paystack","reference":"NST-1"}`, guestCaller, http.StatusAccepted, "nudge:b1", ""},
		{"abandon", http.MethodPost, "/bookings/b1/abandon", "", guestCaller, http.StatusOK, "abandon:b1", ""},
		{"cancellation request", http.MethodPost, "/bookings/b1/requests", `{"kind":"cancellation","reason":"sick"}`, guestCaller, http.StatusOK, "request:b1", ""},
		{"date change needs dates", http.MethodPost, "/bookings/b1/requests", `{"kind":"dateChange"}`, guestCaller, http.StatusBadRequest, "", ""},
		{"date change", http.MethodPost, "/bookings/b1/requests", `{"kind":"dateChange","checkIn":"2024-04-01","checkOut":"2024-04-03"}`, guestCaller, http.StatusOK, "request:b1", ""},
		{"contact", http.MethodGet, "/bookings/b1/contact", "", guestCaller, http.StatusOK, "contact:b1", ""},
		{"wrong method", http.MethodGet, "/bookings/b1/verify", "", hostCaller, http.StatusMethodNotAllowed, "", ""},
		{"unknown action", http.MethodPost, "/bookings/b1/teleport", "", hostCaller, http.StatusNotFound, "", ""},
		{"anonymous", http.MethodGet, "/bookings/b1", "", auth.Context{}, http.StatusUnauthorized, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubBookings{}
			h := HandleBookings(BookingHandlers{Bookings: stub, Payments: stub, Contacts: stub, Logger: discardLogger()})
			req := withCaller(httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)), tt.caller)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d (%s)", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if stub.call != tt.wantCall {
				t.Fatalf("expected call %q, got %q", tt.wantCall, stub.call)
			}
			if tt.wantAction != "" && stub.action != tt.wantAction {
				t.Fatalf("expected action %s, got %s", tt.wantAction, stub.action)
			}
		})
	}
}

func TestHandleBookings_DateChangeInput(t *testing.T) {
	stub := &stubBookings{}
	h := HandleBookings(BookingHandlers{Bookings: stub, Payments: stub, Contacts: stub, Logger: discardLogger()})
	body := `{"kind":"dateChange","checkIn":"2024-04-01","checkOut":"2024-04-03","reason":"flight moved"}`
	req := withCaller(httptest.NewRequest(http.MethodPost, "/bookings/b1/requests", strings.NewReader(body)), guestCaller)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if stub.request.Kind != domain.GuestRequestDateChange || stub.request.Reason != "flight moved" {
		t.Fatalf("unexpected request input: %+v", stub.request)
	}
	if !stub.request.CheckOut.Equal(time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected check-out: %v", stub.request.CheckOut)
	}
}

func TestHandleBookings_ResponseShape(t *testing.T) {
	in := time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)
	stub := &stubBookings{booking: domain.Booking{
		ID: "b1", Reference: "NST-1", Status: domain.BookingStatusConfirmed,
		CheckIn: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), CheckOut: time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC),
		DateChangeRequested: true,
		Request:             &domain.BookingRequest{Type: domain.RequestTypeDateChange, State: domain.RequestStateRequested, ProposedCheckIn: &in},
	}}
	h := HandleBookings(BookingHandlers{Bookings: stub, Payments: stub, Contacts: stub, Logger: discardLogger()})
	req := withCaller(httptest.NewRequest(http.MethodGet, "/bookings/b1", nil), guestCaller)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	for _, want := range []string{`"checkIn":"2024-04-01"`, `"dateChangeRequested":true`, `"proposedCheckIn":"2024-04-05"`, `"state":"requested"`} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Fatalf("expected %s in %s", want, rec.Body.String())
		}
	}
}

type stubBookings struct {
	booking domain.Booking
	call    string
	action  domain.HostAction
	request app.GuestRequestInput
}

func (s *stubBookings) GetBooking(_ context.Context, _ auth.Context, idOrRef string) (domain.Booking, error) {
	s.call = "get:" + idOrRef
	return s.booking, nil
}

func (s *stubBookings) HostTransition(_ context.Context, _ auth.Context, id string, action domain.HostAction) (domain.Booking, error) {
	s.call = "transition:" + id
	s.action = action
	return s.booking, nil
}

func (s *stubBookings) GuestRequest(_ context.Context, _ auth.Context, id string, in app.GuestRequestInput) (domain.Booking, error) {
	s.call = "request:" + id
	s.request = in
	return s.booking, nil
}

func (s *stubBookings) Abandon(_ context.Context, _ auth.Context, id string) (app.PaymentResult, error) {
	s.call = "abandon:" + id
	return app.PaymentResult{Booking: s.booking}, nil
}

func (s *stubBookings) Nudge(_ context.Context, _ auth.Context, in payment.NudgeInput) (domain.Booking, error) {
	s.call = "nudge:" + in.BookingID
	return s.booking, nil
}

func (s *stubBookings) RevealForBooking(_ context.Context, _ auth.Context, id string) (domain.ContactRecord, error) {
	s.call = "contact:" + id
	return domain.ContactRecord{ListingID: "L1", Phone: "+234"}, nil
}
