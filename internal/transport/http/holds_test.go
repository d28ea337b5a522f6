package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/app"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/auth"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

var (
	guestCaller = auth.Context{UserID: "guest-a", Role: auth.RoleGuest}
	hostCaller  = auth.Context{UserID: "host-1", Role: auth.RoleHost}
	adminCaller = auth.Context{UserID: "admin-1", Role: auth.RoleAdmin}
)

func withCaller(req *http.Request, ac auth.Context) *http.Request {
	return req.WithContext(auth.WithContext(req.Context(), ac))
}

func TestHandleCreateHold(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 2, 28, 10, 0, 0, 0, time.UTC)
	success := app.CreateHoldResult{
		Hold:    domain.Hold{ID: "hold-123", Status: domain.HoldStatusActive, ExpiresAt: now.Add(90 * time.Minute)},
		Booking: domain.Booking{ID: "booking-1", Reference: "NST-ABC", Amount: 50000, Nights: 2, Status: domain.BookingStatusPending},
		Created: true,
	}
	valid := `{"listingId":"L1","checkIn":"2024-03-01","checkOut":"2024-03-03","guests":2}`

	tests := []struct {
		name           string
		body           string
		caller         auth.Context
		result         app.CreateHoldResult
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			body:           valid,
			caller:         guestCaller,
			result:         success,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"holdId":"hold-123"`,
		},
		{
			name:           "idempotent retry",
			body:           valid,
			caller:         guestCaller,
			result:         app.CreateHoldResult{Hold: success.Hold, Booking: success.Booking},
			expectedStatus: http.StatusOK,
			expectedSubstr: `"reference":"NST-ABC"`,
		},
		{
			name:           "anonymous",
			body:           valid,
			expectedStatus: http.StatusUnauthorized,
			expectedSubstr: `"code":"unauthenticated"`,
		},
		{
			name:           "invalid json",
			body:           `{"listingId":`,
			caller:         guestCaller,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeInvalidRequestBody,
		},
		{
			name:           "unknown field",
			body:           `{"listingId":"L1","checkIn":"2024-03-01","checkOut":"2024-03-03","price":1}`,
			caller:         guestCaller,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing listing",
			body:           `{"checkIn":"2024-03-01","checkOut":"2024-03-03"}`,
			caller:         guestCaller,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: "listingId is required",
		},
		{
			name:           "bad date",
			body:           `{"listingId":"L1","checkIn":"03/01/2024","checkOut":"2024-03-03"}`,
			caller:         guestCaller,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: `"code":"invalid_date_range"`,
		},
		{
			name:           "dates taken",
			body:           valid,
			caller:         guestCaller,
			serviceErr:     domain.ErrDatesUnavailable,
			expectedStatus: http.StatusConflict,
			expectedSubstr: `"kind":"conflict"`,
		},
		{
			name:           "listing not found",
			body:           valid,
			caller:         guestCaller,
			serviceErr:     domain.ErrListingNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "timeout",
			body:           valid,
			caller:         guestCaller,
			serviceErr:     domain.ErrTimeout,
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "internal error",
			body:           valid,
			caller:         guestCaller,
			serviceErr:     errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
			expectedSubstr: codeInternalError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubHoldService{result: tt.result, err: tt.serviceErr}
			req := httptest.NewRequest(http.MethodPost, "/bookings/hold", bytes.NewBufferString(tt.body))
			req = withCaller(req, tt.caller)
			rec := httptest.NewRecorder()

			HandleCreateHold(svc, discardLogger()).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d (%s)", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandleCreateHold_PassesCallerAndTTL(t *testing.T) {
	svc := &stubHoldService{}
	body := `{"listingId":"L1","checkIn":"2024-03-01","checkOut":"2024-03-03","nights":2,"amountN":50000,"ttlMinutes":1}`
	req := withCaller(httptest.NewRequest(http.MethodPost, "/bookings/hold", strings.NewReader(body)), guestCaller)
	rec := httptest.NewRecorder()

	HandleCreateHold(svc, discardLogger()).ServeHTTP(rec, req)

	in := svc.lastInput
	if in.GuestID != "guest-a" || in.TTL != time.Minute || in.Nights != 2 || in.Amount != 50000 {
		t.Fatalf("unexpected input: %+v", in)
	}
	if !in.CheckIn.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected check-in: %v", in.CheckIn)
	}
}

func TestHandleGetHold(t *testing.T) {
	hold := domain.Hold{ID: "h1", GuestID: "guest-a", ListingID: "L1", Status: domain.HoldStatusExpired}
	tests := []struct {
		name   string
		path   string
		caller auth.Context
		status int
	}{
		{"owner", "/holds/h1", guestCaller, http.StatusOK},
		{"admin", "/holds/h1", adminCaller, http.StatusOK},
		{"someone else", "/holds/h1", hostCaller, http.StatusNotFound},
		{"anonymous", "/holds/h1", auth.Context{}, http.StatusUnauthorized},
		{"nested path", "/holds/h1/extra", guestCaller, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withCaller(httptest.NewRequest(http.MethodGet, tt.path, nil), tt.caller)
			rec := httptest.NewRecorder()
			HandleGetHold(&stubHoldService{hold: hold}, discardLogger()).ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if tt.status == http.StatusOK && !strings.Contains(rec.Body.String(), `"status":"expired"`) {
				t.Fatalf("expected effective status in body, got %s", rec.Body.String())
			}
		})
	}
}

func TestHandleAvailability(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		avail  bool
		err    error
		status int
		substr string
	}{
		{"free", "?listingId=L1&checkIn=2024-03-01&checkOut=2024-03-03", true, nil, http.StatusOK, `"available":true`},
		{"taken", "?listingId=L1&checkIn=2024-03-01&checkOut=2024-03-03", false, nil, http.StatusOK, `"available":false`},
		{"missing listing", "?checkIn=2024-03-01&checkOut=2024-03-03", false, nil, http.StatusBadRequest, ""},
		{"bad date", "?listingId=L1&checkIn=x&checkOut=2024-03-03", false, nil, http.StatusBadRequest, ""},
		{"inverted range", "?listingId=L1&checkIn=2024-03-03&checkOut=2024-03-01", false, domain.ErrInvalidDateRange, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/availability"+tt.query, nil)
			rec := httptest.NewRecorder()
			HandleAvailability(stubAvailability{ok: tt.avail, err: tt.err}, discardLogger()).ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if tt.substr != "" && !strings.Contains(rec.Body.String(), tt.substr) {
				t.Fatalf("expected %q in %s", tt.substr, rec.Body.String())
			}
		})
	}
}

type stubHoldService struct {
	result    app.CreateHoldResult
	hold      domain.Hold
	err       error
	lastInput app.CreateHoldInput
}

func (s *stubHoldService) CreateHold(_ context.Context, in app.CreateHoldInput) (app.CreateHoldResult, error) {
	s.lastInput = in
	return s.result, s.err
}

func (s *stubHoldService) GetHold(_ context.Context, holdID string) (domain.Hold, error) {
	if s.err != nil {
		return domain.Hold{}, s.err
	}
	if holdID != s.hold.ID {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return s.hold, nil
}

type stubAvailability struct {
	ok  bool
	err error
}

func (s stubAvailability) Check(context.Context, string, time.Time, time.Time) (bool, error) {
	return s.ok, s.err
}
