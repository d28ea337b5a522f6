package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/app"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/attention"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/auth"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

func TestHandleListingContact(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		err        error
		wantStatus int
		wantSubstr string
	}{
		{"revealed", "/listings/L1/contact", nil, http.StatusOK, `"phone":"+2348000000000"`},
		{"booking required", "/listings/L1/contact", domain.ErrBookingRequired, http.StatusForbidden, `"code":"booking_required"`},
		{"owner not subscribed", "/listings/L2/contact", domain.ErrOwnerNotSubscribed, http.StatusForbidden, `"code":"owner_not_subscribed"`},
		{"unknown owner type", "/listings/L3/contact", domain.ErrUnknownOwnerType, http.StatusUnprocessableEntity, ""},
		{"bad path", "/listings/L1", nil, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := stubContacts{err: tt.err}
			req := withCaller(httptest.NewRequest(http.MethodGet, tt.path, nil), guestCaller)
			rec := httptest.NewRecorder()
			HandleListingContact(svc, discardLogger()).ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantSubstr != "" && !strings.Contains(rec.Body.String(), tt.wantSubstr) {
				t.Fatalf("expected %q in %s", tt.wantSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandleAttention(t *testing.T) {
	t.Run("snapshot", func(t *testing.T) {
		svc := stubAttention{snap: app.AttentionSnapshot{
			Count:      2,
			BookingIDs: []string{"b1", "b2"},
			Streams: map[string][]attention.Stream{
				"b1": {attention.StreamFlag, attention.StreamRequest},
				"b2": {attention.StreamStatus},
			},
		}}
		req := withCaller(httptest.NewRequest(http.MethodGet, "/hosts/me/attention", nil), hostCaller)
		rec := httptest.NewRecorder()
		HandleAttention(svc, discardLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":2`) {
			t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"b1":["flag","request"]`) {
			t.Fatalf("expected per-booking streams, got %s", rec.Body.String())
		}
	})

	t.Run("empty list is not null", func(t *testing.T) {
		req := withCaller(httptest.NewRequest(http.MethodGet, "/hosts/me/attention", nil), hostCaller)
		rec := httptest.NewRecorder()
		HandleAttention(stubAttention{}, discardLogger()).ServeHTTP(rec, req)
		if !strings.Contains(rec.Body.String(), `"bookingIds":[]`) {
			t.Fatalf("expected empty array, got %s", rec.Body.String())
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/hosts/me/attention", nil)
		rec := httptest.NewRecorder()
		HandleAttention(stubAttention{err: domain.ErrUnauthenticated}, discardLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

type stubContacts struct {
	err error
}

func (s stubContacts) Reveal(_ context.Context, _ auth.Context, listingID string) (domain.ContactRecord, error) {
	if s.err != nil {
		return domain.ContactRecord{}, s.err
	}
	return domain.ContactRecord{ListingID: listingID, Phone: "+2348000000000"}, nil
}

type stubAttention struct {
	snap app.AttentionSnapshot
	err  error
}

func (s stubAttention) Snapshot(context.Context, auth.Context) (app.AttentionSnapshot, error) {
	return s.snap, s.err
}
