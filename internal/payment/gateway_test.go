package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/auth"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

func TestGatewayClient_Verify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gw-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/transactions/verify/NST-OK":
			_, _ = w.Write([]byte(`{"status":true,"data":{"status":"success","reference":"NST-OK","channel":"card"}}`))
		case "/transactions/verify/NST-WAIT":
			_, _ = w.Write([]byte(`{"status":true,"data":{"status":"ongoing"}}`))
		case "/transactions/verify/NST-DOWN":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewGatewayClient(srv.URL+"/", auth.StaticToken("gw-token"))
	ctx := context.Background()

	v, err := client.Verify(ctx, "NST-OK")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !v.Final || v.Outcome != domain.PaymentSucceeded || v.Meta["channel"] != "card" {
		t.Fatalf("unexpected verdict: %+v", v)
	}

	v, err = client.Verify(ctx, "NST-WAIT")
	if err != nil || v.Final {
		t.Fatalf("expected pending verdict, got %+v %v", v, err)
	}

	if _, err := client.Verify(ctx, "NST-DOWN"); !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
	if _, err := client.Verify(ctx, "NST-NONE"); !errors.Is(err, domain.ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

type rotatingSource struct {
	refreshes atomic.Int32
}

func (s *rotatingSource) AcquireAuthToken(_ context.Context, forceRefresh bool) (string, error) {
	if forceRefresh {
		s.refreshes.Add(1)
		return "fresh", nil
	}
	return "stale", nil
}

func TestGatewayClient_RefreshesTokenOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"status":true,"data":{"status":"failed"}}`))
	}))
	defer srv.Close()

	source := &rotatingSource{}
	v, err := NewGatewayClient(srv.URL, source).Verify(context.Background(), "NST-1")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if v.Outcome != domain.PaymentFailed {
		t.Fatalf("expected failed outcome, got %+v", v)
	}
	if got := source.refreshes.Load(); got != 1 {
		t.Fatalf("expected one refresh, got %d", got)
	}
}
