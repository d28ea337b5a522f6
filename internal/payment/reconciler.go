package payment

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/app"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/auth"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

const defaultDedupeTTL = 24 * time.Hour

// webhookCaller reads bookings on behalf of the gateway.
var webhookCaller = auth.Context{UserID: "system:payments", Role: auth.RoleAdmin}

// Applier is the booking engine entry point for payment outcomes.
type Applier interface {
	ApplyPaymentSignal(ctx context.Context, sig app.PaymentSignal) (app.PaymentResult, error)
}

type BookingReader interface {
	GetBooking(ctx context.Context, ac auth.Context, idOrRef string) (domain.Booking, error)
}

// Deduper remembers delivery keys that were already applied. The booking
// row lock makes reapplication harmless, so dedupe only saves work.
type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string, ttl time.Duration) error
}

type Gateway interface {
	Verify(ctx context.Context, reference string) (Verdict, error)
}

type Reconciler struct {
	applier  Applier
	bookings BookingReader
	deduper  Deduper
	gateway  Gateway
	ttl      time.Duration
	logger   *log.Logger
}

type ReconcilerOption func(*Reconciler)

func NewReconciler(applier Applier, bookings BookingReader, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		applier:  applier,
		bookings: bookings,
		ttl:      defaultDedupeTTL,
		logger:   log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func WithDeduper(d Deduper) ReconcilerOption {
	return func(r *Reconciler) {
		r.deduper = d
	}
}

func WithGateway(g Gateway) ReconcilerOption {
	return func(r *Reconciler) {
		r.gateway = g
	}
}

func WithDedupeTTL(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if d > 0 {
			r.ttl = d
		}
	}
}

func WithReconcilerLogger(l *log.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// WebhookResult reports what a delivery did. Duplicate deliveries succeed
// without touching the booking.
type WebhookResult struct {
	Booking   domain.Booking
	Applied   bool
	Duplicate bool
	Pending   bool
}

// HandleWebhook verifies, parses and applies one gateway delivery.
func (r *Reconciler) HandleWebhook(ctx context.Context, secret, body []byte, signature, deliveryID string) (WebhookResult, error) {
	if err := VerifySignature(secret, body, signature); err != nil {
		return WebhookResult{}, err
	}
	n, sig, final, err := ParseNotification(body)
	if err != nil {
		return WebhookResult{}, err
	}
	if !final {
		r.logger.Printf("webhook pending reference=%s status=%s", n.Reference, n.Status)
		return WebhookResult{Pending: true}, nil
	}

	key := dedupeKey(deliveryID, n.ID, sig)
	if r.deduper != nil {
		seen, err := r.deduper.Seen(ctx, key)
		if err != nil {
			r.logger.Printf("WARN: webhook dedupe lookup failed key=%s err=%v", key, err)
		} else if seen {
			r.logger.Printf("webhook duplicate key=%s reference=%s", key, sig.Reference)
			b, err := r.bookings.GetBooking(ctx, webhookCaller, sig.Reference)
			if err != nil {
				r.logger.Printf("WARN: webhook duplicate lookup failed reference=%s err=%v", sig.Reference, err)
				return WebhookResult{Duplicate: true}, nil
			}
			return WebhookResult{Booking: b, Duplicate: true}, nil
		}
	}

	res, err := r.applier.ApplyPaymentSignal(ctx, sig)
	if err != nil {
		return WebhookResult{}, err
	}
	if r.deduper != nil {
		if err := r.deduper.Mark(ctx, key, r.ttl); err != nil {
			r.logger.Printf("WARN: webhook dedupe mark failed key=%s err=%v", key, err)
		}
	}
	r.logger.Printf("webhook applied reference=%s outcome=%s applied=%t status=%s",
		sig.Reference, sig.Outcome, res.Applied, res.Booking.Status)
	return WebhookResult{Booking: res.Booking, Applied: res.Applied, Duplicate: !res.Applied}, nil
}

func dedupeKey(deliveryID, notificationID string, sig app.PaymentSignal) string {
	if deliveryID != "" {
		return "delivery:" + deliveryID
	}
	if notificationID != "" {
		return "delivery:" + notificationID
	}
	return "signal:" + sig.Reference + ":" + string(sig.Outcome)
}

// NudgeInput is the client's claim that a payment went through. It is
// never trusted on its own.
type NudgeInput struct {
	BookingID string
	Provider  string
	Reference string
}

// Nudge asks the gateway about a booking the caller can see and applies
// the verdict. Without a gateway, or while the payment is pending, the
// booking is returned unchanged.
func (r *Reconciler) Nudge(ctx context.Context, ac auth.Context, in NudgeInput) (domain.Booking, error) {
	if err := ac.Require(); err != nil {
		return domain.Booking{}, err
	}
	b, err := r.bookings.GetBooking(ctx, ac, in.BookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if in.Reference != "" && in.Reference != b.Reference {
		return domain.Booking{}, domain.ErrInvalidReference
	}
	if r.gateway == nil || b.Status != domain.BookingStatusPending {
		r.logger.Printf("payment nudge booking_id=%s status=%s verified=false", b.ID, b.Status)
		return b, nil
	}

	verdict, err := r.gateway.Verify(ctx, b.Reference)
	if err != nil {
		if errors.Is(err, domain.ErrBookingNotFound) {
			r.logger.Printf("payment nudge booking_id=%s gateway has no transaction", b.ID)
			return b, nil
		}
		return domain.Booking{}, err
	}
	if !verdict.Final {
		return b, nil
	}

	provider := in.Provider
	if provider == "" {
		provider = b.Provider
	}
	res, err := r.applier.ApplyPaymentSignal(ctx, app.PaymentSignal{
		Reference: b.Reference,
		Outcome:   verdict.Outcome,
		Provider:  provider,
		Meta:      verdict.Meta,
	})
	if err != nil {
		return domain.Booking{}, err
	}
	r.logger.Printf("payment nudge booking_id=%s outcome=%s applied=%t status=%s",
		b.ID, verdict.Outcome, res.Applied, res.Booking.Status)
	return res.Booking, nil
}
