package domain

import "errors"

// Kind groups errors by how callers should react to them.
type Kind string

const (
	KindInvalidArgument    Kind = "invalid_argument"
	KindUnauthenticated    Kind = "unauthenticated"
	KindPermissionDenied   Kind = "permission_denied"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindExpired            Kind = "expired"
	KindFailedPrecondition Kind = "failed_precondition"
	KindUnavailable        Kind = "unavailable"
)

// Error is a domain failure with a stable code that clients can render.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	ErrInvalidID          = newError(KindInvalidArgument, "invalid_id", "invalid id")
	ErrInvalidDateRange   = newError(KindInvalidArgument, "invalid_date_range", "check-in must be before check-out")
	ErrDateInPast         = newError(KindInvalidArgument, "date_in_past", "check-in must not be in the past")
	ErrInvalidTTL         = newError(KindInvalidArgument, "invalid_ttl", "hold ttl out of range")
	ErrInvalidGuests      = newError(KindInvalidArgument, "invalid_guests", "guests must be at least 1")
	ErrNightsMismatch     = newError(KindInvalidArgument, "nights_mismatch", "nights do not match the date range")
	ErrAmountMismatch     = newError(KindInvalidArgument, "amount_mismatch", "amount does not match the listing price")
	ErrInvalidReference   = newError(KindInvalidArgument, "invalid_reference", "payment reference required")
	ErrInvalidOutcome     = newError(KindInvalidArgument, "invalid_outcome", "unknown payment outcome")
	ErrInvalidAction      = newError(KindInvalidArgument, "invalid_action", "unknown host action")
	ErrInvalidRequestKind = newError(KindInvalidArgument, "invalid_request_kind", "unknown request kind")
	ErrInvalidOwnerType   = newError(KindInvalidArgument, "invalid_owner_type", "owner type must be host or agent")
	ErrInvalidPrice       = newError(KindInvalidArgument, "invalid_price", "price per night must be positive")
	ErrInvalidPayload     = newError(KindInvalidArgument, "invalid_payload", "malformed notification body")

	ErrUnauthenticated  = newError(KindUnauthenticated, "unauthenticated", "authentication required")
	ErrInvalidSignature = newError(KindUnauthenticated, "invalid_signature", "invalid webhook signature")

	ErrListingNotFound = newError(KindNotFound, "listing_not_found", "listing not found")
	ErrHoldNotFound    = newError(KindNotFound, "hold_not_found", "hold not found")
	ErrBookingNotFound = newError(KindNotFound, "booking_not_found", "booking not found")
	ErrContactNotFound = newError(KindNotFound, "contact_not_found", "contact details not found")
	ErrProfileNotFound = newError(KindNotFound, "profile_not_found", "user profile not found")

	ErrDatesUnavailable = newError(KindConflict, "dates_unavailable", "dates already held or booked")

	ErrHoldExpired = newError(KindExpired, "hold_expired", "hold expired")

	ErrBookingRequired       = newError(KindPermissionDenied, "booking_required", "booking required")
	ErrCallerNotSubscribed   = newError(KindPermissionDenied, "caller_not_subscribed", "an active subscription is required to view agent contacts")
	ErrOwnerNotSubscribed    = newError(KindPermissionDenied, "owner_not_subscribed", "the listing agent's subscription is not active")
	ErrSubscriptionsInactive = newError(KindPermissionDenied, "subscriptions_inactive", "neither you nor the listing agent has an active subscription")
	ErrNotBookingHost        = newError(KindPermissionDenied, "not_booking_host", "only the host or an admin can change this booking")
	ErrAdminOnly             = newError(KindPermissionDenied, "admin_only", "admin role required")
	ErrNotBookingGuest       = newError(KindPermissionDenied, "not_booking_guest", "only the guest can make this request")

	ErrUnknownOwnerType  = newError(KindFailedPrecondition, "unknown_owner_type", "listing owner type not supported")
	ErrInvalidTransition = newError(KindFailedPrecondition, "invalid_transition", "booking cannot make this transition")
	ErrHoldNotLapsed     = newError(KindFailedPrecondition, "hold_not_lapsed", "hold is still within its ttl")
	ErrRequestNotAllowed = newError(KindFailedPrecondition, "request_not_allowed", "requests are only accepted for upcoming confirmed bookings")

	ErrTimeout            = newError(KindUnavailable, "timeout", "operation timed out")
	ErrGatewayUnavailable = newError(KindUnavailable, "gateway_unavailable", "payment gateway unavailable")
)

// KindOf returns the kind of a domain error, or "" for anything else.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
