package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusPaid      BookingStatus = "paid"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusExpired   BookingStatus = "expired"
	BookingStatusFailed    BookingStatus = "failed"
	BookingStatusRefunded  BookingStatus = "refunded"
)

// Settled covers the states in which money has been received.
func (s BookingStatus) Settled() bool {
	return s == BookingStatusConfirmed || s == BookingStatusPaid
}

func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingStatusCancelled, BookingStatusExpired, BookingStatusFailed, BookingStatusRefunded:
		return true
	default:
		return false
	}
}

type RequestType string

const (
	RequestTypeCancel     RequestType = "cancel"
	RequestTypeDateChange RequestType = "date_change"
)

type RequestState string

const (
	RequestStatePending   RequestState = "pending"
	RequestStateRequested RequestState = "requested"
	RequestStateDeclined  RequestState = "declined"
	RequestStateResolved  RequestState = "resolved"
)

// Open reports whether the request still waits for a host or admin.
func (s RequestState) Open() bool {
	return s == RequestStatePending || s == RequestStateRequested
}

// BookingRequest is the nested guest request stored alongside the flags.
type BookingRequest struct {
	Type             RequestType  `json:"type"`
	State            RequestState `json:"state"`
	ProposedCheckIn  *time.Time   `json:"proposedCheckIn,omitempty"`
	ProposedCheckOut *time.Time   `json:"proposedCheckOut,omitempty"`
	Reason           string       `json:"reason,omitempty"`
	RequestedAt      time.Time    `json:"requestedAt"`
}

// Booking is the monetary record of a reservation. HostID is captured from
// the listing when the hold is issued and never changes afterwards.
type Booking struct {
	ID                    string
	HoldID                string
	ListingID             string
	GuestID               string
	HostID                string
	Amount                int64
	Nights                int
	Guests                int
	CheckIn               time.Time
	CheckOut              time.Time
	Provider              string
	Reference             string
	ProviderMeta          map[string]any
	Status                BookingStatus
	CancellationRequested bool
	DateChangeRequested   bool
	Request               *BookingRequest
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// HasOpenRequest reports a pending guest request of any kind.
func (b Booking) HasOpenRequest() bool {
	if b.CancellationRequested || b.DateChangeRequested {
		return true
	}
	return b.Request != nil && b.Request.State.Open()
}

// IsParty reports whether userID is the guest or the host of the booking.
func (b Booking) IsParty(userID string) bool {
	return userID != "" && (userID == b.GuestID || userID == b.HostID)
}

type PaymentOutcome string

const (
	PaymentSucceeded PaymentOutcome = "succeeded"
	PaymentFailed    PaymentOutcome = "failed"
	PaymentCancelled PaymentOutcome = "cancelled"
)

func (o PaymentOutcome) Valid() bool {
	switch o {
	case PaymentSucceeded, PaymentFailed, PaymentCancelled:
		return true
	default:
		return false
	}
}

type HostAction string

const (
	HostActionConfirm HostAction = "confirm"
	HostActionCancel  HostAction = "cancel"
	HostActionRefund  HostAction = "refund"
)

type GuestRequestKind string

const (
	GuestRequestCancellation GuestRequestKind = "cancellation"
	GuestRequestDateChange   GuestRequestKind = "dateChange"
)
