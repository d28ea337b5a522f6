package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/clock"
)

type HoldStatus string

const (
	HoldStatusActive        HoldStatus = "active"
	HoldStatusCancelRequest HoldStatus = "cancel_request"
	HoldStatusConverted     HoldStatus = "converted"
	HoldStatusExpired       HoldStatus = "expired"
)

// DefaultHoldTTL applies when the client does not ask for a specific TTL.
const DefaultHoldTTL = 90 * time.Minute

// Hold reserves a listing's date range for a limited time.
type Hold struct {
	ID        string
	ListingID string
	GuestID   string
	CheckIn   time.Time
	CheckOut  time.Time
	Status    HoldStatus
	Signature string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// EffectiveStatus is the status every reader must act on: a stored active
// hold past its expiry is expired whether or not a writer has caught up.
func (h Hold) EffectiveStatus(now time.Time) HoldStatus {
	if h.Lapsed(now) {
		return HoldStatusExpired
	}
	return h.Status
}

// Blocking reports whether the hold still keeps its interval from others.
func (h Hold) Blocking(now time.Time) bool {
	return h.EffectiveStatus(now) == HoldStatusActive
}

// Lapsed reports a stored active hold whose TTL has run out.
func (h Hold) Lapsed(now time.Time) bool {
	return h.Status == HoldStatusActive && clock.Lapsed(now, h.ExpiresAt)
}

// HoldSignature identifies equivalent hold requests so retries can be
// answered with the hold already issued.
func HoldSignature(guestID, listingID string, checkIn, checkOut time.Time) string {
	sum := sha256.Sum256([]byte(guestID + "|" + listingID + "|" + FormatDate(checkIn) + "|" + FormatDate(checkOut)))
	return hex.EncodeToString(sum[:])
}
