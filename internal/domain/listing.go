package domain

import (
	"time"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/clock"
)

type OwnerType string

const (
	OwnerTypeHost  OwnerType = "host"
	OwnerTypeAgent OwnerType = "agent"
)

func (t OwnerType) Valid() bool {
	return t == OwnerTypeHost || t == OwnerTypeAgent
}

// Listing is read-only directory data used to price and attribute a hold.
type Listing struct {
	ID            string
	OwnerID       string
	OwnerType     OwnerType
	PricePerNight int64
}

// ContactRecord holds the private contact fields of a listing owner.
type ContactRecord struct {
	ListingID string
	Phone     string
	Email     string
	WhatsApp  string
	Other     string
}

type KYCStatus string

const (
	KYCApproved KYCStatus = "approved"
	KYCVerified KYCStatus = "verified"
	KYCComplete KYCStatus = "complete"
)

// Verified reports whether the status counts as a passed KYC check.
func (k KYCStatus) Verified() bool {
	switch k {
	case KYCApproved, KYCVerified, KYCComplete:
		return true
	default:
		return false
	}
}

type Subscription struct {
	Active    bool
	ExpiresAt *time.Time
}

// ActiveAt treats an active subscription without an expiry as open-ended.
func (s Subscription) ActiveAt(now time.Time) bool {
	if !s.Active {
		return false
	}
	return s.ExpiresAt == nil || !clock.Lapsed(now, *s.ExpiresAt)
}

type UserProfile struct {
	ID           string
	Role         string
	KYCStatus    KYCStatus
	Subscription Subscription
}
