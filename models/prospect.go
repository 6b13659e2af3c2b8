package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ActionReveal  = "reveal"
	ActionContact = "contact"
)

const (
	ProspectPending   = "pending"
	ProspectRevealed  = "revealed"
	ProspectContacted = "contacted"
	ProspectConverted = "converted"
	ProspectRejected  = "rejected"
)

// Prospect is an anonymous visitor who identified themselves on a listing.
// ShareCode and ReferrerID are written once at submission and never re-derived.
// ShareCode is the code as submitted (trimmed, at most 32 characters) and is
// display only; attribution lives in ReferrerID.
type Prospect struct {
	ID          string    `json:"id" db:"id"`
	ListingID   string    `json:"listingId" db:"listing_id"`
	ShareCode   string    `json:"shareCode,omitempty" db:"share_code"`
	ReferrerID  *string   `json:"referrerId" db:"referrer_id"`
	VisitorName string    `json:"visitorName" db:"visitor_name"`
	Phone       *string   `json:"phone,omitempty" db:"phone"`
	Email       *string   `json:"email,omitempty" db:"email"`
	Message     *string   `json:"message,omitempty" db:"message"`
	Action      string    `json:"action" db:"action"`
	Status      string    `json:"status" db:"status"`
	Fingerprint string    `json:"-" db:"fingerprint"`
	Consent     bool      `json:"consent" db:"consent"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// ValidAction reports whether a is a known prospect action.
func ValidAction(a string) bool {
	return a == ActionReveal || a == ActionContact
}

// StatusForAction maps the submitted action to the initial prospect status.
func StatusForAction(a string) string {
	switch a {
	case ActionReveal:
		return ProspectRevealed
	case ActionContact:
		return ProspectContacted
	default:
		return ProspectPending
	}
}

// ProspectView is a prospect as the listing owner sees it.
type ProspectView struct {
	Prospect
	ReferrerName *string `json:"referrerName"`
}

// Reveal is the payload a visitor is entitled to after identifying themselves.
type Reveal struct {
	ProspectID      string           `json:"prospectId"`
	DiscountedPrice *decimal.Decimal `json:"discountedPrice"`
	OgPrice         decimal.Decimal  `json:"ogPrice"`
	SellerName      string           `json:"sellerName"`
	LoveGiftAmount  decimal.Decimal  `json:"loveGiftAmount"`
	CouponCode      *string          `json:"couponCode"`
}

// SaleOutcome reports what a sale confirmation did.
type SaleOutcome struct {
	Credited     bool            `json:"credited"`
	Amount       decimal.Decimal `json:"amount"`
	ReferrerID   *string         `json:"referrerId,omitempty"`
	ReferrerName string          `json:"referrerName,omitempty"`
	Message      string          `json:"message"`
}
