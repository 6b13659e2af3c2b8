package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SharePending  = "pending"
	ShareCredited = "credited"
)

// Share is a member's referral identity for one listing.
type Share struct {
	ID        string          `json:"id" db:"id"`
	ListingID string          `json:"listingId" db:"listing_id"`
	MemberID  string          `json:"memberId" db:"member_id"`
	Code      string          `json:"shareCode" db:"share_code"`
	Earned    decimal.Decimal `json:"earned" db:"earned"`
	Status    string          `json:"status" db:"status"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

// ShareSummary is one row of a member's "my shares" dashboard.
type ShareSummary struct {
	Share
	ListingTitle   string          `json:"listingTitle"`
	ListingStatus  string          `json:"listingStatus"`
	LoveGiftAmount decimal.Decimal `json:"loveGiftAmount"`
	Link           string          `json:"link"`
	Impressions    int64           `json:"impressions"`
	RevealClicks   int64           `json:"revealClicks"`
	ContactClicks  int64           `json:"contactClicks"`
	Prospects      int64           `json:"prospects"`
}
