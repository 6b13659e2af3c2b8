package models

import "time"

const (
	EventImpression   = "impression"
	EventRevealClick  = "reveal_click"
	EventContactClick = "contact_click"
)

type Impression struct {
	ID          string    `json:"id" db:"id"`
	ListingID   string    `json:"listingId" db:"listing_id"`
	ShareCode   string    `json:"shareCode,omitempty" db:"share_code"`
	Kind        string    `json:"kind" db:"kind"`
	Fingerprint string    `json:"-" db:"fingerprint"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

func ValidEventKind(k string) bool {
	switch k {
	case EventImpression, EventRevealClick, EventContactClick:
		return true
	}
	return false
}
