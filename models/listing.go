package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices go over the wire as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	ListingActive  = "active"
	ListingSold    = "sold"
	ListingRemoved = "removed"
)

// Listing is a marketplace item offered by a member.
type Listing struct {
	ID              string              `db:"id"`
	OwnerID         string              `db:"owner_id"`
	Title           string              `db:"title"`
	Description     string              `db:"description"`
	OriginalPrice   decimal.Decimal     `db:"original_price"`
	DiscountedPrice decimal.NullDecimal `db:"discounted_price"` // invalid = no discount configured
	LoveGiftAmount  decimal.Decimal     `db:"love_gift_amount"`
	Status          string              `db:"status"`
	SoldAt          *time.Time          `db:"sold_at"`
	CreatedAt       time.Time           `db:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at"`
}

// HasDiscount reports whether a discounted price is configured.
func (l Listing) HasDiscount() bool {
	return l.DiscountedPrice.Valid
}

// PublicListing is what anonymous visitors receive. It deliberately has no
// discounted price field: the only way to learn it is a prospect submission.
type PublicListing struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"ownerId"`
	SellerName     string          `json:"sellerName"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	OgPrice        decimal.Decimal `json:"ogPrice"`
	HasDiscount    bool            `json:"hasDiscount"`
	LoveGiftAmount decimal.Decimal `json:"loveGiftAmount"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// OwnerListing is the seller's own view with every price field.
type OwnerListing struct {
	ID              string           `json:"id"`
	OwnerID         string           `json:"ownerId"`
	SellerName      string           `json:"sellerName"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	OgPrice         decimal.Decimal  `json:"ogPrice"`
	DiscountedPrice *decimal.Decimal `json:"discountedPrice"`
	LoveGiftAmount  decimal.Decimal  `json:"loveGiftAmount"`
	Status          string           `json:"status"`
	SoldAt          *time.Time       `json:"soldAt,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

func (l Listing) PublicView(sellerName string) PublicListing {
	return PublicListing{
		ID:             l.ID,
		OwnerID:        l.OwnerID,
		SellerName:     sellerName,
		Title:          l.Title,
		Description:    l.Description,
		OgPrice:        l.OriginalPrice,
		HasDiscount:    l.HasDiscount(),
		LoveGiftAmount: l.LoveGiftAmount,
		Status:         l.Status,
		CreatedAt:      l.CreatedAt,
	}
}

func (l Listing) OwnerView(sellerName string) OwnerListing {
	return OwnerListing{
		ID:              l.ID,
		OwnerID:         l.OwnerID,
		SellerName:      sellerName,
		Title:           l.Title,
		Description:     l.Description,
		OgPrice:         l.OriginalPrice,
		DiscountedPrice: DiscountPtr(l.DiscountedPrice),
		LoveGiftAmount:  l.LoveGiftAmount,
		Status:          l.Status,
		SoldAt:          l.SoldAt,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

// DiscountPtr turns a nullable discount into a JSON-friendly pointer.
func DiscountPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
