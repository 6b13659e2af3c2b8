package marketplace

import (
	"context"

	"github.com/kyanzach/HGF-Connect-V2-sub001/models"
)

// ListingPage is a listing detail read. Listing holds a models.OwnerListing
// for the owner and a models.PublicListing for everyone else.
type ListingPage struct {
	Listing any    `json:"listing"`
	IsOwner bool   `json:"isOwner"`
	Ref     string `json:"ref,omitempty"`
}

// ListingView serves the reveal-gated detail view. Only the owner receives the
// discounted price; other viewers get hasDiscount and the original price, and
// their visit is logged as an impression against the effective ref.
func (s *Service) ListingView(ctx context.Context, listingID, viewerID, ref, clientIP string) (ListingPage, error) {
	l, err := s.visibleListing(ctx, listingID, viewerID)
	if err != nil {
		return ListingPage{}, err
	}
	seller, err := s.displayName(ctx, l.OwnerID)
	if err != nil {
		return ListingPage{}, err
	}

	if viewerID != "" && viewerID == l.OwnerID {
		return ListingPage{Listing: l.OwnerView(seller), IsOwner: true}, nil
	}

	code, err := s.EffectiveRef(ctx, l, ref, viewerID)
	if err != nil {
		return ListingPage{}, err
	}
	s.RecordImpression(ctx, l.ID, code, models.EventImpression, clientIP)

	return ListingPage{Listing: l.PublicView(seller), Ref: code}, nil
}
