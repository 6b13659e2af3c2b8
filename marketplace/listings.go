package marketplace

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kyanzach/HGF-Connect-V2-sub001/models"
)

const maxTitleLen = 200

type ListingInput struct {
	Title           string
	Description     string
	OriginalPrice   decimal.Decimal
	DiscountedPrice *decimal.Decimal
	LoveGiftAmount  decimal.Decimal
}

func (in ListingInput) validate() error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return validationf("title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return validationf("title must be at most %d characters", maxTitleLen)
	}
	if !in.OriginalPrice.IsPositive() {
		return validationf("original price must be greater than zero")
	}
	if d := in.DiscountedPrice; d != nil {
		if d.IsNegative() {
			return validationf("discounted price must not be negative")
		}
		if !d.LessThan(in.OriginalPrice) {
			return validationf("discounted price must be lower than the original price")
		}
	}
	if in.LoveGiftAmount.IsNegative() {
		return validationf("love gift amount must not be negative")
	}
	return nil
}

// CreateListing publishes an active listing owned by ownerID.
func (s *Service) CreateListing(ctx context.Context, ownerID string, in ListingInput) (models.OwnerListing, error) {
	if err := in.validate(); err != nil {
		return models.OwnerListing{}, err
	}
	seller, err := s.displayName(ctx, ownerID)
	if err != nil {
		return models.OwnerListing{}, err
	}

	var discount decimal.NullDecimal
	if in.DiscountedPrice != nil {
		discount = decimal.NewNullDecimal(*in.DiscountedPrice)
	}
	l, err := s.store.CreateListing(ctx, models.Listing{
		OwnerID:         ownerID,
		Title:           strings.TrimSpace(in.Title),
		Description:     strings.TrimSpace(in.Description),
		OriginalPrice:   in.OriginalPrice,
		DiscountedPrice: discount,
		LoveGiftAmount:  in.LoveGiftAmount,
		Status:          models.ListingActive,
	})
	if err != nil {
		return models.OwnerListing{}, fmt.Errorf("create listing: %w", err)
	}

	s.log.Info("listing created", zap.String("listing_id", l.ID), zap.String("owner_id", ownerID))
	return l.OwnerView(seller), nil
}

// RemoveListing soft-removes an owned listing. Shares and prospects stay.
func (s *Service) RemoveListing(ctx context.Context, ownerID, listingID string) error {
	l, err := getListing(ctx, s.store, listingID, false)
	if err != nil {
		return err
	}
	if l.OwnerID != ownerID {
		return fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
	}
	if l.Status == models.ListingRemoved {
		return nil
	}
	if err := s.store.SetListingStatus(ctx, l.ID, models.ListingRemoved, nil); err != nil {
		return fmt.Errorf("remove listing: %w", err)
	}
	s.log.Info("listing removed", zap.String("listing_id", l.ID))
	return nil
}
