package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kyanzach/HGF-Connect-V2-sub001/models"
	"github.com/kyanzach/HGF-Connect-V2-sub001/monitoring"
	"github.com/kyanzach/HGF-Connect-V2-sub001/notify"
	"github.com/kyanzach/HGF-Connect-V2-sub001/storage"
)

// ownedProspect loads and locks a listing owned by ownerID and one of its
// prospects. Foreign or missing rows are both ErrNotFound.
func ownedProspect(ctx context.Context, q storage.Queries, ownerID, listingID, prospectID string) (models.Listing, models.Prospect, error) {
	l, err := getListing(ctx, q, listingID, true)
	if err != nil {
		return models.Listing{}, models.Prospect{}, err
	}
	if l.OwnerID != ownerID {
		return models.Listing{}, models.Prospect{}, fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
	}

	p, err := q.GetProspectForUpdate(ctx, prospectID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && p.ListingID != l.ID) {
		return models.Listing{}, models.Prospect{}, fmt.Errorf("prospect %s: %w", prospectID, ErrNotFound)
	}
	if err != nil {
		return models.Listing{}, models.Prospect{}, fmt.Errorf("load prospect %s: %w", prospectID, err)
	}
	return l, p, nil
}

// ConfirmSale closes a listing against one prospect and credits the Love Gift
// to the referrer captured when the prospect was submitted. The three writes
// commit together; a converted prospect can never be confirmed again.
func (s *Service) ConfirmSale(ctx context.Context, ownerID, listingID, prospectID string) (models.SaleOutcome, error) {
	var (
		out   models.SaleOutcome
		title string
	)
	err := s.store.WithTx(ctx, func(q storage.Queries) error {
		l, p, err := ownedProspect(ctx, q, ownerID, listingID, prospectID)
		if err != nil {
			return err
		}
		switch p.Status {
		case models.ProspectConverted:
			return ErrAlreadyConverted
		case models.ProspectRejected:
			return ErrProspectRejected
		}
		if l.Status != models.ListingActive {
			return fmt.Errorf("listing %s is %s: %w", l.ID, l.Status, ErrListingNotActive)
		}

		if err := q.SetProspectStatus(ctx, p.ID, models.ProspectConverted); err != nil {
			return fmt.Errorf("convert prospect: %w", err)
		}
		soldAt := s.now()
		if err := q.SetListingStatus(ctx, l.ID, models.ListingSold, &soldAt); err != nil {
			return fmt.Errorf("mark listing sold: %w", err)
		}

		title = l.Title
		out = models.SaleOutcome{Amount: decimal.Zero}
		if p.ReferrerID == nil {
			out.Message = "Sale confirmed. No referral link was associated with this sale."
			return nil
		}
		if !l.LoveGiftAmount.IsPositive() {
			out.Message = "Sale confirmed. This listing has no Love Gift configured."
			return nil
		}

		sh, err := q.GetShareByMember(ctx, l.ID, *p.ReferrerID)
		if errors.Is(err, storage.ErrNotFound) {
			out.Message = "Sale confirmed. No referral link was associated with this sale."
			return nil
		}
		if err != nil {
			return fmt.Errorf("load referrer share: %w", err)
		}
		if _, err := q.CreditShare(ctx, sh.ID, l.LoveGiftAmount); err != nil {
			return fmt.Errorf("credit share: %w", err)
		}

		referrer := sh.MemberID
		out.Credited = true
		out.Amount = l.LoveGiftAmount
		out.ReferrerID = &referrer
		return nil
	})
	if err != nil {
		return models.SaleOutcome{}, err
	}

	monitoring.SalesConfirmed.WithLabelValues(strconv.FormatBool(out.Credited)).Inc()
	if !out.Credited {
		s.log.Info("sale confirmed", zap.String("listing_id", listingID), zap.String("prospect_id", prospectID))
		return out, nil
	}

	amount, _ := out.Amount.Float64()
	monitoring.LoveGiftCredited.Add(amount)
	s.log.Info("sale confirmed, love gift credited",
		zap.String("listing_id", listingID),
		zap.String("prospect_id", prospectID),
		zap.String("referrer_id", *out.ReferrerID),
		zap.String("amount", out.Amount.StringFixed(2)),
	)

	// The sale is committed; a name lookup failure only degrades the message.
	name, err := s.displayName(ctx, *out.ReferrerID)
	if err != nil {
		s.log.Warn("referrer name lookup failed", zap.Error(err))
	}
	out.ReferrerName = name
	if name == "" {
		name = "the referrer"
	}
	out.Message = fmt.Sprintf("Sale confirmed. Love Gift of %s credited to %s.", out.Amount.StringFixed(2), name)

	s.notifyLater(notify.Message{
		RecipientID: *out.ReferrerID,
		Title:       "You earned a Love Gift! 🎁",
		Body:        fmt.Sprintf("Your share of %q led to a sale. %s has been added to your Love Gifts.", title, out.Amount.StringFixed(2)),
		Link:        s.baseURL + "/marketplace/love-gifts",
	})
	return out, nil
}

// RejectProspect marks a lead as declined by the seller. Rejecting twice is a
// no-op; a converted prospect cannot be rejected.
func (s *Service) RejectProspect(ctx context.Context, ownerID, listingID, prospectID string) error {
	return s.store.WithTx(ctx, func(q storage.Queries) error {
		_, p, err := ownedProspect(ctx, q, ownerID, listingID, prospectID)
		if err != nil {
			return err
		}
		switch p.Status {
		case models.ProspectConverted:
			return ErrAlreadyConverted
		case models.ProspectRejected:
			return nil
		}
		if err := q.SetProspectStatus(ctx, p.ID, models.ProspectRejected); err != nil {
			return fmt.Errorf("reject prospect: %w", err)
		}
		return nil
	})
}
