package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kyanzach/HGF-Connect-V2-sub001/models"
	"github.com/kyanzach/HGF-Connect-V2-sub001/monitoring"
	"github.com/kyanzach/HGF-Connect-V2-sub001/notify"
	"github.com/kyanzach/HGF-Connect-V2-sub001/storage"
)

const maxVisitorNameLen = 100

type ProspectInput struct {
	ListingID   string
	Action      string
	ShareCode   string
	VisitorName string
	Phone       *string
	Email       *string
	Message     *string
	Consent     bool

	ClientIP string
	// ViewerID is set when the visitor happens to be signed in.
	ViewerID string
}

// SubmitProspect records a visitor's self-identification, snapshots the
// referrer behind the share code and returns the price information the
// visitor has now unlocked. An unknown code never blocks the submission.
func (s *Service) SubmitProspect(ctx context.Context, in ProspectInput) (models.Reveal, error) {
	name := strings.TrimSpace(in.VisitorName)
	if name == "" {
		return models.Reveal{}, validationf("visitor name is required")
	}
	if utf8.RuneCountInString(name) > maxVisitorNameLen {
		return models.Reveal{}, validationf("visitor name must be at most %d characters", maxVisitorNameLen)
	}
	action := strings.ToLower(strings.TrimSpace(in.Action))
	if !models.ValidAction(action) {
		return models.Reveal{}, validationf("action must be %q or %q", models.ActionReveal, models.ActionContact)
	}

	l, err := getListing(ctx, s.store, in.ListingID, false)
	if err != nil {
		return models.Reveal{}, err
	}
	if l.Status == models.ListingRemoved {
		return models.Reveal{}, fmt.Errorf("listing %s: %w", l.ID, ErrNotFound)
	}

	code, err := s.EffectiveRef(ctx, l, in.ShareCode, in.ViewerID)
	if err != nil {
		return models.Reveal{}, err
	}

	var referrerID *string
	if code != "" {
		sh, err := s.store.GetShareByCode(ctx, l.ID, code)
		switch {
		case err == nil:
			id := sh.MemberID
			referrerID = &id
		case errors.Is(err, storage.ErrNotFound):
		default:
			return models.Reveal{}, fmt.Errorf("resolve share code: %w", err)
		}
	}

	sellerName, err := s.displayName(ctx, l.OwnerID)
	if err != nil {
		return models.Reveal{}, err
	}

	p, err := s.store.InsertProspect(ctx, models.Prospect{
		ListingID:   l.ID,
		ShareCode:   rawShareCode(in.ShareCode),
		ReferrerID:  referrerID,
		VisitorName: name,
		Phone:       trimOptional(in.Phone),
		Email:       trimOptional(in.Email),
		Message:     trimOptional(in.Message),
		Action:      action,
		Status:      models.StatusForAction(action),
		Fingerprint: s.fingerprint(in.ClientIP),
		Consent:     in.Consent,
	})
	if err != nil {
		return models.Reveal{}, fmt.Errorf("save prospect: %w", err)
	}

	monitoring.ProspectsSubmitted.WithLabelValues(action, strconv.FormatBool(referrerID != nil)).Inc()
	s.log.Info("prospect captured",
		zap.String("listing_id", l.ID),
		zap.String("prospect_id", p.ID),
		zap.String("action", action),
		zap.Bool("attributed", referrerID != nil),
	)

	kind := models.EventRevealClick
	if action == models.ActionContact {
		kind = models.EventContactClick
	}
	s.RecordImpression(ctx, l.ID, code, kind, in.ClientIP)

	s.notifyLater(notify.Message{
		RecipientID: l.OwnerID,
		Title:       "New interest in your listing",
		Body:        fmt.Sprintf("%s wants to %s about %q.", name, actionVerb(action), l.Title),
		Link:        fmt.Sprintf("%s/marketplace/%s/prospects", s.baseURL, l.ID),
	})

	var coupon *string
	if code != "" {
		c := code
		coupon = &c
	}
	return models.Reveal{
		ProspectID:      p.ID,
		DiscountedPrice: models.DiscountPtr(l.DiscountedPrice),
		OgPrice:         l.OriginalPrice,
		SellerName:      sellerName,
		LoveGiftAmount:  l.LoveGiftAmount,
		CouponCode:      coupon,
	}, nil
}

func actionVerb(action string) string {
	if action == models.ActionContact {
		return "get in touch"
	}
	return "see the Love Gift price"
}

// ListProspects returns the leads of an owned listing, newest first, each
// annotated with the name of the member who referred it.
func (s *Service) ListProspects(ctx context.Context, ownerID, listingID string) ([]models.ProspectView, error) {
	l, err := getListing(ctx, s.store, listingID, false)
	if err != nil {
		return nil, err
	}
	if l.OwnerID != ownerID {
		return nil, fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
	}

	ps, err := s.store.ListProspects(ctx, l.ID)
	if err != nil {
		return nil, fmt.Errorf("list prospects: %w", err)
	}

	names := make(map[string]string)
	views := make([]models.ProspectView, 0, len(ps))
	for _, p := range ps {
		v := models.ProspectView{Prospect: p}
		if p.ReferrerID != nil {
			name, ok := names[*p.ReferrerID]
			if !ok {
				if name, err = s.displayName(ctx, *p.ReferrerID); err != nil {
					return nil, err
				}
				names[*p.ReferrerID] = name
			}
			if name != "" {
				v.ReferrerName = &name
			}
		}
		views = append(views, v)
	}
	return views, nil
}
