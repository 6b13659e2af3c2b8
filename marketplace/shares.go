package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/kyanzach/HGF-Connect-V2-sub001/models"
	"github.com/kyanzach/HGF-Connect-V2-sub001/monitoring"
	"github.com/kyanzach/HGF-Connect-V2-sub001/storage"
)

const (
	shareCodeLen    = 12
	maxShareCodeLen = 32
	maxCodeAttempts = 5
	qrSize          = 256
)

// newShareCode takes 48 random bits from a v4 UUID as lowercase hex.
func newShareCode() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:shareCodeLen]
}

// normalizeCode cleans a code coming from a URL or form. Anything longer than
// a code can be is dropped.
func normalizeCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if len(code) > maxShareCodeLen {
		return ""
	}
	return code
}

// rawShareCode keeps the code as the visitor sent it, clipped to the column
// width, for display next to the prospect.
func rawShareCode(code string) string {
	code = strings.TrimSpace(code)
	if utf8.RuneCountInString(code) > maxShareCodeLen {
		code = string([]rune(code)[:maxShareCodeLen])
	}
	return code
}

// ShareInfo is a member's share with everything needed to hand it out.
type ShareInfo struct {
	models.Share
	Link           string          `json:"link"`
	LoveGiftAmount decimal.Decimal `json:"loveGiftAmount"`
}

func (s *Service) shareInfo(sh models.Share, l models.Listing) ShareInfo {
	return ShareInfo{Share: sh, Link: s.ShareLink(sh.ListingID, sh.Code), LoveGiftAmount: l.LoveGiftAmount}
}

// GetOrCreateShare returns the member's share for the listing, minting one
// on first use. Concurrent callers converge on a single row.
func (s *Service) GetOrCreateShare(ctx context.Context, listingID, memberID string) (ShareInfo, error) {
	l, err := s.visibleListing(ctx, listingID, memberID)
	if err != nil {
		return ShareInfo{}, err
	}
	if l.OwnerID == memberID {
		return ShareInfo{}, ErrSelfReferral
	}
	if l.Status != models.ListingActive {
		return ShareInfo{}, fmt.Errorf("listing %s is %s: %w", l.ID, l.Status, ErrListingNotActive)
	}

	existing, err := s.store.GetShareByMember(ctx, l.ID, memberID)
	if err == nil {
		return s.shareInfo(existing, l), nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return ShareInfo{}, fmt.Errorf("load share: %w", err)
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		sh, err := s.store.InsertShare(ctx, models.Share{
			ListingID: l.ID,
			MemberID:  memberID,
			Code:      s.newCode(),
			Earned:    decimal.Zero,
			Status:    models.SharePending,
		})
		if err == nil {
			monitoring.SharesCreated.Inc()
			s.log.Info("share created",
				zap.String("listing_id", l.ID), zap.String("member_id", memberID), zap.String("code", sh.Code))
			return s.shareInfo(sh, l), nil
		}
		if !errors.Is(err, storage.ErrDuplicate) {
			return ShareInfo{}, fmt.Errorf("create share: %w", err)
		}

		// Either a concurrent request won the pair or the code collided.
		existing, err := s.store.GetShareByMember(ctx, l.ID, memberID)
		if err == nil {
			return s.shareInfo(existing, l), nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return ShareInfo{}, fmt.Errorf("reload share: %w", err)
		}
		s.log.Warn("share code collision, retrying", zap.Int("attempt", attempt))
	}
	return ShareInfo{}, fmt.Errorf("create share: no free code after %d attempts", maxCodeAttempts)
}

// GetShare returns nil when the member never shared the listing.
func (s *Service) GetShare(ctx context.Context, listingID, memberID string) (*ShareInfo, error) {
	l, err := s.visibleListing(ctx, listingID, memberID)
	if err != nil {
		return nil, err
	}
	sh, err := s.store.GetShareByMember(ctx, l.ID, memberID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load share: %w", err)
	}
	info := s.shareInfo(sh, l)
	return &info, nil
}

// ShareQR renders the member's existing share link as a PNG.
func (s *Service) ShareQR(ctx context.Context, listingID, memberID string) ([]byte, error) {
	info, err := s.GetShare(ctx, listingID, memberID)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("share for listing %s: %w", listingID, ErrNotFound)
	}
	png, err := qrcode.Encode(info.Link, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// MySharesTotals is the "Love Gifts" dashboard header.
type MySharesTotals struct {
	Shares      int             `json:"shares"`
	Credited    int             `json:"credited"`
	TotalEarned decimal.Decimal `json:"totalEarned"`
}

func (s *Service) ListMyShares(ctx context.Context, memberID string) ([]models.ShareSummary, MySharesTotals, error) {
	sums, err := s.store.ListShareSummaries(ctx, memberID)
	if err != nil {
		return nil, MySharesTotals{}, fmt.Errorf("list shares: %w", err)
	}
	totals := MySharesTotals{TotalEarned: decimal.Zero}
	for i := range sums {
		sums[i].Link = s.ShareLink(sums[i].ListingID, sums[i].Code)
		totals.Shares++
		if sums[i].Status == models.ShareCredited {
			totals.Credited++
		}
		totals.TotalEarned = totals.TotalEarned.Add(sums[i].Earned)
	}
	if sums == nil {
		sums = []models.ShareSummary{}
	}
	return sums, totals, nil
}
