package marketplace

import (
	"context"
	"fmt"

	"github.com/kyanzach/HGF-Connect-V2-sub001/models"
)

// RecordImpression logs an engagement event in the background. It never
// fails from the caller's point of view; the write outlives ctx.
func (s *Service) RecordImpression(_ context.Context, listingID, shareCode, kind, clientIP string) {
	imp := models.Impression{
		ListingID:   listingID,
		ShareCode:   normalizeCode(shareCode),
		Kind:        kind,
		Fingerprint: s.fingerprint(clientIP),
	}
	s.effects.Go("impression", func(ctx context.Context) error {
		if !models.ValidEventKind(imp.Kind) {
			return fmt.Errorf("unknown event kind %q", imp.Kind)
		}
		return s.store.InsertImpression(ctx, imp)
	})
}
