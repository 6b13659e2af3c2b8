package marketplace

import (
	"context"
	"errors"
	"fmt"

	"github.com/kyanzach/HGF-Connect-V2-sub001/models"
	"github.com/kyanzach/HGF-Connect-V2-sub001/storage"
)

// EffectiveRef returns the share code to honour for this viewer, or "" when
// the viewer would be referring themselves. Anonymous viewers and codes that
// resolve to nobody pass through unchanged. The share row is never touched.
func (s *Service) EffectiveRef(ctx context.Context, l models.Listing, code, viewerID string) (string, error) {
	code = normalizeCode(code)
	if code == "" || viewerID == "" {
		return code, nil
	}
	if viewerID == l.OwnerID {
		return "", nil
	}

	sh, err := s.store.GetShareByCode(ctx, l.ID, code)
	if errors.Is(err, storage.ErrNotFound) {
		return code, nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve share code: %w", err)
	}
	if sh.MemberID == viewerID {
		return "", nil
	}
	return code, nil
}
