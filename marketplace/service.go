// Package marketplace implements the Love Gift referral engine: share links,
// prospect capture with price reveal, the self-referral guard and sale
// confirmation with at-most-once crediting.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kyanzach/HGF-Connect-V2-sub001/models"
	"github.com/kyanzach/HGF-Connect-V2-sub001/notify"
	"github.com/kyanzach/HGF-Connect-V2-sub001/storage"
)

// Effects runs fire-and-forget work. *background.Runner satisfies it.
type Effects interface {
	Go(kind string, fn func(ctx context.Context) error)
}

type Options struct {
	PublicBaseURL   string
	FingerprintSalt string
}

type Service struct {
	store    storage.Store
	effects  Effects
	notifier notify.Notifier
	log      *zap.Logger

	baseURL string
	salt    string

	newCode func() string
	now     func() time.Time
}

func NewService(store storage.Store, effects Effects, notifier notify.Notifier, log *zap.Logger, opts Options) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    store,
		effects:  effects,
		notifier: notifier,
		log:      log,
		baseURL:  strings.TrimRight(opts.PublicBaseURL, "/"),
		salt:     opts.FingerprintSalt,
		newCode:  newShareCode,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ShareLink is the public URL a member hands out.
func (s *Service) ShareLink(listingID, code string) string {
	return fmt.Sprintf("%s/marketplace/%s?ref=%s", s.baseURL, url.PathEscape(listingID), url.QueryEscape(code))
}

func (s *Service) fingerprint(clientIP string) string {
	return Fingerprint(s.salt, clientIP)
}

// getListing maps a storage miss onto ErrNotFound.
func getListing(ctx context.Context, q storage.Queries, id string, forUpdate bool) (models.Listing, error) {
	var (
		l   models.Listing
		err error
	)
	if forUpdate {
		l, err = q.GetListingForUpdate(ctx, id)
	} else {
		l, err = q.GetListing(ctx, id)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return models.Listing{}, fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Listing{}, fmt.Errorf("load listing %s: %w", id, err)
	}
	return l, nil
}

// visibleListing hides removed listings from everyone but their owner.
func (s *Service) visibleListing(ctx context.Context, id, viewerID string) (models.Listing, error) {
	l, err := getListing(ctx, s.store, id, false)
	if err != nil {
		return models.Listing{}, err
	}
	if l.Status == models.ListingRemoved && l.OwnerID != viewerID {
		return models.Listing{}, fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}
	return l, nil
}

// displayName resolves a member name; unknown members render as "".
func (s *Service) displayName(ctx context.Context, memberID string) (string, error) {
	m, err := s.store.GetMember(ctx, memberID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load member %s: %w", memberID, err)
	}
	return m.Name, nil
}

// notifyLater dispatches msg after the caller's unit of work has committed.
func (s *Service) notifyLater(msg notify.Message) {
	s.effects.Go("notification", func(ctx context.Context) error {
		return s.notifier.Notify(ctx, msg)
	})
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
