// Package memory is an in-process implementation of storage.Store. It is safe
// for concurrent use and enforces the same uniqueness rules as the Postgres
// schema; it backs tests and local development without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kyanzach/HGF-Connect-V2-sub001/models"
	"github.com/kyanzach/HGF-Connect-V2-sub001/storage"
)

type state struct {
	members     map[string]models.Member
	listings    map[string]models.Listing
	shares      map[string]models.Share
	prospects   map[string]models.Prospect
	impressions []models.Impression
}

func (st *state) clone() *state {
	c := &state{
		members:     make(map[string]models.Member, len(st.members)),
		listings:    make(map[string]models.Listing, len(st.listings)),
		shares:      make(map[string]models.Share, len(st.shares)),
		prospects:   make(map[string]models.Prospect, len(st.prospects)),
		impressions: append([]models.Impression(nil), st.impressions...),
	}
	for k, v := range st.members {
		c.members[k] = v
	}
	for k, v := range st.listings {
		c.listings[k] = v
	}
	for k, v := range st.shares {
		c.shares[k] = v
	}
	for k, v := range st.prospects {
		c.prospects[k] = v
	}
	return c
}

// Store keeps everything in maps guarded by one mutex.
type Store struct {
	mu     sync.Mutex
	nextID int64
	st     *state
	now    func() time.Time
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		nextID: 1,
		st: &state{
			members:   make(map[string]models.Member),
			listings:  make(map[string]models.Listing),
			shares:    make(map[string]models.Share),
			prospects: make(map[string]models.Prospect),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// AddMember seeds the member directory.
func (s *Store) AddMember(m models.Member) models.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = s.nextIDLocked()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	s.st.members[m.ID] = m
	return m
}

// Impressions returns a copy of the impression log.
func (s *Store) Impressions() []models.Impression {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Impression(nil), s.st.impressions...)
}

// ShareCount returns the number of share rows for a (listing, member) pair.
func (s *Store) ShareCount(listingID, memberID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sh := range s.st.shares {
		if sh.ListingID == listingID && sh.MemberID == memberID {
			n++
		}
	}
	return n
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// idAfter orders the store's sequential ids numerically so "10" follows "9".
func idAfter(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}

func (s *Store) Ping(context.Context) error { return nil }

// WithTx holds the store lock for the whole unit and restores the previous
// state if fn fails.
func (s *Store) WithTx(ctx context.Context, fn func(q storage.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(&locked{s: s}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// Store methods take the lock and delegate to the lock-free implementation.

func (s *Store) GetMember(ctx context.Context, id string) (models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s: s}).GetMember(ctx, id)
}

func (s *Store) CreateListing(ctx context.Context, l models.Listing) (models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s: s}).CreateListing(ctx, l)
}

func (s *Store) GetListing(ctx context.Context, id string) (models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s: s}).GetListing(ctx, id)
}

func (s *Store) GetListingForUpdate(ctx context.Context, id string) (models.Listing, error) {
	return s.GetListing(ctx, id)
}

func (s *Store) SetListingStatus(ctx context.Context, id, status string, soldAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s: s}).SetListingStatus(ctx, id, status, soldAt)
}

func (s *Store) GetShareByMember(ctx context.Context, listingID, memberID string) (models.Share, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s: s}).GetShareByMember(ctx, listingID, memberID)
}

func (s *Store) GetShareByCode(ctx context.Context, listingID, code string) (models.Share, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s: s}).GetShareByCode(ctx, listingID, code)
}

func (s *Store) InsertShare(ctx context.Context, sh models.Share) (models.Share, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s: s}).InsertShare(ctx, sh)
}

func (s *Store) CreditShare(ctx context.Context, shareID string, amount decimal.Decimal) (models.Share, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s: s}).CreditShare(ctx, shareID, amount)
}

func (s *Store) ListShareSummaries(ctx context.Context, memberID string) ([]models.ShareSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s: s}).ListShareSummaries(ctx, memberID)
}

func (s *Store) InsertProspect(ctx context.Context, p models.Prospect) (models.Prospect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s: s}).InsertProspect(ctx, p)
}

func (s *Store) GetProspectForUpdate(ctx context.Context, id string) (models.Prospect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s: s}).GetProspectForUpdate(ctx, id)
}

func (s *Store) SetProspectStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s: s}).SetProspectStatus(ctx, id, status)
}

func (s *Store) ListProspects(ctx context.Context, listingID string) ([]models.Prospect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s: s}).ListProspects(ctx, listingID)
}

func (s *Store) InsertImpression(ctx context.Context, imp models.Impression) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s: s}).InsertImpression(ctx, imp)
}

// locked implements storage.Queries assuming s.mu is held.
type locked struct {
	s *Store
}

func (l *locked) GetMember(_ context.Context, id string) (models.Member, error) {
	m, ok := l.s.st.members[id]
	if !ok {
		return models.Member{}, storage.ErrNotFound
	}
	return m, nil
}

func (l *locked) CreateListing(_ context.Context, li models.Listing) (models.Listing, error) {
	if li.ID == "" {
		li.ID = l.s.nextIDLocked()
	} else if _, exists := l.s.st.listings[li.ID]; exists {
		return models.Listing{}, storage.ErrDuplicate
	}
	now := l.s.now()
	li.CreatedAt = now
	li.UpdatedAt = now
	if li.Status == "" {
		li.Status = models.ListingActive
	}
	l.s.st.listings[li.ID] = li
	return li, nil
}

func (l *locked) GetListing(_ context.Context, id string) (models.Listing, error) {
	li, ok := l.s.st.listings[id]
	if !ok {
		return models.Listing{}, storage.ErrNotFound
	}
	return li, nil
}

func (l *locked) GetListingForUpdate(ctx context.Context, id string) (models.Listing, error) {
	return l.GetListing(ctx, id)
}

func (l *locked) SetListingStatus(_ context.Context, id, status string, soldAt *time.Time) error {
	li, ok := l.s.st.listings[id]
	if !ok {
		return storage.ErrNotFound
	}
	li.Status = status
	if soldAt != nil {
		t := *soldAt
		li.SoldAt = &t
	}
	li.UpdatedAt = l.s.now()
	l.s.st.listings[id] = li
	return nil
}

func (l *locked) GetShareByMember(_ context.Context, listingID, memberID string) (models.Share, error) {
	for _, sh := range l.s.st.shares {
		if sh.ListingID == listingID && sh.MemberID == memberID {
			return sh, nil
		}
	}
	return models.Share{}, storage.ErrNotFound
}

func (l *locked) GetShareByCode(_ context.Context, listingID, code string) (models.Share, error) {
	for _, sh := range l.s.st.shares {
		if sh.ListingID == listingID && sh.Code == code {
			return sh, nil
		}
	}
	return models.Share{}, storage.ErrNotFound
}

func (l *locked) InsertShare(_ context.Context, sh models.Share) (models.Share, error) {
	for _, existing := range l.s.st.shares {
		if existing.Code == sh.Code ||
			(existing.ListingID == sh.ListingID && existing.MemberID == sh.MemberID) {
			return models.Share{}, storage.ErrDuplicate
		}
	}
	if sh.ID == "" {
		sh.ID = l.s.nextIDLocked()
	}
	now := l.s.now()
	sh.CreatedAt = now
	sh.UpdatedAt = now
	l.s.st.shares[sh.ID] = sh
	return sh, nil
}

func (l *locked) CreditShare(_ context.Context, shareID string, amount decimal.Decimal) (models.Share, error) {
	sh, ok := l.s.st.shares[shareID]
	if !ok {
		return models.Share{}, storage.ErrNotFound
	}
	sh.Earned = sh.Earned.Add(amount)
	sh.Status = models.ShareCredited
	sh.UpdatedAt = l.s.now()
	l.s.st.shares[shareID] = sh
	return sh, nil
}

func (l *locked) ListShareSummaries(_ context.Context, memberID string) ([]models.ShareSummary, error) {
	var out []models.ShareSummary
	for _, sh := range l.s.st.shares {
		if sh.MemberID != memberID {
			continue
		}
		li := l.s.st.listings[sh.ListingID]
		sum := models.ShareSummary{
			Share:          sh,
			ListingTitle:   li.Title,
			ListingStatus:  li.Status,
			LoveGiftAmount: li.LoveGiftAmount,
		}
		for _, imp := range l.s.st.impressions {
			if imp.ListingID != sh.ListingID || imp.ShareCode != sh.Code {
				continue
			}
			switch imp.Kind {
			case models.EventImpression:
				sum.Impressions++
			case models.EventRevealClick:
				sum.RevealClicks++
			case models.EventContactClick:
				sum.ContactClicks++
			}
		}
		for _, p := range l.s.st.prospects {
			if p.ListingID == sh.ListingID && p.ReferrerID != nil && *p.ReferrerID == memberID {
				sum.Prospects++
			}
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt) ||
			(out[i].CreatedAt.Equal(out[j].CreatedAt) && idAfter(out[i].ID, out[j].ID))
	})
	return out, nil
}

func (l *locked) InsertProspect(_ context.Context, p models.Prospect) (models.Prospect, error) {
	if p.ID == "" {
		p.ID = l.s.nextIDLocked()
	}
	now := l.s.now()
	p.CreatedAt = now
	p.UpdatedAt = now
	l.s.st.prospects[p.ID] = p
	return p, nil
}

func (l *locked) GetProspectForUpdate(_ context.Context, id string) (models.Prospect, error) {
	p, ok := l.s.st.prospects[id]
	if !ok {
		return models.Prospect{}, storage.ErrNotFound
	}
	return p, nil
}

func (l *locked) SetProspectStatus(_ context.Context, id, status string) error {
	p, ok := l.s.st.prospects[id]
	if !ok {
		return storage.ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = l.s.now()
	l.s.st.prospects[id] = p
	return nil
}

func (l *locked) ListProspects(_ context.Context, listingID string) ([]models.Prospect, error) {
	var out []models.Prospect
	for _, p := range l.s.st.prospects {
		if p.ListingID == listingID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt) ||
			(out[i].CreatedAt.Equal(out[j].CreatedAt) && idAfter(out[i].ID, out[j].ID))
	})
	return out, nil
}

func (l *locked) InsertImpression(_ context.Context, imp models.Impression) error {
	if _, ok := l.s.st.listings[imp.ListingID]; !ok {
		return storage.ErrNotFound
	}
	if imp.ID == "" {
		imp.ID = l.s.nextIDLocked()
	}
	imp.CreatedAt = l.s.now()
	l.s.st.impressions = append(l.s.st.impressions, imp)
	return nil
}
