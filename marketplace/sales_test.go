package marketplace

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kyanzach/HGF-Connect-V2-sub001/models"
	"github.com/kyanzach/HGF-Connect-V2-sub001/storage"
	"github.com/kyanzach/HGF-Connect-V2-sub001/storage/memory"
)

func submit(t *testing.T, f *fixture, listingID, code, name string) string {
	t.Helper()
	rev, err := f.svc.SubmitProspect(context.Background(), ProspectInput{
		ListingID: listingID, Action: models.ActionReveal, ShareCode: code, VisitorName: name,
	})
	require.NoError(t, err)
	return rev.ProspectID
}

// Listing 1000/700 with a Love Gift of 100, shared by B, revealed by Maria,
// confirmed twice by A.
func TestLoveGiftScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	share, err := f.svc.GetOrCreateShare(ctx, f.listing.ID, f.sharer.ID)
	require.NoError(t, err)
	assert.True(t, share.Earned.IsZero())

	rev, err := f.svc.SubmitProspect(ctx, ProspectInput{
		ListingID: f.listing.ID, Action: models.ActionReveal, ShareCode: share.Code, VisitorName: "Maria",
	})
	require.NoError(t, err)
	assert.True(t, rev.DiscountedPrice.Equal(decimal.NewFromInt(700)))
	assert.True(t, rev.OgPrice.Equal(decimal.NewFromInt(1000)))
	assert.True(t, rev.LoveGiftAmount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, share.Code, *rev.CouponCode)

	views, err := f.svc.ListProspects(ctx, f.owner.ID, f.listing.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, models.ProspectRevealed, views[0].Status)
	assert.Equal(t, "Ben", *views[0].ReferrerName)

	out, err := f.svc.ConfirmSale(ctx, f.owner.ID, f.listing.ID, rev.ProspectID)
	require.NoError(t, err)
	assert.True(t, out.Credited)
	assert.True(t, out.Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, f.sharer.ID, *out.ReferrerID)
	assert.Equal(t, "Ben", out.ReferrerName)
	assert.Contains(t, out.Message, "credited")

	l, err := f.store.GetListing(ctx, f.listing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingSold, l.Status)
	assert.NotNil(t, l.SoldAt)

	sh, err := f.store.GetShareByMember(ctx, f.listing.ID, f.sharer.ID)
	require.NoError(t, err)
	assert.True(t, sh.Earned.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, models.ShareCredited, sh.Status)

	_, err = f.svc.ConfirmSale(ctx, f.owner.ID, f.listing.ID, rev.ProspectID)
	assert.ErrorIs(t, err, ErrAlreadyConverted)

	sh, err = f.store.GetShareByMember(ctx, f.listing.ID, f.sharer.ID)
	require.NoError(t, err)
	assert.True(t, sh.Earned.Equal(decimal.NewFromInt(100)))

	f.wait(t)
	msgs := f.notifier.sentTo(f.sharer.ID)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Body, "100.00")
}

func TestConfirmSale_ConcurrentRetriesCreditOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	share, err := f.svc.GetOrCreateShare(ctx, f.listing.ID, f.sharer.ID)
	require.NoError(t, err)
	prospectID := submit(t, f, f.listing.ID, share.Code, "Maria")

	const clicks = 16
	results := make([]error, clicks)
	var wg sync.WaitGroup
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.ConfirmSale(ctx, f.owner.ID, f.listing.ID, prospectID)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyConverted)
	}
	assert.Equal(t, 1, ok)

	sh, err := f.store.GetShareByMember(ctx, f.listing.ID, f.sharer.ID)
	require.NoError(t, err)
	assert.True(t, sh.Earned.Equal(decimal.NewFromInt(100)))
}

func TestConfirmSale_WithoutReferral(t *testing.T) {
	f := newFixture(t)
	prospectID := submit(t, f, f.listing.ID, "", "Maria")

	out, err := f.svc.ConfirmSale(context.Background(), f.owner.ID, f.listing.ID, prospectID)
	require.NoError(t, err)
	assert.False(t, out.Credited)
	assert.True(t, out.Amount.IsZero())
	assert.Nil(t, out.ReferrerID)
	assert.Contains(t, out.Message, "No referral link")

	f.wait(t)
	assert.Empty(t, f.notifier.sentTo(f.sharer.ID))
}

func TestConfirmSale_ZeroLoveGiftDoesNotCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.addListing(t, decimal.NewFromInt(400), nil, decimal.Zero)
	share, err := f.svc.GetOrCreateShare(ctx, l.ID, f.sharer.ID)
	require.NoError(t, err)
	prospectID := submit(t, f, l.ID, share.Code, "Maria")

	out, err := f.svc.ConfirmSale(ctx, f.owner.ID, l.ID, prospectID)
	require.NoError(t, err)
	assert.False(t, out.Credited)

	sh, err := f.store.GetShareByMember(ctx, l.ID, f.sharer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SharePending, sh.Status)
	assert.True(t, sh.Earned.IsZero())
}

// The referrer is captured at submission: a share minted afterwards for the
// same code must not be credited.
func TestConfirmSale_UsesAttributionSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	prospectID := submit(t, f, f.listing.ID, "cafecafecafe", "Maria")

	f.svc.newCode = func() string { return "cafecafecafe" }
	share, err := f.svc.GetOrCreateShare(ctx, f.listing.ID, f.sharer.ID)
	require.NoError(t, err)
	require.Equal(t, "cafecafecafe", share.Code)

	out, err := f.svc.ConfirmSale(ctx, f.owner.ID, f.listing.ID, prospectID)
	require.NoError(t, err)
	assert.False(t, out.Credited)

	sh, err := f.store.GetShareByMember(ctx, f.listing.ID, f.sharer.ID)
	require.NoError(t, err)
	assert.True(t, sh.Earned.IsZero())
}

func TestConfirmSale_Ownership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prospectID := submit(t, f, f.listing.ID, "", "Maria")

	_, err := f.svc.ConfirmSale(ctx, f.sharer.ID, f.listing.ID, prospectID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.ConfirmSale(ctx, f.owner.ID, f.listing.ID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	other := f.addListing(t, decimal.NewFromInt(50), nil, decimal.Zero)
	_, err = f.svc.ConfirmSale(ctx, f.owner.ID, other.ID, prospectID)
	assert.ErrorIs(t, err, ErrNotFound)

	l, err := f.store.GetListing(ctx, f.listing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingActive, l.Status)
}

func TestConfirmSale_SecondProspectOnSoldListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := submit(t, f, f.listing.ID, "", "Maria")
	second := submit(t, f, f.listing.ID, "", "Jo")

	_, err := f.svc.ConfirmSale(ctx, f.owner.ID, f.listing.ID, first)
	require.NoError(t, err)

	_, err = f.svc.ConfirmSale(ctx, f.owner.ID, f.listing.ID, second)
	assert.ErrorIs(t, err, ErrListingNotActive)

	views, err := f.svc.ListProspects(ctx, f.owner.ID, f.listing.ID)
	require.NoError(t, err)
	for _, v := range views {
		if v.ID == second {
			assert.Equal(t, models.ProspectRevealed, v.Status)
		}
	}
}

func TestConfirmSale_NotificationFailureIsIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.err = errors.New("sink down")

	share, err := f.svc.GetOrCreateShare(ctx, f.listing.ID, f.sharer.ID)
	require.NoError(t, err)
	prospectID := submit(t, f, f.listing.ID, share.Code, "Maria")

	out, err := f.svc.ConfirmSale(ctx, f.owner.ID, f.listing.ID, prospectID)
	require.NoError(t, err)
	assert.True(t, out.Credited)
	f.wait(t)

	sh, err := f.store.GetShareByMember(ctx, f.listing.ID, f.sharer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ShareCredited, sh.Status)
}

func TestRejectProspect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rejected := submit(t, f, f.listing.ID, "", "Spam")
	sold := submit(t, f, f.listing.ID, "", "Maria")

	require.NoError(t, f.svc.RejectProspect(ctx, f.owner.ID, f.listing.ID, rejected))
	require.NoError(t, f.svc.RejectProspect(ctx, f.owner.ID, f.listing.ID, rejected))

	_, err := f.svc.ConfirmSale(ctx, f.owner.ID, f.listing.ID, rejected)
	assert.ErrorIs(t, err, ErrProspectRejected)

	_, err = f.svc.ConfirmSale(ctx, f.owner.ID, f.listing.ID, sold)
	require.NoError(t, err)
	err = f.svc.RejectProspect(ctx, f.owner.ID, f.listing.ID, sold)
	assert.ErrorIs(t, err, ErrAlreadyConverted)

	err = f.svc.RejectProspect(ctx, f.sharer.ID, f.listing.ID, rejected)
	assert.ErrorIs(t, err, ErrNotFound)
}

// failingCredit lets every write through except CreditShare.
type failingCredit struct {
	storage.Queries
}

func (failingCredit) CreditShare(context.Context, string, decimal.Decimal) (models.Share, error) {
	return models.Share{}, errors.New("disk full")
}

type creditFailStore struct {
	*memory.Store
}

func (s creditFailStore) WithTx(ctx context.Context, fn func(q storage.Queries) error) error {
	return s.Store.WithTx(ctx, func(q storage.Queries) error {
		return fn(failingCredit{Queries: q})
	})
}

func TestConfirmSale_FailedCreditRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	share, err := f.svc.GetOrCreateShare(ctx, f.listing.ID, f.sharer.ID)
	require.NoError(t, err)
	prospectID := submit(t, f, f.listing.ID, share.Code, "Maria")

	svc := NewService(creditFailStore{Store: f.store}, f.runner, f.notifier, zap.NewNop(), Options{})
	_, err = svc.ConfirmSale(ctx, f.owner.ID, f.listing.ID, prospectID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	l, err := f.store.GetListing(ctx, f.listing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingActive, l.Status)
	assert.Nil(t, l.SoldAt)

	p, err := f.store.GetProspectForUpdate(ctx, prospectID)
	require.NoError(t, err)
	assert.Equal(t, models.ProspectRevealed, p.Status)

	sh, err := f.store.GetShareByMember(ctx, f.listing.ID, f.sharer.ID)
	require.NoError(t, err)
	assert.True(t, sh.Earned.IsZero())
	assert.Equal(t, models.SharePending, sh.Status)

	// the intact state still confirms normally
	out, err := f.svc.ConfirmSale(ctx, f.owner.ID, f.listing.ID, prospectID)
	require.NoError(t, err)
	assert.True(t, out.Credited)
	f.wait(t)
}
