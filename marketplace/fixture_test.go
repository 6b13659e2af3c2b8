package marketplace

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kyanzach/HGF-Connect-V2-sub001/background"
	"github.com/kyanzach/HGF-Connect-V2-sub001/models"
	"github.com/kyanzach/HGF-Connect-V2-sub001/notify"
	"github.com/kyanzach/HGF-Connect-V2-sub001/storage/memory"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return n.err
}

func (n *recordingNotifier) sentTo(memberID string) []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Message
	for _, m := range n.msgs {
		if m.RecipientID == memberID {
			out = append(out, m)
		}
	}
	return out
}

type fixture struct {
	store    *memory.Store
	runner   *background.Runner
	notifier *recordingNotifier
	svc      *Service

	owner   models.Member // A
	sharer  models.Member // B
	other   models.Member
	listing models.Listing
}

// newFixture seeds listing "Bike": original 1000, discounted 700, Love Gift 100.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.New(),
		runner:   background.NewRunner(zap.NewNop(), time.Second),
		notifier: &recordingNotifier{},
	}
	f.svc = NewService(f.store, f.runner, f.notifier, zap.NewNop(), Options{
		PublicBaseURL:   "https://hgf.example/",
		FingerprintSalt: "pepper",
	})

	f.owner = f.store.AddMember(models.Member{Name: "Alice", Email: "alice@example.com"})
	f.sharer = f.store.AddMember(models.Member{Name: "Ben", Email: "ben@example.com"})
	f.other = f.store.AddMember(models.Member{Name: "Cora"})
	f.listing = f.addListing(t, decimal.NewFromInt(1000), ptr(decimal.NewFromInt(700)), decimal.NewFromInt(100))
	return f
}

func (f *fixture) addListing(t *testing.T, price decimal.Decimal, discount *decimal.Decimal, gift decimal.Decimal) models.Listing {
	t.Helper()
	ol, err := f.svc.CreateListing(context.Background(), f.owner.ID, ListingInput{
		Title:           "Bike",
		OriginalPrice:   price,
		DiscountedPrice: discount,
		LoveGiftAmount:  gift,
	})
	require.NoError(t, err)
	l, err := f.store.GetListing(context.Background(), ol.ID)
	require.NoError(t, err)
	return l
}

func (f *fixture) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.runner.Wait(ctx))
}

func ptr[T any](v T) *T { return &v }
