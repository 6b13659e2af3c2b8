// Package storage defines the persistence contract of the marketplace core.
// Implementations live in storage/postgres and storage/memory.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kyanzach/HGF-Connect-V2-sub001/models"
)

var (
	// ErrNotFound is returned when a keyed lookup matches no row.
	ErrNotFound = errors.New("storage: not found")
	// ErrDuplicate is returned when an insert hits a uniqueness constraint.
	ErrDuplicate = errors.New("storage: duplicate")
)

// Queries are the keyed lookups and writes used by the marketplace.
// Every method is usable both inside and outside a transaction.
type Queries interface {
	GetMember(ctx context.Context, id string) (models.Member, error)

	CreateListing(ctx context.Context, l models.Listing) (models.Listing, error)
	GetListing(ctx context.Context, id string) (models.Listing, error)
	// GetListingForUpdate locks the row for the rest of the transaction.
	GetListingForUpdate(ctx context.Context, id string) (models.Listing, error)
	SetListingStatus(ctx context.Context, id, status string, soldAt *time.Time) error

	GetShareByMember(ctx context.Context, listingID, memberID string) (models.Share, error)
	GetShareByCode(ctx context.Context, listingID, code string) (models.Share, error)
	InsertShare(ctx context.Context, s models.Share) (models.Share, error)
	CreditShare(ctx context.Context, shareID string, amount decimal.Decimal) (models.Share, error)
	ListShareSummaries(ctx context.Context, memberID string) ([]models.ShareSummary, error)

	InsertProspect(ctx context.Context, p models.Prospect) (models.Prospect, error)
	GetProspectForUpdate(ctx context.Context, id string) (models.Prospect, error)
	SetProspectStatus(ctx context.Context, id, status string) error
	ListProspects(ctx context.Context, listingID string) ([]models.Prospect, error)

	InsertImpression(ctx context.Context, imp models.Impression) error
}

// Store is the full persistence layer.
type Store interface {
	Queries
	// WithTx runs fn as one all-or-nothing unit. Any error from fn rolls back.
	WithTx(ctx context.Context, fn func(q Queries) error) error
	Ping(ctx context.Context) error
}
