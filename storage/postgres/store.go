// Package postgres implements storage.Store on PostgreSQL through database/sql.
// The *sql.DB is normally obtained from the pgx pool (see database.SQL).
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/kyanzach/HGF-Connect-V2-sub001/models"
	"github.com/kyanzach/HGF-Connect-V2-sub001/storage"
)

const (
	uniqueViolation = "23505"
	// invalidTextRepresentation is raised when an id is not a valid UUID.
	invalidTextRepresentation = "22P02"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements storage.Store backed by PostgreSQL.
type Store struct {
	*queries
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{queries: &queries{db: db}, db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(q storage.Queries) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&queries{db: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type queries struct {
	db dbtx
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", storage.ErrDuplicate, pgErr.ConstraintName)
		case invalidTextRepresentation:
			// a malformed key cannot match any row
			return storage.ErrNotFound
		}
	}
	return err
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// --- members -----------------------------------------------------------------

func (q *queries) GetMember(ctx context.Context, id string) (models.Member, error) {
	var (
		m      models.Member
		chatID sql.NullInt64
	)
	err := q.db.QueryRowContext(ctx, `
		SELECT id, name, email, telegram_chat_id, created_at
		FROM members WHERE id = $1
	`, id).Scan(&m.ID, &m.Name, &m.Email, &chatID, &m.CreatedAt)
	if err != nil {
		return models.Member{}, mapErr(err)
	}
	m.TelegramChatID = chatID.Int64
	return m, nil
}

// --- listings ----------------------------------------------------------------

const listingColumns = `id, owner_id, title, description, original_price, discounted_price,
	love_gift_amount, status, sold_at, created_at, updated_at`

func scanListing(row interface{ Scan(...any) error }) (models.Listing, error) {
	var (
		l      models.Listing
		soldAt sql.NullTime
	)
	err := row.Scan(&l.ID, &l.OwnerID, &l.Title, &l.Description, &l.OriginalPrice, &l.DiscountedPrice,
		&l.LoveGiftAmount, &l.Status, &soldAt, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return models.Listing{}, mapErr(err)
	}
	if soldAt.Valid {
		t := soldAt.Time
		l.SoldAt = &t
	}
	return l, nil
}

func (q *queries) CreateListing(ctx context.Context, l models.Listing) (models.Listing, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = models.ListingActive
	}
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO listings (id, owner_id, title, description, original_price, discounted_price, love_gift_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, l.ID, l.OwnerID, l.Title, l.Description, l.OriginalPrice, l.DiscountedPrice, l.LoveGiftAmount, l.Status,
	).Scan(&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return models.Listing{}, mapErr(err)
	}
	return l, nil
}

func (q *queries) GetListing(ctx context.Context, id string) (models.Listing, error) {
	return scanListing(q.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = $1`, id))
}

func (q *queries) GetListingForUpdate(ctx context.Context, id string) (models.Listing, error) {
	return scanListing(q.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = $1 FOR UPDATE`, id))
}

func (q *queries) SetListingStatus(ctx context.Context, id, status string, soldAt *time.Time) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE listings
		SET status = $2, sold_at = COALESCE($3, sold_at), updated_at = NOW()
		WHERE id = $1
	`, id, status, soldAt)
	if err != nil {
		return mapErr(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- shares ------------------------------------------------------------------

const shareColumns = `id, listing_id, member_id, share_code, earned, status, created_at, updated_at`

func scanShare(row interface{ Scan(...any) error }) (models.Share, error) {
	var s models.Share
	err := row.Scan(&s.ID, &s.ListingID, &s.MemberID, &s.Code, &s.Earned, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return models.Share{}, mapErr(err)
	}
	return s, nil
}

func (q *queries) GetShareByMember(ctx context.Context, listingID, memberID string) (models.Share, error) {
	return scanShare(q.db.QueryRowContext(ctx,
		`SELECT `+shareColumns+` FROM listing_shares WHERE listing_id = $1 AND member_id = $2`,
		listingID, memberID))
}

func (q *queries) GetShareByCode(ctx context.Context, listingID, code string) (models.Share, error) {
	return scanShare(q.db.QueryRowContext(ctx,
		`SELECT `+shareColumns+` FROM listing_shares WHERE listing_id = $1 AND share_code = $2`,
		listingID, code))
}

func (q *queries) InsertShare(ctx context.Context, s models.Share) (models.Share, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO listing_shares (id, listing_id, member_id, share_code, earned, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, s.ID, s.ListingID, s.MemberID, s.Code, s.Earned, s.Status).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return models.Share{}, mapErr(err)
	}
	return s, nil
}

func (q *queries) CreditShare(ctx context.Context, shareID string, amount decimal.Decimal) (models.Share, error) {
	return scanShare(q.db.QueryRowContext(ctx, `
		UPDATE listing_shares
		SET earned = earned + $2, status = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+shareColumns,
		shareID, amount, models.ShareCredited))
}

func (q *queries) ListShareSummaries(ctx context.Context, memberID string) ([]models.ShareSummary, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT s.id, s.listing_id, s.member_id, s.share_code, s.earned, s.status, s.created_at, s.updated_at,
		       l.title, l.status, l.love_gift_amount,
		       (SELECT COUNT(*) FROM listing_impressions i
		         WHERE i.listing_id = s.listing_id AND i.share_code = s.share_code AND i.kind = 'impression'),
		       (SELECT COUNT(*) FROM listing_impressions i
		         WHERE i.listing_id = s.listing_id AND i.share_code = s.share_code AND i.kind = 'reveal_click'),
		       (SELECT COUNT(*) FROM listing_impressions i
		         WHERE i.listing_id = s.listing_id AND i.share_code = s.share_code AND i.kind = 'contact_click'),
		       (SELECT COUNT(*) FROM listing_prospects p
		         WHERE p.listing_id = s.listing_id AND p.referrer_id = s.member_id)
		FROM listing_shares s
		JOIN listings l ON l.id = s.listing_id
		WHERE s.member_id = $1
		ORDER BY s.created_at DESC
	`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.ShareSummary
	for rows.Next() {
		var sum models.ShareSummary
		if err := rows.Scan(
			&sum.ID, &sum.ListingID, &sum.MemberID, &sum.Code, &sum.Earned, &sum.Status, &sum.CreatedAt, &sum.UpdatedAt,
			&sum.ListingTitle, &sum.ListingStatus, &sum.LoveGiftAmount,
			&sum.Impressions, &sum.RevealClicks, &sum.ContactClicks, &sum.Prospects,
		); err != nil {
			return nil, err
		}
		result = append(result, sum)
	}
	return result, rows.Err()
}

// --- prospects ---------------------------------------------------------------

const prospectColumns = `id, listing_id, share_code, referrer_id, visitor_name, phone, email, message,
	action, status, fingerprint, consent, created_at, updated_at`

func scanProspect(row interface{ Scan(...any) error }) (models.Prospect, error) {
	var (
		p                           models.Prospect
		shareCode                   sql.NullString
		referrer, phone, email, msg sql.NullString
	)
	err := row.Scan(&p.ID, &p.ListingID, &shareCode, &referrer, &p.VisitorName, &phone, &email, &msg,
		&p.Action, &p.Status, &p.Fingerprint, &p.Consent, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return models.Prospect{}, mapErr(err)
	}
	p.ShareCode = shareCode.String
	p.ReferrerID = stringPtr(referrer)
	p.Phone = stringPtr(phone)
	p.Email = stringPtr(email)
	p.Message = stringPtr(msg)
	return p, nil
}

func (q *queries) InsertProspect(ctx context.Context, p models.Prospect) (models.Prospect, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	var shareCode sql.NullString
	if p.ShareCode != "" {
		shareCode = sql.NullString{String: p.ShareCode, Valid: true}
	}
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO listing_prospects
			(id, listing_id, share_code, referrer_id, visitor_name, phone, email, message, action, status, fingerprint, consent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`, p.ID, p.ListingID, shareCode, nullString(p.ReferrerID), p.VisitorName,
		nullString(p.Phone), nullString(p.Email), nullString(p.Message),
		p.Action, p.Status, p.Fingerprint, p.Consent,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return models.Prospect{}, mapErr(err)
	}
	return p, nil
}

func (q *queries) GetProspectForUpdate(ctx context.Context, id string) (models.Prospect, error) {
	return scanProspect(q.db.QueryRowContext(ctx,
		`SELECT `+prospectColumns+` FROM listing_prospects WHERE id = $1 FOR UPDATE`, id))
}

func (q *queries) SetProspectStatus(ctx context.Context, id, status string) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE listing_prospects SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return mapErr(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (q *queries) ListProspects(ctx context.Context, listingID string) ([]models.Prospect, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+prospectColumns+` FROM listing_prospects WHERE listing_id = $1 ORDER BY created_at DESC`,
		listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Prospect
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// --- impressions -------------------------------------------------------------

func (q *queries) InsertImpression(ctx context.Context, imp models.Impression) error {
	if imp.ID == "" {
		imp.ID = uuid.NewString()
	}
	var shareCode sql.NullString
	if imp.ShareCode != "" {
		shareCode = sql.NullString{String: imp.ShareCode, Valid: true}
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO listing_impressions (id, listing_id, share_code, kind, fingerprint)
		VALUES ($1, $2, $3, $4, $5)
	`, imp.ID, imp.ListingID, shareCode, imp.Kind, imp.Fingerprint)
	return mapErr(err)
}
