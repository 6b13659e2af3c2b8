package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/kyanzach/HGF-Connect-V2-sub001/config"
	"github.com/kyanzach/HGF-Connect-V2-sub001/logging"
)

var Pool *pgxpool.Pool

// DSN builds the libpq connection string from config.
func DSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
}

func InitDB(ctx context.Context, cfg *config.Config) error {
	poolCfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return fmt.Errorf("parse database config: %w", err)
	}
	if cfg.DBMaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.DBMaxConns)
	}

	Pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := Pool.Ping(ctx); err != nil {
		return fmt.Errorf("unable to ping database: %w", err)
	}

	logging.Logger.Info("✅ PostgreSQL connection established",
		zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))

	for _, step := range []struct {
		name string
		fn   func(context.Context) error
	}{
		{"members", createMembersTable},
		{"listings", createListingsTable},
		{"listing_shares", createSharesTable},
		{"listing_prospects", createProspectsTable},
		{"listing_impressions", createImpressionsTable},
	} {
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("failed to create %s table: %w", step.name, err)
		}
	}
	return nil
}

// SQL exposes the pool through database/sql for the store layer.
func SQL() *sql.DB {
	return stdlib.OpenDBFromPool(Pool)
}

func CloseDB() {
	if Pool != nil {
		Pool.Close()
		logging.Logger.Info("🛑 PostgreSQL connection closed")
	}
}

func createMembersTable(ctx context.Context) error {
	// pgcrypto for gen_random_uuid()
	if _, err := Pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS "pgcrypto";`); err != nil {
		return err
	}
	_, err := Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS members (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(100) NOT NULL,
			email VARCHAR(255) NOT NULL DEFAULT '',
			telegram_chat_id BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

func createListingsTable(ctx context.Context) error {
	_, err := Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			owner_id UUID NOT NULL REFERENCES members(id),
			title VARCHAR(200) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			original_price NUMERIC(14,2) NOT NULL CHECK (original_price > 0),
			discounted_price NUMERIC(14,2) CHECK (discounted_price >= 0 AND discounted_price < original_price),
			love_gift_amount NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (love_gift_amount >= 0),
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			sold_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_listings_owner ON listings(owner_id);
	`)
	return err
}

func createSharesTable(ctx context.Context) error {
	_, err := Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS listing_shares (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			listing_id UUID NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
			member_id UUID NOT NULL REFERENCES members(id),
			share_code VARCHAR(32) NOT NULL,
			earned NUMERIC(14,2) NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT listing_shares_pair_key UNIQUE (listing_id, member_id),
			CONSTRAINT listing_shares_code_key UNIQUE (share_code)
		);
		CREATE INDEX IF NOT EXISTS idx_listing_shares_member ON listing_shares(member_id);
	`)
	return err
}

func createProspectsTable(ctx context.Context) error {
	_, err := Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS listing_prospects (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			listing_id UUID NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
			share_code VARCHAR(32),
			referrer_id UUID REFERENCES members(id),
			visitor_name VARCHAR(100) NOT NULL,
			phone VARCHAR(40),
			email VARCHAR(255),
			message TEXT,
			action VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL,
			fingerprint VARCHAR(64) NOT NULL DEFAULT '',
			consent BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_listing_prospects_listing ON listing_prospects(listing_id);
		CREATE INDEX IF NOT EXISTS idx_listing_prospects_referrer ON listing_prospects(listing_id, referrer_id);
	`)
	return err
}

func createImpressionsTable(ctx context.Context) error {
	_, err := Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS listing_impressions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			listing_id UUID NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
			share_code VARCHAR(32),
			kind VARCHAR(20) NOT NULL,
			fingerprint VARCHAR(64) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_listing_impressions_code ON listing_impressions(listing_id, share_code, kind);
	`)
	return err
}
