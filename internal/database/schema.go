package database

import (
	"database/sql"
	"fmt"
)

// createTableSQL is the single orders table holding every order field.
// Orders are never deleted; terminal statuses are retained for audit.
const createTableSQL = `
	CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		order_hash VARCHAR(66) UNIQUE NOT NULL,
		src_chain_id BIGINT NOT NULL,
		dst_chain_id BIGINT NOT NULL,
		maker VARCHAR(66) NOT NULL,
		receiver VARCHAR(66) NOT NULL,
		taker VARCHAR(66) NOT NULL,
		timelock VARCHAR(255) NOT NULL,
		maker_asset VARCHAR(66) NOT NULL,
		taker_asset VARCHAR(66) NOT NULL,
		making_amount NUMERIC NOT NULL,
		taking_amount NUMERIC NOT NULL,
		salt VARCHAR(255) NOT NULL,
		maker_traits VARCHAR(255) NOT NULL DEFAULT '0',
		taker_traits VARCHAR(255) NOT NULL DEFAULT '0',
		args JSONB NOT NULL DEFAULT '{}'::jsonb,
		signature JSONB NOT NULL,
		extension JSONB NOT NULL DEFAULT '{}'::jsonb,
		order_type TEXT NOT NULL DEFAULT 'single_fill',
		secrets JSONB NOT NULL DEFAULT '[]'::jsonb,

		status TEXT NOT NULL DEFAULT 'unmatched',
		deadline BIGINT NOT NULL,

		src_escrow_address VARCHAR(66),
		dst_escrow_address VARCHAR(66),
		src_tx_hash VARCHAR(66),
		dst_tx_hash VARCHAR(66),
		filled_maker_amount NUMERIC DEFAULT 0,
		filled_taker_amount NUMERIC DEFAULT 0,
		src_event JSONB,
		dst_event JSONB,
		src_deploy_immutables JSONB,
		dst_deploy_immutables JSONB,
		src_withdraw_immutables JSONB,
		dst_withdraw_immutables JSONB,

		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`

var indexSQL = []string{
	"CREATE INDEX IF NOT EXISTS idx_orders_maker ON orders(maker)",
	"CREATE INDEX IF NOT EXISTS idx_orders_taker ON orders(taker)",
	"CREATE INDEX IF NOT EXISTS idx_orders_chain ON orders(src_chain_id)",
	"CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)",
	"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at)",
	"CREATE INDEX IF NOT EXISTS idx_orders_deadline ON orders(deadline)",
	"CREATE INDEX IF NOT EXISTS idx_orders_unmatched ON orders(status) WHERE status = 'unmatched'",
}

// CreateTables creates the orders table and its indexes
func CreateTables(db *sql.DB) error {
	if _, err := db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create orders table: %w", err)
	}

	for _, stmt := range indexSQL {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// DropTables removes the orders table and everything hanging off it
func DropTables(db *sql.DB) error {
	if _, err := db.Exec("DROP TABLE IF EXISTS orders CASCADE"); err != nil {
		return fmt.Errorf("failed to drop orders table: %w", err)
	}
	return nil
}
