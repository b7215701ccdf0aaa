// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/poupacompra/nfce-scraper/internal/nfce"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ReceiptStoreConfig controls the Postgres connection pool used for receipt rows.
type ReceiptStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// ReceiptStore writes extracted receipts into Postgres.
type ReceiptStore struct {
	pool  execCloser
	table string
}

// NewReceiptStore creates a Postgres-backed ReceiptStore using the provided config.
func NewReceiptStore(ctx context.Context, cfg ReceiptStoreConfig) (*ReceiptStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("receipts.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "receipts"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ReceiptStore{pool: pool, table: table}, nil
}

// NewReceiptStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewReceiptStoreWithPool(pool execCloser, table string) (*ReceiptStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "receipts"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ReceiptStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *ReceiptStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// SaveReceipt inserts one receipt row. The full record is kept as JSONB next
// to the columns queries actually filter on.
func (s *ReceiptStore) SaveReceipt(ctx context.Context, record nfce.ReceiptRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("receipt store is not configured")
	}
	if record.ID == "" {
		return fmt.Errorf("record id is required")
	}
	payload, err := json.Marshal(record.Receipt)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	source_url,
	extracted_at,
	state_code,
	access_key,
	merchant_name,
	merchant_tax_id,
	item_count,
	total_amount,
	owner_id,
	receipt
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)`, s.table)

	args := []any{
		record.ID,
		record.SourceURL,
		record.ExtractedAt,
		record.Receipt.Summary.StateCode,
		record.Receipt.Summary.AccessKey,
		record.Receipt.Establishment.Name,
		record.Receipt.Establishment.TaxID,
		record.Receipt.Summary.ItemCount,
		record.Receipt.Summary.TotalAmount,
		record.Receipt.Summary.OwnerID,
		payload,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}
