package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
)

// DefaultHistoryLimit caps History when the caller passes no limit
const DefaultHistoryLimit = 100

// Store manages PostgreSQL operations
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new PostgreSQL store with connection pooling
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	// Parse and configure connection pool
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Tune connection pool
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	// NUMERIC <-> decimal.Decimal
	config.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	// Create pool
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies the connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InsertSnapshots inserts snapshots in one pgx.Batch
func (s *Store) InsertSnapshots(ctx context.Context, snapshots []BalanceSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(`
			INSERT INTO balance_snapshots
			(fetched_at, address, name, total_mist, total_sui, coin_count)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			snap.FetchedAt,
			snap.Address,
			snap.Name,
			snap.TotalMist,
			snap.TotalSUI,
			snap.CoinCount,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snapshots {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch insert failed: %w", err)
		}
	}

	return nil
}

// History returns the snapshots of address, newest first
func (s *Store) History(ctx context.Context, address string, limit int) ([]BalanceSnapshot, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, fetched_at, address, name, total_mist, total_sui, coin_count
		FROM balance_snapshots
		WHERE address = $1
		ORDER BY fetched_at DESC, id DESC
		LIMIT $2`, address, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for %s: %w", address, err)
	}

	history, err := pgx.CollectRows(rows, pgx.RowToStructByPos[BalanceSnapshot])
	if err != nil {
		return nil, fmt.Errorf("failed to scan history for %s: %w", address, err)
	}
	return history, nil
}

// LatestTotals returns the most recent total_mist per address
func (s *Store) LatestTotals(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (address) address, total_mist::TEXT
		FROM balance_snapshots
		ORDER BY address, fetched_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]string)
	for rows.Next() {
		var address, total string
		if err := rows.Scan(&address, &total); err != nil {
			return nil, fmt.Errorf("failed to scan latest totals: %w", err)
		}
		totals[address] = total
	}
	return totals, rows.Err()
}
