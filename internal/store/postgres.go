package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notified_serials (
	serial_number TEXT PRIMARY KEY,
	notified_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps the set in the notified_serials table.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore connects to Postgres and ensures the table exists.
func NewPostgresStore(ctx context.Context, databaseURL string, logger *slog.Logger) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 4
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := NewPostgresStoreFromPool(pool, logger)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromPool wraps an existing pool.
func NewPostgresStoreFromPool(pool *pgxpool.Pool, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{pool: pool, logger: logger.With("component", "store.postgres")}
}

// EnsureSchema creates the notified_serials table if needed.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create notified_serials table: %w", err)
	}
	return nil
}

// Load returns every stored serial.
func (s *PostgresStore) Load(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT serial_number FROM notified_serials ORDER BY serial_number`)
	if err != nil {
		return nil, fmt.Errorf("query notified serials: %w", err)
	}
	serials, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan notified serials: %w", err)
	}
	if serials == nil {
		serials = []string{}
	}
	return serials, nil
}

// Save replaces the table contents with serials. Rows already present keep
// their original notified_at.
func (s *PostgresStore) Save(ctx context.Context, serials []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if serials == nil {
		serials = []string{}
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM notified_serials WHERE NOT (serial_number = ANY($1))`, serials); err != nil {
		return fmt.Errorf("prune notified serials: %w", err)
	}

	batch := &pgx.Batch{}
	for _, serial := range serials {
		batch.Queue(`INSERT INTO notified_serials (serial_number) VALUES ($1) ON CONFLICT (serial_number) DO NOTHING`, serial)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert notified serials: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit notified serials: %w", err)
	}
	s.logger.Debug("notified set saved", "serials", len(serials))
	return nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
