package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"set-index-snapshots/internal/config"
)

const (
	createDailySQL = `CREATE TABLE IF NOT EXISTS daily_snapshot (
        id          smallint PRIMARY KEY DEFAULT 1 CHECK (id = 1),
        snap_date   text NOT NULL,
        snap_time   text NOT NULL,
        am          jsonb,
        pm          jsonb,
        updated_at  timestamptz NOT NULL DEFAULT now()
    );`

	createHistorySQL = `CREATE TABLE IF NOT EXISTS snapshot_history (
        snap_date   text NOT NULL,
        period      text NOT NULL,
        reading     jsonb NOT NULL,
        recorded_at timestamptz NOT NULL DEFAULT now(),
        PRIMARY KEY (snap_date, period)
    );`

	upsertDailySQL = `INSERT INTO daily_snapshot (id, snap_date, snap_time, am, pm)
    VALUES (1, $1, $2, $3, $4)
    ON CONFLICT (id) DO UPDATE
    SET snap_date  = EXCLUDED.snap_date,
        snap_time  = EXCLUDED.snap_time,
        am         = EXCLUDED.am,
        pm         = EXCLUDED.pm,
        updated_at = now();`

	selectDailySQL = `SELECT snap_date, snap_time, am, pm FROM daily_snapshot WHERE id = 1;`

	upsertHistorySQL = `INSERT INTO snapshot_history (snap_date, period, reading)
    VALUES ($1, $2, $3)
    ON CONFLICT (snap_date, period) DO UPDATE
    SET reading     = EXCLUDED.reading,
        recorded_at = now();`

	selectHistorySQL = `SELECT snap_date, period, reading
    FROM snapshot_history
    ORDER BY snap_date, period;`
)

// dbPool is the slice of pgxpool.Pool the store uses; pgxmock satisfies it.
type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.postgres.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}

// PostgresStore keeps the daily record as a single upserted row and the
// history as a (snap_date, period) keyed table.
type PostgresStore struct {
	pool   dbPool
	logger zerolog.Logger
}

// NewPostgresStore wires a pool into a store.
func NewPostgresStore(pool dbPool, logger zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		logger: logger.With().Str("component", "postgres_store").Logger(),
	}
}

// Migrate creates the snapshot tables if absent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range []string{createDailySQL, createHistorySQL} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply snapshot migration: %w", err)
		}
	}
	return nil
}

// LoadDaily reads the single daily row, answering the placeholder when the
// row is absent or the query fails.
func (s *PostgresStore) LoadDaily(ctx context.Context) Daily {
	var (
		d       Daily
		amBytes []byte
		pmBytes []byte
	)

	err := s.pool.QueryRow(ctx, selectDailySQL).Scan(&d.Date, &d.Time, &amBytes, &pmBytes)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn().Err(err).Msg("daily row unreadable, using placeholder")
		}
		return PlaceholderDaily()
	}

	if r, ok := decodeReading(amBytes, s.logger); ok {
		d.AM = r
	}
	if r, ok := decodeReading(pmBytes, s.logger); ok {
		d.PM = r
	}
	return d
}

// SaveDaily upserts the single daily row.
func (s *PostgresStore) SaveDaily(ctx context.Context, d Daily) error {
	am, err := encodeReading(d.AM)
	if err != nil {
		return err
	}
	pm, err := encodeReading(d.PM)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, upsertDailySQL, d.Date, d.Time, am, pm); err != nil {
		return fmt.Errorf("upsert daily snapshot: %w", err)
	}
	return nil
}

// LoadHistory reads the full archive, answering an empty map on failure.
func (s *PostgresStore) LoadHistory(ctx context.Context) History {
	h := make(History)

	rows, err := s.pool.Query(ctx, selectHistorySQL)
	if err != nil {
		s.logger.Warn().Err(err).Msg("history unreadable, starting empty")
		return h
	}
	defer rows.Close()

	for rows.Next() {
		var (
			date    string
			period  string
			reading []byte
		)
		if err := rows.Scan(&date, &period, &reading); err != nil {
			s.logger.Warn().Err(err).Msg("skipping unreadable history row")
			continue
		}
		var r Reading
		if err := json.Unmarshal(reading, &r); err != nil {
			s.logger.Warn().Err(err).Str("date", date).Msg("skipping undecodable history reading")
			continue
		}
		h.Put(date, Period(period), r)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn().Err(err).Msg("history scan interrupted")
	}
	return h
}

// AppendHistory upserts the (date, period) entry; the primary key makes a
// duplicate trigger overwrite rather than duplicate.
func (s *PostgresStore) AppendHistory(ctx context.Context, date string, p Period, r Reading) error {
	if !p.Valid() {
		return fmt.Errorf("unknown period %q", p)
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}

	if _, err := s.pool.Exec(ctx, upsertHistorySQL, date, string(p), payload); err != nil {
		return fmt.Errorf("upsert history entry: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func encodeReading(r *Reading) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode reading: %w", err)
	}
	return data, nil
}

func decodeReading(data []byte, logger zerolog.Logger) (*Reading, bool) {
	if len(data) == 0 {
		return nil, false
	}
	var r Reading
	if err := json.Unmarshal(data, &r); err != nil {
		logger.Warn().Err(err).Msg("stored reading undecodable, treating as unset")
		return nil, false
	}
	return &r, true
}

var _ Store = (*PostgresStore)(nil)
