package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/forks-fortunes/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it,
// which keeps the Postgres driver unit-testable without a live server.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS completions (
	city         TEXT PRIMARY KEY,
	summary      JSONB NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS establishments (
	city     TEXT NOT NULL,
	place_id TEXT NOT NULL,
	record   JSONB NOT NULL,
	PRIMARY KEY (city, place_id)
);

CREATE TABLE IF NOT EXISTS page_cache (
	city       TEXT NOT NULL,
	point_idx  INTEGER NOT NULL,
	page_idx   INTEGER NOT NULL,
	results    JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (city, point_idx, page_idx)
);

CREATE INDEX IF NOT EXISTS idx_establishments_city ON establishments(city);
CREATE INDEX IF NOT EXISTS idx_page_cache_city ON page_cache(city);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) GetCompletion(ctx context.Context, city string) (*model.CityCheckpoint, error) {
	var cp model.CityCheckpoint
	var summaryJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT city, summary, completed_at FROM completions WHERE city = $1`,
		city,
	).Scan(&cp.City, &summaryJSON, &cp.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get completion %s", city)
	}
	if err := json.Unmarshal(summaryJSON, &cp.Summary); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal summary")
	}
	return &cp, nil
}

func (s *PostgresStore) WriteCompletion(ctx context.Context, city string, ests []model.Establishment, summary model.CitySummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin completion tx")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM establishments WHERE city = $1`, city); err != nil {
		return eris.Wrapf(err, "postgres: clear establishments %s", city)
	}
	for _, e := range ests {
		record, err := json.Marshal(e)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal establishment")
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO establishments (city, place_id, record) VALUES ($1, $2, $3)`,
			city, e.PlaceID, record,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert establishment %s", e.PlaceID)
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO completions (city, summary, completed_at) VALUES ($1, $2, $3)
		 ON CONFLICT (city) DO UPDATE SET summary = $2, completed_at = $3`,
		city, summaryJSON, now,
	); err != nil {
		return eris.Wrapf(err, "postgres: write completion %s", city)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM page_cache WHERE city = $1`, city); err != nil {
		return eris.Wrapf(err, "postgres: clear page cache %s", city)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit completion tx")
}

func (s *PostgresStore) ListCompletions(ctx context.Context) ([]model.CityCheckpoint, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT city, summary, completed_at FROM completions ORDER BY city`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list completions")
	}
	defer rows.Close()

	var cps []model.CityCheckpoint
	for rows.Next() {
		var cp model.CityCheckpoint
		var summaryJSON []byte
		if err := rows.Scan(&cp.City, &summaryJSON, &cp.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan completion")
		}
		if err := json.Unmarshal(summaryJSON, &cp.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary")
		}
		cps = append(cps, cp)
	}
	return cps, eris.Wrap(rows.Err(), "postgres: list completions iterate")
}

func (s *PostgresStore) GetEstablishments(ctx context.Context, city string) ([]model.Establishment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT record FROM establishments WHERE city = $1 ORDER BY place_id`,
		city,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get establishments %s", city)
	}
	defer rows.Close()

	var ests []model.Establishment
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "postgres: scan establishment")
		}
		var e model.Establishment
		if err := json.Unmarshal(record, &e); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal establishment")
		}
		ests = append(ests, e)
	}
	return ests, eris.Wrap(rows.Err(), "postgres: get establishments iterate")
}

func (s *PostgresStore) GetCachedPage(ctx context.Context, city string, pointIdx, pageIdx int) ([]model.PlaceResult, bool, error) {
	var resultsJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT results FROM page_cache WHERE city = $1 AND point_idx = $2 AND page_idx = $3`,
		city, pointIdx, pageIdx,
	).Scan(&resultsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, eris.Wrapf(err, "postgres: get cached page %s/%d/%d", city, pointIdx, pageIdx)
	}

	var results []model.PlaceResult
	if err := json.Unmarshal(resultsJSON, &results); err != nil {
		return nil, false, eris.Wrap(err, "postgres: unmarshal cached page")
	}
	return results, true, nil
}

func (s *PostgresStore) PutCachedPage(ctx context.Context, city string, pointIdx, pageIdx int, results []model.PlaceResult) error {
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal cached page")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO page_cache (city, point_idx, page_idx, results, fetched_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (city, point_idx, page_idx) DO UPDATE SET results = $4, fetched_at = $5`,
		city, pointIdx, pageIdx, resultsJSON, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: put cached page %s/%d/%d", city, pointIdx, pageIdx)
}
