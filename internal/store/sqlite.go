package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/forks-fortunes/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS completions (
	city         TEXT PRIMARY KEY,
	summary      TEXT NOT NULL,
	completed_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS establishments (
	city     TEXT NOT NULL,
	place_id TEXT NOT NULL,
	record   TEXT NOT NULL,
	PRIMARY KEY (city, place_id)
);

CREATE TABLE IF NOT EXISTS page_cache (
	city       TEXT NOT NULL,
	point_idx  INTEGER NOT NULL,
	page_idx   INTEGER NOT NULL,
	results    TEXT NOT NULL,
	fetched_at DATETIME NOT NULL,
	PRIMARY KEY (city, point_idx, page_idx)
);

CREATE INDEX IF NOT EXISTS idx_establishments_city ON establishments(city);
CREATE INDEX IF NOT EXISTS idx_page_cache_city ON page_cache(city);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetCompletion(ctx context.Context, city string) (*model.CityCheckpoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT city, summary, completed_at FROM completions WHERE city = ?`,
		city,
	)

	var cp model.CityCheckpoint
	var summaryJSON string
	err := row.Scan(&cp.City, &summaryJSON, &cp.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get completion %s", city)
	}
	if err := json.Unmarshal([]byte(summaryJSON), &cp.Summary); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal summary")
	}
	return &cp, nil
}

func (s *SQLiteStore) WriteCompletion(ctx context.Context, city string, ests []model.Establishment, summary model.CitySummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin completion tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM establishments WHERE city = ?`, city); err != nil {
		return eris.Wrapf(err, "sqlite: clear establishments %s", city)
	}
	for _, e := range ests {
		record, err := json.Marshal(e)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal establishment")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO establishments (city, place_id, record) VALUES (?, ?, ?)`,
			city, e.PlaceID, string(record),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert establishment %s", e.PlaceID)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO completions (city, summary, completed_at) VALUES (?, ?, ?)
		 ON CONFLICT (city) DO UPDATE SET summary = excluded.summary, completed_at = excluded.completed_at`,
		city, string(summaryJSON), now,
	); err != nil {
		return eris.Wrapf(err, "sqlite: write completion %s", city)
	}

	// Cached pages have served their purpose once the city is complete.
	if _, err := tx.ExecContext(ctx, `DELETE FROM page_cache WHERE city = ?`, city); err != nil {
		return eris.Wrapf(err, "sqlite: clear page cache %s", city)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit completion tx")
}

func (s *SQLiteStore) ListCompletions(ctx context.Context) ([]model.CityCheckpoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT city, summary, completed_at FROM completions ORDER BY city`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list completions")
	}
	defer rows.Close()

	var cps []model.CityCheckpoint
	for rows.Next() {
		var cp model.CityCheckpoint
		var summaryJSON string
		if err := rows.Scan(&cp.City, &summaryJSON, &cp.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan completion")
		}
		if err := json.Unmarshal([]byte(summaryJSON), &cp.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
		cps = append(cps, cp)
	}
	return cps, eris.Wrap(rows.Err(), "sqlite: list completions iterate")
}

func (s *SQLiteStore) GetEstablishments(ctx context.Context, city string) ([]model.Establishment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM establishments WHERE city = ? ORDER BY place_id`,
		city,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get establishments %s", city)
	}
	defer rows.Close()

	var ests []model.Establishment
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan establishment")
		}
		var e model.Establishment
		if err := json.Unmarshal([]byte(record), &e); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal establishment")
		}
		ests = append(ests, e)
	}
	return ests, eris.Wrap(rows.Err(), "sqlite: get establishments iterate")
}

func (s *SQLiteStore) GetCachedPage(ctx context.Context, city string, pointIdx, pageIdx int) ([]model.PlaceResult, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT results FROM page_cache WHERE city = ? AND point_idx = ? AND page_idx = ?`,
		city, pointIdx, pageIdx,
	)

	var resultsJSON string
	err := row.Scan(&resultsJSON)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "sqlite: get cached page %s/%d/%d", city, pointIdx, pageIdx)
	}

	var results []model.PlaceResult
	if err := json.Unmarshal([]byte(resultsJSON), &results); err != nil {
		return nil, false, eris.Wrap(err, "sqlite: unmarshal cached page")
	}
	return results, true, nil
}

func (s *SQLiteStore) PutCachedPage(ctx context.Context, city string, pointIdx, pageIdx int, results []model.PlaceResult) error {
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal cached page")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO page_cache (city, point_idx, page_idx, results, fetched_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (city, point_idx, page_idx) DO UPDATE SET results = excluded.results, fetched_at = excluded.fetched_at`,
		city, pointIdx, pageIdx, string(resultsJSON), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: put cached page %s/%d/%d", city, pointIdx, pageIdx)
}
