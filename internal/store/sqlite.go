package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/postal-enrich/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

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
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	destination TEXT NOT NULL,
	total       INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     TEXT,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS record_results (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	idx         INTEGER NOT NULL,
	record      TEXT NOT NULL,
	status      TEXT NOT NULL,
	cities      INTEGER NOT NULL DEFAULT 0,
	emails      INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	error_type  TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS city_cache (
	zip         TEXT PRIMARY KEY,
	cities      TEXT NOT NULL,
	resolved_at DATETIME NOT NULL,
	expires_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);
CREATE INDEX IF NOT EXISTS idx_record_results_run_id ON record_results(run_id, idx);
CREATE INDEX IF NOT EXISTS idx_city_cache_expires_at ON city_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, source, destination string, total int) (*model.Run, error) {
	id := uuid.New().String()
	now := s.now()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, destination, total, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, source, destination, total, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:          id,
		Source:      source,
		Destination: destination,
		Total:       total,
		Status:      model.RunStatusRunning,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error {
	var summaryJSON sql.NullString
	if summary != nil {
		b, err := json.Marshal(summary)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal summary")
		}
		summaryJSON = sql.NullString{String: string(b), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, updated_at = ? WHERE id = ?`,
		string(status), summaryJSON, s.now(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, destination, total, status, summary, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, source, destination, total, status, summary, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) RecordResult(ctx context.Context, res *model.RecordResult) error {
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = s.now()
	}
	recordJSON, err := json.Marshal(res.Record)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal record")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO record_results (id, run_id, idx, record, status, cities, emails, error, error_type, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.RunID, res.Index, string(recordJSON), string(res.Status),
		res.Cities, res.Emails, res.Error, res.ErrorType, res.DurationMs, res.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert record result for run %s", res.RunID)
}

func (s *SQLiteStore) ListResults(ctx context.Context, runID string) ([]model.RecordResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, idx, record, status, cities, emails, error, error_type, duration_ms, created_at
		 FROM record_results WHERE run_id = ? ORDER BY idx`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list results for run %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.RecordResult
	for rows.Next() {
		var (
			r          model.RecordResult
			recordJSON string
			status     string
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Index, &recordJSON, &status,
			&r.Cities, &r.Emails, &r.Error, &r.ErrorType, &r.DurationMs, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record result")
		}
		if err := json.Unmarshal([]byte(recordJSON), &r.Record); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal record")
		}
		r.Status = model.Status(status)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list results iterate")
}

func (s *SQLiteStore) GetCachedCities(ctx context.Context, zip string) (*model.CityCache, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT zip, cities, resolved_at, expires_at FROM city_cache WHERE zip = ? AND expires_at > ?`,
		zip, s.now(),
	)

	var cc model.CityCache
	var citiesJSON string
	err := row.Scan(&cc.ZIP, &citiesJSON, &cc.ResolvedAt, &cc.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached cities")
	}
	if err := json.Unmarshal([]byte(citiesJSON), &cc.Cities); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached cities")
	}
	return &cc, nil
}

func (s *SQLiteStore) SetCachedCities(ctx context.Context, zip string, cities []string, ttl time.Duration) error {
	now := s.now()
	citiesJSON, err := json.Marshal(cities)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal cities")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO city_cache (zip, cities, resolved_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (zip) DO UPDATE SET cities = excluded.cities, resolved_at = excluded.resolved_at, expires_at = excluded.expires_at`,
		zip, string(citiesJSON), now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached cities")
}

func (s *SQLiteStore) DeleteExpiredCities(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM city_cache WHERE expires_at <= ?`, s.now())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired cities")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var (
		r           model.Run
		status      string
		summaryJSON sql.NullString
	)
	err := row.Scan(&r.ID, &r.Source, &r.Destination, &r.Total, &status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Status = model.RunStatus(status)

	if summaryJSON.Valid {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal([]byte(summaryJSON.String), r.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
	}
	return &r, nil
}
