package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/postal-enrich/internal/model"
)

// Pool is the subset of *pgxpool.Pool used by the store.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool, for teams sharing one ledger
// and city cache.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

var _ Store = (*PostgresStore)(nil)

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"insert_run":         `INSERT INTO runs (id, source, destination, total, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"finish_run":         `UPDATE runs SET status = $1, summary = $2, updated_at = $3 WHERE id = $4`,
	"insert_result":      `INSERT INTO record_results (id, run_id, idx, record, status, cities, emails, error, error_type, duration_ms, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
	"get_cached_cities":  `SELECT zip, cities, resolved_at, expires_at FROM city_cache WHERE zip = $1 AND expires_at > now()`,
	"set_cached_cities":  `INSERT INTO city_cache (zip, cities, resolved_at, expires_at) VALUES ($1, $2, $3, $4) ON CONFLICT (zip) DO UPDATE SET cities = $2, resolved_at = $3, expires_at = $4`,
	"delete_expired_zip": `DELETE FROM city_cache WHERE expires_at <= now()`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
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

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source      TEXT NOT NULL,
	destination TEXT NOT NULL,
	total       INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS record_results (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	idx         INTEGER NOT NULL,
	record      JSONB NOT NULL,
	status      TEXT NOT NULL,
	cities      INTEGER NOT NULL DEFAULT 0,
	emails      INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	error_type  TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS city_cache (
	zip         TEXT PRIMARY KEY,
	cities      JSONB NOT NULL,
	resolved_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);
CREATE INDEX IF NOT EXISTS idx_record_results_run_id ON record_results(run_id, idx);
CREATE INDEX IF NOT EXISTS idx_city_cache_expires_at ON city_cache(expires_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, source, destination string, total int) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, source, destination, total, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, source, destination, total, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
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

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error {
	var summaryJSON []byte
	if summary != nil {
		b, err := json.Marshal(summary)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal summary")
		}
		summaryJSON = b
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, summary = $2, updated_at = $3 WHERE id = $4`,
		string(status), summaryJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

const runColumns = `id, source, destination, total, status, summary, created_at, updated_at`

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanPgRun(s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, runID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("postgres: get run %s: run not found", runID)
		}
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Source != "" {
		query += fmt.Sprintf(` AND source = $%d`, argIdx)
		args = append(args, filter.Source)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var (
		r           model.Run
		status      string
		summaryJSON []byte
	)
	if err := row.Scan(&r.ID, &r.Source, &r.Destination, &r.Total, &status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	if len(summaryJSON) > 0 {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal(summaryJSON, r.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary")
		}
	}
	return &r, nil
}

func (s *PostgresStore) RecordResult(ctx context.Context, res *model.RecordResult) error {
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	recordJSON, err := json.Marshal(res.Record)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal record")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO record_results (id, run_id, idx, record, status, cities, emails, error, error_type, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		res.ID, res.RunID, res.Index, recordJSON, string(res.Status),
		res.Cities, res.Emails, res.Error, res.ErrorType, res.DurationMs, res.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert record result for run %s", res.RunID)
}

func (s *PostgresStore) ListResults(ctx context.Context, runID string) ([]model.RecordResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, idx, record, status, cities, emails, error, error_type, duration_ms, created_at
		 FROM record_results WHERE run_id = $1 ORDER BY idx`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list results for run %s", runID)
	}
	defer rows.Close()

	var out []model.RecordResult
	for rows.Next() {
		var (
			r          model.RecordResult
			recordJSON []byte
			status     string
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Index, &recordJSON, &status,
			&r.Cities, &r.Emails, &r.Error, &r.ErrorType, &r.DurationMs, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record result")
		}
		if err := json.Unmarshal(recordJSON, &r.Record); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal record")
		}
		r.Status = model.Status(status)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list results iterate")
}

func (s *PostgresStore) GetCachedCities(ctx context.Context, zip string) (*model.CityCache, error) {
	var cc model.CityCache
	var citiesJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT zip, cities, resolved_at, expires_at FROM city_cache WHERE zip = $1 AND expires_at > now()`,
		zip,
	).Scan(&cc.ZIP, &citiesJSON, &cc.ResolvedAt, &cc.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get cached cities")
	}
	if err := json.Unmarshal(citiesJSON, &cc.Cities); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached cities")
	}
	return &cc, nil
}

func (s *PostgresStore) SetCachedCities(ctx context.Context, zip string, cities []string, ttl time.Duration) error {
	now := time.Now().UTC()
	citiesJSON, err := json.Marshal(cities)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal cities")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO city_cache (zip, cities, resolved_at, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (zip) DO UPDATE SET cities = $2, resolved_at = $3, expires_at = $4`,
		zip, citiesJSON, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached cities")
}

func (s *PostgresStore) DeleteExpiredCities(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM city_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired cities")
	}
	return int(tag.RowsAffected()), nil
}
