package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/okr-evaluator/internal/db"
	"github.com/sells-group/okr-evaluator/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot-path store operations.
var preparedStatements = map[string]string{
	"insert_objective":  `INSERT INTO okr_submissions (id, objective, clarity, focus, writing, score, feedback, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"insert_key_result": `INSERT INTO kr_submissions (id, okr_id, kr_definition, target_value, target_date, clarity, measurability, feasibility, score, feedback, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
	"get_objective":     `SELECT id, objective, clarity, focus, writing, score, feedback, created_at FROM okr_submissions WHERE id = $1`,
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

	// Prepare hot-path statements on each new connection.
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

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS okr_submissions (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	objective  TEXT NOT NULL,
	clarity    DOUBLE PRECISION NOT NULL,
	focus      DOUBLE PRECISION NOT NULL,
	writing    DOUBLE PRECISION NOT NULL,
	score      DOUBLE PRECISION NOT NULL,
	feedback   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS kr_submissions (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	okr_id        TEXT NOT NULL REFERENCES okr_submissions(id) ON DELETE CASCADE,
	kr_definition TEXT NOT NULL,
	target_value  TEXT NOT NULL DEFAULT '',
	target_date   TEXT NOT NULL DEFAULT '',
	clarity       DOUBLE PRECISION NOT NULL,
	measurability DOUBLE PRECISION NOT NULL,
	feasibility   DOUBLE PRECISION NOT NULL,
	score         DOUBLE PRECISION NOT NULL,
	feedback      TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_okr_submissions_created_at ON okr_submissions(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_kr_submissions_okr_id ON kr_submissions(okr_id);
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

func (s *PostgresStore) InsertObjectiveSubmission(ctx context.Context, sub model.ObjectiveSubmission) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO okr_submissions (id, objective, clarity, focus, writing, score, feedback, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sub.ID, sub.Objective, sub.Clarity, sub.Focus, sub.Writing, sub.Score, sub.Feedback, sub.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert objective submission")
}

func (s *PostgresStore) InsertKeyResultSubmission(ctx context.Context, sub model.KeyResultSubmission) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO kr_submissions (id, okr_id, kr_definition, target_value, target_date, clarity, measurability, feasibility, score, feedback, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		sub.ID, sub.ObjectiveID, sub.Definition, sub.TargetValue, sub.TargetDate,
		sub.Clarity, sub.Measurability, sub.Feasibility, sub.Score, sub.Feedback, sub.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert key result submission")
}

func (s *PostgresStore) GetObjectiveSubmission(ctx context.Context, id string) (*model.ObjectiveSubmission, []model.KeyResultSubmission, error) {
	var sub model.ObjectiveSubmission
	err := s.pool.QueryRow(ctx,
		`SELECT id, objective, clarity, focus, writing, score, feedback, created_at FROM okr_submissions WHERE id = $1`,
		id,
	).Scan(&sub.ID, &sub.Objective, &sub.Clarity, &sub.Focus, &sub.Writing, &sub.Score, &sub.Feedback, &sub.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, eris.Wrapf(err, "postgres: get objective submission %s", id)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, okr_id, kr_definition, target_value, target_date, clarity, measurability, feasibility, score, feedback, created_at FROM kr_submissions WHERE okr_id = $1 ORDER BY created_at`,
		id,
	)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "postgres: list key results for %s", id)
	}
	defer rows.Close()

	var krs []model.KeyResultSubmission
	for rows.Next() {
		var kr model.KeyResultSubmission
		if err := rows.Scan(&kr.ID, &kr.ObjectiveID, &kr.Definition, &kr.TargetValue, &kr.TargetDate,
			&kr.Clarity, &kr.Measurability, &kr.Feasibility, &kr.Score, &kr.Feedback, &kr.CreatedAt); err != nil {
			return nil, nil, eris.Wrap(err, "postgres: scan key result")
		}
		krs = append(krs, kr)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, eris.Wrap(err, "postgres: iterate key results")
	}
	return &sub, krs, nil
}

func (s *PostgresStore) ListObjectiveSubmissions(ctx context.Context, filter SubmissionFilter) ([]model.ObjectiveSubmission, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, objective, clarity, focus, writing, score, feedback, created_at FROM okr_submissions ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, filter.Offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list objective submissions")
	}
	defer rows.Close()

	var subs []model.ObjectiveSubmission
	for rows.Next() {
		var sub model.ObjectiveSubmission
		if err := rows.Scan(&sub.ID, &sub.Objective, &sub.Clarity, &sub.Focus, &sub.Writing,
			&sub.Score, &sub.Feedback, &sub.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan objective submission")
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate objective submissions")
	}
	return subs, nil
}

func (s *PostgresStore) DeleteObjectiveSubmission(ctx context.Context, id string) error {
	// Child kr_submissions rows go with the parent via ON DELETE CASCADE.
	tag, err := s.pool.Exec(ctx, `DELETE FROM okr_submissions WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete objective submission %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
