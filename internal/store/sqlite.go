package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/okr-evaluator/internal/model"
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
CREATE TABLE IF NOT EXISTS okr_submissions (
	id         TEXT PRIMARY KEY,
	objective  TEXT NOT NULL,
	clarity    REAL NOT NULL,
	focus      REAL NOT NULL,
	writing    REAL NOT NULL,
	score      REAL NOT NULL,
	feedback   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS kr_submissions (
	id            TEXT PRIMARY KEY,
	okr_id        TEXT NOT NULL REFERENCES okr_submissions(id) ON DELETE CASCADE,
	kr_definition TEXT NOT NULL,
	target_value  TEXT NOT NULL DEFAULT '',
	target_date   TEXT NOT NULL DEFAULT '',
	clarity       REAL NOT NULL,
	measurability REAL NOT NULL,
	feasibility   REAL NOT NULL,
	score         REAL NOT NULL,
	feedback      TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_okr_submissions_created_at ON okr_submissions(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_kr_submissions_okr_id ON kr_submissions(okr_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertObjectiveSubmission(ctx context.Context, sub model.ObjectiveSubmission) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO okr_submissions (id, objective, clarity, focus, writing, score, feedback, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.Objective, sub.Clarity, sub.Focus, sub.Writing, sub.Score, sub.Feedback, sub.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert objective submission")
}

func (s *SQLiteStore) InsertKeyResultSubmission(ctx context.Context, sub model.KeyResultSubmission) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kr_submissions (id, okr_id, kr_definition, target_value, target_date, clarity, measurability, feasibility, score, feedback, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.ObjectiveID, sub.Definition, sub.TargetValue, sub.TargetDate,
		sub.Clarity, sub.Measurability, sub.Feasibility, sub.Score, sub.Feedback, sub.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert key result submission")
}

func (s *SQLiteStore) GetObjectiveSubmission(ctx context.Context, id string) (*model.ObjectiveSubmission, []model.KeyResultSubmission, error) {
	var sub model.ObjectiveSubmission
	err := s.db.QueryRowContext(ctx,
		`SELECT id, objective, clarity, focus, writing, score, feedback, created_at FROM okr_submissions WHERE id = ?`,
		id,
	).Scan(&sub.ID, &sub.Objective, &sub.Clarity, &sub.Focus, &sub.Writing, &sub.Score, &sub.Feedback, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, eris.Wrapf(err, "sqlite: get objective submission %s", id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, okr_id, kr_definition, target_value, target_date, clarity, measurability, feasibility, score, feedback, created_at FROM kr_submissions WHERE okr_id = ? ORDER BY created_at`,
		id,
	)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "sqlite: list key results for %s", id)
	}
	defer rows.Close()

	var krs []model.KeyResultSubmission
	for rows.Next() {
		var kr model.KeyResultSubmission
		if err := rows.Scan(&kr.ID, &kr.ObjectiveID, &kr.Definition, &kr.TargetValue, &kr.TargetDate,
			&kr.Clarity, &kr.Measurability, &kr.Feasibility, &kr.Score, &kr.Feedback, &kr.CreatedAt); err != nil {
			return nil, nil, eris.Wrap(err, "sqlite: scan key result")
		}
		krs = append(krs, kr)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: iterate key results")
	}
	return &sub, krs, nil
}

func (s *SQLiteStore) ListObjectiveSubmissions(ctx context.Context, filter SubmissionFilter) ([]model.ObjectiveSubmission, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, objective, clarity, focus, writing, score, feedback, created_at FROM okr_submissions ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, filter.Offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list objective submissions")
	}
	defer rows.Close()

	var subs []model.ObjectiveSubmission
	for rows.Next() {
		var sub model.ObjectiveSubmission
		if err := rows.Scan(&sub.ID, &sub.Objective, &sub.Clarity, &sub.Focus, &sub.Writing,
			&sub.Score, &sub.Feedback, &sub.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan objective submission")
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate objective submissions")
	}
	return subs, nil
}

func (s *SQLiteStore) DeleteObjectiveSubmission(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM okr_submissions WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete objective submission %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
