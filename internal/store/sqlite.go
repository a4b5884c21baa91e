package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/troy3977-blip/mcr-ai-insights/internal/model"
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
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	start_year INTEGER NOT NULL,
	end_year   INTEGER NOT NULL,
	rows       INTEGER NOT NULL,
	artifacts  TEXT NOT NULL DEFAULT '',
	audit      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordRun inserts a run row. A zero ID or CreatedAt is filled in.
func (s *SQLiteStore) RecordRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	var auditJSON sql.NullString
	if run.Audit != nil {
		data, err := json.Marshal(run.Audit)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal audit report")
		}
		auditJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, start_year, end_year, rows, artifacts, audit, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Kind), run.StartYear, run.EndYear, run.Rows,
		strings.Join(run.Artifacts, ","), auditJSON, run.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert run")
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, start_year, end_year, rows, artifacts, audit, created_at
		 FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query runs")
	}
	defer rows.Close() //nolint:errcheck

	var out []Run
	for rows.Next() {
		var (
			r         Run
			kind      string
			artifacts string
			auditJSON sql.NullString
		)
		if err := rows.Scan(&r.ID, &kind, &r.StartYear, &r.EndYear, &r.Rows, &artifacts, &auditJSON, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Kind = RunKind(kind)
		if artifacts != "" {
			r.Artifacts = strings.Split(artifacts, ",")
		}
		if auditJSON.Valid {
			var report model.AuditReport
			if err := json.Unmarshal([]byte(auditJSON.String), &report); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal audit report")
			}
			r.Audit = &report
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}
