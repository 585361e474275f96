// Package journal keeps a per-machine history of deployment outcomes in a
// SQLite database. Recording is best effort: the deployment itself never
// fails because the journal could not be written.
package journal

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/landfall-sh/landfall/pkg/errors"
)

const (
	createStmt = `
CREATE TABLE IF NOT EXISTS deployments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project TEXT NOT NULL,
    destination TEXT NOT NULL,
    archive_type TEXT,
    digest TEXT,
    files INTEGER NOT NULL DEFAULT 0,
    dirs INTEGER NOT NULL DEFAULT 0,
    links INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    error TEXT,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deployments_project ON deployments(project);
CREATE INDEX IF NOT EXISTS idx_deployments_started_at ON deployments(started_at);`

	insertStmt = `INSERT INTO deployments(project, destination, archive_type, digest, files, dirs, links, status, error, started_at, finished_at) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectStmt = `SELECT id, project, destination, archive_type, digest, files, dirs, links, status, error, started_at, finished_at FROM deployments`

	// DefaultLimit caps Recent queries that pass no explicit limit.
	DefaultLimit = 20

	openTimeout = 5 * time.Second
)

// Status values recorded for a deployment.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Record is one deployment outcome.
type Record struct {
	ID          int64
	Project     string
	Destination string
	ArchiveType string

	// Digest is the staged artifact's sha256 in "sha256:<hex>" form.
	Digest string

	Files      int
	Dirs       int
	Links      int
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Journal persists deployment records to an on-disk SQLite database.
type Journal struct {
	db     *sql.DB
	insert *sql.Stmt
}

// Open opens the journal database at path, creating the file, its parent
// directories and the schema as needed. The database is kept on a single
// connection; deployments are serialized per project anyway.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, errors.ErrIO, "cannot create journal directory for %s", path)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrIO, "cannot open journal %s", path)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()

	if _, err := db.ExecContext(ctx, createStmt); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, errors.ErrIO, "cannot initialize journal %s", path)
	}
	insert, err := db.PrepareContext(ctx, insertStmt)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrIO, "cannot prepare journal insert")
	}

	return &Journal{db: db, insert: insert}, nil
}

// Close releases the database. Safe on a nil journal.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	var insertErr, dbErr error
	if j.insert != nil {
		insertErr = j.insert.Close()
	}
	if j.db != nil {
		dbErr = j.db.Close()
	}
	if insertErr != nil {
		return errors.Wrap(insertErr, errors.ErrIO, "cannot close journal")
	}
	if dbErr != nil {
		return errors.Wrap(dbErr, errors.ErrIO, "cannot close journal")
	}
	return nil
}

// Append stores one deployment record. A nil journal is a no-op so callers
// that failed to open the journal can still call it unconditionally.
func (j *Journal) Append(ctx context.Context, rec Record) error {
	if j == nil {
		return nil
	}
	started := rec.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	finished := rec.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	_, err := j.insert.ExecContext(
		ctx,
		rec.Project,
		rec.Destination,
		rec.ArchiveType,
		rec.Digest,
		rec.Files,
		rec.Dirs,
		rec.Links,
		rec.Status,
		rec.Error,
		started.UTC().Format(time.RFC3339Nano),
		finished.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot record deployment of %s", rec.Project)
	}
	return nil
}

// Recent returns up to limit records, newest first. When project is
// non-empty only that project's history is returned. A limit of zero or
// less means DefaultLimit.
func (j *Journal) Recent(ctx context.Context, project string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := selectStmt
	args := []interface{}{}
	if project != "" {
		query += " WHERE project = ?"
		args = append(args, project)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrIO, "cannot query journal")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec               Record
			started, finished string
		)
		if err := rows.Scan(&rec.ID, &rec.Project, &rec.Destination, &rec.ArchiveType, &rec.Digest, &rec.Files, &rec.Dirs, &rec.Links, &rec.Status, &rec.Error, &started, &finished); err != nil {
			return nil, errors.Wrap(err, errors.ErrIO, "cannot read journal row")
		}
		rec.StartedAt = parseTime(started)
		rec.FinishedAt = parseTime(finished)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrIO, "cannot read journal rows")
	}
	return records, nil
}

// parseTime is lenient: a timestamp written by another version or edited by
// hand degrades to the zero time instead of failing the whole query.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
