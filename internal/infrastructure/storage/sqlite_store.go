package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // SQLite driver

	"Auditorium/internal/domain"
	"Auditorium/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS log_files (
	path       TEXT NOT NULL,
	branch     TEXT NOT NULL,
	content    TEXT NOT NULL,
	version    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (path, branch)
);
CREATE TABLE IF NOT EXISTS log_commits (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	path       TEXT NOT NULL,
	branch     TEXT NOT NULL,
	version    TEXT NOT NULL,
	parent     TEXT NOT NULL DEFAULT '',
	message    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);`

// SQLiteStore is a local versioned file store: every write gets a new version
// token and is recorded in log_commits.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ ports.VersionedStore = (*SQLiteStore)(nil)

// OpenSQLiteStore opens (and migrates) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Read returns the current content and version token.
func (s *SQLiteStore) Read(ctx context.Context, path, branch string) (string, string, error) {
	query, args, err := sq.Select("content", "version").
		From("log_files").
		Where(sq.Eq{"path": path, "branch": branch}).
		ToSql()
	if err != nil {
		return "", "", fmt.Errorf("build read query: %w", err)
	}

	var content, version string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&content, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", domain.ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("read %s@%s: %w", path, branch, err)
	}
	return content, version, nil
}

// Create inserts a new file; an existing file is a version conflict.
func (s *SQLiteStore) Create(ctx context.Context, path, branch, message, content string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		version := nextVersion("", content)
		now := s.now().UTC()

		query, args, err := sq.Insert("log_files").
			Columns("path", "branch", "content", "version", "updated_at").
			Values(path, branch, content, version, now).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("create %s@%s: %w", path, branch, domain.ErrVersionConflict)
			}
			return fmt.Errorf("create %s@%s: %w", path, branch, err)
		}

		return recordCommit(ctx, tx, path, branch, version, "", message, now)
	})
}

// Update writes content only when the stored version equals version.
func (s *SQLiteStore) Update(ctx context.Context, path, branch, message, content, version string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		next := nextVersion(version, content)
		now := s.now().UTC()

		query, args, err := sq.Update("log_files").
			Set("content", content).
			Set("version", next).
			Set("updated_at", now).
			Where(sq.Eq{"path": path, "branch": branch, "version": version}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update %s@%s: %w", path, branch, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update %s@%s: %w", path, branch, err)
		}
		if affected == 0 {
			return fmt.Errorf("update %s@%s at %s: %w", path, branch, version, domain.ErrVersionConflict)
		}

		return recordCommit(ctx, tx, path, branch, next, version, message, now)
	})
}

// History lists commit messages for a file, oldest first.
func (s *SQLiteStore) History(ctx context.Context, path, branch string) ([]string, error) {
	query, args, err := sq.Select("message").
		From("log_commits").
		Where(sq.Eq{"path": path, "branch": branch}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	var messages []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return messages, nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func recordCommit(ctx context.Context, tx *sql.Tx, path, branch, version, parent, message string, at time.Time) error {
	query, args, err := sq.Insert("log_commits").
		Columns("path", "branch", "version", "parent", "message", "created_at").
		Values(path, branch, version, parent, message, at).
		ToSql()
	if err != nil {
		return fmt.Errorf("build commit insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record commit: %w", err)
	}
	return nil
}

// nextVersion chains the parent token into the new one so equal contents
// written at different points in history get different tokens.
func nextVersion(parent, content string) string {
	sum := sha256.Sum256([]byte(parent + "\x00" + content))
	return hex.EncodeToString(sum[:20])
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
