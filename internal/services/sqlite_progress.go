package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"mathler-backend/internal/models"

	_ "modernc.org/sqlite"
)

const progressSchema = `
CREATE TABLE IF NOT EXISTS user_progress (
	user_id    TEXT PRIMARY KEY,
	revision   INTEGER NOT NULL,
	payload    TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteProgressStore keeps progress records as JSON documents, one row per
// user, with the revision mirrored in its own column for conditional updates.
type SQLiteProgressStore struct {
	db *sql.DB
}

func OpenSQLiteProgressStore(ctx context.Context, path string) (*SQLiteProgressStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, progressSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create progress table: %w", err)
	}

	return &SQLiteProgressStore{db: db}, nil
}

func (s *SQLiteProgressStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteProgressStore) LoadProgress(ctx context.Context, userID string) (*models.Progress, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM user_progress WHERE user_id = ?`, userID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	var p models.Progress
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	p.Normalize()
	return &p, nil
}

func (s *SQLiteProgressStore) SaveProgress(ctx context.Context, userID string, p *models.Progress) error {
	expected := p.Revision
	next := p.Clone()
	next.Revision = expected + 1

	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	now := time.Now().UTC().UnixMilli()

	var res sql.Result
	if expected == 0 {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO user_progress (user_id, revision, payload, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(user_id) DO NOTHING`,
			userID, next.Revision, string(payload), now)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE user_progress SET revision = ?, payload = ?, updated_at = ?
			 WHERE user_id = ? AND revision = ?`,
			next.Revision, string(payload), now, userID, expected)
	}
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	if n == 0 {
		return ErrProgressConflict
	}

	p.Revision = next.Revision
	return nil
}

func (s *SQLiteProgressStore) DeleteProgress(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_progress WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}
