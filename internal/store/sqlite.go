package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// SQLiteStore shares sessions between processes through one database file.
type SQLiteStore struct {
	DB     *sql.DB
	ttl    time.Duration
	now    func() time.Time
	closed atomic.Bool
}

func NewSQLiteStore(dbPath string, ttl time.Duration) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	// One writer at a time; concurrent connections only earn SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	queries := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			trace_id TEXT PRIMARY KEY,
			sender TEXT NOT NULL,
			snapshot TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS sessions_created_at ON sessions (created_at);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create sessions table: %w", err)
		}
	}
	return &SQLiteStore{DB: db, ttl: ttl, now: time.Now}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, sess Session) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if _, err := s.Prune(ctx, s.now()); err != nil {
		return err
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now()
	}
	snapshot, err := json.Marshal(sess.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	query := `INSERT OR REPLACE INTO sessions (trace_id, sender, snapshot, created_at) VALUES (?, ?, ?, ?)`
	if _, err := s.DB.ExecContext(ctx, query, sess.TraceID, sess.Sender, string(snapshot), sess.CreatedAt.UnixNano()); err != nil {
		return fmt.Errorf("failed to store session %s: %w", sess.TraceID, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, traceID string) (Session, bool, error) {
	if s.closed.Load() {
		return Session{}, false, ErrClosed
	}
	return scanSession(s.DB.QueryRowContext(ctx,
		`SELECT trace_id, sender, snapshot, created_at FROM sessions WHERE trace_id = ?`, traceID))
}

func (s *SQLiteStore) Take(ctx context.Context, traceID string) (Session, bool, error) {
	if s.closed.Load() {
		return Session{}, false, ErrClosed
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, false, fmt.Errorf("failed to begin take: %w", err)
	}
	defer tx.Rollback()

	sess, ok, err := scanSession(tx.QueryRowContext(ctx,
		`SELECT trace_id, sender, snapshot, created_at FROM sessions WHERE trace_id = ?`, traceID))
	if err != nil || !ok {
		return sess, ok, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE trace_id = ?`, traceID); err != nil {
		return Session{}, false, fmt.Errorf("failed to delete session %s: %w", traceID, err)
	}
	if err := tx.Commit(); err != nil {
		return Session{}, false, fmt.Errorf("failed to commit take: %w", err)
	}
	return sess, true, nil
}

func scanSession(row *sql.Row) (Session, bool, error) {
	var (
		sess     Session
		snapshot string
		created  int64
	)
	if err := row.Scan(&sess.TraceID, &sess.Sender, &snapshot, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("failed to read session: %w", err)
	}
	if err := json.Unmarshal([]byte(snapshot), &sess.Snapshot); err != nil {
		return Session{}, false, fmt.Errorf("failed to decode snapshot of %s: %w", sess.TraceID, err)
	}
	sess.CreatedAt = time.Unix(0, created)
	return sess, true, nil
}

func (s *SQLiteStore) Prune(ctx context.Context, now time.Time) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE created_at < ?`, now.Add(-s.ttl).UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.DB.Close()
}
