// Package sqlite stores records in a single SQLite file through the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"roomfund/internal/storage"
)

const (
	listQuery = `SELECT id, body FROM documents WHERE account = ? AND kind = ? ORDER BY seq`

	upsertQuery = `
INSERT INTO documents (account, kind, id, seq, body, updated_at)
VALUES (?, ?, ?,
        COALESCE((SELECT MAX(seq) FROM documents WHERE account = ? AND kind = ?), 0) + 1,
        ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
ON CONFLICT (account, kind, id) DO UPDATE SET
    body = excluded.body,
    updated_at = excluded.updated_at`

	deleteQuery = `DELETE FROM documents WHERE account = ? AND kind = ? AND id = ?`
)

type Store struct {
	db     *sql.DB
	hub    *storage.Hub
	closed atomic.Bool
}

// Open creates the database file if needed and applies migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

	if err := RunMigrations(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("SQLite record store ready", "path", dbPath)
	return &Store{db: db, hub: storage.NewHub()}, nil
}

func (s *Store) List(ctx context.Context, account string, kind storage.Kind) ([]storage.Document, error) {
	if err := storage.ValidateKey(account, kind); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, storage.ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, listQuery, account, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	docs := []storage.Document{}
	for rows.Next() {
		var (
			id   string
			body string
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		docs = append(docs, storage.Document{ID: id, Body: json.RawMessage(body)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", kind, err)
	}
	return docs, nil
}

func (s *Store) Put(ctx context.Context, account string, kind storage.Kind, doc storage.Document) error {
	if err := storage.ValidateKey(account, kind); err != nil {
		return err
	}
	if doc.ID == "" {
		return storage.ErrInvalidID
	}
	if !json.Valid(doc.Body) {
		return fmt.Errorf("document %s: body is not valid JSON", doc.ID)
	}
	if s.closed.Load() {
		return storage.ErrClosed
	}

	if _, err := s.db.ExecContext(ctx, upsertQuery,
		account, string(kind), doc.ID, account, string(kind), string(doc.Body)); err != nil {
		return fmt.Errorf("put %s %s: %w", kind, doc.ID, err)
	}
	s.hub.Notify(account, kind)
	return nil
}

func (s *Store) Delete(ctx context.Context, account string, kind storage.Kind, id string) error {
	if err := storage.ValidateKey(account, kind); err != nil {
		return err
	}
	if s.closed.Load() {
		return storage.ErrClosed
	}

	res, err := s.db.ExecContext(ctx, deleteQuery, account, string(kind), id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	s.hub.Notify(account, kind)
	return nil
}

func (s *Store) Subscribe(ctx context.Context, account string, kind storage.Kind, fn func([]storage.Document)) (storage.Subscription, error) {
	if err := storage.ValidateKey(account, kind); err != nil {
		return nil, err
	}
	return s.hub.Subscribe(ctx, account, kind, func(ctx context.Context) ([]storage.Document, error) {
		return s.List(ctx, account, kind)
	}, fn)
}

func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.hub.Close()
	return s.db.Close()
}
