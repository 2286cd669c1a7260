// Package postgres stores records as JSONB rows. Writes fire a
// pg_notify trigger, so subscribers in every process see each change.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"roomfund/internal/storage"
)

const (
	notifyChannel = "roomfund_documents"

	listQuery = `SELECT id, body FROM documents WHERE account = $1 AND kind = $2 ORDER BY seq`

	upsertQuery = `
INSERT INTO documents (account, kind, id, body, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (account, kind, id) DO UPDATE SET
    body = EXCLUDED.body,
    updated_at = EXCLUDED.updated_at`

	deleteQuery = `DELETE FROM documents WHERE account = $1 AND kind = $2 AND id = $3`
)

type Store struct {
	pool   *pgxpool.Pool
	hub    *storage.Hub
	logger *slog.Logger
	cancel context.CancelFunc
	done   chan struct{}
	closed atomic.Bool
}

// Open migrates the schema, connects the pool and starts the LISTEN loop.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	s := &Store{
		pool:   pool,
		hub:    storage.NewHub(),
		logger: slog.Default().With("component", "storage"),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.listen(listenCtx)
	return s, nil
}

func (s *Store) List(ctx context.Context, account string, kind storage.Kind) ([]storage.Document, error) {
	if err := storage.ValidateKey(account, kind); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, storage.ErrClosed
	}

	rows, err := s.pool.Query(ctx, listQuery, account, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	docs := []storage.Document{}
	for rows.Next() {
		var (
			id   string
			body []byte
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

	if _, err := s.pool.Exec(ctx, upsertQuery, account, string(kind), doc.ID, string(doc.Body)); err != nil {
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

	tag, err := s.pool.Exec(ctx, deleteQuery, account, string(kind), id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	if tag.RowsAffected() == 0 {
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
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cancel()
	<-s.done
	s.hub.Close()
	s.pool.Close()
	return nil
}

// listen holds one pooled connection on LISTEN and forwards notifications
// to the hub, reconnecting with backoff when the connection drops.
func (s *Store) listen(ctx context.Context) {
	defer close(s.done)
	attempt := 0
	for {
		err := s.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		delay := backoff(attempt)
		attempt++
		s.logger.Warn("Postgres listener interrupted, retrying",
			"error", err,
			"retry_in", delay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (s *Store) listenOnce(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.logger.Debug("Postgres listener started", "channel", notifyChannel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		account, kind, err := parsePayload(n.Payload)
		if err != nil {
			s.logger.Warn("Ignoring malformed change notification", "payload", n.Payload, "error", err)
			continue
		}
		s.hub.Notify(account, kind)
	}
}

func parsePayload(payload string) (string, storage.Kind, error) {
	account, kind, ok := strings.Cut(payload, "/")
	if !ok {
		return "", "", errors.New("missing separator")
	}
	if err := storage.ValidateKey(account, storage.Kind(kind)); err != nil {
		return "", "", err
	}
	return account, storage.Kind(kind), nil
}

func backoff(attempt int) time.Duration {
	if attempt > 5 {
		attempt = 5
	}
	return time.Second << attempt
}
