// Package memory is the in-process record store. With a data directory it
// also keeps one JSON file per account, which survives restarts.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"roomfund/internal/storage"
)

type collection struct {
	order []string
	docs  map[string]json.RawMessage
}

type accountData map[storage.Kind]*collection

// fileFormat is the on-disk layout of <dir>/<account>.json.
type fileFormat map[storage.Kind][]storage.Document

type Store struct {
	mu       sync.RWMutex
	dir      string
	accounts map[string]accountData
	hub      *storage.Hub
	closed   bool
}

// New returns a store. An empty dir keeps everything in memory only.
func New(dir string) (*Store, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	return &Store{
		dir:      dir,
		accounts: make(map[string]accountData),
		hub:      storage.NewHub(),
	}, nil
}

func (s *Store) List(ctx context.Context, account string, kind storage.Kind) ([]storage.Document, error) {
	if err := storage.ValidateKey(account, kind); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	data, err := s.load(account)
	if err != nil {
		return nil, err
	}
	col := data[kind]
	if col == nil {
		return []storage.Document{}, nil
	}
	out := make([]storage.Document, 0, len(col.order))
	for _, id := range col.order {
		out = append(out, storage.Document{ID: id, Body: append(json.RawMessage(nil), col.docs[id]...)})
	}
	return out, nil
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
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return storage.ErrClosed
	}
	data, err := s.load(account)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	col := data[kind]
	if col == nil {
		col = &collection{docs: make(map[string]json.RawMessage)}
		data[kind] = col
	}
	if _, exists := col.docs[doc.ID]; !exists {
		col.order = append(col.order, doc.ID)
	}
	col.docs[doc.ID] = append(json.RawMessage(nil), doc.Body...)
	err = s.persist(account, data)
	s.mu.Unlock()

	s.hub.Notify(account, kind)
	return err
}

func (s *Store) Delete(ctx context.Context, account string, kind storage.Kind, id string) error {
	if err := storage.ValidateKey(account, kind); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return storage.ErrClosed
	}
	data, err := s.load(account)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	col := data[kind]
	if col == nil {
		s.mu.Unlock()
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	if _, exists := col.docs[id]; !exists {
		s.mu.Unlock()
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	delete(col.docs, id)
	for i, v := range col.order {
		if v == id {
			col.order = append(col.order[:i], col.order[i+1:]...)
			break
		}
	}
	err = s.persist(account, data)
	s.mu.Unlock()

	s.hub.Notify(account, kind)
	return err
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
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}
	return ctx.Err()
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.hub.Close()
	return nil
}

// load returns the account's data, reading its file on first use.
// Callers hold s.mu.
func (s *Store) load(account string) (accountData, error) {
	if data, ok := s.accounts[account]; ok {
		return data, nil
	}
	data := make(accountData)
	if s.dir != "" {
		raw, err := os.ReadFile(s.path(account))
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read account file: %w", err)
		default:
			var file fileFormat
			if err := json.Unmarshal(raw, &file); err != nil {
				return nil, fmt.Errorf("parse account file %s: %w", s.path(account), err)
			}
			for kind, docs := range file {
				col := &collection{docs: make(map[string]json.RawMessage, len(docs))}
				for _, d := range docs {
					if _, dup := col.docs[d.ID]; !dup {
						col.order = append(col.order, d.ID)
					}
					col.docs[d.ID] = d.Body
				}
				data[kind] = col
			}
		}
	}
	s.accounts[account] = data
	return data, nil
}

// persist rewrites the account file atomically. Callers hold s.mu.
func (s *Store) persist(account string, data accountData) error {
	if s.dir == "" {
		return nil
	}
	file := make(fileFormat, len(data))
	for kind, col := range data {
		docs := make([]storage.Document, 0, len(col.order))
		for _, id := range col.order {
			docs = append(docs, storage.Document{ID: id, Body: col.docs[id]})
		}
		file[kind] = docs
	}
	raw, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode account file: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, account+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(account)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace account file: %w", err)
	}
	return nil
}

func (s *Store) path(account string) string {
	return filepath.Join(s.dir, account+".json")
}
