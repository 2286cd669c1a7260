package storage

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"roomfund/internal/cache"
)

// CachedStore keeps recent List snapshots in front of a slower backend.
// Concurrent misses for one collection share a single backend read, and
// every write drops the cached snapshot for its collection.
type CachedStore struct {
	next  RecordStore
	cache cache.Cache[[]Document]
	group singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
}

func NewCachedStore(next RecordStore, c cache.Cache[[]Document]) *CachedStore {
	return &CachedStore{
		next:        next,
		cache:       c,
		generations: make(map[string]uint64),
	}
}

func cacheKey(account string, kind Kind) string {
	return account + "/" + string(kind)
}

func (s *CachedStore) List(ctx context.Context, account string, kind Kind) ([]Document, error) {
	key := cacheKey(account, kind)
	if docs, ok := s.cache.Get(key); ok {
		return CloneDocuments(docs), nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		gen := s.generation(key)
		docs, err := s.next.List(ctx, account, kind)
		if err != nil {
			return nil, err
		}
		s.store(key, gen, docs)
		return docs, nil
	})
	if err != nil {
		return nil, err
	}
	return CloneDocuments(v.([]Document)), nil
}

func (s *CachedStore) Put(ctx context.Context, account string, kind Kind, doc Document) error {
	defer s.invalidate(cacheKey(account, kind))
	return s.next.Put(ctx, account, kind, doc)
}

func (s *CachedStore) Delete(ctx context.Context, account string, kind Kind, id string) error {
	defer s.invalidate(cacheKey(account, kind))
	return s.next.Delete(ctx, account, kind, id)
}

// Subscribe drops the cached snapshot on every delivery. A delivered
// snapshot may have been read before a later write, so it is never cached.
func (s *CachedStore) Subscribe(ctx context.Context, account string, kind Kind, fn func([]Document)) (Subscription, error) {
	key := cacheKey(account, kind)
	return s.next.Subscribe(ctx, account, kind, func(docs []Document) {
		s.invalidate(key)
		fn(docs)
	})
}

func (s *CachedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *CachedStore) Close() error {
	return s.next.Close()
}

func (s *CachedStore) generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[key]
}

// store caches docs unless a write happened since gen was read.
func (s *CachedStore) store(key string, gen uint64, docs []Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[key] != gen {
		return
	}
	s.cache.Set(key, docs)
}

func (s *CachedStore) invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[key]++
	s.cache.Delete(key)
}
