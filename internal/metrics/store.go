package metrics

import (
	"context"
	"time"

	"roomfund/internal/storage"
)

type instrumentedStore struct {
	next    storage.RecordStore
	metrics *Metrics
}

// InstrumentStore wraps a record store with operation counters and timings.
func (m *Metrics) InstrumentStore(next storage.RecordStore) storage.RecordStore {
	return &instrumentedStore{next: next, metrics: m}
}

func (s *instrumentedStore) List(ctx context.Context, account string, kind storage.Kind) ([]storage.Document, error) {
	start := time.Now()
	docs, err := s.next.List(ctx, account, kind)
	s.metrics.observeStore("list", string(kind), start, err)
	return docs, err
}

func (s *instrumentedStore) Put(ctx context.Context, account string, kind storage.Kind, doc storage.Document) error {
	start := time.Now()
	err := s.next.Put(ctx, account, kind, doc)
	s.metrics.observeStore("put", string(kind), start, err)
	return err
}

func (s *instrumentedStore) Delete(ctx context.Context, account string, kind storage.Kind, id string) error {
	start := time.Now()
	err := s.next.Delete(ctx, account, kind, id)
	s.metrics.observeStore("delete", string(kind), start, err)
	return err
}

func (s *instrumentedStore) Subscribe(ctx context.Context, account string, kind storage.Kind, fn func([]storage.Document)) (storage.Subscription, error) {
	return s.next.Subscribe(ctx, account, kind, fn)
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *instrumentedStore) Close() error {
	return s.next.Close()
}
