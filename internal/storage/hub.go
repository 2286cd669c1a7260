package storage

import (
	"context"
	"log/slog"
	"sync"
)

// Loader reads the current snapshot for a subscription.
type Loader func(ctx context.Context) ([]Document, error)

// Hub fans change signals out to subscribers. A signal carries no data: each
// subscriber reloads its collection, so a burst of writes collapses into one
// delivery of the latest state.
type Hub struct {
	mu     sync.Mutex
	subs   map[hubKey]map[*hubSubscription]struct{}
	closed bool
}

type hubKey struct {
	account string
	kind    Kind
}

type hubSubscription struct {
	hub     *Hub
	key     hubKey
	load    Loader
	fn      func([]Document)
	changed chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewHub() *Hub {
	return &Hub{subs: make(map[hubKey]map[*hubSubscription]struct{})}
}

// Subscribe registers fn for (account, kind). The first delivery happens
// right away; later ones follow every Notify for the same key.
func (h *Hub) Subscribe(ctx context.Context, account string, kind Kind, load Loader, fn func([]Document)) (Subscription, error) {
	sub := &hubSubscription{
		hub:     h,
		key:     hubKey{account, kind},
		load:    load,
		fn:      fn,
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	set, ok := h.subs[sub.key]
	if !ok {
		set = make(map[*hubSubscription]struct{})
		h.subs[sub.key] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	sub.signal()
	go sub.run(ctx)
	return sub, nil
}

// Notify tells every subscriber of (account, kind) that the collection changed.
func (h *Hub) Notify(account string, kind Kind) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[hubKey{account, kind}] {
		sub.signal()
	}
}

// Subscribers returns the number of live subscriptions for (account, kind).
func (h *Hub) Subscribers(account string, kind Kind) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[hubKey{account, kind}])
}

// Close cancels every subscription and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*hubSubscription
	for _, set := range h.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range all {
		sub.Cancel()
	}
}

func (h *Hub) remove(sub *hubSubscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[sub.key]
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.key)
	}
}

func (s *hubSubscription) signal() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *hubSubscription) Cancel() {
	s.once.Do(func() {
		close(s.done)
		s.hub.remove(s)
	})
}

func (s *hubSubscription) run(ctx context.Context) {
	defer s.Cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-s.changed:
			docs, err := s.load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.WarnContext(ctx, "Subscription reload failed",
					"account", s.key.account,
					"kind", s.key.kind,
					"error", err)
				continue
			}
			select {
			case <-s.done:
				return
			default:
			}
			s.fn(docs)
		}
	}
}
