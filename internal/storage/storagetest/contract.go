// Package storagetest holds the behaviour every storage.RecordStore backend
// must share, run from each backend's own tests.
package storagetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"roomfund/internal/storage"
)

// Factory opens a fresh, empty store for one subtest.
type Factory func(t *testing.T) storage.RecordStore

func doc(id string, v any) storage.Document {
	body, _ := json.Marshal(v)
	return storage.Document{ID: id, Body: body}
}

func ids(docs []storage.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Run exercises the full RecordStore contract.
func Run(t *testing.T, open Factory) {
	t.Run("empty list", func(t *testing.T) {
		s := open(t)
		docs, err := s.List(context.Background(), "flat-1", storage.KindExpenses)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(docs) != 0 {
			t.Errorf("List() = %v, want empty", docs)
		}
	})

	t.Run("insertion order survives replace", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		for _, id := range []string{"b", "a", "c"} {
			if err := s.Put(ctx, "flat-1", storage.KindChores, doc(id, map[string]string{"title": id})); err != nil {
				t.Fatalf("Put(%s) error = %v", id, err)
			}
		}
		if err := s.Put(ctx, "flat-1", storage.KindChores, doc("a", map[string]string{"title": "updated"})); err != nil {
			t.Fatalf("Put(a) error = %v", err)
		}

		docs, err := s.List(ctx, "flat-1", storage.KindChores)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if got, want := ids(docs), []string{"b", "a", "c"}; !equalIDs(got, want) {
			t.Errorf("List() ids = %v, want %v", got, want)
		}
		var body map[string]string
		if err := json.Unmarshal(docs[1].Body, &body); err != nil || body["title"] != "updated" {
			t.Errorf("replaced body = %s (err %v)", docs[1].Body, err)
		}
	})

	t.Run("accounts and kinds are isolated", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if err := s.Put(ctx, "flat-1", storage.KindExpenses, doc("x", 1)); err != nil {
			t.Fatal(err)
		}
		if docs, _ := s.List(ctx, "flat-2", storage.KindExpenses); len(docs) != 0 {
			t.Errorf("other account sees %v", ids(docs))
		}
		if docs, _ := s.List(ctx, "flat-1", storage.KindChores); len(docs) != 0 {
			t.Errorf("other kind sees %v", ids(docs))
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if err := s.Put(ctx, "flat-1", storage.KindRoommates, doc("r1", 1)); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(ctx, "flat-1", storage.KindRoommates, "r1"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		err := s.Delete(ctx, "flat-1", storage.KindRoommates, "r1")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("second Delete() error = %v, want ErrNotFound", err)
		}
		if docs, _ := s.List(ctx, "flat-1", storage.KindRoommates); len(docs) != 0 {
			t.Errorf("List() after delete = %v", ids(docs))
		}
	})

	t.Run("rejects invalid keys", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if _, err := s.List(ctx, "../etc", storage.KindExpenses); !errors.Is(err, storage.ErrInvalidAccount) {
			t.Errorf("List(bad account) error = %v", err)
		}
		if _, err := s.List(ctx, "flat-1", storage.Kind("income")); !errors.Is(err, storage.ErrInvalidKind) {
			t.Errorf("List(bad kind) error = %v", err)
		}
		if err := s.Put(ctx, "flat-1", storage.KindExpenses, doc("", 1)); !errors.Is(err, storage.ErrInvalidID) {
			t.Errorf("Put(empty id) error = %v", err)
		}
	})

	t.Run("subscribe delivers snapshots", func(t *testing.T) {
		s := open(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := s.Put(ctx, "flat-1", storage.KindExpenses, doc("e1", 1)); err != nil {
			t.Fatal(err)
		}

		got := make(chan []string, 16)
		sub, err := s.Subscribe(ctx, "flat-1", storage.KindExpenses, func(docs []storage.Document) {
			got <- ids(docs)
		})
		if err != nil {
			t.Fatalf("Subscribe() error = %v", err)
		}
		defer sub.Cancel()

		waitFor(t, got, []string{"e1"})

		if err := s.Put(ctx, "flat-1", storage.KindExpenses, doc("e2", 2)); err != nil {
			t.Fatal(err)
		}
		waitFor(t, got, []string{"e1", "e2"})

		if err := s.Delete(ctx, "flat-1", storage.KindExpenses, "e1"); err != nil {
			t.Fatal(err)
		}
		waitFor(t, got, []string{"e2"})

		sub.Cancel()
		sub.Cancel()
		if err := s.Put(ctx, "flat-1", storage.KindExpenses, doc("e3", 3)); err != nil {
			t.Fatal(err)
		}
		select {
		case snap := <-got:
			if equalIDs(snap, []string{"e2", "e3"}) {
				t.Errorf("delivery after Cancel: %v", snap)
			}
		case <-time.After(200 * time.Millisecond):
		}
	})

	t.Run("ping", func(t *testing.T) {
		s := open(t)
		if err := s.Ping(context.Background()); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})
}

// waitFor drains snapshots until one matches want. Intermediate snapshots
// may be coalesced, so only the final state is asserted.
func waitFor(t *testing.T, got <-chan []string, want []string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	var last []string
	for {
		select {
		case snap := <-got:
			last = snap
			if equalIDs(snap, want) {
				return
			}
		case <-deadline:
			t.Fatalf("snapshot never reached %v, last %s", want, fmt.Sprint(last))
		}
	}
}
