// Package storage defines the record store every backend implements: a
// per-account set of JSON documents grouped by kind, with push delivery of
// full snapshots to subscribers.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// Kind names a collection of records inside an account.
type Kind string

const (
	KindExpenses  Kind = "expenses"
	KindChores    Kind = "chores"
	KindRoommates Kind = "roommates"
	KindBudget    Kind = "budget"
)

// Kinds lists every collection an account owns.
func Kinds() []Kind {
	return []Kind{KindExpenses, KindChores, KindRoommates, KindBudget}
}

// Valid reports whether k is a known collection.
func (k Kind) Valid() bool {
	switch k {
	case KindExpenses, KindChores, KindRoommates, KindBudget:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	return string(k)
}

var (
	ErrNotFound       = errors.New("record not found")
	ErrInvalidKind    = errors.New("invalid record kind")
	ErrInvalidAccount = errors.New("invalid account id")
	ErrInvalidID      = errors.New("invalid record id")
	ErrClosed         = errors.New("record store closed")
)

var accountPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateKey checks the (account, kind) pair every operation is addressed by.
// Account ids double as file names in the memory backend, so they are kept
// to a conservative alphabet.
func ValidateKey(account string, kind Kind) error {
	if !accountPattern.MatchString(account) {
		return fmt.Errorf("%w: %q", ErrInvalidAccount, account)
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	return nil
}

// Document is one stored record. Body is the record's JSON encoding.
type Document struct {
	ID   string          `json:"id"`
	Body json.RawMessage `json:"body"`
}

// Subscription is a live onChange registration.
type Subscription interface {
	// Cancel stops delivery. It is safe to call more than once.
	Cancel()
}

// RecordStore is the persistence collaborator. Lists keep insertion order;
// replacing a document keeps its position.
type RecordStore interface {
	List(ctx context.Context, account string, kind Kind) ([]Document, error)
	// Put creates or replaces the document with doc.ID.
	Put(ctx context.Context, account string, kind Kind, doc Document) error
	// Delete removes a document; ErrNotFound when it does not exist.
	Delete(ctx context.Context, account string, kind Kind, id string) error
	// Subscribe delivers the current full set immediately and again after
	// every change, until the subscription is cancelled or ctx is done.
	Subscribe(ctx context.Context, account string, kind Kind, fn func([]Document)) (Subscription, error)
	Ping(ctx context.Context) error
	Close() error
}

// CloneDocuments deep-copies a snapshot so it can be handed to callers.
func CloneDocuments(docs []Document) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = Document{ID: d.ID, Body: append(json.RawMessage(nil), d.Body...)}
	}
	return out
}
