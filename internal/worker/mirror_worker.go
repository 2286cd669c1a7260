// Package worker keeps the spreadsheet mirror in step with the record store.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"roomfund/internal/amqp"
	"roomfund/internal/core"
	"roomfund/internal/sheets"
	"roomfund/internal/storage"
)

// Observer receives worker outcomes; *metrics.Metrics implements it.
type Observer interface {
	ObserveConsume(err error)
	ObserveSummary(err error)
}

type noopObserver struct{}

func (noopObserver) ObserveConsume(error) {}
func (noopObserver) ObserveSummary(error) {}

// MirrorWorker rebuilds an account's dashboard and writes it to the
// spreadsheet whenever one of its collections changes.
type MirrorWorker struct {
	records  *storage.Records
	writer   sheets.SummaryWriter
	observer Observer
	now      func() time.Time
	logger   *slog.Logger

	group singleflight.Group

	mu       sync.Mutex
	accounts map[string]struct{}
}

type Option func(*MirrorWorker)

func WithObserver(o Observer) Option {
	return func(w *MirrorWorker) { w.observer = o }
}

// WithClock sets the time source used for the current period.
func WithClock(now func() time.Time) Option {
	return func(w *MirrorWorker) { w.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *MirrorWorker) { w.logger = l }
}

// WithAccounts seeds the accounts the periodic resync covers before any
// change event has been seen.
func WithAccounts(accounts ...string) Option {
	return func(w *MirrorWorker) {
		for _, a := range accounts {
			w.accounts[a] = struct{}{}
		}
	}
}

func NewMirrorWorker(records *storage.Records, writer sheets.SummaryWriter, opts ...Option) *MirrorWorker {
	w := &MirrorWorker{
		records:  records,
		writer:   writer,
		observer: noopObserver{},
		now:      time.Now,
		logger:   slog.Default(),
		accounts: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleChange is the AMQP consumer callback. Returning an error requeues
// the event.
func (w *MirrorWorker) HandleChange(ctx context.Context, event *amqp.ChangeEvent) error {
	if err := storage.ValidateKey(event.Account, storage.Kind(event.Kind)); err != nil {
		// Unroutable events are acknowledged and dropped.
		w.logger.WarnContext(ctx, "Dropping change event", "account", event.Account, "kind", event.Kind, "error", err)
		w.observer.ObserveConsume(err)
		return nil
	}
	w.track(event.Account)

	w.logger.InfoContext(ctx, "Processing change event",
		"account", event.Account,
		"kind", event.Kind,
		"op", event.Op,
		"document_id", event.DocumentID)

	err := w.SyncAccount(ctx, event.Account)
	w.observer.ObserveConsume(err)
	return err
}

// SyncAccount writes the account's current summary. Concurrent calls for
// one account share a single write.
func (w *MirrorWorker) SyncAccount(ctx context.Context, account string) error {
	_, err, _ := w.group.Do(account, func() (any, error) {
		return nil, w.syncAccount(ctx, account)
	})
	return err
}

func (w *MirrorWorker) syncAccount(ctx context.Context, account string) error {
	var (
		budget    *core.Budget
		expenses  []core.Expense
		chores    []core.Chore
		roommates []core.Roommate
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		budget, err = w.records.GetBudget(gctx, account)
		return err
	})
	g.Go(func() (err error) {
		expenses, err = w.records.ListExpenses(gctx, account)
		return err
	})
	g.Go(func() (err error) {
		chores, err = w.records.ListChores(gctx, account)
		return err
	})
	g.Go(func() (err error) {
		roommates, err = w.records.ListRoommates(gctx, account)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load account %s: %w", account, err)
	}

	d := core.BuildDashboard(budget, expenses, chores, roommates, w.now())
	err := w.writer.WriteSummary(ctx, account, d, expenses)
	w.observer.ObserveSummary(err)
	if err != nil {
		return fmt.Errorf("write summary for %s: %w", account, err)
	}
	return nil
}

// ResyncAll rewrites every known account, a few at a time. It is the
// backstop for events lost while the broker or spreadsheet was down.
func (w *MirrorWorker) ResyncAll(ctx context.Context) error {
	accounts := w.Accounts()
	if len(accounts) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	var (
		mu     sync.Mutex
		failed int
	)
	for _, account := range accounts {
		g.Go(func() error {
			if err := w.SyncAccount(gctx, account); err != nil {
				w.logger.ErrorContext(gctx, "Resync failed", "account", account, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	if failed > 0 {
		return fmt.Errorf("resync failed for %d of %d accounts", failed, len(accounts))
	}
	w.logger.InfoContext(ctx, "Resync complete", "accounts", len(accounts))
	return nil
}

// Run resyncs every interval until ctx is done.
func (w *MirrorWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ResyncAll(ctx); err != nil {
				w.logger.WarnContext(ctx, "Periodic resync incomplete", "error", err)
			}
		}
	}
}

// Accounts lists the accounts the worker has seen, sorted.
func (w *MirrorWorker) Accounts() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.accounts))
	for a := range w.accounts {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func (w *MirrorWorker) track(account string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.accounts[account] = struct{}{}
}
