// Package memory is the in-process SummaryWriter used when no spreadsheet is
// configured, and in tests.
package memory

import (
	"context"
	"sync"

	"roomfund/internal/core"
	"roomfund/internal/sheets"
)

var _ sheets.SummaryWriter = (*Writer)(nil)

// Summary is one recorded write.
type Summary struct {
	Account string
	Tab     string
	Rows    [][]any
}

type Writer struct {
	mu     sync.Mutex
	tabs   map[string]Summary
	writes int
	err    error
}

func New() *Writer {
	return &Writer{tabs: make(map[string]Summary)}
}

// FailWith makes every later write return err; nil clears it.
func (w *Writer) FailWith(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.err = err
}

func (w *Writer) WriteSummary(ctx context.Context, account string, d core.Dashboard, expenses []core.Expense) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	tab := sheets.TabName(account, d.Period)
	w.tabs[tab] = Summary{Account: account, Tab: tab, Rows: sheets.SummaryRows(d, expenses)}
	w.writes++
	return nil
}

// Tab returns the last summary written to tab.
func (w *Writer) Tab(tab string) (Summary, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.tabs[tab]
	return s, ok
}

// Writes counts successful writes.
func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}
