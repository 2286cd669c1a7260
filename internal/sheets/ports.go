// Package sheets mirrors account summaries to a spreadsheet. The google
// subpackage talks to Google Sheets; memory records summaries in process.
package sheets

import (
	"context"
	"fmt"

	"roomfund/internal/core"
)

// SummaryWriter publishes an account's current-period summary.
type SummaryWriter interface {
	WriteSummary(ctx context.Context, account string, d core.Dashboard, expenses []core.Expense) error
}

// TabName is the worksheet a period's summary lives on, e.g. "flat-1 2025-07".
func TabName(account string, p core.Period) string {
	return fmt.Sprintf("%s %s", account, p)
}
