package sheets

import (
	"fmt"

	"roomfund/internal/core"
)

// SummaryRows lays a summary out as spreadsheet rows: a header block, the
// chore leaderboard, then one row per expense.
func SummaryRows(d core.Dashboard, expenses []core.Expense) [][]any {
	budget := core.Money{}
	if d.Budget != nil {
		budget = d.Budget.TotalAmount
	}

	rows := [][]any{
		{"Summary", core.MonthLabel(d.Period)},
		{"Budget", core.FormatCurrency(budget)},
		{"Spent", core.FormatCurrency(d.TotalSpent)},
		{"Remaining", core.FormatCurrency(d.Remaining)},
		{"Spent %", fmt.Sprintf("%.1f%%", d.SpentPercentage)},
		{"Month progress", fmt.Sprintf("%d%%", d.MonthProgress)},
		{},
		{"Leaderboard", "Points"},
	}
	for _, entry := range d.Leaderboard {
		rows = append(rows, []any{entry.Roommate.Name, entry.Points})
	}

	rows = append(rows, []any{}, []any{"Date", "Description", "Category", "Spent by", "Amount"})
	for _, e := range expenses {
		rows = append(rows, []any{
			core.FormatDate(e.Date),
			e.Description,
			e.Category,
			e.SpentBy,
			e.Amount.Rupees(),
		})
	}
	return rows
}
