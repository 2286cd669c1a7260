package sheets

import (
	"testing"
	"time"

	"roomfund/internal/core"
)

func TestTabName(t *testing.T) {
	got := TabName("flat-1", core.Period{Year: 2025, Month: time.July})
	if got != "flat-1 2025-07" {
		t.Errorf("TabName() = %q", got)
	}
}

func TestSummaryRows(t *testing.T) {
	now := time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)
	budget := &core.Budget{Month: core.Period{Year: 2025, Month: time.July}, TotalAmount: core.Money{Cents: 2000000}}
	expenses := []core.Expense{
		{ID: "e1", Amount: core.Money{Cents: 50000}, Description: "Milk", SpentBy: "Asha", Date: core.NewDate(2025, 7, 3)},
	}
	chores := []core.Chore{{ID: "c1", Title: "Dishes", AssignedTo: "Asha", Completed: true, Points: 8}}
	roommates := []core.Roommate{{ID: "r1", Name: "Asha"}}
	d := core.BuildDashboard(budget, expenses, chores, roommates, now)

	rows := SummaryRows(d, expenses)

	checks := map[int][]any{
		0: {"Summary", "July 2025"},
		1: {"Budget", "₹20,000"},
		2: {"Spent", "₹500"},
		3: {"Remaining", "₹19,500"},
		4: {"Spent %", "2.5%"},
		8: {"Asha", 8},
	}
	for i, want := range checks {
		if len(rows[i]) != len(want) {
			t.Fatalf("row %d = %v, want %v", i, rows[i], want)
		}
		for j := range want {
			if rows[i][j] != want[j] {
				t.Errorf("row %d col %d = %v, want %v", i, j, rows[i][j], want[j])
			}
		}
	}

	last := rows[len(rows)-1]
	if last[0] != "3 Jul 2025" || last[1] != "Milk" || last[4] != 500.0 {
		t.Errorf("expense row = %v", last)
	}
}

func TestSummaryRows_NoBudget(t *testing.T) {
	d := core.BuildDashboard(nil, nil, nil, nil, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	rows := SummaryRows(d, nil)
	if rows[1][1] != "₹0" {
		t.Errorf("budget row = %v", rows[1])
	}
}
