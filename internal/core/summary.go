package core

import (
	"sort"
	"time"
)

const uncategorized = "Uncategorized"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// Dashboard is every derived figure shown for the current period.
type Dashboard struct {
	Period          Period
	Budget          *Budget
	TotalSpent      Money
	Remaining       Money
	SpentPercentage float64
	MonthProgress   int
	ExpenseCount    int
	ActiveChores    int
	CompletedChores int
	ByCategory      []CategoryAmount
	Roommates       []Roommate
	Leaderboard     []LeaderboardEntry
}

// BuildDashboard recomputes the dashboard from scratch. Inputs are not modified.
func BuildDashboard(budget *Budget, expenses []Expense, chores []Chore, roommates []Roommate, now time.Time) Dashboard {
	spent := TotalSpent(expenses)
	d := Dashboard{
		Period:          PeriodOf(now),
		Budget:          budget,
		TotalSpent:      spent,
		Remaining:       Remaining(budget, spent),
		SpentPercentage: SpentPercentage(budget, spent),
		MonthProgress:   MonthProgress(now),
		ExpenseCount:    len(expenses),
		ByCategory:      SpendByCategory(expenses),
		Roommates:       WithDerivedTotals(roommates, expenses, chores),
		Leaderboard:     ChoreLeaderboard(chores, roommates),
	}
	for _, c := range chores {
		if c.Completed {
			d.CompletedChores++
		} else {
			d.ActiveChores++
		}
	}
	return d
}

// SpendByCategory groups expenses by category, largest first. Expenses
// without a category are grouped as "Uncategorized".
func SpendByCategory(expenses []Expense) []CategoryAmount {
	idx := make(map[string]int)
	var out []CategoryAmount
	for _, e := range expenses {
		name := e.Category
		if name == "" {
			name = uncategorized
		}
		i, ok := idx[name]
		if !ok {
			i = len(out)
			idx[name] = i
			out = append(out, CategoryAmount{Name: name})
		}
		out[i].Amount = out[i].Amount.Add(e.Amount)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Cents > out[j].Amount.Cents
	})
	return out
}
