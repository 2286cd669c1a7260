package core

import (
	"math"
	"sort"
	"time"
)

// LeaderboardEntry is a roommate ranked by completed chore points.
type LeaderboardEntry struct {
	Roommate Roommate
	Points   int
}

// TotalSpent sums every expense of the current period.
func TotalSpent(expenses []Expense) Money {
	var total Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// Remaining is the budget left after spent. Negative means over budget.
// Without a budget the neutral value 0 is returned.
func Remaining(budget *Budget, spent Money) Money {
	if budget == nil {
		return Money{}
	}
	return budget.TotalAmount.Sub(spent)
}

// SpentPercentage is 100*spent/total, or 0 when no budget is set or its
// total is zero.
func SpentPercentage(budget *Budget, spent Money) float64 {
	if budget == nil || budget.TotalAmount.Cents == 0 {
		return 0
	}
	return 100 * float64(spent.Cents) / float64(budget.TotalAmount.Cents)
}

// PerRoommateSpend sums the expenses attributed to name.
func PerRoommateSpend(expenses []Expense, name string) Money {
	var total Money
	for _, e := range expenses {
		if e.SpentBy == name {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// ChoreLeaderboard ranks roommates by the points of their completed chores,
// highest first. Ties keep the roommates' input order.
func ChoreLeaderboard(chores []Chore, roommates []Roommate) []LeaderboardEntry {
	board := make([]LeaderboardEntry, len(roommates))
	for i, r := range roommates {
		board[i] = LeaderboardEntry{Roommate: r, Points: completedPoints(chores, r.Name)}
	}
	sort.SliceStable(board, func(i, j int) bool {
		return board[i].Points > board[j].Points
	})
	return board
}

func completedPoints(chores []Chore, name string) int {
	points := 0
	for _, c := range chores {
		if c.Completed && c.AssignedTo == name {
			points += c.Points
		}
	}
	return points
}

// MonthProgress is the elapsed share of now's month as a 0..100 percentage.
// The month runs from local midnight of its first day to local midnight of
// the first day of the next month.
func MonthProgress(now time.Time) int {
	p := PeriodOf(now)
	start := p.Start(now.Location())
	end := p.Next().Start(now.Location())
	ratio := float64(now.Sub(start)) / float64(end.Sub(start))
	progress := int(math.Round(100 * ratio))
	return min(max(progress, 0), 100)
}

// WithDerivedTotals returns a copy of roommates with TotalSpent and
// ChorePoints recomputed from the raw records.
func WithDerivedTotals(roommates []Roommate, expenses []Expense, chores []Chore) []Roommate {
	out := make([]Roommate, len(roommates))
	for i, r := range roommates {
		r.TotalSpent = PerRoommateSpend(expenses, r.Name)
		r.ChorePoints = completedPoints(chores, r.Name)
		out[i] = r
	}
	return out
}
