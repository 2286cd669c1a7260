package http

import (
	"roomfund/internal/core"
	"roomfund/internal/storage"
)

// Views carry rupee amounts like the persisted records, plus display labels.

type expenseView struct {
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	AmountLabel string  `json:"amountLabel"`
	Description string  `json:"description,omitempty"`
	SpentBy     string  `json:"spentBy,omitempty"`
	Date        string  `json:"date"`
	DateLabel   string  `json:"dateLabel"`
	Category    string  `json:"category,omitempty"`
}

func newExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:          e.ID,
		Amount:      e.Amount.Rupees(),
		AmountLabel: core.FormatCurrency(e.Amount),
		Description: e.Description,
		SpentBy:     e.SpentBy,
		Date:        e.Date.String(),
		DateLabel:   core.FormatDate(e.Date),
		Category:    e.Category,
	}
}

func newExpenseViews(expenses []core.Expense) []expenseView {
	out := make([]expenseView, len(expenses))
	for i, e := range expenses {
		out[i] = newExpenseView(e)
	}
	return out
}

type budgetView struct {
	ID          string  `json:"id"`
	Month       string  `json:"month"`
	MonthLabel  string  `json:"monthLabel"`
	Year        int     `json:"year"`
	TotalAmount float64 `json:"totalAmount"`
	AmountLabel string  `json:"amountLabel"`
	SetDate     string  `json:"setDate"`
	IsActive    bool    `json:"isActive"`
}

func newBudgetView(b *core.Budget) *budgetView {
	if b == nil {
		return nil
	}
	v := &budgetView{
		ID:          b.ID,
		Year:        b.Year,
		TotalAmount: b.TotalAmount.Rupees(),
		AmountLabel: core.FormatCurrency(b.TotalAmount),
		SetDate:     b.SetDate.String(),
		IsActive:    b.IsActive,
	}
	if b.Month.Valid() {
		v.Month = b.Month.String()
		v.MonthLabel = core.MonthLabel(b.Month)
	}
	return v
}

type choreView struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	AssignedTo   string `json:"assignedTo"`
	DueDate      string `json:"dueDate"`
	DueDateLabel string `json:"dueDateLabel"`
	Completed    bool   `json:"completed"`
	Emoji        string `json:"emoji"`
	Points       int    `json:"points"`
}

func newChoreView(c core.Chore) choreView {
	return choreView{
		ID:           c.ID,
		Title:        c.Title,
		AssignedTo:   c.AssignedTo,
		DueDate:      c.DueDate.String(),
		DueDateLabel: core.FormatDate(c.DueDate),
		Completed:    c.Completed,
		Emoji:        c.Emoji,
		Points:       c.Points,
	}
}

func newChoreViews(chores []core.Chore) []choreView {
	out := make([]choreView, len(chores))
	for i, c := range chores {
		out[i] = newChoreView(c)
	}
	return out
}

type roommateView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	IsAdmin     bool    `json:"isAdmin"`
	TotalSpent  float64 `json:"totalSpent"`
	SpentLabel  string  `json:"spentLabel"`
	ChorePoints int     `json:"chorePoints"`
	Avatar      string  `json:"avatar,omitempty"`
	Initials    string  `json:"initials,omitempty"`
}

func newRoommateView(r core.Roommate) roommateView {
	return roommateView{
		ID:          r.ID,
		Name:        r.Name,
		IsAdmin:     r.IsAdmin,
		TotalSpent:  r.TotalSpent.Rupees(),
		SpentLabel:  core.FormatCurrency(r.TotalSpent),
		ChorePoints: r.ChorePoints,
		Avatar:      r.Avatar,
		Initials:    r.Initials,
	}
}

func newRoommateViews(roommates []core.Roommate) []roommateView {
	out := make([]roommateView, len(roommates))
	for i, r := range roommates {
		out[i] = newRoommateView(r)
	}
	return out
}

type categoryView struct {
	Name        string  `json:"name"`
	Amount      float64 `json:"amount"`
	AmountLabel string  `json:"amountLabel"`
}

type leaderboardView struct {
	Roommate roommateView `json:"roommate"`
	Points   int          `json:"points"`
}

type dashboardView struct {
	Period          string            `json:"period"`
	MonthLabel      string            `json:"monthLabel"`
	Budget          *budgetView       `json:"budget"`
	TotalSpent      float64           `json:"totalSpent"`
	TotalSpentLabel string            `json:"totalSpentLabel"`
	Remaining       float64           `json:"remaining"`
	RemainingLabel  string            `json:"remainingLabel"`
	SpentPercentage float64           `json:"spentPercentage"`
	MonthProgress   int               `json:"monthProgress"`
	ExpenseCount    int               `json:"expenseCount"`
	ActiveChores    int               `json:"activeChores"`
	CompletedChores int               `json:"completedChores"`
	ByCategory      []categoryView    `json:"byCategory"`
	Roommates       []roommateView    `json:"roommates"`
	Leaderboard     []leaderboardView `json:"leaderboard"`
}

func newDashboardView(d core.Dashboard) dashboardView {
	v := dashboardView{
		Period:          d.Period.String(),
		MonthLabel:      core.MonthLabel(d.Period),
		Budget:          newBudgetView(d.Budget),
		TotalSpent:      d.TotalSpent.Rupees(),
		TotalSpentLabel: core.FormatCurrency(d.TotalSpent),
		Remaining:       d.Remaining.Rupees(),
		RemainingLabel:  core.FormatCurrency(d.Remaining),
		SpentPercentage: d.SpentPercentage,
		MonthProgress:   d.MonthProgress,
		ExpenseCount:    d.ExpenseCount,
		ActiveChores:    d.ActiveChores,
		CompletedChores: d.CompletedChores,
		ByCategory:      make([]categoryView, len(d.ByCategory)),
		Roommates:       newRoommateViews(d.Roommates),
		Leaderboard:     make([]leaderboardView, len(d.Leaderboard)),
	}
	for i, c := range d.ByCategory {
		v.ByCategory[i] = categoryView{Name: c.Name, Amount: c.Amount.Rupees(), AmountLabel: core.FormatCurrency(c.Amount)}
	}
	for i, e := range d.Leaderboard {
		v.Leaderboard[i] = leaderboardView{Roommate: newRoommateView(e.Roommate), Points: e.Points}
	}
	return v
}

// snapshotView is one server-sent event: the full current collection.
type snapshotView struct {
	Kind    storage.Kind `json:"kind"`
	Records []any        `json:"records"`
}
