package core

import "time"

// Report is the exportable snapshot of the current period.
type Report struct {
	Month             string          `json:"month"`
	Budget            float64         `json:"budget"`
	TotalSpent        float64         `json:"totalSpent"`
	Remaining         float64         `json:"remaining"`
	Expenses          []ReportExpense `json:"expenses"`
	RoommateBreakdown []RoommateSpend `json:"roommateBreakdown"`
	GeneratedAt       time.Time       `json:"generatedAt"`
}

type ReportExpense struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	SpentBy     string  `json:"spentBy"`
	Category    string  `json:"category"`
}

type RoommateSpend struct {
	Name       string  `json:"name"`
	TotalSpent float64 `json:"totalSpent"`
}

// BuildReport assembles the export. Missing optional expense fields get
// readable placeholders.
func BuildReport(budget *Budget, expenses []Expense, roommates []Roommate, now time.Time) Report {
	spent := TotalSpent(expenses)
	r := Report{
		Month:             "Current Month",
		TotalSpent:        spent.Rupees(),
		Remaining:         Remaining(budget, spent).Rupees(),
		Expenses:          make([]ReportExpense, 0, len(expenses)),
		RoommateBreakdown: make([]RoommateSpend, 0, len(roommates)),
		GeneratedAt:       now,
	}
	if budget != nil {
		r.Month = budget.Month.String()
		r.Budget = budget.TotalAmount.Rupees()
	}

	for _, e := range expenses {
		r.Expenses = append(r.Expenses, ReportExpense{
			Date:        e.Date.String(),
			Description: orDefault(e.Description, "No description"),
			Amount:      e.Amount.Rupees(),
			SpentBy:     orDefault(e.SpentBy, "Unknown"),
			Category:    orDefault(e.Category, uncategorized),
		})
	}
	for _, rm := range roommates {
		r.RoommateBreakdown = append(r.RoommateBreakdown, RoommateSpend{
			Name:       rm.Name,
			TotalSpent: PerRoommateSpend(expenses, rm.Name).Rupees(),
		})
	}
	return r
}

// ReportFilename is the download name for a report generated on day.
func ReportFilename(day Date) string {
	return "expense-report-" + day.String() + ".json"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
