package core

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

const (
	MaxDescriptionLength = 200
	MaxChorePoints       = 50
	DefaultChoreEmoji    = "🧹"
	DefaultChorePoints   = 5
)

type (
	// Date is a calendar day. The time component is always midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Expense struct {
		ID          string
		Amount      Money
		Description string // optional
		SpentBy     string // optional roommate name
		Date        Date
		Category    string // optional
	}

	Budget struct {
		ID          string
		Month       Period
		Year        int
		TotalAmount Money
		SetDate     Date
		IsActive    bool
	}

	Chore struct {
		ID         string
		Title      string
		AssignedTo string
		DueDate    Date
		Completed  bool
		Emoji      string
		Points     int
	}

	// Roommate totals are derived from expenses and chores; see WithDerivedTotals.
	Roommate struct {
		ID          string
		Name        string
		IsAdmin     bool
		TotalSpent  Money
		ChorePoints int
		Avatar      string
		Initials    string
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrAmountTooLarge     = errors.New("amount too large")
	ErrInvalidPoints      = errors.New("invalid points")
	ErrInvalidPeriod      = errors.New("invalid period")
	ErrEmptyTitle         = errors.New("empty title")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyAssignee      = errors.New("empty assignee")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as observed in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	if m.Cents > MaxAmountCents {
		return ErrAmountTooLarge
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(e.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

func (b Budget) Validate() error {
	if b.TotalAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	if b.TotalAmount.Cents > MaxAmountCents {
		return ErrAmountTooLarge
	}
	if !b.Month.Valid() {
		return ErrInvalidPeriod
	}
	return nil
}

func (c Chore) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.TrimSpace(c.AssignedTo) == "" {
		return ErrEmptyAssignee
	}
	if err := c.DueDate.Validate(); err != nil {
		return err
	}
	if c.Points < 1 || c.Points > MaxChorePoints {
		return ErrInvalidPoints
	}
	return nil
}

func (r Roommate) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Initials takes the first letter of up to two words of name, upper-cased.
func Initials(name string) string {
	var b strings.Builder
	n := 0
	for _, word := range strings.Fields(name) {
		if n == 2 {
			break
		}
		for _, r := range word {
			b.WriteRune(unicode.ToUpper(r))
			break
		}
		n++
	}
	return b.String()
}

// SameName compares roommate names the way the roster enforces uniqueness.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
