package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is one calendar month, the unit a Budget and its records are scoped to.
type Period struct {
	Year  int
	Month time.Month
}

// RolloverDecision is what the caller must apply when a new period starts.
type RolloverDecision struct {
	// ClearRecords signals that all expenses and chores of the account go.
	ClearRecords bool
	Budget       Budget
}

// PeriodOf returns the period containing t, in t's own location.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// Valid reports whether p names a real month.
func (p Period) Valid() bool {
	return p.Year > 0 && p.Month >= time.January && p.Month <= time.December
}

// String renders the canonical YYYY-MM label.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Start is local midnight of the first day of the period.
func (p Period) Start(loc *time.Location) time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, loc)
}

// Next returns the following period.
func (p Period) Next() Period {
	return PeriodOf(time.Date(p.Year, p.Month+1, 1, 0, 0, 0, 0, time.UTC))
}

// ParsePeriod accepts the canonical "2025-07" label and the legacy long form
// "July 2025" found in older budget records.
func ParsePeriod(label string) (Period, error) {
	label = strings.TrimSpace(label)
	if y, m, ok := strings.Cut(label, "-"); ok && len(y) == 4 && len(m) == 2 {
		year, errY := strconv.Atoi(y)
		month, errM := strconv.Atoi(m)
		p := Period{Year: year, Month: time.Month(month)}
		if errY != nil || errM != nil || !p.Valid() {
			return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, label)
		}
		return p, nil
	}

	fields := strings.Fields(label)
	if len(fields) != 2 {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, label)
	}
	month, ok := monthByName(fields[0])
	if !ok {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, label)
	}
	year, err := strconv.Atoi(fields[1])
	if err != nil || len(fields[1]) != 4 {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, label)
	}
	return Period{Year: year, Month: month}, nil
}

func monthByName(name string) (time.Month, bool) {
	for m := time.January; m <= time.December; m++ {
		if strings.EqualFold(m.String(), name) {
			return m, true
		}
	}
	return 0, false
}

// IsNewPeriod reports whether the stored label names a period other than
// the one containing now. Unreadable labels count as a new period. No
// timezone normalization happens: now is read in its own location.
func IsNewPeriod(storedLabel string, now time.Time) bool {
	stored, err := ParsePeriod(storedLabel)
	if err != nil {
		return true
	}
	return stored != PeriodOf(now)
}

// Rollover computes the budget for the period containing now. prev is a
// copy; the caller's budget is never touched.
func Rollover(prev Budget, now time.Time) RolloverDecision {
	next := prev
	next.Month = PeriodOf(now)
	next.Year = now.Year()
	next.TotalAmount = Money{}
	next.IsActive = true
	next.SetDate = DateOf(now)
	return RolloverDecision{ClearRecords: true, Budget: next}
}

// CheckRollover returns a decision only when a budget exists and belongs to
// an earlier (or otherwise different) period than now.
func CheckRollover(prev *Budget, now time.Time) (RolloverDecision, bool) {
	if prev == nil {
		return RolloverDecision{}, false
	}
	if !IsNewPeriod(prev.Month.String(), now) {
		return RolloverDecision{}, false
	}
	return Rollover(*prev, now), true
}
