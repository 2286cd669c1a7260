package core

import (
	"fmt"
	"strconv"
)

// FormatCurrency renders whole rupees with Indian digit grouping, e.g.
// "₹1,23,456". Paise are rounded half away from zero.
func FormatCurrency(m Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	rupees := (cents + 50) / 100
	if rupees == 0 {
		neg = false
	}
	s := "₹" + groupIndian(strconv.FormatInt(rupees, 10))
	if neg {
		return "-" + s
	}
	return s
}

// groupIndian places a comma before the last three digits and then after
// every two digits further left.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var out []byte
	for i := range len(head) {
		if i > 0 && (len(head)-i)%2 == 0 {
			out = append(out, ',')
		}
		out = append(out, head[i])
	}
	return string(out) + "," + tail
}

// FormatDate renders a day as "3 Jul 2025".
func FormatDate(d Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2 Jan 2006")
}

// MonthLabel renders a period as "July 2025".
func MonthLabel(p Period) string {
	return fmt.Sprintf("%s %d", p.Month, p.Year)
}
