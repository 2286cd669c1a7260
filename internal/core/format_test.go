package core

import (
	"testing"
	"time"
)

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "₹0"},
		{5000_00, "₹5,000"},
		{999_00, "₹999"},
		{123456_00, "₹1,23,456"},
		{1234567_00, "₹12,34,567"},
		{100000000_00, "₹10,00,00,000"},
		{1249, "₹12"},
		{1250, "₹13"},
		{-500_00, "-₹500"},
		{-40, "₹0"},
	}
	for _, tc := range cases {
		if got := FormatCurrency(Money{Cents: tc.cents}); got != tc.want {
			t.Fatalf("FormatCurrency(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate(NewDate(2025, 7, 3)); got != "3 Jul 2025" {
		t.Fatalf("got %q", got)
	}
	if got := FormatDate(Date{}); got != "" {
		t.Fatalf("zero date: %q", got)
	}
}

func TestMonthLabel(t *testing.T) {
	if got := MonthLabel(Period{2025, time.July}); got != "July 2025" {
		t.Fatalf("got %q", got)
	}
}
