package core

import (
	"errors"
	"math"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"1.004", 100, true},
		{" 2.50 ", 250, true},
		{".5", 50, true},
		{"5000", 500000, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.001", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1e3", 0, false},
		{"", 0, false},
		{"1000000000000", MaxAmountCents, true},
		{"999999999999.999", MaxAmountCents, true},
		{"1000000000000.01", 0, false},
		{"92233720368547758", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseDecimalToCents_TooLarge(t *testing.T) {
	for _, in := range []string{"1000000000000.01", "90071992547409.93", "92233720368547758"} {
		if _, err := ParseDecimalToCents(in); !errors.Is(err, ErrAmountTooLarge) {
			t.Fatalf("%q expected ErrAmountTooLarge, got %v", in, err)
		}
	}
}

func TestMoneyFromRupees(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{12.34, 1234},
		{0.1 + 0.2, 30},
		{5000, 500000},
		{0, 0},
		{float64(MaxAmountCents) / 100, MaxAmountCents},
	}
	for _, tc := range cases {
		got, err := MoneyFromRupees(tc.in)
		if err != nil || got.Cents != tc.want {
			t.Fatalf("MoneyFromRupees(%v) = %d, %v, want %d", tc.in, got.Cents, err, tc.want)
		}
	}
	if got := (Money{Cents: 1234}).Rupees(); got != 12.34 {
		t.Fatalf("Rupees = %v", got)
	}
}

func TestMoneyFromRupees_Rejects(t *testing.T) {
	for _, in := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -0.5, 92233720368547758, 1e17} {
		if got, err := MoneyFromRupees(in); err == nil {
			t.Fatalf("MoneyFromRupees(%v) = %d, expected error", in, got.Cents)
		}
	}
}

func TestMaxAmountSurvivesStorage(t *testing.T) {
	m := Money{Cents: MaxAmountCents - 1}
	got, err := MoneyFromRupees(m.Rupees())
	if err != nil || got != m {
		t.Fatalf("round trip of %d gave %d, %v", m.Cents, got.Cents, err)
	}
}

func TestMoneyAddSaturates(t *testing.T) {
	big := Money{Cents: math.MaxInt64 - 10}
	if got := big.Add(Money{Cents: 100}); got.Cents != math.MaxInt64 {
		t.Fatalf("Add overflow = %d", got.Cents)
	}
	if got := (Money{Cents: math.MinInt64 + 10}).Sub(Money{Cents: 100}); got.Cents != math.MinInt64 {
		t.Fatalf("Sub overflow = %d", got.Cents)
	}
	if got := (Money{Cents: 500}).Sub(Money{Cents: 700}); got.Cents != -200 {
		t.Fatalf("Sub = %d", got.Cents)
	}
}
