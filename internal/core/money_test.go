package core

import "testing"

func TestParseSignedCents(t *testing.T) {
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
		{" 2.50 ", 250, true},
		{"-1", -100, true},
		{"-12,34", -1234, true},
		{"+3.50", 350, true},
		{"-0.01", -1, true},
		{"0", 0, false},
		{"-0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"--1", 0, false},
		{"", 0, false},
		// int64 boundary: the fractional part must not wrap the total
		{"92233720368547758.07", 9223372036854775807, true},
		{"92233720368547758.99", 0, false},
		{"-92233720368547758.99", 0, false},
		{"92233720368547759", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseSignedCents(tc.in)
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

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: 150}
	b := Money{Cents: -250}

	if got := a.Add(b); got.Cents != -100 {
		t.Fatalf("Add expected -100, got %d", got.Cents)
	}
	if got := a.Sub(b); got.Cents != 400 {
		t.Fatalf("Sub expected 400, got %d", got.Cents)
	}
	if got := b.Abs(); got.Cents != 250 {
		t.Fatalf("Abs expected 250, got %d", got.Cents)
	}
	if got := a.Neg(); got.Cents != -150 {
		t.Fatalf("Neg expected -150, got %d", got.Cents)
	}
	if !b.IsNegative() || a.IsNegative() {
		t.Fatalf("IsNegative mismatch")
	}
	if got := b.Euros(); got != -2.5 {
		t.Fatalf("Euros expected -2.5, got %v", got)
	}
}
