package utils

import "testing"

func TestAmountsMatch(t *testing.T) {
	cases := []struct {
		a, b float64
		want bool
	}{
		{500.00, 500.00, true},
		{500.00, 500.005, true},
		{500.00, 500.008, true},
		{500.00, 499.995, true},
		{500.00, 500.01, false}, // boundary: exactly one paisa does not match
		{500.00, 499.99, false},
		{500.01, 500.00, false},
		{499.99, 500.00, false},
		{0.01, 0.02, false},
		{123456.78, 123456.77, false},
		{500.00, 450.00, false},
	}
	for _, tc := range cases {
		if got := AmountsMatch(tc.a, tc.b); got != tc.want {
			t.Errorf("AmountsMatch(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(123.456); got != 123.46 {
		t.Fatalf("Round2(123.456) = %v", got)
	}
	if got := Round2(123.454); got != 123.45 {
		t.Fatalf("Round2(123.454) = %v", got)
	}
}
