package money

import "testing"

func TestFromRupeesRounding(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  int64
	}{
		{"exact", 12.50, 1250},
		{"round down tie to even", 0.125, 12},
		{"simple fraction", 99.99, 9999},
		{"zero", 0, 0},
		{"negative", -45.25, -4525},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromRupees(tt.input).Paise()
			if got != tt.want {
				t.Errorf("FromRupees(%v).Paise() = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestArithmetic(t *testing.T) {
	a := FromPaise(10050)
	b := FromPaise(2550)

	if got := a.Add(b).Paise(); got != 12600 {
		t.Errorf("Add = %d, want 12600", got)
	}
	if got := a.Sub(b).Paise(); got != 7500 {
		t.Errorf("Sub = %d, want 7500", got)
	}
	if got := b.Neg().Paise(); got != -2550 {
		t.Errorf("Neg = %d, want -2550", got)
	}
}

func TestCmpAndPredicates(t *testing.T) {
	small := FromPaise(100)
	big := FromPaise(500)

	if small.Cmp(big) != -1 {
		t.Errorf("small.Cmp(big) = %d, want -1", small.Cmp(big))
	}
	if big.Cmp(small) != 1 {
		t.Errorf("big.Cmp(small) = %d, want 1", big.Cmp(small))
	}
	if small.Cmp(small) != 0 {
		t.Errorf("small.Cmp(small) = %d, want 0", small.Cmp(small))
	}
	if !big.GreaterThan(small) {
		t.Error("big.GreaterThan(small) = false, want true")
	}
	if !Zero.IsZero() {
		t.Error("Zero.IsZero() = false, want true")
	}
	if !FromPaise(-1).IsNegative() {
		t.Error("IsNegative() = false, want true")
	}
}

func TestStringFormatting(t *testing.T) {
	tests := []struct {
		paise int64
		want  string
	}{
		{123456, "1234.56"},
		{0, "0.00"},
		{-500, "-5.00"},
		{5, "0.05"},
	}
	for _, tt := range tests {
		got := FromPaise(tt.paise).String()
		if got != tt.want {
			t.Errorf("FromPaise(%d).String() = %q, want %q", tt.paise, got, tt.want)
		}
	}

	if got := FromPaise(50000).RupeeString(); got != "₹500.00" {
		t.Errorf("RupeeString() = %q, want %q", got, "₹500.00")
	}
}

func TestParseRupees(t *testing.T) {
	got, err := ParseRupees(" 12000 ")
	if err != nil {
		t.Fatalf("ParseRupees: %v", err)
	}
	if got.Paise() != 1200000 {
		t.Errorf("Paise() = %d, want 1200000", got.Paise())
	}

	if _, err := ParseRupees(""); err == nil {
		t.Error("ParseRupees(\"\") should error")
	}
	if _, err := ParseRupees("not-a-number"); err == nil {
		t.Error("ParseRupees(garbage) should error")
	}
}
