package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestWei(t *testing.T) {
	if Wei("1").String() != "1000000000000000000" {
		t.Errorf("Wei(1) = %s", Wei("1").String())
	}
	if Wei("104.975").String() != "104975000000000000000" {
		t.Errorf("Wei(104.975) = %s", Wei("104.975").String())
	}
	// Sub-wei fractions truncate.
	if Wei("0.0000000000000000019").String() != "1" {
		t.Errorf("Wei(0.0000000000000000019) = %s", Wei("0.0000000000000000019").String())
	}
}

func TestFormatWei(t *testing.T) {
	cases := []struct {
		wei      string
		expected string
	}{
		{"1000000000000000000", "1.0000000"},
		{"104975000000000000000", "104.9750000"},
		{"464443915217193000000", "464.4439152"},
		{"0", "0.0000000"},
	}
	for _, tc := range cases {
		got := FormatWei(decimal.RequireFromString(tc.wei))
		if got != tc.expected {
			t.Errorf("FormatWei(%s) = %s, expected %s", tc.wei, got, tc.expected)
		}
	}
}
