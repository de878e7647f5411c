package services

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMulDivFloors(t *testing.T) {
	cases := []struct {
		a, b, c  string
		expected string
	}{
		{"10", "3", "4", "7"},     // 30/4 = 7.5 floors to 7
		{"7", "7", "7", "7"},      // exact division
		{"1", "1", "3", "0"},      // below one floors to zero
		{"100", "9950", "10000", "99"},
	}

	for _, tc := range cases {
		got := mulDiv(
			decimal.RequireFromString(tc.a),
			decimal.RequireFromString(tc.b),
			decimal.RequireFromString(tc.c),
		)
		if got.String() != tc.expected {
			t.Errorf("mulDiv(%s, %s, %s) = %s, expected %s", tc.a, tc.b, tc.c, got.String(), tc.expected)
		}
	}
}

func TestCurveFee(t *testing.T) {
	fee := curveFee(eth("5"), 50)
	if fmtWei(fee) != "0.0250000" {
		t.Errorf("fee on 5 at 50 bps = %s, expected 0.0250000", fmtWei(fee))
	}

	if !curveFee(eth("5"), 0).IsZero() {
		t.Error("zero bps should take no fee")
	}
}

func TestCurveSplit(t *testing.T) {
	yes, no := curveSplit(eth("100"), 200)
	if fmtWei(yes) != "9800.0000000" {
		t.Errorf("yes leg = %s, expected 9800.0000000", fmtWei(yes))
	}
	if fmtWei(no) != "200.0000000" {
		t.Errorf("no leg = %s, expected 200.0000000", fmtWei(no))
	}

	// A net bid of 4.975 mints 487.55 YES and 9.95 NO.
	yes, no = curveSplit(eth("4.975"), 200)
	if fmtWei(yes) != "487.5500000" {
		t.Errorf("yes leg = %s, expected 487.5500000", fmtWei(yes))
	}
	if fmtWei(no) != "9.9500000" {
		t.Errorf("no leg = %s, expected 9.9500000", fmtWei(no))
	}
}

func TestCurveSwapOut(t *testing.T) {
	// First trade against a freshly seeded book: the wallet holds
	// 9800 YES / 200 NO and absorbs 9.95 NO.
	out := curveSwapOut(eth("9800"), eth("200"), eth("9.95"))
	if fmtWei(out) != "464.4439152" {
		t.Errorf("swap out = %s, expected 464.4439152", fmtWei(out))
	}

	// Swapping against an empty opposite book hands over the full
	// proportional share.
	out = curveSwapOut(eth("100"), decimal.Zero, eth("100"))
	if fmtWei(out) != "100.0000000" {
		t.Errorf("swap out = %s, expected 100.0000000", fmtWei(out))
	}

	if !curveSwapOut(eth("100"), eth("10"), decimal.Zero).IsZero() {
		t.Error("zero input should swap to zero")
	}
}
