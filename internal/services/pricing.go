package services

import "github.com/shopspring/decimal"

// ============================================================================
// Bonding curve arithmetic
// ============================================================================
//
// Every amount is integer wei. All division floors, so repeated operations
// reproduce the same balances bit for bit regardless of trade order.

const bpsDenominator = 10000

var (
	decBps     = decimal.NewFromInt(bpsDenominator)
	decHundred = decimal.NewFromInt(100)
)

// mulDiv returns floor(a * b / c).
func mulDiv(a, b, c decimal.Decimal) decimal.Decimal {
	q, _ := a.Mul(b).QuoRem(c, 0)
	return q
}

// curveFee returns the fee taken from a gross bid.
func curveFee(value decimal.Decimal, feeBps int64) decimal.Decimal {
	return mulDiv(value, decimal.NewFromInt(feeBps), decBps)
}

// curveSplit mints both outcome legs for a net amount at the fixed initial
// probability. With initP of 200 bps each net unit mints 98 YES and 2 NO.
func curveSplit(net decimal.Decimal, initPBps int64) (yes, no decimal.Decimal) {
	initP := decimal.NewFromInt(initPBps)
	yes = mulDiv(net, decBps.Sub(initP), decHundred)
	no = mulDiv(net, initP, decHundred)
	return yes, no
}

// curveSwapOut prices the opposite-side leg against the liquidity wallet's
// own balances with a constant product: the wallet absorbs oppIn of the
// opposite token and releases same-side tokens in return.
func curveSwapOut(lpSame, lpOpp, oppIn decimal.Decimal) decimal.Decimal {
	return mulDiv(lpSame, oppIn, lpOpp.Add(oppIn))
}
