package utils

import "github.com/shopspring/decimal"

var weiPerUnit = decimal.New(1, 18)

// Wei converts a whole-unit amount string ("104.975") to integer wei.
func Wei(amount string) decimal.Decimal {
	return decimal.RequireFromString(amount).Mul(weiPerUnit).Truncate(0)
}

// FormatWei renders an integer wei amount as whole units with seven
// decimal places, matching the precision used in market quotes.
func FormatWei(wei decimal.Decimal) string {
	return wei.Shift(-18).StringFixed(7)
}
