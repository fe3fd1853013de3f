package types

import "github.com/shopspring/decimal"

// MoneyPrecision is the number of decimal places every monetary value is
// rounded to. Rounding happens at each derived step, not just at the end.
const MoneyPrecision = 2

// RoundMoney rounds a monetary value to 2 decimal places, half up
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPrecision)
}
