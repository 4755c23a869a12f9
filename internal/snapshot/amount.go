package snapshot

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// balanceDecimals is the fixed-point precision of pool share balances.
const balanceDecimals = 18

var one = decimal.NewFromInt(1)

// ParseAmount parses a decimal balance string at 18 fractional digits.
// Empty input is zero. Trailing zeros beyond the precision are accepted,
// significant digits are not.
func ParseAmount(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", value, err)
	}
	if amount.Exponent() < -balanceDecimals && !amount.Truncate(balanceDecimals).Equal(amount) {
		return decimal.Zero, fmt.Errorf("parse amount %q: more than %d fractional digits", value, balanceDecimals)
	}
	return amount, nil
}

// SumAmounts adds balances exactly.
func SumAmounts(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
