package snapshot

import (
	"github.com/shopspring/decimal"

	"poolSnapshots/internal/model"
)

// PercentShare is the fraction of the pool owned by a balance.
func PercentShare(total decimal.Decimal, pool model.PoolSnapshot) float64 {
	if pool.TotalSharesNum == 0 {
		return 0
	}
	return total.InexactFloat64() / pool.TotalSharesNum
}

// ValueUSD prices a share balance at the pool share price; a missing price is zero.
func ValueUSD(total decimal.Decimal, pool model.PoolSnapshot) decimal.Decimal {
	return total.Mul(decimal.NewFromFloat(floatOrZero(pool.SharePrice)))
}

// UserFees is the share of the day's pool fees attributable to a user after
// the protocol cut.
func UserFees(percentShare float64, pool model.PoolSnapshot, protocolFeePercent float64) decimal.Decimal {
	return decimal.NewFromFloat(percentShare).
		Mul(decimal.NewFromFloat(floatOrZero(pool.Fees24h))).
		Mul(one.Sub(decimal.NewFromFloat(protocolFeePercent)))
}

// applyValuation sets the pool-dependent fields of a row from the pool snapshot of its day.
func applyValuation(row *model.UserPoolSnapshot, pool model.PoolSnapshot, protocolFeePercent float64) {
	row.PercentShare = PercentShare(row.TotalBalance, pool)
	row.TotalValueUSD = ValueUSD(row.TotalBalance, pool)
	row.Fees24h = UserFees(row.PercentShare, pool, protocolFeePercent)
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
