package model

import "github.com/shopspring/decimal"

// UserPoolSnapshot is the daily balance and valuation of a user position in a pool.
type UserPoolSnapshot struct {
	ID            string          `json:"id,omitempty"`
	Timestamp     int64           `json:"timestamp"`
	UserAddress   string          `json:"user_address"`
	PoolID        string          `json:"pool_id"`
	PoolToken     string          `json:"pool_token"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
	GaugeBalance  decimal.Decimal `json:"gauge_balance"`
	FarmBalance   decimal.Decimal `json:"farm_balance"`
	TotalBalance  decimal.Decimal `json:"total_balance"`
	PercentShare  float64         `json:"percent_share"`
	TotalValueUSD decimal.Decimal `json:"total_value_usd"`
	Fees24h       decimal.Decimal `json:"fees_24h"`
}
