package model

// PoolSnapshot is the daily state of a pool. Nil pointers mean the value was
// not available for that day.
type PoolSnapshot struct {
	ID             string   `json:"id"`
	PoolID         string   `json:"pool_id"`
	Timestamp      int64    `json:"timestamp"`
	TotalShares    string   `json:"total_shares"`
	TotalSharesNum float64  `json:"total_shares_num"`
	SharePrice     *float64 `json:"share_price,omitempty"`
	Fees24h        *float64 `json:"fees_24h,omitempty"`
	Volume24h      *float64 `json:"volume_24h,omitempty"`
	TotalLiquidity *float64 `json:"total_liquidity,omitempty"`
	SwapsCount     int64    `json:"swaps_count"`
	HoldersCount   int64    `json:"holders_count"`
}
