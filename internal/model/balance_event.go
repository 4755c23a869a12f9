package model

// BalanceEvent is a raw balance change for a user as reported by the
// user balance subgraph. Map keys are lower-case token addresses or staking ids,
// values are decimal strings.
type BalanceEvent struct {
	ID             string            `json:"id"`
	Timestamp      int64             `json:"timestamp"`
	UserAddress    string            `json:"user_address"`
	WalletBalances map[string]string `json:"wallet_balances"`
	GaugeBalances  map[string]string `json:"gauge_balances"`
	FarmBalances   map[string]string `json:"farm_balances"`
}
