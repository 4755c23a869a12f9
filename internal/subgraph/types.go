package subgraph

// UserBalanceSnapshot is a userBalanceSnapshot entity of the user balance subgraph.
type UserBalanceSnapshot struct {
	ID             string   `json:"id"`
	Timestamp      int64    `json:"timestamp"`
	User           Entity   `json:"user"`
	WalletTokens   []string `json:"walletTokens"`
	WalletBalances []string `json:"walletBalances"`
	Gauges         []string `json:"gauges"`
	GaugeBalances  []string `json:"gaugeBalances"`
	Farms          []string `json:"farms"`
	FarmBalances   []string `json:"farmBalances"`
}

// PoolSnapshot is a poolSnapshot entity of the pool subgraph. Amounts are
// cumulative decimal strings.
type PoolSnapshot struct {
	ID           string `json:"id"`
	Timestamp    int64  `json:"timestamp"`
	TotalShares  string `json:"totalShares"`
	SwapVolume   string `json:"swapVolume"`
	SwapFees     string `json:"swapFees"`
	Liquidity    string `json:"liquidity"`
	SwapsCount   string `json:"swapsCount"`
	HoldersCount string `json:"holdersCount"`
}

// Entity is a reference to another subgraph entity.
type Entity struct {
	ID string `json:"id"`
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}
