package model

// TokenDefinition holds optional price provider overrides for a token.
type TokenDefinition struct {
	Address                  string `json:"address"`
	Symbol                   string `json:"symbol"`
	CoingeckoPlatformID      string `json:"coingecko_platform_id,omitempty"`
	CoingeckoContractAddress string `json:"coingecko_contract_address,omitempty"`
}

// TokenPrice is a USD price for a token address.
type TokenPrice struct {
	Address   string  `json:"address"`
	USD       float64 `json:"usd"`
	Timestamp int64   `json:"timestamp"`
}

// MappedToken is a token address resolved to the provider platform and address
// it is priced under.
type MappedToken struct {
	Platform        string
	Address         string
	OriginalAddress string
}
