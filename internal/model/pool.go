package model

import "errors"

// ErrPoolNotFound is returned when a pool id is not registered.
var ErrPoolNotFound = errors.New("pool not found")

// Pool is a registered liquidity pool. Address is the pool share token.
type Pool struct {
	ID      string   `json:"id"`
	Address string   `json:"address"`
	Name    string   `json:"name"`
	Staking *Staking `json:"staking,omitempty"`
}

// Staking is the farm or gauge where pool shares can be deposited.
type Staking struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// StakingID returns the staking id or an empty string.
func (p Pool) StakingID() string {
	if p.Staking == nil {
		return ""
	}
	return p.Staking.ID
}
