package snapshot

import (
	"fmt"
	"strings"

	"poolSnapshots/internal/model"
)

// RelevantEvents keeps the events that carry a balance for the pool: the pool
// token in the wallet, or the pool staking id among gauges or farms.
func RelevantEvents(pool model.Pool, events []model.BalanceEvent) []model.BalanceEvent {
	stakingID := pool.StakingID()
	out := make([]model.BalanceEvent, 0, len(events))
	for _, event := range events {
		if _, ok := lookupBalance(event.WalletBalances, pool.Address); ok {
			out = append(out, event)
			continue
		}
		if stakingID == "" {
			continue
		}
		_, inGauge := lookupBalance(event.GaugeBalances, stakingID)
		_, inFarm := lookupBalance(event.FarmBalances, stakingID)
		if inGauge || inFarm {
			out = append(out, event)
		}
	}
	return out
}

// LatestPerDay collapses events of the same day to the last one, keeping
// ascending order. Event timestamps are aligned to the start of their day.
func LatestPerDay(events []model.BalanceEvent) []model.BalanceEvent {
	out := make([]model.BalanceEvent, 0, len(events))
	for _, event := range events {
		event.Timestamp = StartOfDay(event.Timestamp)
		if n := len(out); n > 0 && out[n-1].Timestamp == event.Timestamp {
			out[n-1] = event
			continue
		}
		out = append(out, event)
	}
	return out
}

// NewUserPoolSnapshot values a balance event against the pool snapshot of the same day.
func NewUserPoolSnapshot(pool model.Pool, userAddress string, event model.BalanceEvent, poolSnapshot model.PoolSnapshot, protocolFeePercent float64) (model.UserPoolSnapshot, error) {
	stakingID := pool.StakingID()

	walletRaw, _ := lookupBalance(event.WalletBalances, pool.Address)
	var gaugeRaw, farmRaw string
	if stakingID != "" {
		gaugeRaw, _ = lookupBalance(event.GaugeBalances, stakingID)
		farmRaw, _ = lookupBalance(event.FarmBalances, stakingID)
	}

	wallet, err := ParseAmount(walletRaw)
	if err != nil {
		return model.UserPoolSnapshot{}, fmt.Errorf("wallet balance: %w", err)
	}
	gauge, err := ParseAmount(gaugeRaw)
	if err != nil {
		return model.UserPoolSnapshot{}, fmt.Errorf("gauge balance: %w", err)
	}
	farm, err := ParseAmount(farmRaw)
	if err != nil {
		return model.UserPoolSnapshot{}, fmt.Errorf("farm balance: %w", err)
	}

	user := normalizeAddress(userAddress)
	if event.UserAddress != "" {
		user = normalizeAddress(event.UserAddress)
	}
	poolToken := normalizeAddress(pool.Address)

	row := model.UserPoolSnapshot{
		ID:            fmt.Sprintf("%s-%s-%s", poolToken, user, event.ID),
		Timestamp:     StartOfDay(event.Timestamp),
		UserAddress:   user,
		PoolID:        pool.ID,
		PoolToken:     poolToken,
		WalletBalance: wallet,
		GaugeBalance:  gauge,
		FarmBalance:   farm,
		TotalBalance:  SumAmounts(wallet, gauge, farm),
	}
	applyValuation(&row, poolSnapshot, protocolFeePercent)
	return row, nil
}

func lookupBalance(balances map[string]string, key string) (string, bool) {
	if key == "" || len(balances) == 0 {
		return "", false
	}
	if v, ok := balances[key]; ok {
		return v, true
	}
	for k, v := range balances {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
