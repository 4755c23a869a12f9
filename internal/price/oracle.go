package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolSnapshots/internal/model"
)

const (
	defaultBaseURL             = "https://api.coingecko.com/api/v3"
	defaultAddressesPerRequest = 100
	// Coingecko allows about 10 calls per second per IP.
	defaultMaxRequests = 10
	defaultWorkers     = 4
	fiatParam          = "usd"
)

var ErrRateBudgetExceeded = errors.New("too many requests for rate limit")

// Config configures the Coingecko price oracle.
type Config struct {
	BaseURL             string
	PlatformID          string
	NativeAssetID       string
	NativeAssetAddress  string
	AddressesPerRequest int
	MaxRequests         int
	Workers             int
	HTTPClient          *http.Client
	Now                 func() time.Time
}

// TokenDefinitions lists tokens with provider overrides.
type TokenDefinitions interface {
	ListTokenDefinitions(ctx context.Context) ([]model.TokenDefinition, error)
}

// Cache stores recent prices keyed by checksum address.
type Cache interface {
	Get(ctx context.Context, address string) (model.TokenPrice, bool, error)
	Set(ctx context.Context, prices []model.TokenPrice) error
}

// HistoricalPrice is a USD price anchored to the start of an hour.
type HistoricalPrice struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

// Oracle fetches USD token prices from Coingecko.
type Oracle struct {
	cfg    Config
	http   *http.Client
	tokens TokenDefinitions
	cache  Cache
	pool   pond.Pool
	logger *zap.Logger
}

type coingeckoPrices map[string]map[string]float64

func NewOracle(cfg Config, tokens TokenDefinitions, cache Cache, logger *zap.Logger) *Oracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.AddressesPerRequest <= 0 {
		cfg.AddressesPerRequest = defaultAddressesPerRequest
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = defaultMaxRequests
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Oracle{
		cfg:    cfg,
		http:   httpClient,
		tokens: tokens,
		cache:  cache,
		pool:   pond.NewPool(cfg.Workers),
		logger: logger,
	}
}

// Close stops the fetch worker pool.
func (o *Oracle) Close() {
	o.pool.StopAndWait()
}

// BatchLimit is the largest number of uncached addresses a single GetPrices call accepts.
func (o *Oracle) BatchLimit() int {
	return o.cfg.AddressesPerRequest * o.cfg.MaxRequests
}

// GetPrices returns USD prices keyed by checksum address. Addresses the
// provider does not know are absent from the result.
func (o *Oracle) GetPrices(ctx context.Context, addresses []string) (map[string]model.TokenPrice, error) {
	result := make(map[string]model.TokenPrice, len(addresses))
	misses := make([]string, 0, len(addresses))
	seen := make(map[string]struct{}, len(addresses))
	wantNative := false

	for _, address := range addresses {
		key := ChecksumAddress(address)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if o.cache != nil {
			cached, ok, err := o.cache.Get(ctx, key)
			if err != nil {
				o.logger.Warn("price cache read failed", zap.String("address", key), zap.Error(err))
			} else if ok {
				result[key] = cached
				continue
			}
		}
		if o.isNative(address) {
			wantNative = true
			continue
		}
		misses = append(misses, address)
	}

	if float64(len(misses))/float64(o.cfg.AddressesPerRequest) > float64(o.cfg.MaxRequests) {
		return nil, fmt.Errorf("%d addresses: %w", len(misses), ErrRateBudgetExceeded)
	}

	fetched := make([]model.TokenPrice, 0, len(misses)+1)
	if len(misses) > 0 {
		prices, err := o.fetchTokenPrices(ctx, misses)
		if err != nil {
			return nil, err
		}
		for _, p := range prices {
			result[p.Address] = p
			fetched = append(fetched, p)
		}
	}

	if wantNative {
		native, err := o.GetNativeAssetPrice(ctx)
		if err != nil {
			return nil, err
		}
		result[native.Address] = native
		fetched = append(fetched, native)
	}

	if o.cache != nil && len(fetched) > 0 {
		if err := o.cache.Set(ctx, fetched); err != nil {
			o.logger.Warn("price cache write failed", zap.Int("count", len(fetched)), zap.Error(err))
		}
	}

	o.logger.Debug("token prices resolved",
		zap.Int("requested", len(seen)),
		zap.Int("fetched", len(fetched)),
		zap.Int("priced", len(result)),
	)
	return result, nil
}

// GetNativeAssetPrice returns the USD price of the chain's native asset.
func (o *Oracle) GetNativeAssetPrice(ctx context.Context) (model.TokenPrice, error) {
	if o.cfg.NativeAssetID == "" {
		return model.TokenPrice{}, fmt.Errorf("native asset id is not configured")
	}
	endpoint := fmt.Sprintf("/simple/price?ids=%s&vs_currencies=%s", o.cfg.NativeAssetID, fiatParam)
	var resp coingeckoPrices
	if err := o.get(ctx, endpoint, &resp); err != nil {
		return model.TokenPrice{}, fmt.Errorf("native asset price: %w", err)
	}
	usd, ok := resp[o.cfg.NativeAssetID][fiatParam]
	if !ok {
		return model.TokenPrice{}, fmt.Errorf("native asset %s not priced", o.cfg.NativeAssetID)
	}
	return model.TokenPrice{
		Address:   ChecksumAddress(o.cfg.NativeAssetAddress),
		USD:       usd,
		Timestamp: o.cfg.Now().Unix(),
	}, nil
}

// GetHistoricalPrices returns hourly anchored prices of a token over the last days.
func (o *Oracle) GetHistoricalPrices(ctx context.Context, address string, days int) ([]HistoricalPrice, error) {
	defs, err := o.definitions(ctx)
	if err != nil {
		return nil, err
	}
	mapped := o.MappedTokenDetails(address, defs)
	end := o.cfg.Now().Unix()
	start := end - int64(days)*86400

	endpoint := fmt.Sprintf("/coins/%s/contract/%s/market_chart/range?vs_currency=%s&from=%d&to=%d",
		mapped.Platform, mapped.Address, fiatParam, start, end)
	var resp struct {
		Prices [][2]float64 `json:"prices"`
	}
	if err := o.get(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("historical prices %s: %w", address, err)
	}

	out := make([]HistoricalPrice, 0, len(resp.Prices))
	for _, item := range resp.Prices {
		sec := int64(item[0]) / 1000
		out = append(out, HistoricalPrice{
			Timestamp: (sec - sec%3600) * 1000,
			Price:     item[1],
		})
	}
	return out, nil
}

// MappedTokenDetails resolves the platform and contract address a token is
// priced under. Tokens without a full override use the default platform.
func (o *Oracle) MappedTokenDetails(address string, defs []model.TokenDefinition) model.MappedToken {
	lower := strings.ToLower(address)
	for _, def := range defs {
		if strings.ToLower(def.Address) != lower {
			continue
		}
		if def.CoingeckoPlatformID == "" || def.CoingeckoContractAddress == "" {
			break
		}
		contract := def.CoingeckoContractAddress
		if common.IsHexAddress(contract) {
			contract = strings.ToLower(contract)
		}
		return model.MappedToken{
			Platform:        def.CoingeckoPlatformID,
			Address:         contract,
			OriginalAddress: lower,
		}
	}
	return model.MappedToken{Platform: o.cfg.PlatformID, Address: lower}
}

func (o *Oracle) fetchTokenPrices(ctx context.Context, addresses []string) ([]model.TokenPrice, error) {
	defs, err := o.definitions(ctx)
	if err != nil {
		return nil, err
	}

	mapped := make([]model.MappedToken, 0, len(addresses))
	byPlatform := make(map[string][]string)
	platforms := make([]string, 0)
	for _, address := range addresses {
		token := o.MappedTokenDetails(address, defs)
		mapped = append(mapped, token)
		if _, ok := byPlatform[token.Platform]; !ok {
			platforms = append(platforms, token.Platform)
		}
		byPlatform[token.Platform] = append(byPlatform[token.Platform], token.Address)
	}

	var (
		mu       sync.Mutex
		merged   = make(coingeckoPrices)
		firstErr error
	)
	group := o.pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	for _, platform := range platforms {
		contracts := byPlatform[platform]
		for start := 0; start < len(contracts); start += o.cfg.AddressesPerRequest {
			end := start + o.cfg.AddressesPerRequest
			if end > len(contracts) {
				end = len(contracts)
			}
			endpoint := fmt.Sprintf("/simple/token_price/%s?contract_addresses=%s&vs_currencies=%s",
				platform, strings.Join(contracts[start:end], ","), fiatParam)
			group.Submit(func() {
				if err := groupCtx.Err(); err != nil {
					return
				}
				var page coingeckoPrices
				err := o.get(groupCtx, endpoint, &page)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					return
				}
				for address, price := range page {
					merged[address] = price
				}
			})
		}
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		o.logger.Warn("token price fetch group failed", zap.Error(err))
	}
	if firstErr != nil {
		return nil, fmt.Errorf("token prices: %w", firstErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := o.cfg.Now().Unix()
	prices := make(map[string]model.TokenPrice, len(merged))
	for address, price := range merged {
		usd, ok := price[fiatParam]
		if !ok {
			continue
		}
		key := ChecksumAddress(address)
		prices[key] = model.TokenPrice{Address: key, USD: usd, Timestamp: now}
	}
	for _, token := range mapped {
		if token.OriginalAddress == "" {
			continue
		}
		if price, ok := merged[token.Address][fiatParam]; ok {
			key := ChecksumAddress(token.OriginalAddress)
			prices[key] = model.TokenPrice{Address: key, USD: price, Timestamp: now}
		}
	}

	out := make([]model.TokenPrice, 0, len(prices))
	for _, p := range prices {
		out = append(out, p)
	}
	return out, nil
}

func (o *Oracle) definitions(ctx context.Context) ([]model.TokenDefinition, error) {
	if o.tokens == nil {
		return nil, nil
	}
	defs, err := o.tokens.ListTokenDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("token definitions: %w", err)
	}
	return defs, nil
}

func (o *Oracle) isNative(address string) bool {
	return o.cfg.NativeAssetAddress != "" && strings.EqualFold(address, o.cfg.NativeAssetAddress)
}

func (o *Oracle) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.cfg.BaseURL+endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateBudgetExceeded
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("coingecko status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ChecksumAddress returns the EIP-55 form of hex addresses and the input otherwise.
func ChecksumAddress(address string) string {
	if common.IsHexAddress(address) {
		return common.HexToAddress(address).Hex()
	}
	return address
}
