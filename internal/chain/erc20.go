package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Pool tokens carry 18 decimals.
const shareDecimals = 18

const erc20ABIJSON = `[
  {"inputs": [], "name": "totalSupply", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20ABI    abi.ABI
	erc20Once   sync.Once
	erc20ABIErr error
)

func getERC20ABI() (abi.ABI, error) {
	erc20Once.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}

// TotalSupply returns the token supply scaled to 18 decimals. A nil block reads latest state.
func TotalSupply(ctx context.Context, caller Caller, tokenAddr string, blockNumber *big.Int) (decimal.Decimal, error) {
	raw, err := callUint256(ctx, caller, tokenAddr, blockNumber, "totalSupply")
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(raw, -shareDecimals), nil
}

func callUint256(ctx context.Context, caller Caller, tokenAddr string, blockNumber *big.Int, method string, args ...interface{}) (*big.Int, error) {
	if caller == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if !common.IsHexAddress(tokenAddr) {
		return nil, fmt.Errorf("invalid token address %q", tokenAddr)
	}
	tokenABI, err := getERC20ABI()
	if err != nil {
		return nil, err
	}

	data, err := tokenABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	token := common.HexToAddress(tokenAddr)
	resp, err := caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := tokenABI.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s return size %d", method, len(values))
	}
	value, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s unexpected type %T", method, values[0])
	}
	return value, nil
}
