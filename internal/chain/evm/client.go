package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/mrz1836/corewallet/internal/chain"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// baseFeeMultiplier leaves headroom for base fee growth over a few blocks.
const baseFeeMultiplier = 2

// ErrRPCURLRequired indicates the client was created without an endpoint.
var ErrRPCURLRequired = &cwerr.WalletError{
	Code:     "EVM_RPC_URL_REQUIRED",
	Message:  "RPC URL is required",
	ExitCode: cwerr.ExitInput,
}

// Backend is the subset of ethclient.Client used here.
type Backend interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Client talks to a C-chain node. It satisfies the gas estimation and
// broadcast collaborators of the send path.
type Client struct {
	backend Backend
	chainID int64
	retry   chain.RetryConfig
	closer  func()
}

// Dial connects to an EVM JSON-RPC endpoint.
func Dial(ctx context.Context, rpcURL string, chainID int64) (*Client, error) {
	if rpcURL == "" {
		return nil, ErrRPCURLRequired
	}
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, cwerr.Wrap(cwerr.ErrNetworkError, "dialing %s: %v", rpcURL, err)
	}
	return &Client{backend: ec, chainID: chainID, retry: chain.DefaultRetryConfig(), closer: ec.Close}, nil
}

// NewClient wraps an existing backend.
func NewClient(backend Backend, chainID int64) *Client {
	return &Client{backend: backend, chainID: chainID, retry: chain.DefaultRetryConfig()}
}

// Close releases the underlying connection.
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// ChainID returns the configured EVM chain id.
func (c *Client) ChainID() int64 { return c.chainID }

// EstimateGas asks the node for the gas limit of a call.
func (c *Client) EstimateGas(ctx context.Context, from, to string, value *big.Int, data []byte) (uint64, error) {
	toAddr := common.HexToAddress(to)
	msg := ethereum.CallMsg{
		From:  common.HexToAddress(from),
		To:    &toAddr,
		Value: value,
		Data:  data,
	}
	gas, err := c.backend.EstimateGas(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("estimating gas: %w", err)
	}
	return gas, nil
}

// SuggestMaxFeePerGas returns 2 * baseFee + tip.
func (c *Client) SuggestMaxFeePerGas(ctx context.Context) (*big.Int, error) {
	tip, err := c.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting tip cap: %w", err)
	}
	head, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("getting latest header: %w", err)
	}
	if head.BaseFee == nil {
		return tip, nil
	}
	fee := new(big.Int).Mul(head.BaseFee, big.NewInt(baseFeeMultiplier))
	return fee.Add(fee, tip), nil
}

// SuggestTipCap returns the node's priority fee suggestion.
func (c *Client) SuggestTipCap(ctx context.Context) (*big.Int, error) {
	return c.backend.SuggestGasTipCap(ctx)
}

// NativeBalance returns the balance of an address in wei.
func (c *Client) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	bal, err := c.backend.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("getting balance: %w", err)
	}
	return bal, nil
}

// PendingNonce returns the next nonce for an address.
func (c *Client) PendingNonce(ctx context.Context, address string) (uint64, error) {
	return c.backend.PendingNonceAt(ctx, common.HexToAddress(address))
}

// SendTransaction broadcasts a signed transaction and returns its hash.
// Transport failures are retried; node rejections are not.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) (string, error) {
	return chain.Retry(ctx, c.retry, func(ctx context.Context) (string, error) {
		if err := c.backend.SendTransaction(ctx, tx); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", cwerr.Wrap(cwerr.ErrTxRejected, "broadcasting %s: %v", tx.Hash().Hex(), err)
		}
		return tx.Hash().Hex(), nil
	})
}
