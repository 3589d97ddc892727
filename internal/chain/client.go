package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"shieldswap/internal/contract"
)

// Options tunes retries and confirmation polling.
type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
	ConfirmPoll  time.Duration
	Logger       *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 200 * time.Millisecond
	}
	if o.ConfirmPoll <= 0 {
		o.ConfirmPoll = time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Client talks to a ledger node over JSON-RPC. Views go through eth_call;
// writes go through the node's ledger_* namespace and are awaited by
// polling for the receipt.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	opts      Options
	logger    *zap.Logger
}

// NewClient dials the node at rpcURL.
func NewClient(ctx context.Context, rpcURL string, opts Options) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return NewClientFromRPC(rpcClient, opts), nil
}

// NewClientFromRPC wraps an existing RPC connection.
func NewClientFromRPC(rpcClient *rpc.Client, opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		opts:      opts,
		logger:    opts.Logger,
	}
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

// callView performs an eth_call for a contract method and decodes the
// outputs. Reads are retried; a missing contract surfaces as an error.
func (c *Client) callView(ctx context.Context, target common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	msg := ethereum.CallMsg{To: &target, Data: data}

	var out []byte
	err = withRetry(ctx, c.logger, method, c.opts.MaxRetries, c.opts.RetryBackoff, func(ctx context.Context) error {
		var callErr error
		out, callErr = c.ethClient.CallContract(ctx, msg, nil)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, target.Hex(), err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("call %s on %s: empty result", method, target.Hex())
	}
	return contract.Unpack(method, out)
}

// ViewReserves returns (reserve0, reserve1) from one get_reserves call.
func (c *Client) ViewReserves(ctx context.Context, pool common.Address) (*big.Int, *big.Int, error) {
	values, err := c.callView(ctx, pool, "get_reserves")
	if err != nil {
		return nil, nil, err
	}
	if len(values) < 2 {
		return nil, nil, fmt.Errorf("get_reserves returned %d values", len(values))
	}
	r0, err := contract.AsBigInt(values[0])
	if err != nil {
		return nil, nil, fmt.Errorf("decode reserve0: %w", err)
	}
	r1, err := contract.AsBigInt(values[1])
	if err != nil {
		return nil, nil, fmt.Errorf("decode reserve1: %w", err)
	}
	return r0, r1, nil
}

// ViewTokens returns the pool's (token0, token1).
func (c *Client) ViewTokens(ctx context.Context, pool common.Address) (common.Address, common.Address, error) {
	values, err := c.callView(ctx, pool, "token0")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	token0, err := contract.AsAddress(values[0])
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("decode token0: %w", err)
	}
	values, err = c.callView(ctx, pool, "token1")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	token1, err := contract.AsAddress(values[0])
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("decode token1: %w", err)
	}
	return token0, token1, nil
}

func (c *Client) BalanceOfPrivate(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	values, err := c.callView(ctx, token, "balance_of_private", owner)
	if err != nil {
		return nil, err
	}
	return contract.AsBigInt(values[0])
}

func (c *Client) BalanceOfPublic(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	values, err := c.callView(ctx, token, "balance_of_public", owner)
	if err != nil {
		return nil, err
	}
	return contract.AsBigInt(values[0])
}

// TokenMeta reads symbol and decimals of a token contract.
func (c *Client) TokenMeta(ctx context.Context, token common.Address) (string, uint8, error) {
	values, err := c.callView(ctx, token, "symbol")
	if err != nil {
		return "", 0, err
	}
	symbol, err := contract.AsString(values[0])
	if err != nil {
		return "", 0, fmt.Errorf("decode symbol: %w", err)
	}
	values, err = c.callView(ctx, token, "decimals")
	if err != nil {
		return "", 0, err
	}
	decimals, err := contract.AsUint8(values[0])
	if err != nil {
		return "", 0, fmt.Errorf("decode decimals: %w", err)
	}
	return symbol, decimals, nil
}
