// Package blockchain talks to Sui full nodes over JSON-RPC and builds,
// signs and submits programmable transactions.
package blockchain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/matrixise/sui-friday/internal/metrics"
)

const (
	rpcTimeout = 10 * time.Second
)

// ErrNotFound is returned when the node answered with a null result
var ErrNotFound = errors.New("not found")

// Client wraps Sui JSON-RPC functionality with failover support
type Client struct {
	failoverClient *FailoverClient
}

// NewClient creates a new Sui client with failover support
func NewClient(rpcURLs []string) (*Client, error) {
	failoverClient, err := NewFailoverClient(rpcURLs)
	if err != nil {
		return nil, err
	}
	return &Client{failoverClient: failoverClient}, nil
}

// Close closes all RPC client connections
func (c *Client) Close() {
	c.failoverClient.Close()
}

// GetHealthyEndpoint returns the endpoint calls are currently routed to
func (c *Client) GetHealthyEndpoint() (*rpc.Client, string, error) {
	return c.failoverClient.GetClient()
}

// GetEndpointsHealth reports the health of every configured endpoint
func (c *Client) GetEndpointsHealth() map[string]bool {
	return c.failoverClient.EndpointsHealth()
}

// call runs one JSON-RPC call. Transport failures move on to the next
// endpoint immediately. Errors the node itself returned are final, since
// another node would answer the same.
func (c *Client) call(ctx context.Context, result any, method string, args ...any) error {
	var lastErr error

	for range c.failoverClient.Len() {
		rpcClient, url, err := c.failoverClient.GetClient()
		if err != nil {
			return fmt.Errorf("no RPC endpoint available: %w", err)
		}

		callCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
		started := time.Now()
		err = rpcClient.CallContext(callCtx, result, method, args...)
		cancel()
		metrics.ObserveRPC(method, started, err)

		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) {
			return fmt.Errorf("%s: %w", method, err)
		}

		lastErr = err
		c.failoverClient.MarkUnhealthy(url, err)
	}

	return fmt.Errorf("%s: %w", method, lastErr)
}

// GetCoins returns one page of coins owned by owner. An empty coinType selects SUI.
func (c *Client) GetCoins(ctx context.Context, owner, coinType string, cursor *string, limit int) (*CoinPage, error) {
	var ct, lim any
	if coinType != "" {
		ct = coinType
	}
	if limit > 0 {
		lim = limit
	}

	var page *CoinPage
	if err := c.call(ctx, &page, "suix_getCoins", owner, ct, cursor, lim); err != nil {
		return nil, err
	}
	return page, nil
}

// GetBalance returns the total SUI balance of owner
func (c *Client) GetBalance(ctx context.Context, owner string) (*Balance, error) {
	var bal *Balance
	if err := c.call(ctx, &bal, "suix_getBalance", owner); err != nil {
		return nil, err
	}
	if bal == nil {
		return nil, fmt.Errorf("suix_getBalance %s: %w", owner, ErrNotFound)
	}
	return bal, nil
}

// GetObject reads one object
func (c *Client) GetObject(ctx context.Context, id string, opts ObjectDataOptions) (*ObjectResponse, error) {
	var obj *ObjectResponse
	if err := c.call(ctx, &obj, "sui_getObject", id, opts); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("sui_getObject %s: %w", id, ErrNotFound)
	}
	return obj, nil
}

// GetReferenceGasPrice returns the reference gas price of the current epoch
func (c *Client) GetReferenceGasPrice(ctx context.Context) (uint64, error) {
	var price Uint64
	if err := c.call(ctx, &price, "suix_getReferenceGasPrice"); err != nil {
		return 0, err
	}
	return uint64(price), nil
}

// GetChainIdentifier returns the chain identifier; used as a liveness probe
func (c *Client) GetChainIdentifier(ctx context.Context) (string, error) {
	var id string
	if err := c.call(ctx, &id, "sui_getChainIdentifier"); err != nil {
		return "", err
	}
	return id, nil
}

// ExecuteTransactionBlock submits signed transaction bytes, both base64
func (c *Client) ExecuteTransactionBlock(ctx context.Context, txBytes string, signatures []string, opts TransactionBlockResponseOptions) (*TransactionBlockResponse, error) {
	var resp *TransactionBlockResponse
	if err := c.call(ctx, &resp, "sui_executeTransactionBlock", txBytes, signatures, opts); err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("sui_executeTransactionBlock: %w", ErrNotFound)
	}
	return resp, nil
}

// GetTransactionBlock reads a finalized transaction by digest
func (c *Client) GetTransactionBlock(ctx context.Context, digest string, opts TransactionBlockResponseOptions) (*TransactionBlockResponse, error) {
	var resp *TransactionBlockResponse
	if err := c.call(ctx, &resp, "sui_getTransactionBlock", digest, opts); err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("sui_getTransactionBlock %s: %w", digest, ErrNotFound)
	}
	return resp, nil
}
