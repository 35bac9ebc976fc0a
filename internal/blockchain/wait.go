package blockchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
)

// ErrWaitTimeout is returned when a digest did not show up before the timeout
var ErrWaitTimeout = errors.New("transaction not found before timeout")

const (
	DefaultWaitTimeout      = 60 * time.Second
	DefaultWaitPollInterval = 2 * time.Second
)

// WaitOptions controls WaitForTransaction
type WaitOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
	Options      TransactionBlockResponseOptions
}

// WaitForTransaction polls sui_getTransactionBlock until the digest is known
// to the node or the timeout elapses. Every lookup error is retried, since a
// freshly executed digest is reported as missing until it is indexed.
func (c *Client) WaitForTransaction(ctx context.Context, digest string, opts WaitOptions) (*TransactionBlockResponse, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultWaitTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultWaitPollInterval
	}

	waitCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	attempts := uint(opts.Timeout/opts.PollInterval) + 1

	resp, err := retry.DoWithData(
		func() (*TransactionBlockResponse, error) {
			return c.GetTransactionBlock(waitCtx, digest, opts.Options)
		},
		retry.Context(waitCtx),
		retry.Attempts(attempts),
		retry.Delay(opts.PollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Debug("Transaction not yet available",
				"digest", digest,
				"attempt", n+1,
				"error", err)
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("wait for transaction %s: %w", digest, ctx.Err())
		}
		return nil, fmt.Errorf("%w after %s (%s): %w", ErrWaitTimeout, opts.Timeout, digest, err)
	}
	return resp, nil
}
