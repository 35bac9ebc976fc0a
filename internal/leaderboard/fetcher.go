package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/matrixise/sui-friday/internal/blockchain"
	"github.com/matrixise/sui-friday/internal/metrics"
)

// maxCoinPages bounds how many suix_getCoins pages one fetch follows
const maxCoinPages = 10

// CoinSource is the holdings provider used by fetchers
type CoinSource interface {
	GetCoins(ctx context.Context, owner, coinType string, cursor *string, limit int) (*blockchain.CoinPage, error)
}

// Fetcher polls the holdings of one wallet and emits snapshots
type Fetcher struct {
	entry  Entry
	source CoinSource
	out    chan<- Snapshot
	now    func() time.Time
}

func NewFetcher(entry Entry, source CoinSource, out chan<- Snapshot) *Fetcher {
	return &Fetcher{
		entry:  entry,
		source: source,
		out:    out,
		now:    time.Now,
	}
}

func (f *Fetcher) Entry() Entry {
	return f.entry
}

// JobName identifies the fetcher on the scheduler
func (f *Fetcher) JobName() string {
	return "wallet-" + f.entry.Address
}

// Fetch reads every coin page of the wallet. It returns nil without error when
// the node has no data for the wallet, including a null page after the first,
// so a partial total never replaces a complete one.
func (f *Fetcher) Fetch(ctx context.Context) (*Snapshot, error) {
	var (
		coins  []blockchain.Coin
		cursor *string
	)

	for page := 0; ; page++ {
		if page == maxCoinPages {
			slog.Warn("Coin page limit reached, balance is truncated",
				"wallet", f.entry.Name,
				"address", f.entry.Address,
				"pages", maxCoinPages,
				"coins", len(coins))
			break
		}

		resp, err := f.source.GetCoins(ctx, f.entry.Address, "", cursor, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to get coins for %s: %w", f.entry.Address, err)
		}
		if resp == nil || resp.Data == nil {
			return nil, nil
		}
		coins = append(coins, resp.Data...)

		if !resp.HasNextPage || resp.NextCursor == nil {
			break
		}
		cursor = resp.NextCursor
	}

	snap := NewSnapshot(f.entry, coins, f.now())
	return &snap, nil
}

// Poll runs one fetch and emits the snapshot. Failures are logged and dropped;
// the next tick retries. Nothing is emitted once ctx is done.
func (f *Fetcher) Poll(ctx context.Context) {
	snap, err := f.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.RecordWalletFetch(metrics.Error)
		slog.Warn("Failed to fetch wallet holdings",
			"wallet", f.entry.Name,
			"address", f.entry.Address,
			"error", err)
		return
	}
	if snap == nil {
		metrics.RecordWalletFetch(metrics.Empty)
		slog.Debug("No holdings data yet", "wallet", f.entry.Name, "address", f.entry.Address)
		return
	}

	metrics.RecordWalletFetch(metrics.Success)
	slog.Debug("Holdings retrieved",
		"wallet", f.entry.Name,
		"address", f.entry.Address,
		"coins", snap.HoldingCount,
		"total_sui", snap.TotalMajorString())

	select {
	case f.out <- *snap:
	case <-ctx.Done():
	}
}
