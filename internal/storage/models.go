package storage

import (
	"time"

	"github.com/matrixise/sui-friday/internal/balance"
	"github.com/matrixise/sui-friday/internal/leaderboard"
	"github.com/shopspring/decimal"
)

// BalanceSnapshot is one persisted leaderboard observation
type BalanceSnapshot struct {
	ID        int64           `json:"id"`
	FetchedAt time.Time       `json:"fetched_at"`
	Address   string          `json:"address"`
	Name      string          `json:"name"`
	TotalMist decimal.Decimal `json:"total_mist"`
	TotalSUI  decimal.Decimal `json:"total_sui"`
	CoinCount int             `json:"coin_count"`
}

// FromSnapshot converts an applied leaderboard snapshot into a row
func FromSnapshot(s leaderboard.Snapshot) BalanceSnapshot {
	mist := decimal.Zero
	if s.TotalMinor != nil {
		mist = decimal.NewFromBigInt(s.TotalMinor, 0)
	}
	return BalanceSnapshot{
		FetchedAt: s.FetchedAt,
		Address:   s.Address,
		Name:      s.Name,
		TotalMist: mist,
		TotalSUI:  mist.Shift(-balance.Decimals),
		CoinCount: s.HoldingCount,
	}
}
