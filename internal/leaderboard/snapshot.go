package leaderboard

import (
	"math/big"
	"time"

	"github.com/matrixise/sui-friday/internal/balance"
	"github.com/matrixise/sui-friday/internal/blockchain"
)

// Holding is one coin object counted in a snapshot
type Holding struct {
	CoinObjectID string `json:"coinObjectId,omitempty"`
	Balance      string `json:"balance"`
}

// Snapshot is the latest known balance of one wallet. A newer snapshot for the
// same address replaces it entirely.
type Snapshot struct {
	Address      string
	Name         string
	Holdings     []Holding
	TotalMinor   *big.Int
	TotalMajor   float64
	HoldingCount int
	FetchedAt    time.Time
}

// NewSnapshot sums the coin balances of entry. Unparseable balances count as zero.
func NewSnapshot(entry Entry, coins []blockchain.Coin, at time.Time) Snapshot {
	total := new(big.Int)
	holdings := make([]Holding, 0, len(coins))

	for _, c := range coins {
		holdings = append(holdings, Holding{CoinObjectID: c.CoinObjectID, Balance: c.Balance})
		if v, ok := balance.ParseMinor(c.Balance); ok {
			total.Add(total, v)
		}
	}

	return Snapshot{
		Address:      normalizeKey(entry.Address),
		Name:         entry.Name,
		Holdings:     holdings,
		TotalMinor:   total,
		TotalMajor:   balance.MajorUnitsFloat(total),
		HoldingCount: len(holdings),
		FetchedAt:    at,
	}
}

// TotalDisplay is the grouped, truncated major-unit total ("1,234.5")
func (s Snapshot) TotalDisplay() string {
	return balance.Display(s.TotalMinor)
}

// TotalMajorString is the truncated major-unit total without grouping
func (s Snapshot) TotalMajorString() string {
	return balance.ToMajorUnitsInt(s.TotalMinor)
}

func (s Snapshot) clone() Snapshot {
	out := s
	if s.TotalMinor != nil {
		out.TotalMinor = new(big.Int).Set(s.TotalMinor)
	}
	out.Holdings = append([]Holding(nil), s.Holdings...)
	return out
}
