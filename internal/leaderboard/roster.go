// Package leaderboard polls the coin holdings of a fixed roster of wallets
// and ranks them by total SUI balance.
package leaderboard

import (
	"strings"

	"github.com/matrixise/sui-friday/internal/blockchain"
)

// Entry is one tracked wallet
type Entry struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// normalizeKey returns the canonical address used as map key. Addresses that
// do not parse are only lower-cased so they still dedupe consistently.
func normalizeKey(addr string) string {
	if norm, err := blockchain.NormalizeAddress(addr); err == nil {
		return norm
	}
	return strings.ToLower(strings.TrimSpace(addr))
}

// Dedupe drops entries whose address was already seen. The first entry wins,
// and addresses come back normalized.
func Dedupe(entries []Entry) []Entry {
	seen := make(map[string]struct{}, len(entries))
	out := make([]Entry, 0, len(entries))

	for _, e := range entries {
		key := normalizeKey(e.Address)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Entry{Name: e.Name, Address: key})
	}
	return out
}
