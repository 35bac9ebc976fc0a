package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/matrixise/sui-friday/internal/leaderboard"
)

// snapshotStore is the part of Store the recorder needs
type snapshotStore interface {
	InsertSnapshots(ctx context.Context, snapshots []BalanceSnapshot) error
	LatestTotals(ctx context.Context) (map[string]string, error)
}

// Recorder writes a history row whenever a wallet's total changes. Polls
// that observe the same total are not persisted.
type Recorder struct {
	store snapshotStore

	mu   sync.Mutex
	last map[string]string
}

// NewRecorder creates a recorder over store
func NewRecorder(store *Store) *Recorder {
	return newRecorder(store)
}

func newRecorder(store snapshotStore) *Recorder {
	return &Recorder{store: store, last: make(map[string]string)}
}

// Prime loads the latest persisted totals so a restart does not duplicate rows
func (r *Recorder) Prime(ctx context.Context) error {
	totals, err := r.store.LatestTotals(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for addr, total := range totals {
		r.last[addr] = total
	}
	slog.Debug("Balance history primed", "wallets", len(totals))
	return nil
}

// Record implements leaderboard.Recorder
func (r *Recorder) Record(ctx context.Context, snap leaderboard.Snapshot) error {
	row := FromSnapshot(snap)
	total := row.TotalMist.String()

	r.mu.Lock()
	unchanged := r.last[row.Address] == total
	r.mu.Unlock()
	if unchanged {
		return nil
	}

	if err := r.store.InsertSnapshots(ctx, []BalanceSnapshot{row}); err != nil {
		return fmt.Errorf("failed to record snapshot for %s: %w", row.Address, err)
	}

	r.mu.Lock()
	r.last[row.Address] = total
	r.mu.Unlock()

	slog.Debug("Balance snapshot recorded", "address", row.Address, "total_sui", row.TotalSUI.String())
	return nil
}
