package leaderboard

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/matrixise/sui-friday/internal/metrics"
)

// PlaceholderRows is how many skeleton rows are shown while loading
const PlaceholderRows = 5

// Recorder persists applied snapshots, e.g. as balance history
type Recorder interface {
	Record(ctx context.Context, snap Snapshot) error
}

// Row is one ranked leaderboard line
type Row struct {
	Rank     int
	Snapshot Snapshot
	Progress int
}

// Board is everything a view needs to render the leaderboard
type Board struct {
	Loading      bool
	Placeholders int
	Rows         []Row
	Empty        bool
	MaxBalance   float64
	Loaded       int
	Tracked      int
}

// Aggregator keeps the latest snapshot per roster address. Run is the only
// writer; all other methods are safe for concurrent readers.
type Aggregator struct {
	mu        sync.RWMutex
	roster    map[string]Entry
	tracked   int
	snapshots map[string]Snapshot
	order     []string
	recorder  Recorder
}

type Option func(*Aggregator)

// WithRecorder passes every applied snapshot to r
func WithRecorder(r Recorder) Option {
	return func(a *Aggregator) {
		a.recorder = r
	}
}

// NewAggregator tracks the deduplicated roster
func NewAggregator(roster []Entry, opts ...Option) *Aggregator {
	entries := Dedupe(roster)
	a := &Aggregator{
		roster:    make(map[string]Entry, len(entries)),
		tracked:   len(entries),
		snapshots: make(map[string]Snapshot, len(entries)),
	}
	for _, e := range entries {
		a.roster[e.Address] = e
	}
	for _, opt := range opts {
		opt(a)
	}
	metrics.SetWalletsLoaded(0, a.tracked)
	return a
}

// Apply stores snap, replacing any earlier snapshot for the address.
// Snapshots for addresses outside the roster are dropped.
func (a *Aggregator) Apply(snap Snapshot) bool {
	key := normalizeKey(snap.Address)
	snap.Address = key

	a.mu.Lock()
	if _, ok := a.roster[key]; !ok {
		a.mu.Unlock()
		slog.Warn("Dropping snapshot for untracked wallet", "address", key)
		return false
	}
	if _, seen := a.snapshots[key]; !seen {
		a.order = append(a.order, key)
	}
	a.snapshots[key] = snap.clone()
	loaded := len(a.snapshots)
	a.mu.Unlock()

	metrics.SetWalletsLoaded(loaded, a.tracked)
	return true
}

// Run applies snapshots from in until ctx is done or in is closed
func (a *Aggregator) Run(ctx context.Context, in <-chan Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-in:
			if !ok {
				return
			}
			snap.Address = normalizeKey(snap.Address)
			if !a.Apply(snap) || a.recorder == nil {
				continue
			}
			if err := a.recorder.Record(ctx, snap); err != nil && ctx.Err() == nil {
				slog.Warn("Failed to record balance snapshot", "address", snap.Address, "error", err)
			}
		}
	}
}

// Tracked is the deduplicated roster size
func (a *Aggregator) Tracked() int {
	return a.tracked
}

// Loaded is the number of wallets with at least one snapshot
func (a *Aggregator) Loaded() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.snapshots)
}

// AllLoaded reports whether every roster wallet has a snapshot
func (a *Aggregator) AllLoaded() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.snapshots) == a.tracked
}

// Snapshot returns the latest snapshot of addr
func (a *Aggregator) Snapshot(addr string) (Snapshot, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.snapshots[normalizeKey(addr)]
	if !ok {
		return Snapshot{}, false
	}
	return s.clone(), true
}

// Entry returns the roster entry of addr
func (a *Aggregator) Entry(addr string) (Entry, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.roster[normalizeKey(addr)]
	return e, ok
}

// ordered returns copies of the snapshots in first-insertion order
func (a *Aggregator) ordered() []Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Snapshot, 0, len(a.order))
	for _, key := range a.order {
		out = append(out, a.snapshots[key].clone())
	}
	return out
}

// MaxBalance is the highest TotalMajor, or 0 without snapshots
func (a *Aggregator) MaxBalance() float64 {
	return maxBalance(a.ordered())
}

func maxBalance(snaps []Snapshot) float64 {
	highest := 0.0
	for _, s := range snaps {
		if s.TotalMajor > highest {
			highest = s.TotalMajor
		}
	}
	return highest
}

// ProgressPercent scales total against highest for progress bars. Any
// total reads at least 2 so the bar stays visible.
func ProgressPercent(total, highest float64) int {
	if highest <= 0 {
		return 0
	}
	return int(math.Max(2, math.Round(total/highest*100)))
}

// RankedRows sorts snapshots by TotalMajor descending. Equal totals keep
// first-insertion order.
func (a *Aggregator) RankedRows() []Row {
	snaps := a.ordered()
	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].TotalMajor > snaps[j].TotalMajor
	})

	highest := maxBalance(snaps)
	rows := make([]Row, len(snaps))
	for i, s := range snaps {
		rows[i] = Row{
			Rank:     i + 1,
			Snapshot: s,
			Progress: ProgressPercent(s.TotalMajor, highest),
		}
	}
	return rows
}

// Board renders placeholders until every wallet is loaded, never a partial ranking
func (a *Aggregator) Board() Board {
	loaded := a.Loaded()
	if loaded != a.tracked {
		return Board{
			Loading:      true,
			Placeholders: PlaceholderRows,
			Loaded:       loaded,
			Tracked:      a.tracked,
		}
	}

	rows := a.RankedRows()
	var highest float64
	if len(rows) > 0 {
		highest = rows[0].Snapshot.TotalMajor
	}
	return Board{
		Rows:       rows,
		Empty:      len(rows) == 0,
		MaxBalance: highest,
		Loaded:     loaded,
		Tracked:    a.tracked,
	}
}
