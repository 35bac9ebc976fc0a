package mint

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/matrixise/sui-friday/internal/blockchain"
	"github.com/matrixise/sui-friday/internal/metrics"
)

// DefaultLimit is the collection supply
const DefaultLimit = 28

// ObjectReader reads on-chain objects
type ObjectReader interface {
	GetObject(ctx context.Context, id string, opts blockchain.ObjectDataOptions) (*blockchain.ObjectResponse, error)
}

// TrackerState mirrors the fields of the MintTracker shared object
type TrackerState struct {
	MintCount       uint64    `json:"mint_count"`
	MintedAddresses []string  `json:"minted_addresses"`
	Loaded          bool      `json:"loaded"`
	Stale           bool      `json:"stale"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SoldOut reports whether mint_count reached limit
func (s TrackerState) SoldOut(limit uint64) bool {
	return s.MintCount >= limit
}

type trackerFields struct {
	MintCount       blockchain.Uint64 `json:"mint_count"`
	MintedAddresses []string          `json:"minted_addresses"`
}

// ParseTrackerFields decodes content.fields. Missing fields default to zero
// and an empty list.
func ParseTrackerFields(raw json.RawMessage) (TrackerState, error) {
	state := TrackerState{MintedAddresses: []string{}}
	if len(raw) == 0 {
		return state, nil
	}

	var fields trackerFields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return state, fmt.Errorf("invalid tracker fields: %w", err)
	}
	state.MintCount = uint64(fields.MintCount)
	if fields.MintedAddresses != nil {
		state.MintedAddresses = fields.MintedAddresses
	}
	return state, nil
}

// Tracker keeps the latest tracker state. Refresh is driven by the scheduler;
// Invalidate requests an immediate re-read through Run.
type Tracker struct {
	reader ObjectReader
	id     string
	limit  uint64

	mu      sync.RWMutex
	state   TrackerState
	refresh chan struct{}
	now     func() time.Time
}

func NewTracker(reader ObjectReader, id string, limit uint64) *Tracker {
	if limit == 0 {
		limit = DefaultLimit
	}
	return &Tracker{
		reader:  reader,
		id:      id,
		limit:   limit,
		state:   TrackerState{MintedAddresses: []string{}},
		refresh: make(chan struct{}, 1),
		now:     time.Now,
	}
}

func (t *Tracker) ID() string {
	return t.id
}

func (t *Tracker) Limit() uint64 {
	return t.limit
}

// Refresh reads the tracker object and replaces the mirrored state
func (t *Tracker) Refresh(ctx context.Context) (TrackerState, error) {
	resp, err := t.reader.GetObject(ctx, t.id, blockchain.ObjectDataOptions{ShowContent: true})
	if err != nil {
		return t.State(), fmt.Errorf("failed to read tracker %s: %w", t.id, err)
	}

	var fields json.RawMessage
	if resp.Data != nil && resp.Data.Content != nil {
		fields = resp.Data.Content.Fields
	}
	state, err := ParseTrackerFields(fields)
	if err != nil {
		return t.State(), err
	}
	state.Loaded = true
	state.UpdatedAt = t.now()

	t.mu.Lock()
	t.state = state
	t.mu.Unlock()

	metrics.SetMintCount(state.MintCount)
	slog.Debug("Tracker refreshed", "mint_count", state.MintCount, "minted", len(state.MintedAddresses))
	return t.copyState(state), nil
}

// Invalidate marks the state stale and wakes Run for an immediate refetch
func (t *Tracker) Invalidate() {
	t.mu.Lock()
	t.state.Stale = true
	t.mu.Unlock()

	select {
	case t.refresh <- struct{}{}:
	default:
	}
}

// Run serves Invalidate requests until ctx is done
func (t *Tracker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.refresh:
			if _, err := t.Refresh(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("Failed to refresh tracker after invalidation", "tracker", t.id, "error", err)
			}
		}
	}
}

// Poll is the scheduler job body
func (t *Tracker) Poll(ctx context.Context) {
	if _, err := t.Refresh(ctx); err != nil && ctx.Err() == nil {
		slog.Warn("Failed to refresh tracker", "tracker", t.id, "error", err)
	}
}

// State returns a copy of the mirrored state
func (t *Tracker) State() TrackerState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.copyState(t.state)
}

func (t *Tracker) copyState(s TrackerState) TrackerState {
	s.MintedAddresses = append([]string{}, s.MintedAddresses...)
	return s
}

// SoldOut reports whether the mirrored count reached the limit
func (t *Tracker) SoldOut() bool {
	return t.State().SoldOut(t.limit)
}
