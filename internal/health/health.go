package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/matrixise/sui-friday/internal/mint"
)

// RPC is the full node client as seen by the health checker
type RPC interface {
	GetChainIdentifier(ctx context.Context) (string, error)
	GetEndpointsHealth() map[string]bool
}

// Pinger is satisfied by the snapshot store
type Pinger interface {
	Ping(ctx context.Context) error
}

// LeaderboardStatus reports how many roster wallets have a snapshot
type LeaderboardStatus interface {
	Loaded() int
	Tracked() int
}

// TrackerStatus exposes the mirrored mint tracker
type TrackerStatus interface {
	State() mint.TrackerState
}

// Checker performs health checks on application dependencies
type Checker struct {
	rpc      RPC
	store    Pinger
	board    LeaderboardStatus
	tracker  TrackerStatus
	interval time.Duration
	now      func() time.Time
}

// Option configures optional checks
type Option func(*Checker)

// WithDatabase adds the database check
func WithDatabase(store Pinger) Option {
	return func(c *Checker) {
		c.store = store
	}
}

// WithLeaderboard adds the wallet loading check
func WithLeaderboard(board LeaderboardStatus) Option {
	return func(c *Checker) {
		c.board = board
	}
}

// WithTracker adds the tracker freshness check. interval is the poll period.
func WithTracker(tracker TrackerStatus, interval time.Duration) Option {
	return func(c *Checker) {
		c.tracker = tracker
		c.interval = interval
	}
}

// NewChecker creates a new health checker
func NewChecker(rpc RPC, opts ...Option) *Checker {
	c := &Checker{rpc: rpc, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckStatus represents the health status of a component
type CheckStatus string

const (
	StatusOK       CheckStatus = "ok"
	StatusDegraded CheckStatus = "degraded"
	StatusError    CheckStatus = "error"
)

// HealthResponse is the JSON response structure
type HealthResponse struct {
	Status    CheckStatus            `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckDetail `json:"checks"`
	Uptime    string                 `json:"uptime,omitempty"`
}

// CheckDetail contains details about a specific health check
type CheckDetail struct {
	Status  CheckStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

var startTime = time.Now()

// Check performs all health checks and returns the aggregated status.
// Only the RPC and database checks can fail the service; the rest degrade it.
func (c *Checker) Check(ctx context.Context) HealthResponse {
	checks := make(map[string]CheckDetail)
	overallStatus := StatusOK

	merge := func(name string, detail CheckDetail, fatal bool) {
		checks[name] = detail
		switch {
		case detail.Status == StatusError && fatal:
			overallStatus = StatusError
		case detail.Status != StatusOK && overallStatus == StatusOK:
			overallStatus = StatusDegraded
		}
	}

	merge("rpc_endpoints", c.checkRPC(ctx), true)
	if c.store != nil {
		merge("database", c.checkDatabase(ctx), true)
	}
	if c.board != nil {
		merge("leaderboard", c.checkLeaderboard(), false)
	}
	if c.tracker != nil {
		merge("mint_tracker", c.checkTracker(), false)
	}

	return HealthResponse{
		Status:    overallStatus,
		Timestamp: c.now(),
		Checks:    checks,
		Uptime:    time.Since(startTime).Round(time.Second).String(),
	}
}

// checkDatabase verifies PostgreSQL connectivity
func (c *Checker) checkDatabase(ctx context.Context) CheckDetail {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		slog.Error("Health check: database ping failed", "error", err)
		return CheckDetail{
			Status:  StatusError,
			Message: "database unreachable: " + err.Error(),
		}
	}

	return CheckDetail{
		Status:  StatusOK,
		Message: "database connection healthy",
	}
}

// checkRPC verifies that at least one full node answers
func (c *Checker) checkRPC(ctx context.Context) CheckDetail {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	chainID, err := c.rpc.GetChainIdentifier(ctx)
	if err != nil {
		slog.Error("Health check: RPC endpoint failed", "error", err)
		return CheckDetail{
			Status:  StatusError,
			Message: "RPC endpoint not responding: " + err.Error(),
		}
	}

	healthStatus := c.rpc.GetEndpointsHealth()
	healthyCount := 0
	totalCount := len(healthStatus)

	for _, healthy := range healthStatus {
		if healthy {
			healthyCount++
		}
	}

	if healthyCount == totalCount {
		return CheckDetail{
			Status:  StatusOK,
			Message: fmt.Sprintf("all RPC endpoints healthy (chain %s)", chainID),
		}
	}

	return CheckDetail{
		Status:  StatusDegraded,
		Message: fmt.Sprintf("%d/%d RPC endpoints healthy", healthyCount, totalCount),
	}
}

// checkLeaderboard reports wallets still waiting for their first snapshot
func (c *Checker) checkLeaderboard() CheckDetail {
	loaded, tracked := c.board.Loaded(), c.board.Tracked()
	if loaded < tracked {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("%d/%d wallets loaded", loaded, tracked),
		}
	}
	return CheckDetail{
		Status:  StatusOK,
		Message: fmt.Sprintf("all %d wallets loaded", tracked),
	}
}

// checkTracker verifies the tracker mirror refreshes on schedule
func (c *Checker) checkTracker() CheckDetail {
	state := c.tracker.State()

	// Not read yet is fine during startup
	if !state.Loaded {
		return CheckDetail{
			Status:  StatusOK,
			Message: "tracker not yet read (startup)",
		}
	}

	// Allow 2x interval grace period
	age := c.now().Sub(state.UpdatedAt)
	if c.interval > 0 && age > 2*c.interval {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("no tracker refresh in %s (expected every %s)", age.Round(time.Second), c.interval),
		}
	}

	return CheckDetail{
		Status:  StatusOK,
		Message: fmt.Sprintf("mint_count %d, refreshed %s ago", state.MintCount, age.Round(time.Second)),
	}
}

// Handler returns an http.HandlerFunc for the health endpoint
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Only support GET
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		status := c.Check(r.Context())

		// Set status code based on health
		statusCode := http.StatusOK
		if status.Status == StatusError {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		if err := json.NewEncoder(w).Encode(status); err != nil {
			slog.Error("Failed to encode health response", "error", err)
		}
	}
}
