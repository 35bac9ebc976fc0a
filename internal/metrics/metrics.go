// Package metrics exposes Prometheus collectors for polling, RPC and mint activity.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Outcome string

const (
	Success Outcome = "success"
	Error   Outcome = "error"
	Empty   Outcome = "empty"
)

func (o Outcome) String() string {
	return string(o)
}

var (
	once     sync.Once
	registry *prometheus.Registry

	rpcLatency          *prometheus.HistogramVec
	walletFetchCounter  *prometheus.CounterVec
	walletsLoadedGauge  prometheus.Gauge
	walletsTrackedGauge prometheus.Gauge
	mintOutcomeCounter  *prometheus.CounterVec
	mintCountGauge      prometheus.Gauge
)

// Init registers all collectors once. Safe to call repeatedly.
func Init() {
	once.Do(registerMetrics)
}

func registerMetrics() {
	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	rpcLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sui_friday_rpc_request_duration_seconds",
			Help:    "Latency of Sui JSON-RPC calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "status"},
	)

	walletFetchCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sui_friday_wallet_fetch_total",
			Help: "Wallet holdings fetches by outcome",
		},
		[]string{"outcome"},
	)

	walletsLoadedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sui_friday_leaderboard_wallets_loaded",
		Help: "Wallets with at least one snapshot",
	})

	walletsTrackedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sui_friday_leaderboard_wallets_tracked",
		Help: "Deduplicated wallets in the roster",
	})

	mintOutcomeCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sui_friday_mint_attempts_total",
			Help: "Mint attempts by terminal state and failure code",
		},
		[]string{"state", "code"},
	)

	mintCountGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sui_friday_tracker_mint_count",
		Help: "Last mint_count read from the tracker object",
	})

	registry.MustRegister(
		rpcLatency,
		walletFetchCounter,
		walletsLoadedGauge,
		walletsTrackedGauge,
		mintOutcomeCounter,
		mintCountGauge,
	)
}

// Handler serves the registry in the Prometheus exposition format
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func ObserveRPC(method string, started time.Time, err error) {
	Init()
	status := Success
	if err != nil {
		status = Error
	}
	rpcLatency.WithLabelValues(method, status.String()).Observe(time.Since(started).Seconds())
}

func RecordWalletFetch(outcome Outcome) {
	Init()
	walletFetchCounter.WithLabelValues(outcome.String()).Inc()
}

func SetWalletsLoaded(loaded, tracked int) {
	Init()
	walletsLoadedGauge.Set(float64(loaded))
	walletsTrackedGauge.Set(float64(tracked))
}

func RecordMintOutcome(state, code string) {
	Init()
	mintOutcomeCounter.WithLabelValues(state, code).Inc()
}

func SetMintCount(count uint64) {
	Init()
	mintCountGauge.Set(float64(count))
}
