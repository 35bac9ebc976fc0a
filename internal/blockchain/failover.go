package blockchain

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

const (
	unhealthyDuration  = 30 * time.Second // Cooldown before an unhealthy endpoint is probed again
	healthCheckTimeout = 5 * time.Second
)

type endpointStatus struct {
	url           string
	client        *rpc.Client
	healthy       bool
	lastError     error
	lastErrorTime time.Time
	mu            sync.RWMutex
}

// FailoverClient manages multiple Sui full node endpoints with automatic failover
type FailoverClient struct {
	endpoints    []*endpointStatus
	currentIndex int
	httpClient   *http.Client
	mu           sync.RWMutex
}

// NewFailoverClient dials every endpoint and requires at least one to answer
func NewFailoverClient(urls []string) (*FailoverClient, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one RPC URL is required")
	}

	fc := &FailoverClient{
		endpoints:  make([]*endpointStatus, 0, len(urls)),
		httpClient: &http.Client{Timeout: rpcTimeout},
	}

	healthyCount := 0
	for _, url := range urls {
		client, err := fc.dial(url)
		if err == nil {
			err = probe(client)
		}

		ep := &endpointStatus{
			url:           url,
			client:        client,
			healthy:       err == nil,
			lastError:     err,
			lastErrorTime: time.Now(),
		}
		fc.endpoints = append(fc.endpoints, ep)

		if err == nil {
			healthyCount++
			slog.Info("Connected to Sui RPC endpoint", "url", url)
		} else {
			slog.Warn("Failed to connect to Sui RPC endpoint, will retry later", "url", url, "error", err)
		}
	}

	if healthyCount == 0 {
		fc.Close()
		return nil, fmt.Errorf("no healthy RPC endpoints available")
	}

	return fc, nil
}

func (fc *FailoverClient) dial(url string) (*rpc.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()
	return rpc.DialOptions(ctx, url, rpc.WithHTTPClient(fc.httpClient))
}

// probe verifies the endpoint speaks the Sui API
func probe(client *rpc.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	var chainID string
	if err := client.CallContext(ctx, &chainID, "sui_getChainIdentifier"); err != nil {
		return err
	}
	return nil
}

// GetClient returns a healthy client, failing over in round-robin order.
// When every endpoint is cooling down it still returns the one that failed
// longest ago, so a single-endpoint setup keeps polling.
func (fc *FailoverClient) GetClient() (*rpc.Client, string, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	startIndex := fc.currentIndex
	fallback := -1
	var fallbackTime time.Time

	for i := 0; i < len(fc.endpoints); i++ {
		idx := (startIndex + i) % len(fc.endpoints)
		ep := fc.endpoints[idx]

		ep.mu.RLock()
		healthy := ep.healthy
		client := ep.client
		url := ep.url
		errTime := ep.lastErrorTime
		canRetry := time.Since(errTime) > unhealthyDuration
		ep.mu.RUnlock()

		if healthy && client != nil {
			fc.currentIndex = idx
			return client, url, nil
		}

		if !healthy && canRetry {
			if fc.revive(ep) {
				fc.currentIndex = idx
				slog.Info("Reconnected to Sui RPC endpoint", "url", url)
				ep.mu.RLock()
				client = ep.client
				ep.mu.RUnlock()
				return client, url, nil
			}
			continue
		}

		if client != nil && (fallback < 0 || errTime.Before(fallbackTime)) {
			fallback = idx
			fallbackTime = errTime
		}
	}

	if fallback >= 0 {
		ep := fc.endpoints[fallback]
		slog.Debug("All RPC endpoints unhealthy, using least recently failed", "url", ep.url)
		return ep.client, ep.url, nil
	}

	return nil, "", fmt.Errorf("no healthy RPC endpoints available")
}

// revive redials when needed and probes an endpoint whose cooldown expired
func (fc *FailoverClient) revive(ep *endpointStatus) bool {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	client := ep.client
	if client == nil {
		newClient, err := fc.dial(ep.url)
		if err != nil {
			ep.lastError = err
			ep.lastErrorTime = time.Now()
			return false
		}
		client = newClient
	}

	if err := probe(client); err != nil {
		ep.client = client
		ep.lastError = err
		ep.lastErrorTime = time.Now()
		return false
	}

	ep.client = client
	ep.healthy = true
	ep.lastError = nil
	return true
}

// MarkUnhealthy marks an endpoint as unhealthy until its cooldown expires
func (fc *FailoverClient) MarkUnhealthy(url string, err error) {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	for _, ep := range fc.endpoints {
		if ep.url == url {
			ep.mu.Lock()
			ep.healthy = false
			ep.lastError = err
			ep.lastErrorTime = time.Now()
			ep.mu.Unlock()

			slog.Warn("Marked RPC endpoint as unhealthy, will retry after cooldown",
				"url", url,
				"error", err,
				"retry_after", unhealthyDuration)
			return
		}
	}
}

// EndpointsHealth reports the health flag of every endpoint keyed by URL
func (fc *FailoverClient) EndpointsHealth() map[string]bool {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	status := make(map[string]bool, len(fc.endpoints))
	for _, ep := range fc.endpoints {
		ep.mu.RLock()
		status[ep.url] = ep.healthy
		ep.mu.RUnlock()
	}
	return status
}

// Len returns the number of configured endpoints
func (fc *FailoverClient) Len() int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return len(fc.endpoints)
}

// Close closes all endpoint connections
func (fc *FailoverClient) Close() {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	for _, ep := range fc.endpoints {
		ep.mu.Lock()
		if ep.client != nil {
			ep.client.Close()
			ep.client = nil
		}
		ep.mu.Unlock()
	}
}
