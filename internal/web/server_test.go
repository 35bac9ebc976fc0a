package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matrixise/sui-friday/internal/blockchain"
	"github.com/matrixise/sui-friday/internal/leaderboard"
	"github.com/matrixise/sui-friday/internal/mint"
	"github.com/matrixise/sui-friday/internal/notify"
	"github.com/matrixise/sui-friday/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	addrA = "0x00000000000000000000000000000000000000000000000000000000000000a1"
	addrB = "0x00000000000000000000000000000000000000000000000000000000000000b2"
	addrC = "0x00000000000000000000000000000000000000000000000000000000000000c3"
)

var roster = []leaderboard.Entry{
	{Name: "Douglas", Address: addrA},
	{Name: "nii Tettey", Address: addrB},
	{Name: "Famous", Address: addrC},
}

type fakeMinter struct {
	mu      sync.Mutex
	outcome mint.Outcome
	calls   int
	wallet  bool
	flight  bool
}

func (m *fakeMinter) Mint(context.Context) mint.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.outcome
}

func (m *fakeMinter) Settings() mint.Settings {
	return mint.Settings{Price: 100_000_000}
}

func (m *fakeMinter) HasWallet() bool { return m.wallet }
func (m *fakeMinter) InFlight() bool  { return m.flight }
func (m *fakeMinter) State() mint.State {
	if m.flight {
		return mint.StateConfirming
	}
	return mint.StateIdle
}

func (m *fakeMinter) Account() string {
	if m.wallet {
		return addrA
	}
	return ""
}

type fakeTracker struct {
	state mint.TrackerState
}

func (t fakeTracker) State() mint.TrackerState { return t.state }
func (t fakeTracker) Limit() uint64            { return mint.DefaultLimit }

type fakeAccount struct{}

func (fakeAccount) Balance() mint.AccountBalance {
	return mint.AccountBalance{Address: addrA, TotalMinor: big.NewInt(2_500_000_000), Loaded: true}
}

type fakeHistory struct {
	rows  []storage.BalanceSnapshot
	err   error
	limit int
}

func (h *fakeHistory) History(_ context.Context, _ string, limit int) ([]storage.BalanceSnapshot, error) {
	h.limit = limit
	return h.rows, h.err
}

func coinsOf(balances ...string) []blockchain.Coin {
	coins := make([]blockchain.Coin, len(balances))
	for i, b := range balances {
		coins[i] = blockchain.Coin{CoinObjectID: fmt.Sprintf("0x%d", i), Balance: b}
	}
	return coins
}

// loadedBoard applies 5.5, 5.5 and 0 SUI for the three roster wallets
func loadedBoard() *leaderboard.Aggregator {
	agg := leaderboard.NewAggregator(roster)
	now := time.Now()
	agg.Apply(leaderboard.NewSnapshot(roster[0], coinsOf("5000000000", "500000000"), now))
	agg.Apply(leaderboard.NewSnapshot(roster[1], coinsOf("5500000000"), now))
	agg.Apply(leaderboard.NewSnapshot(roster[2], nil, now))
	return agg
}

func newTestServer(t *testing.T, board Leaderboard, minter *fakeMinter, tracker fakeTracker, feed *notify.Feed, opts ...Option) http.Handler {
	t.Helper()
	s, err := NewServer(board, minter, tracker, feed, opts...)
	require.NoError(t, err)
	return s.Handler()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHomePage(t *testing.T) {
	h := newTestServer(t, loadedBoard(), &fakeMinter{}, fakeTracker{}, notify.NewFeed(5), WithNetwork("testnet"))
	rec := get(t, h, "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Sui Friday")
	assert.Contains(t, rec.Body.String(), `href="/coin-leaderboard"`)
	assert.Contains(t, rec.Body.String(), "testnet")
}

func TestLeaderboardPageLoading(t *testing.T) {
	agg := leaderboard.NewAggregator(roster)
	agg.Apply(leaderboard.NewSnapshot(roster[0], coinsOf("1000000000"), time.Now()))

	h := newTestServer(t, agg, &fakeMinter{}, fakeTracker{}, notify.NewFeed(5))
	body := get(t, h, "/coin-leaderboard").Body.String()

	assert.Equal(t, leaderboard.PlaceholderRows, strings.Count(body, `class="placeholder"`))
	assert.NotContains(t, body, "Douglas", "no partial ranking while loading")
}

func TestLeaderboardPageLoaded(t *testing.T) {
	h := newTestServer(t, loadedBoard(), &fakeMinter{}, fakeTracker{}, notify.NewFeed(5))
	body := get(t, h, "/coin-leaderboard").Body.String()

	assert.NotContains(t, body, `class="placeholder"`)
	douglas := strings.Index(body, "Douglas")
	nii := strings.Index(body, "nii Tettey")
	famous := strings.Index(body, "Famous")
	require.True(t, douglas > 0 && nii > 0 && famous > 0)
	assert.Less(t, douglas, nii, "ties keep first-insertion order")
	assert.Less(t, nii, famous)

	assert.Contains(t, body, "🥇 1")
	assert.Contains(t, body, "🥈 2")
	assert.Contains(t, body, "🥉 3")
	assert.Contains(t, body, ">N<", "initial avatar is upper-cased")
	assert.Contains(t, body, "5.5 SUI")
	assert.Contains(t, body, "0 SUI")
	assert.Contains(t, body, "width: 100%")
	assert.Contains(t, body, "width: 2%")
	assert.Contains(t, body, "0x000000...0000a1")
}

func TestLeaderboardPageEmpty(t *testing.T) {
	h := newTestServer(t, leaderboard.NewAggregator(nil), &fakeMinter{}, fakeTracker{}, notify.NewFeed(5))
	body := get(t, h, "/coin-leaderboard").Body.String()
	assert.Contains(t, body, "No wallets found or balances are zero.")
}

func TestLeaderboardAPI(t *testing.T) {
	t.Run("loading has no rows", func(t *testing.T) {
		h := newTestServer(t, leaderboard.NewAggregator(roster), &fakeMinter{}, fakeTracker{}, notify.NewFeed(5))
		rec := get(t, h, "/api/leaderboard")
		require.Equal(t, http.StatusOK, rec.Code)

		var body leaderboardJSON
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Loading)
		assert.Equal(t, 0, body.Loaded)
		assert.Equal(t, 3, body.Tracked)
		assert.Empty(t, body.Rows)
	})

	t.Run("ranked rows", func(t *testing.T) {
		h := newTestServer(t, loadedBoard(), &fakeMinter{}, fakeTracker{}, notify.NewFeed(5))
		rec := get(t, h, "/api/leaderboard")

		var body leaderboardJSON
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Loading)
		assert.Equal(t, 5.5, body.MaxBalance)
		require.Len(t, body.Rows, 3)

		assert.Equal(t, addrA, body.Rows[0].Address)
		assert.Equal(t, "5500000000", body.Rows[0].TotalMist)
		assert.Equal(t, "5.5", body.Rows[0].TotalSUI)
		assert.Equal(t, 100, body.Rows[0].Progress)
		assert.Equal(t, 2, body.Rows[0].CoinCount)
		assert.Equal(t, addrB, body.Rows[1].Address)
		assert.Equal(t, 100, body.Rows[1].Progress)
		assert.Equal(t, addrC, body.Rows[2].Address)
		assert.Equal(t, 2, body.Rows[2].Progress)
		assert.Equal(t, 3, body.Rows[2].Rank)
	})
}

func TestMintPage(t *testing.T) {
	tracker := fakeTracker{state: mint.TrackerState{
		Loaded:          true,
		MintCount:       3,
		MintedAddresses: []string{addrA, addrB, addrC},
	}}

	t.Run("without wallet", func(t *testing.T) {
		h := newTestServer(t, loadedBoard(), &fakeMinter{}, tracker, notify.NewFeed(5))
		body := get(t, h, "/nft-mint").Body.String()

		assert.Contains(t, body, "3 / 28")
		assert.Contains(t, body, "0.1 SUI")
		assert.Contains(t, body, "Limited edition: Only 28 NFTs available")
		assert.Contains(t, body, "Connect your wallet to mint")
		assert.Contains(t, body, `type="submit" disabled`)
		assert.Contains(t, body, "Minted Addresses (3)")
		assert.Contains(t, body, "#3")
		assert.NotContains(t, body, "All NFTs have been minted!")
	})

	t.Run("with wallet and notifications", func(t *testing.T) {
		feed := notify.NewFeed(5)
		feed.Notify(notify.Error("One NFT per wallet", "You have already minted this NFT! 🚫"))

		h := newTestServer(t, loadedBoard(), &fakeMinter{wallet: true}, tracker, feed, WithAccount(fakeAccount{}))
		body := get(t, h, "/nft-mint").Body.String()

		assert.NotContains(t, body, `type="submit" disabled`)
		assert.Contains(t, body, addrA)
		assert.Contains(t, body, "2.5 SUI")
		assert.Contains(t, body, "One NFT per wallet")
		assert.Contains(t, body, "toast-error")
	})

	t.Run("sold out", func(t *testing.T) {
		sold := fakeTracker{state: mint.TrackerState{Loaded: true, MintCount: 28}}
		h := newTestServer(t, loadedBoard(), &fakeMinter{wallet: true}, sold, notify.NewFeed(5))
		body := get(t, h, "/nft-mint").Body.String()

		assert.Contains(t, body, "All NFTs have been minted!")
		assert.Contains(t, body, "Sold Out!")
		assert.Contains(t, body, `type="submit" disabled`)
	})

	t.Run("in flight", func(t *testing.T) {
		h := newTestServer(t, loadedBoard(), &fakeMinter{wallet: true, flight: true}, tracker, notify.NewFeed(5))
		body := get(t, h, "/nft-mint").Body.String()
		assert.Contains(t, body, `type="submit" disabled`)
		assert.Contains(t, body, "Mint in progress...")
	})

	t.Run("tracker not loaded", func(t *testing.T) {
		h := newTestServer(t, loadedBoard(), &fakeMinter{}, fakeTracker{}, notify.NewFeed(5))
		assert.Contains(t, get(t, h, "/nft-mint").Body.String(), "...")
	})
}

func TestMintSubmitRedirects(t *testing.T) {
	minter := &fakeMinter{wallet: true, outcome: mint.Outcome{State: mint.StateSuccess}}
	h := newTestServer(t, loadedBoard(), minter, fakeTracker{}, notify.NewFeed(5))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/nft-mint", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/nft-mint", rec.Header().Get("Location"))
	assert.Equal(t, 1, minter.calls)
}

func TestMintAPI(t *testing.T) {
	tracker := fakeTracker{state: mint.TrackerState{Loaded: true, MintCount: 5, MintedAddresses: []string{addrA}}}
	h := newTestServer(t, loadedBoard(), &fakeMinter{wallet: true}, tracker, notify.NewFeed(5), WithAccount(fakeAccount{}))

	rec := get(t, h, "/api/mint")
	require.Equal(t, http.StatusOK, rec.Code)

	var body mintJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, uint64(5), body.MintCount)
	assert.Equal(t, uint64(28), body.Limit)
	assert.False(t, body.SoldOut)
	assert.Equal(t, uint64(100_000_000), body.PriceMist)
	assert.Equal(t, "0.1", body.PriceSUI)
	assert.Equal(t, []string{addrA}, body.MintedAddresses)
	assert.True(t, body.HasWallet)
	assert.Equal(t, addrA, body.Account)
	assert.Equal(t, "2500000000", body.AccountBalance)
	assert.Equal(t, "idle", body.State)
}

func TestMintSubmitAPI(t *testing.T) {
	tests := []struct {
		name       string
		outcome    mint.Outcome
		wantStatus int
		wantError  string
	}{
		{
			name: "success",
			outcome: mint.Outcome{
				State:          mint.StateSuccess,
				Digest:         "digest-1",
				Notification:   notify.Success("You have successfully minted this NFT!", ""),
				CreatedObjects: []string{"0xnft"},
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "ledger failure",
			outcome: mint.Outcome{
				State:    mint.StateFailure,
				Code:     mint.CodeSoldOut,
				RawError: "EMaxSupplyReached",
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "EMaxSupplyReached",
		},
		{
			name:       "in progress",
			outcome:    mint.Outcome{State: mint.StateClientError, Err: mint.ErrMintInProgress},
			wantStatus: http.StatusConflict,
			wantError:  "mint already in progress",
		},
		{
			name:       "no wallet",
			outcome:    mint.Outcome{State: mint.StateClientError, Err: mint.ErrNoWallet},
			wantStatus: http.StatusPreconditionFailed,
		},
		{
			name:       "confirmation",
			outcome:    mint.Outcome{State: mint.StateClientError, Err: fmt.Errorf("%w: timeout", mint.ErrConfirmation)},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "build",
			outcome:    mint.Outcome{State: mint.StateClientError, Err: mint.ErrClientException},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, loadedBoard(), &fakeMinter{wallet: true, outcome: tt.outcome}, fakeTracker{}, notify.NewFeed(5))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/mint", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body outcomeJSON
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(tt.outcome.State), body.State)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body.Error)
			}
		})
	}
}

type signingWallet struct{}

func (signingWallet) Address() string { return addrC }

func (signingWallet) SignTransaction(context.Context, *blockchain.Transaction) (*blockchain.SignedTransaction, error) {
	return &blockchain.SignedTransaction{Bytes: "AAAA", Signature: "c2ln"}, nil
}

// slowLedger holds WaitForTransaction until release is closed
type slowLedger struct {
	waiting chan struct{}
	release chan struct{}
}

func (l *slowLedger) ExecuteTransactionBlock(context.Context, string, []string, blockchain.TransactionBlockResponseOptions) (*blockchain.TransactionBlockResponse, error) {
	return &blockchain.TransactionBlockResponse{Digest: "digest-1"}, nil
}

func (l *slowLedger) WaitForTransaction(ctx context.Context, digest string, _ blockchain.WaitOptions) (*blockchain.TransactionBlockResponse, error) {
	close(l.waiting)
	<-l.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &blockchain.TransactionBlockResponse{
		Digest:  digest,
		Effects: &blockchain.TransactionEffects{Status: blockchain.ExecutionStatus{Status: blockchain.StatusSuccess}},
	}, nil
}

type countingInvalidator struct {
	mu    sync.Mutex
	count int
}

func (c *countingInvalidator) Invalidate() {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
}

func (c *countingInvalidator) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func TestMintSubmitSurvivesClientDisconnect(t *testing.T) {
	for _, path := range []string{"/api/mint", "/nft-mint"} {
		t.Run(path, func(t *testing.T) {
			ledger := &slowLedger{waiting: make(chan struct{}), release: make(chan struct{})}
			invalidator := &countingInvalidator{}
			feed := notify.NewFeed(5)
			orchestrator := mint.NewOrchestrator(mint.Settings{
				Package:   addrA,
				Module:    "accra",
				Function:  "mint",
				Tracker:   addrB,
				Price:     100_000_000,
				GasBudget: 300_000_000,
			}, ledger,
				mint.WithWallet(signingWallet{}),
				mint.WithTracker(invalidator),
				mint.WithNotifier(feed),
			)

			s, err := NewServer(loadedBoard(), orchestrator, fakeTracker{}, feed)
			require.NoError(t, err)
			h := s.Handler()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			req := httptest.NewRequest(http.MethodPost, path, nil).WithContext(ctx)
			rec := httptest.NewRecorder()

			done := make(chan struct{})
			go func() {
				defer close(done)
				h.ServeHTTP(rec, req)
			}()

			select {
			case <-ledger.waiting:
			case <-time.After(5 * time.Second):
				t.Fatal("mint never reached confirmation")
			}
			cancel()
			close(ledger.release)
			<-done

			if path == "/api/mint" {
				assert.Equal(t, http.StatusOK, rec.Code)
				var body outcomeJSON
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, string(mint.StateSuccess), body.State)
			} else {
				assert.Equal(t, http.StatusSeeOther, rec.Code)
			}
			assert.Equal(t, 1, invalidator.Count())
			assert.Equal(t, mint.StateIdle, orchestrator.State())

			recent := feed.Recent(1)
			require.Len(t, recent, 1)
			assert.Equal(t, notify.LevelSuccess, recent[0].Level)
		})
	}
}

func TestMintSubmitRejectsCrossOrigin(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
		wantCalls  int
	}{
		{
			name:       "cross-site fetch metadata",
			headers:    map[string]string{"Sec-Fetch-Site": "cross-site"},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "foreign origin",
			headers:    map[string]string{"Origin": "https://evil.example"},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "same-origin fetch metadata",
			headers:    map[string]string{"Sec-Fetch-Site": "same-origin"},
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
		{
			name:       "matching origin",
			headers:    map[string]string{"Origin": "http://example.com"},
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
		{
			name:       "non-browser client",
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		for _, path := range []string{"/api/mint", "/nft-mint"} {
			t.Run(tt.name+" "+path, func(t *testing.T) {
				minter := &fakeMinter{wallet: true, outcome: mint.Outcome{State: mint.StateSuccess}}
				h := newTestServer(t, loadedBoard(), minter, fakeTracker{}, notify.NewFeed(5))

				req := httptest.NewRequest(http.MethodPost, path, nil)
				for k, v := range tt.headers {
					req.Header.Set(k, v)
				}
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, req)

				want := tt.wantStatus
				if want == http.StatusOK && path == "/nft-mint" {
					want = http.StatusSeeOther
				}
				assert.Equal(t, want, rec.Code)
				assert.Equal(t, tt.wantCalls, minter.calls)
			})
		}
	}
}

func TestHistoryAPI(t *testing.T) {
	t.Run("disabled without storage", func(t *testing.T) {
		h := newTestServer(t, loadedBoard(), &fakeMinter{}, fakeTracker{}, notify.NewFeed(5))
		assert.Equal(t, http.StatusNotFound, get(t, h, "/api/leaderboard/"+addrA+"/history").Code)
	})

	history := &fakeHistory{rows: []storage.BalanceSnapshot{
		{Address: addrA, Name: "Douglas", TotalMist: decimal.NewFromInt(5_500_000_000), TotalSUI: decimal.RequireFromString("5.5")},
	}}
	h := newTestServer(t, loadedBoard(), &fakeMinter{}, fakeTracker{}, notify.NewFeed(5), WithHistory(history))

	t.Run("short address is normalized", func(t *testing.T) {
		rec := get(t, h, "/api/leaderboard/0xa1/history?limit=10")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 10, history.limit)

		var body struct {
			Address string                    `json:"address"`
			History []storage.BalanceSnapshot `json:"history"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, addrA, body.Address)
		require.Len(t, body.History, 1)
		assert.True(t, decimal.RequireFromString("5.5").Equal(body.History[0].TotalSUI))
	})

	t.Run("invalid address", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/leaderboard/0xzz/history").Code)
	})

	t.Run("untracked wallet", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get(t, h, "/api/leaderboard/0xdd/history").Code)
	})

	t.Run("invalid limit", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/leaderboard/"+addrA+"/history?limit=-1").Code)
	})

	t.Run("store error", func(t *testing.T) {
		history.err = errors.New("connection refused")
		assert.Equal(t, http.StatusInternalServerError, get(t, h, "/api/leaderboard/"+addrA+"/history").Code)
	})
}

func TestNotificationsAPI(t *testing.T) {
	feed := notify.NewFeed(5)
	feed.Notify(notify.Info("first", ""))
	feed.Notify(notify.Success("second", ""))
	h := newTestServer(t, loadedBoard(), &fakeMinter{}, fakeTracker{}, feed)

	rec := get(t, h, "/api/notifications?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Notifications []notify.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Notifications, 1)
	assert.Equal(t, "second", body.Notifications[0].Title)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/notifications?limit=x").Code)
}

func TestOptionalMounts(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	bare := newTestServer(t, loadedBoard(), &fakeMinter{}, fakeTracker{}, notify.NewFeed(5))
	assert.Equal(t, http.StatusNotFound, get(t, bare, "/health").Code)
	assert.Equal(t, http.StatusNotFound, get(t, bare, "/metrics").Code)

	full := newTestServer(t, loadedBoard(), &fakeMinter{}, fakeTracker{}, notify.NewFeed(5), WithHealth(ok), WithMetrics(ok))
	assert.Equal(t, "ok", get(t, full, "/health").Body.String())
	assert.Equal(t, "ok", get(t, full, "/metrics").Body.String())
}

func TestInitial(t *testing.T) {
	assert.Equal(t, "D", initial("douglas"))
	assert.Equal(t, "😇", initial("😇"))
	assert.Equal(t, "?", initial(""))
	assert.Equal(t, "2", initial("2'8 💰"))
}
