package mint

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/matrixise/sui-friday/internal/balance"
	"github.com/matrixise/sui-friday/internal/blockchain"
)

// BalanceReader reads the SUI balance of an address
type BalanceReader interface {
	GetBalance(ctx context.Context, owner string) (*blockchain.Balance, error)
}

// AccountBalance is the last known balance of the connected account
type AccountBalance struct {
	Address    string
	TotalMinor *big.Int
	CoinCount  int
	Loaded     bool
	UpdatedAt  time.Time
}

// Display formats the balance in SUI
func (b AccountBalance) Display() string {
	return balance.Display(b.TotalMinor)
}

// AccountWatcher polls the balance of the connected account
type AccountWatcher struct {
	reader  BalanceReader
	address string

	mu      sync.RWMutex
	current AccountBalance
	now     func() time.Time
}

func NewAccountWatcher(reader BalanceReader, address string) *AccountWatcher {
	return &AccountWatcher{
		reader:  reader,
		address: address,
		current: AccountBalance{Address: address},
		now:     time.Now,
	}
}

func (w *AccountWatcher) Address() string {
	return w.address
}

// Refresh reads the balance once
func (w *AccountWatcher) Refresh(ctx context.Context) (AccountBalance, error) {
	bal, err := w.reader.GetBalance(ctx, w.address)
	if err != nil {
		return w.Balance(), fmt.Errorf("failed to get balance for %s: %w", w.address, err)
	}

	total, ok := balance.ParseMinor(bal.TotalBalance)
	if !ok {
		return w.Balance(), fmt.Errorf("invalid total balance %q for %s", bal.TotalBalance, w.address)
	}

	next := AccountBalance{
		Address:    w.address,
		TotalMinor: total,
		CoinCount:  bal.CoinObjectCount,
		Loaded:     true,
		UpdatedAt:  w.now(),
	}

	w.mu.Lock()
	w.current = next
	w.mu.Unlock()

	slog.Debug("Account balance retrieved", "address", w.address, "balance_sui", balance.ToMajorUnitsInt(total))
	return next, nil
}

// Poll is the scheduler job body
func (w *AccountWatcher) Poll(ctx context.Context) {
	if _, err := w.Refresh(ctx); err != nil && ctx.Err() == nil {
		slog.Warn("Failed to refresh account balance", "address", w.address, "error", err)
	}
}

// Balance returns the last known balance
func (w *AccountWatcher) Balance() AccountBalance {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := w.current
	if out.TotalMinor != nil {
		out.TotalMinor = new(big.Int).Set(out.TotalMinor)
	}
	return out
}
