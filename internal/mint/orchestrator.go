// Package mint builds, signs and confirms the NFT mint transaction and keeps
// a local mirror of the on-chain mint tracker.
package mint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/matrixise/sui-friday/internal/blockchain"
	"github.com/matrixise/sui-friday/internal/metrics"
	"github.com/matrixise/sui-friday/internal/notify"
)

// State of a mint attempt
type State string

const (
	StateIdle              State = "idle"
	StateAwaitingSignature State = "awaiting_signature"
	StateSubmitted         State = "submitted"
	StateConfirming        State = "confirming"
	StateSuccess           State = "success"
	StateFailure           State = "failure"
	StateClientError       State = "client_error"
)

var (
	ErrNoWallet        = errors.New("no wallet connected")
	ErrSignerRejected  = errors.New("signer rejected the transaction")
	ErrClientException = errors.New("failed to build the transaction")
	ErrConfirmation    = errors.New("failed to confirm the transaction")
	ErrMintInProgress  = errors.New("mint already in progress")
)

// Wallet signs transactions for the connected account
type Wallet interface {
	Address() string
	SignTransaction(ctx context.Context, tx *blockchain.Transaction) (*blockchain.SignedTransaction, error)
}

// Ledger executes signed transactions and waits for their effects
type Ledger interface {
	ExecuteTransactionBlock(ctx context.Context, txBytes string, signatures []string, opts blockchain.TransactionBlockResponseOptions) (*blockchain.TransactionBlockResponse, error)
	WaitForTransaction(ctx context.Context, digest string, opts blockchain.WaitOptions) (*blockchain.TransactionBlockResponse, error)
}

// Invalidator is told when a mint changed the tracker
type Invalidator interface {
	Invalidate()
}

// Settings are the on-chain constants of the mint call
type Settings struct {
	Package             string
	Module              string
	Function            string
	Tracker             string
	Price               uint64
	GasBudget           uint64
	ConfirmTimeout      time.Duration
	ConfirmPollInterval time.Duration
}

func (s Settings) Target() string {
	return s.Package + "::" + s.Module + "::" + s.Function
}

// Outcome is the terminal result of one attempt
type Outcome struct {
	State          State               `json:"state"`
	Code           FailureCode         `json:"code,omitempty"`
	Digest         string              `json:"digest,omitempty"`
	RawError       string              `json:"raw_error,omitempty"`
	Err            error               `json:"-"`
	Notification   notify.Notification `json:"notification"`
	CreatedObjects []string            `json:"created_objects,omitempty"`
}

// Orchestrator runs mint attempts one at a time
type Orchestrator struct {
	settings Settings
	ledger   Ledger
	wallet   Wallet
	tracker  Invalidator
	notifier notify.Notifier

	inFlight atomic.Bool
	mu       sync.RWMutex
	state    State
}

type Option func(*Orchestrator)

// WithWallet connects a wallet; without one every attempt fails with ErrNoWallet
func WithWallet(w Wallet) Option {
	return func(o *Orchestrator) {
		o.wallet = w
	}
}

func WithTracker(t Invalidator) Option {
	return func(o *Orchestrator) {
		o.tracker = t
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(o *Orchestrator) {
		o.notifier = n
	}
}

func NewOrchestrator(settings Settings, ledger Ledger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		settings: settings,
		ledger:   ledger,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Settings() Settings {
	return o.settings
}

// Account is the connected wallet address, or "" when none
func (o *Orchestrator) Account() string {
	if o.wallet == nil {
		return ""
	}
	return o.wallet.Address()
}

func (o *Orchestrator) HasWallet() bool {
	return o.wallet != nil
}

// InFlight reports whether an attempt is running
func (o *Orchestrator) InFlight() bool {
	return o.inFlight.Load()
}

// State is the step of the running attempt, or Idle
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// BuildTransaction assembles the mint: split the price off the gas coin,
// call the mint function with the tracker, send the NFT to account.
func (o *Orchestrator) BuildTransaction(account string) *blockchain.Transaction {
	tx := blockchain.NewTransaction()
	tx.SetGasBudget(o.settings.GasBudget)

	payment := tx.SplitCoins(tx.Gas(), tx.PureU64(o.settings.Price))
	nft := tx.MoveCall(o.settings.Target(), tx.Object(o.settings.Tracker), payment)
	tx.TransferObjects([]blockchain.Argument{nft}, tx.PureAddress(account))
	return tx
}

// Mint runs one attempt to a terminal state. Every outcome carries a
// notification, which is also sent to the configured notifier.
func (o *Orchestrator) Mint(ctx context.Context) Outcome {
	if !o.inFlight.CompareAndSwap(false, true) {
		return o.finish(Outcome{
			State:        StateClientError,
			Err:          ErrMintInProgress,
			Notification: notify.Error(titleInProgress, descriptionInProgress),
		}, false)
	}
	defer o.inFlight.Store(false)

	return o.finish(o.attempt(ctx), true)
}

func (o *Orchestrator) attempt(ctx context.Context) Outcome {
	if o.wallet == nil {
		return Outcome{
			State:        StateClientError,
			Err:          ErrNoWallet,
			Notification: notify.Error(titleNoWallet, ""),
		}
	}

	account := o.wallet.Address()
	o.setState(StateAwaitingSignature)

	tx := o.BuildTransaction(account)
	if err := tx.Err(); err != nil {
		slog.Error("Failed to build mint transaction", "account", account, "error", err)
		return Outcome{
			State:        StateClientError,
			Err:          fmt.Errorf("%w: %w", ErrClientException, err),
			Notification: notify.Error(titleBuild, descriptionBuild),
		}
	}

	signed, err := o.wallet.SignTransaction(ctx, tx)
	if err != nil {
		return o.signerFailure(account, err)
	}

	o.setState(StateSubmitted)
	resp, err := o.ledger.ExecuteTransactionBlock(ctx, signed.Bytes, []string{signed.Signature},
		blockchain.TransactionBlockResponseOptions{
			ShowEffects:       true,
			ShowObjectChanges: true,
			ShowRawEffects:    true,
		})
	if err != nil {
		return o.signerFailure(account, err)
	}
	if resp.Digest == "" {
		return o.signerFailure(account, errors.New("execution returned no transaction digest"))
	}

	slog.Info("Mint transaction submitted", "account", account, "digest", resp.Digest)

	o.setState(StateConfirming)
	confirmed, err := o.ledger.WaitForTransaction(ctx, resp.Digest, blockchain.WaitOptions{
		Timeout:      o.settings.ConfirmTimeout,
		PollInterval: o.settings.ConfirmPollInterval,
		Options: blockchain.TransactionBlockResponseOptions{
			ShowEffects:       true,
			ShowObjectChanges: true,
		},
	})
	if err != nil {
		slog.Error("Error checking transaction", "digest", resp.Digest, "error", err)
		return Outcome{
			State:        StateClientError,
			Digest:       resp.Digest,
			Err:          fmt.Errorf("%w: %w", ErrConfirmation, err),
			Notification: notify.Error(titleConfirmation, descriptionConfirmation),
		}
	}

	return o.confirmed(resp.Digest, confirmed)
}

func (o *Orchestrator) confirmed(digest string, resp *blockchain.TransactionBlockResponse) Outcome {
	switch resp.Status() {
	case blockchain.StatusSuccess:
		if o.tracker != nil {
			o.tracker.Invalidate()
		}
		slog.Info("Mint confirmed", "digest", digest)
		return Outcome{
			State:          StateSuccess,
			Digest:         digest,
			CreatedObjects: resp.CreatedObjects(),
			Notification:   notify.Success(titleSuccess, descriptionSuccess),
		}

	case blockchain.StatusFailure:
		raw := resp.Effects.Status.Error
		code, n := FailureNotification(raw)
		slog.Warn("Mint rejected by the ledger", "digest", digest, "code", code, "error", raw)
		return Outcome{
			State:        StateFailure,
			Code:         code,
			Digest:       digest,
			RawError:     raw,
			Notification: n,
		}

	default:
		slog.Warn("Mint finished without a known status", "digest", digest, "status", resp.Status())
		return Outcome{
			State:        StateFailure,
			Code:         CodeUnknown,
			Digest:       digest,
			Notification: notify.Error(titleTransactionFailed, descriptionUnexpected),
		}
	}
}

func (o *Orchestrator) signerFailure(account string, err error) Outcome {
	slog.Error("Mint transaction failed", "account", account, "error", err)

	description := err.Error()
	if description == "" {
		description = descriptionMintError
	}
	return Outcome{
		State:        StateClientError,
		Err:          fmt.Errorf("%w: %w", ErrSignerRejected, err),
		Notification: notify.Error(titleTransactionFailed, description),
	}
}

// finish records the outcome and returns the orchestrator to Idle when it
// owned the attempt.
func (o *Orchestrator) finish(out Outcome, owner bool) Outcome {
	if owner {
		o.setState(StateIdle)
	}
	metrics.RecordMintOutcome(string(out.State), string(out.Code))
	if o.notifier != nil {
		o.notifier.Notify(out.Notification)
	}
	return out
}
