package cmd

import (
	"fmt"
	"log/slog"

	"github.com/matrixise/sui-friday/internal/blockchain"
	"github.com/matrixise/sui-friday/internal/config"
	"github.com/matrixise/sui-friday/internal/leaderboard"
	"github.com/matrixise/sui-friday/internal/logger"
	"github.com/matrixise/sui-friday/internal/mint"
	"github.com/matrixise/sui-friday/internal/notify"
)

// loadConfig sets up logging from the flag, loads the configuration and
// re-applies the configured log level when the flag was left at its default.
func loadConfig() (*config.Config, error) {
	logger.Setup(logLevel)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return nil, err
	}
	if cfg.LogLevel != "" && !rootCmd.PersistentFlags().Changed("log-level") {
		logger.Setup(cfg.LogLevel)
	}
	return cfg, nil
}

func connect(cfg *config.Config) (*blockchain.Client, error) {
	client, err := blockchain.NewClient(cfg.RPCUrls)
	if err != nil {
		slog.Error("Failed to connect to RPC", "error", err)
		return nil, err
	}

	if len(cfg.RPCUrls) == 1 {
		slog.Info("RPC connection established", "network", cfg.Network, "endpoint", cfg.RPCUrls[0])
	} else {
		slog.Info("RPC connection established with failover",
			"network", cfg.Network,
			"endpoints", len(cfg.RPCUrls),
			"primary", cfg.RPCUrls[0])
	}
	return client, nil
}

func roster(cfg *config.Config) []leaderboard.Entry {
	entries := make([]leaderboard.Entry, len(cfg.Wallets))
	for i, w := range cfg.Wallets {
		entries[i] = leaderboard.Entry{Name: w.Name, Address: w.Address}
	}
	return leaderboard.Dedupe(entries)
}

func mintSettings(cfg *config.Config) mint.Settings {
	return mint.Settings{
		Package:             cfg.Mint.Package,
		Module:              cfg.Mint.Module,
		Function:            cfg.Mint.Function,
		Tracker:             cfg.Mint.Tracker,
		Price:               cfg.Mint.Price,
		GasBudget:           cfg.Mint.GasBudget,
		ConfirmTimeout:      cfg.Mint.ConfirmTimeout,
		ConfirmPollInterval: cfg.Mint.ConfirmPollInterval,
	}
}

// loadWallet returns the operator wallet, or nil when no key is configured
func loadWallet(cfg *config.Config, client *blockchain.Client) (*blockchain.KeystoreSigner, error) {
	ks := cfg.Keystore
	if !ks.HasSigner() {
		return nil, nil
	}

	var (
		key *blockchain.Keypair
		err error
	)
	if ks.PrivateKey != "" {
		key, err = blockchain.ParsePrivateKey(ks.PrivateKey)
	} else {
		key, err = blockchain.LoadKeystore(ks.Path, ks.Account)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key: %w", err)
	}

	if ks.Account != "" {
		want, err := blockchain.NormalizeAddress(ks.Account)
		if err != nil {
			return nil, err
		}
		if key.Address() != want {
			return nil, fmt.Errorf("signing key address %s does not match keystore.account %s", key.Address(), want)
		}
	}

	slog.Info("Wallet connected", "address", key.Address())
	return blockchain.NewKeystoreSigner(key, client), nil
}

// newOrchestrator wires the mint flow. Without a key it stays read-only and
// every attempt ends with a NoWallet client error.
func newOrchestrator(cfg *config.Config, client *blockchain.Client, tracker *mint.Tracker, notifier notify.Notifier) (*mint.Orchestrator, *blockchain.KeystoreSigner, error) {
	wallet, err := loadWallet(cfg, client)
	if err != nil {
		return nil, nil, err
	}

	opts := []mint.Option{
		mint.WithTracker(tracker),
		mint.WithNotifier(notifier),
	}
	if wallet != nil {
		opts = append(opts, mint.WithWallet(wallet))
	}
	return mint.NewOrchestrator(mintSettings(cfg), client, opts...), wallet, nil
}
