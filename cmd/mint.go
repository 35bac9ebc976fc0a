package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/matrixise/sui-friday/internal/metrics"
	"github.com/matrixise/sui-friday/internal/mint"
	"github.com/matrixise/sui-friday/internal/notify"
	"github.com/spf13/cobra"
)

var mintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint one NFT with the configured signing key",
	Long: `Build, sign and submit one mint transaction, then wait for confirmation.
Requires keystore.path or keystore.private_key (SUI_PRIVATE_KEY).`,
	RunE: runMint,
}

func init() {
	rootCmd.AddCommand(mintCmd)
}

func runMint(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Keystore.HasSigner() {
		return fmt.Errorf("%w: set keystore.path or SUI_PRIVATE_KEY", mint.ErrNoWallet)
	}

	metrics.Init()

	client, err := connect(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := cmd.Context()

	tracker := mint.NewTracker(client, cfg.Mint.Tracker, cfg.Mint.Limit)
	if _, err := tracker.Refresh(ctx); err != nil {
		slog.Warn("Failed to read tracker before minting", "error", err)
	} else if tracker.SoldOut() {
		slog.Warn("Tracker reports sold out, the chain will reject the mint")
	}

	orchestrator, _, err := newOrchestrator(cfg, client, tracker, notify.NewWriterNotifier(cmd.OutOrStdout()))
	if err != nil {
		return err
	}

	slog.Info("Minting", "target", orchestrator.Settings().Target(), "account", orchestrator.Account())
	out := orchestrator.Mint(ctx)

	switch out.State {
	case mint.StateSuccess:
		fmt.Fprintf(cmd.OutOrStdout(), "Digest: %s\n", out.Digest)
		for _, id := range out.CreatedObjects {
			fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", id)
		}
		return nil
	case mint.StateFailure:
		return fmt.Errorf("mint failed (%s): %s", out.Code, out.RawError)
	default:
		if out.Err == nil {
			return errors.New("mint did not complete")
		}
		return out.Err
	}
}
