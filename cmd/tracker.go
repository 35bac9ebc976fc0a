package cmd

import (
	"fmt"

	"github.com/matrixise/sui-friday/internal/balance"
	"github.com/matrixise/sui-friday/internal/mint"
	"github.com/spf13/cobra"
)

var trackerCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Read the mint tracker once and print its state",
	RunE:  runTrackerOnce,
}

func init() {
	rootCmd.AddCommand(trackerCmd)
}

func runTrackerOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := connect(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := cmd.Context()

	tracker := mint.NewTracker(client, cfg.Mint.Tracker, cfg.Mint.Limit)
	state, err := tracker.Refresh(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Tracker: %s\n", tracker.ID())
	fmt.Fprintf(out, "Minted:  %d / %d\n", state.MintCount, tracker.Limit())
	fmt.Fprintf(out, "Price:   %s SUI\n", balance.ToMajorUnitsUint(cfg.Mint.Price))
	if state.SoldOut(tracker.Limit()) {
		fmt.Fprintln(out, "Sold Out!")
	}
	for i, addr := range state.MintedAddresses {
		fmt.Fprintf(out, "#%d %s\n", i+1, addr)
	}
	return nil
}
