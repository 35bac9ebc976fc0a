package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"text/tabwriter"

	"github.com/matrixise/sui-friday/internal/balance"
	"github.com/matrixise/sui-friday/internal/leaderboard"
	"github.com/spf13/cobra"
)

var leaderboardJSON bool

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Fetch every roster wallet once and print the ranking",
	RunE:  runLeaderboard,
}

func init() {
	rootCmd.AddCommand(leaderboardCmd)

	leaderboardCmd.Flags().BoolVar(&leaderboardJSON, "json", false, "print rows as JSON")
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := connect(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	entries := roster(cfg)
	agg := leaderboard.NewAggregator(entries)
	ctx := cmd.Context()

	var wg sync.WaitGroup
	for _, entry := range entries {
		wg.Add(1)
		go func(e leaderboard.Entry) {
			defer wg.Done()

			snap, err := leaderboard.NewFetcher(e, client, nil).Fetch(ctx)
			if err != nil {
				slog.Error("Wallet query error", "wallet", e.Name, "address", e.Address, "error", err)
				return
			}
			if snap == nil {
				slog.Warn("No holdings data for wallet", "wallet", e.Name, "address", e.Address)
				return
			}
			agg.Apply(*snap)
		}(entry)
	}
	wg.Wait()

	if loaded := agg.Loaded(); loaded != agg.Tracked() {
		slog.Warn("Some wallets could not be loaded", "loaded", loaded, "tracked", agg.Tracked())
	}

	rows := agg.RankedRows()
	if leaderboardJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "RANK\tNAME\tADDRESS\tBALANCE (SUI)\tCOINS\t")
	for _, row := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t\n",
			row.Rank,
			row.Snapshot.Name,
			balance.ShortAddress(row.Snapshot.Address),
			row.Snapshot.TotalDisplay(),
			row.Snapshot.HoldingCount,
		)
	}
	return w.Flush()
}
