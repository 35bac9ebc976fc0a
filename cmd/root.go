package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sui-friday",
	Short: "Sui wallet leaderboard and bootcamp NFT mint",
	Long: `sui-friday polls the SUI holdings of a roster of wallets and ranks them on a
coin leaderboard. It also mirrors the bootcamp NFT mint tracker and runs mints
with a configured signing key.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
