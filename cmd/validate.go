package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file syntax and values without running the application.`,
	RunE:  validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	slog.Info("✓ Configuration valid",
		"network", cfg.Network,
		"wallets", len(cfg.Wallets),
		"unique_wallets", len(roster(cfg)),
		"rpc_urls", len(cfg.RPCUrls),
		"poll_interval", cfg.PollInterval,
		"log_level", cfg.LogLevel,
		"mint_target", mintSettings(cfg).Target(),
		"mint_limit", cfg.Mint.Limit,
		"signer_configured", cfg.Keystore.HasSigner(),
		"database_url_set", cfg.DatabaseURL != "",
	)
	return nil
}
