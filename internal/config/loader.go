package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override (SUI_FRIDAY_MINT_PRICE -> mint.price)
const EnvPrefix = "SUI_FRIDAY"

// Default collection settings of the Accra bootcamp NFT on testnet
const (
	DefaultPackage  = "0x1141b13ce21b14abd9b68ad21459954e023f881eeab544e1205dc235bb9db228"
	DefaultModule   = "accra"
	DefaultFunction = "mint"
	DefaultTracker  = "0x33a8fbaf5732964a51620968bb44e54be990cf232db391bf184ecadf9d0e2ddf"
)

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Configure config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bare aliases next to the prefixed names
	bindEnv(v, "rpc_url", "RPC_URL")
	bindEnv(v, "rpc_urls", "RPC_URLS")
	bindEnv(v, "log_level", "LOG_LEVEL")
	bindEnv(v, "poll_interval", "POLL_INTERVAL")
	bindEnv(v, "http_port", "HTTP_PORT")
	bindEnv(v, "timezone", "TIMEZONE")
	bindEnv(v, "database_url", "DATABASE_URL")
	bindEnv(v, "keystore.private_key", "SUI_PRIVATE_KEY")

	// 4. Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 5. Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Comma-separated RPC_URLS env var
	if rpcURLsEnv := v.GetString("rpc_urls"); strings.Contains(rpcURLsEnv, ",") {
		cfg.RPCUrls = splitList(rpcURLsEnv)
	}

	// 6. Normalize rpc_url / network into rpc_urls
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("config normalization failed: %w", err)
	}

	// 7. Validate with validator
	validate := NewValidator()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("network", DefaultNetwork)
	v.SetDefault("rpc_url", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("poll_interval", "5s")
	v.SetDefault("run_immediately", true)
	v.SetDefault("timezone", "UTC")
	v.SetDefault("http_port", 8080)
	v.SetDefault("database_url", "")

	v.SetDefault("mint.package", DefaultPackage)
	v.SetDefault("mint.module", DefaultModule)
	v.SetDefault("mint.function", DefaultFunction)
	v.SetDefault("mint.tracker", DefaultTracker)
	v.SetDefault("mint.price", 100_000_000)
	v.SetDefault("mint.gas_budget", 300_000_000)
	v.SetDefault("mint.limit", 28)
	v.SetDefault("mint.confirm_timeout", "60s")
	v.SetDefault("mint.confirm_poll_interval", "2s")

	v.SetDefault("keystore.path", "")
	v.SetDefault("keystore.private_key", "")
	v.SetDefault("keystore.account", "")
}

// bindEnv binds key to its prefixed name and to a bare alias. Explicit
// names bypass the prefix, so both are listed.
func bindEnv(v *viper.Viper, key, alias string) {
	prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	_ = v.BindEnv(key, prefixed, alias)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
