package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/matrixise/sui-friday/internal/blockchain"
	"github.com/matrixise/sui-friday/internal/scheduler"
)

// Config represents the application configuration
type Config struct {
	Network        string         `mapstructure:"network" validate:"omitempty,oneof=localnet devnet testnet mainnet"`
	RPCUrl         string         `mapstructure:"rpc_url" validate:"omitempty,url"`
	RPCUrls        []string       `mapstructure:"rpc_urls" validate:"required,min=1,dive,url"`
	Wallets        []WalletConfig `mapstructure:"wallets" validate:"omitempty,dive"`
	PollInterval   string         `mapstructure:"poll_interval" validate:"required,duration"`
	RunImmediately *bool          `mapstructure:"run_immediately"`
	Timezone       string         `mapstructure:"timezone" validate:"omitempty,timezone"`
	LogLevel       string         `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	HTTPPort       int            `mapstructure:"http_port" validate:"omitempty,min=1024,max=65535"`
	DatabaseURL    string         `mapstructure:"database_url"`
	Mint           MintConfig     `mapstructure:"mint"`
	Keystore       KeystoreConfig `mapstructure:"keystore"`
}

// WalletConfig is one leaderboard roster entry
type WalletConfig struct {
	Name    string `mapstructure:"name" validate:"required,max=100"`
	Address string `mapstructure:"address" validate:"required,sui_addr"`
}

// MintConfig locates the NFT collection on chain
type MintConfig struct {
	Package             string        `mapstructure:"package" validate:"required,sui_addr"`
	Module              string        `mapstructure:"module" validate:"required,move_ident"`
	Function            string        `mapstructure:"function" validate:"required,move_ident"`
	Tracker             string        `mapstructure:"tracker" validate:"required,sui_addr"`
	Price               uint64        `mapstructure:"price" validate:"required"`
	GasBudget           uint64        `mapstructure:"gas_budget" validate:"required"`
	Limit               uint64        `mapstructure:"limit" validate:"required"`
	ConfirmTimeout      time.Duration `mapstructure:"confirm_timeout" validate:"required"`
	ConfirmPollInterval time.Duration `mapstructure:"confirm_poll_interval" validate:"required"`
}

// KeystoreConfig selects the operator key used to sign mints. Either a sui
// keystore file or a single private key; both empty means read-only.
type KeystoreConfig struct {
	Path       string `mapstructure:"path"`
	PrivateKey string `mapstructure:"private_key"`
	Account    string `mapstructure:"account" validate:"omitempty,sui_addr"`
}

// HasSigner reports whether a signing key is configured
func (k KeystoreConfig) HasSigner() bool {
	return k.Path != "" || k.PrivateKey != ""
}

var networkURLs = map[string]string{
	"localnet": "http://127.0.0.1:9000",
	"devnet":   "https://fullnode.devnet.sui.io:443",
	"testnet":  "https://fullnode.testnet.sui.io:443",
	"mainnet":  "https://fullnode.mainnet.sui.io:443",
}

// DefaultNetwork is used when neither network nor rpc_url(s) are set
const DefaultNetwork = "testnet"

// NetworkURL returns the public full node URL of a network preset
func NetworkURL(network string) (string, bool) {
	url, ok := networkURLs[network]
	return url, ok
}

// Normalize folds rpc_url into rpc_urls and falls back to the network preset
func (c *Config) Normalize() error {
	if c.RPCUrl != "" && len(c.RPCUrls) == 0 {
		c.RPCUrls = []string{c.RPCUrl}
	}
	c.RPCUrl = ""

	urls := c.RPCUrls[:0:0]
	for _, u := range c.RPCUrls {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	c.RPCUrls = urls

	if c.Network == "" {
		c.Network = DefaultNetwork
	}
	if len(c.RPCUrls) == 0 {
		url, ok := NetworkURL(c.Network)
		if !ok {
			return fmt.Errorf("unknown network %q and no rpc_url configured", c.Network)
		}
		c.RPCUrls = []string{url}
	}
	return nil
}

// GetTimezone returns the configured location, UTC when unset or invalid
func (c *Config) GetTimezone() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ShouldRunImmediately defaults to true
func (c *Config) ShouldRunImmediately() bool {
	if c.RunImmediately == nil {
		return true
	}
	return *c.RunImmediately
}

// moveIdentPattern matches Move module and function identifiers
var moveIdentPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// suiAddressValidator validates 0x-prefixed Sui addresses and object ids
func suiAddressValidator(fl validator.FieldLevel) bool {
	return blockchain.IsValidAddress(fl.Field().String())
}

// durationValidator validates poll intervals (duration or cron)
func durationValidator(fl validator.FieldLevel) bool {
	return scheduler.ValidateScheduleInterval(fl.Field().String()) == nil
}

func timezoneValidator(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true
	}
	_, err := time.LoadLocation(fl.Field().String())
	return err == nil
}

func moveIdentValidator(fl validator.FieldLevel) bool {
	return moveIdentPattern.MatchString(fl.Field().String())
}

// NewValidator creates a validator with custom validation rules
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterValidation("sui_addr", suiAddressValidator)
	validate.RegisterValidation("duration", durationValidator)
	validate.RegisterValidation("timezone", timezoneValidator)
	validate.RegisterValidation("move_ident", moveIdentValidator)
	return validate
}
