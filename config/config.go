// Package config loads payment engine settings from the environment.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"github.com/vitwit/x402pay/types"
	"github.com/vitwit/x402pay/utils"
)

// EnvPrefix prefixes every environment variable, e.g. X402PAY_PREFERRED_RAIL.
const EnvPrefix = "x402pay"

type Config struct {
	PreferredRail   string `json:"preferred_rail" split_words:"true" default:"prepaid" validate:"omitempty,oneof=prepaid crypto"`
	FallbackEnabled bool   `json:"fallback_enabled" split_words:"true" default:"true"`
	LogLevel        string `json:"log_level" split_words:"true" default:"info" validate:"oneof=debug info warn error"`
	EnableMetrics   bool   `json:"enable_metrics" split_words:"true"`

	// Used by the CLI only. The engine never reads key material from config.
	WalletPrivateKey string `json:"-" split_words:"true"`
	PrepaidBalance   string `json:"prepaid_balance" split_words:"true"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		PreferredRail:   "prepaid",
		FallbackEnabled: true,
		LogLevel:        "info",
	}
}

func loadEnvironment(filename string) error {
	var err error
	if filename != "" {
		err = godotenv.Overload(filename)
	} else {
		err = godotenv.Load()
		// a missing .env file is fine
		if os.IsNotExist(err) {
			return nil
		}
	}
	return err
}

// Load reads filename (or ./.env when empty) into the environment, then
// processes the X402PAY_ variables and validates the result.
func Load(filename string) (*Config, error) {
	if err := loadEnvironment(filename); err != nil {
		return nil, configError(err, "failed to load env file")
	}

	config := new(Config)
	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return nil, configError(err, "failed to process environment")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return configError(err, "invalid configuration")
	}
	if c.PrepaidBalance != "" {
		if _, err := utils.ValidateAmount(c.PrepaidBalance); err != nil {
			return configError(err, "invalid prepaid balance %q", c.PrepaidBalance)
		}
	}
	return nil
}

// Balance returns the configured prepaid balance. ok is false when unset.
func (c *Config) Balance() (balance decimal.Decimal, ok bool) {
	if c.PrepaidBalance == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(c.PrepaidBalance)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func configError(cause error, format string, args ...interface{}) error {
	return &types.X402Error{
		Code:    types.ErrConfigError,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}
