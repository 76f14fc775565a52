// Package config loads the static per-market parameters spec §6's
// InitializeMarket needs from a YAML file, with environment-variable
// overrides for the handful of values an operator tunes per deployment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level configuration for one market instance. Maps
// directly to the YAML file structure.
type Config struct {
	Market    MarketConfig    `mapstructure:"market"`
	Capacity  CapacityConfig  `mapstructure:"capacity"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Replay    ReplayConfig    `mapstructure:"replay"`
}

// MarketConfig holds the static parameters baked into clobtypes.MarketHeader
// at InitializeMarket time (spec §3/§6). These never change for the life
// of a market; a different tick size or lot size is a different market.
type MarketConfig struct {
	TickSize            uint64 `mapstructure:"tick_size"`
	BaseLotsPerBaseUnit  uint64 `mapstructure:"base_lots_per_base_unit"`
	BaseAtomsPerBaseLot  uint64 `mapstructure:"base_atoms_per_base_lot"`
	QuoteAtomsPerQuoteLot uint64 `mapstructure:"quote_atoms_per_quote_lot"`
	FeeBps              uint16 `mapstructure:"fee_bps"`
}

// CapacityConfig sizes the fixed-capacity containers spec §4.2/§3 require
// (the order book per side and the trader registry).
type CapacityConfig struct {
	OrderBookPerSide int `mapstructure:"order_book_per_side"`
	Traders          int `mapstructure:"traders"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ReplayConfig points cmd/replay at the scripted instruction feed to run.
type ReplayConfig struct {
	ScriptPath string `mapstructure:"script_path"`
}

// Load reads config from a YAML file, with CLOBCORE_* environment
// variables overriding any field (e.g. CLOBCORE_MARKET_FEE_BPS).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("CLOBCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("capacity.order_book_per_side", 4096)
	v.SetDefault("capacity.traders", 8192)
	v.SetDefault("market.base_atoms_per_base_lot", 1)
	v.SetDefault("market.quote_atoms_per_quote_lot", 1)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if script := os.Getenv("CLOBCORE_REPLAY_SCRIPT_PATH"); script != "" {
		cfg.Replay.ScriptPath = script
	}

	return &cfg, nil
}

// Validate checks the required fields and value ranges spec §3/§4.1
// assume hold for the life of a market (nonzero tick size and lot size,
// sane fee bps, nonzero capacities).
func (c *Config) Validate() error {
	if c.Market.TickSize == 0 {
		return fmt.Errorf("market.tick_size must be > 0")
	}
	if c.Market.BaseLotsPerBaseUnit == 0 {
		return fmt.Errorf("market.base_lots_per_base_unit must be > 0")
	}
	if c.Market.BaseAtomsPerBaseLot == 0 {
		return fmt.Errorf("market.base_atoms_per_base_lot must be > 0")
	}
	if c.Market.QuoteAtomsPerQuoteLot == 0 {
		return fmt.Errorf("market.quote_atoms_per_quote_lot must be > 0")
	}
	if c.Market.FeeBps > 10_000 {
		return fmt.Errorf("market.fee_bps must be <= 10000 (100%%)")
	}
	if c.Capacity.OrderBookPerSide <= 0 {
		return fmt.Errorf("capacity.order_book_per_side must be > 0")
	}
	if c.Capacity.Traders <= 0 {
		return fmt.Errorf("capacity.traders must be > 0")
	}
	return nil
}
