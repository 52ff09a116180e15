// Package config carries the tunable parameters of the order pipeline. The
// slippage bands, guard skew and maintenance buffer are product heuristics,
// not values derived from the exchange's matching or liquidation formulas,
// so they are configuration rather than constants.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/perpdesk/go-perpdesk/constants"
)

type Config struct {
	Exchange ExchangeConfig `yaml:"exchange"`
	Slippage SlippageConfig `yaml:"slippage"`
	Risk     RiskConfig     `yaml:"risk"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ExchangeConfig struct {
	// BaseURL of the exchange gateway.
	BaseURL string `yaml:"base_url"`
	// Mainnet selects the signature domain source byte.
	Mainnet bool `yaml:"mainnet"`
	// Timeout bounds each network call.
	Timeout time.Duration `yaml:"timeout"`
	// SettleDelay is the pause between dependent submission steps, giving
	// the prior step's effect a chance to become visible before the next
	// payload is processed.
	SettleDelay time.Duration `yaml:"settle_delay"`
	// RegistryRefresh is the asset token-list refresh interval.
	RegistryRefresh time.Duration `yaml:"registry_refresh"`
}

// UnmarshalYAML parses the duration fields from Go duration strings
// ("250ms", "10s"); yaml does not decode time.Duration natively. Absent keys
// leave the current (default) values in place.
func (e *ExchangeConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		BaseURL         string `yaml:"base_url"`
		Mainnet         *bool  `yaml:"mainnet"`
		Timeout         string `yaml:"timeout"`
		SettleDelay     string `yaml:"settle_delay"`
		RegistryRefresh string `yaml:"registry_refresh"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	if raw.BaseURL != "" {
		e.BaseURL = raw.BaseURL
	}
	if raw.Mainnet != nil {
		e.Mainnet = *raw.Mainnet
	}

	durations := []struct {
		raw string
		dst *time.Duration
		key string
	}{
		{raw.Timeout, &e.Timeout, "timeout"},
		{raw.SettleDelay, &e.SettleDelay, "settle_delay"},
		{raw.RegistryRefresh, &e.RegistryRefresh, "registry_refresh"},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("exchange.%s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	return nil
}

type SlippageConfig struct {
	// MarketBand is the fraction a market order's protective limit price is
	// pushed beyond the mark (buys up, sells down).
	MarketBand float64 `yaml:"market_band"`
	// GuardBand is the fraction a triggered guard leg's limit price is
	// skewed beyond its trigger in the favorable direction, so the fill is
	// not blocked by a non-marketable limit once triggered.
	GuardBand float64 `yaml:"guard_band"`
}

type RiskConfig struct {
	// MaintenanceBuffer is the fixed maintenance-margin offset applied to
	// liquidation-price estimates. Display approximation only.
	MaintenanceBuffer float64 `yaml:"maintenance_buffer"`
	// HighRiskAllocation flags orders whose required margin exceeds this
	// fraction of the wallet balance.
	HighRiskAllocation float64 `yaml:"high_risk_allocation"`
	// HighRiskLeverage flags orders above this leverage.
	HighRiskLeverage int `yaml:"high_risk_leverage"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration the terminal ships with.
func Default() Config {
	return Config{
		Exchange: ExchangeConfig{
			BaseURL:         constants.MAINNET_API_URL,
			Mainnet:         true,
			Timeout:         10 * time.Second,
			SettleDelay:     150 * time.Millisecond,
			RegistryRefresh: 5 * time.Minute,
		},
		Slippage: SlippageConfig{
			MarketBand: 0.10,
			GuardBand:  0.10,
		},
		Risk: RiskConfig{
			MaintenanceBuffer:  0.01,
			HighRiskAllocation: 0.5,
			HighRiskLeverage:   20,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults. Missing keys keep their default
// values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Slippage.MarketBand <= 0 || c.Slippage.MarketBand >= 1 {
		return fmt.Errorf("slippage.market_band %v out of (0,1)", c.Slippage.MarketBand)
	}
	if c.Slippage.GuardBand <= 0 || c.Slippage.GuardBand >= 1 {
		return fmt.Errorf("slippage.guard_band %v out of (0,1)", c.Slippage.GuardBand)
	}
	if c.Exchange.Timeout <= 0 {
		return fmt.Errorf("exchange.timeout must be positive")
	}
	if c.Exchange.SettleDelay < 0 {
		return fmt.Errorf("exchange.settle_delay must not be negative")
	}
	return nil
}
