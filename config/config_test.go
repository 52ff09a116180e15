package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maxatome/go-testdeep/td"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
exchange:
  base_url: https://api.hyperliquid-testnet.xyz
  mainnet: false
  settle_delay: 250ms
slippage:
  market_band: 0.05
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	td.Cmp(t, cfg.Exchange.BaseURL, "https://api.hyperliquid-testnet.xyz")
	td.Cmp(t, cfg.Exchange.Mainnet, false)
	td.Cmp(t, cfg.Exchange.SettleDelay, 250*time.Millisecond)
	td.Cmp(t, cfg.Slippage.MarketBand, 0.05)

	// untouched keys keep defaults
	td.Cmp(t, cfg.Slippage.GuardBand, 0.10)
	td.Cmp(t, cfg.Exchange.Timeout, 10*time.Second)
	td.Cmp(t, cfg.Risk.HighRiskLeverage, 20)
}

func TestLoad_RejectsBadBand(t *testing.T) {
	path := writeConfig(t, `
slippage:
  market_band: 1.5
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for market_band 1.5")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefault_Valid(t *testing.T) {
	if err := Default().validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
