package risk

import (
	"math"
	"testing"

	"github.com/maxatome/go-testdeep/td"

	"github.com/perpdesk/go-perpdesk/config"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestOrderValueAndMargin(t *testing.T) {
	value := OrderValue(0.5, 65000)
	if value != 32500 {
		t.Fatalf("OrderValue = %v, want 32500", value)
	}

	if got := MarginRequired(value, 10); got != 3250 {
		t.Fatalf("MarginRequired = %v, want 3250", got)
	}
	if got := MarginRequired(value, 0); got != value {
		t.Fatalf("MarginRequired at leverage 0 = %v, want full value", got)
	}
}

func TestLiquidationPrice(t *testing.T) {
	const entry = 65000.0
	const buffer = 0.01

	tests := []struct {
		name     string
		leverage int
		isLong   bool
		expected float64
	}{
		{name: "long 1x never liquidates", leverage: 1, isLong: true, expected: 0},
		{name: "short 1x capped at 2x entry", leverage: 1, isLong: false, expected: 130000},
		{name: "long 10x", leverage: 10, isLong: true, expected: entry * (1 - 0.1 + buffer)},
		{name: "short 10x", leverage: 10, isLong: false, expected: entry * (1 + 0.1 - buffer)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LiquidationPrice(entry, tt.leverage, tt.isLong, buffer)
			if !almostEqual(got, tt.expected) {
				t.Fatalf("LiquidationPrice = %v, want %v", got, tt.expected)
			}
		})
	}

	// the long estimate sits below entry, the short estimate above
	if LiquidationPrice(entry, 5, true, buffer) >= entry {
		t.Fatal("long liquidation price should be below entry")
	}
	if LiquidationPrice(entry, 5, false, buffer) <= entry {
		t.Fatal("short liquidation price should be above entry")
	}
}

func TestRecommendedStopLoss(t *testing.T) {
	const entry = 65000.0
	const buffer = 0.01

	// long 10x: midway between entry and the liquidation estimate
	liq := LiquidationPrice(entry, 10, true, buffer)
	got := RecommendedStopLoss(entry, 10, true, buffer)
	if !almostEqual(got, (entry+liq)/2) {
		t.Fatalf("RecommendedStopLoss = %v, want %v", got, (entry+liq)/2)
	}
	if got <= liq || got >= entry {
		t.Fatal("long stop suggestion must sit between liquidation and entry")
	}

	// short 10x: above entry, below liquidation
	got = RecommendedStopLoss(entry, 10, false, buffer)
	if got <= entry || got >= LiquidationPrice(entry, 10, false, buffer) {
		t.Fatal("short stop suggestion must sit between entry and liquidation")
	}

	// unleveraged long has no liquidation level, so no stop is suggested
	if got := RecommendedStopLoss(entry, 1, true, buffer); got != 0 {
		t.Fatalf("RecommendedStopLoss at 1x long = %v, want 0", got)
	}
}

func TestCompute_HighRiskFlags(t *testing.T) {
	cfg := config.RiskConfig{
		MaintenanceBuffer:  0.01,
		HighRiskAllocation: 0.5,
		HighRiskLeverage:   20,
	}

	// modest order: 0.1 BTC at 65000 with 10x against a 10k wallet
	snap := Compute(0.1, 65000, 10, true, 10_000, cfg)
	td.Cmp(t, snap.HighRisk, false)
	if !almostEqual(snap.Allocation, 0.065) {
		t.Fatalf("Allocation = %v, want 0.065", snap.Allocation)
	}

	// allocation breach
	snap = Compute(1, 65000, 10, true, 10_000, cfg)
	td.Cmp(t, snap.HighRisk, true)

	// leverage breach with tiny allocation
	snap = Compute(0.001, 65000, 25, true, 100_000, cfg)
	td.Cmp(t, snap.HighRisk, true)
}

func TestAllocation_ZeroBalance(t *testing.T) {
	if got := Allocation(100, 0); got != 0 {
		t.Fatalf("Allocation with zero balance = %v, want 0", got)
	}
}
