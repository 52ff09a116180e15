// Package risk computes the pre-trade figures the terminal displays next to
// the order form: order value, required margin, an estimated liquidation
// price and a portfolio-allocation warning. Everything is a pure function of
// already-quantized inputs. The numbers are display estimates — notably the
// liquidation price, which uses a fixed maintenance buffer rather than the
// exchange's actual liquidation formula — and none of them ever blocks a
// submission; hard validation belongs to the order builder.
package risk

import "github.com/perpdesk/go-perpdesk/config"

// Snapshot is the bundle of figures computed for one prospective order.
type Snapshot struct {
	OrderValue          float64
	MarginRequired      float64
	LiquidationPrice    float64
	RecommendedStopLoss float64
	Allocation          float64
	HighRisk            bool
}

// OrderValue is the notional value of the order at its effective price.
func OrderValue(size, price float64) float64 {
	return size * price
}

// MarginRequired is the margin the order consumes at the given leverage.
// Leverage below 1 is treated as 1.
func MarginRequired(orderValue float64, leverage int) float64 {
	if leverage < 1 {
		leverage = 1
	}
	return orderValue / float64(leverage)
}

// LiquidationPrice estimates where the position would be liquidated. At
// leverage ≤ 1 a long cannot be liquidated (0) and a short is capped at
// twice the entry; above that the estimate is entry ± entry/leverage
// adjusted by the maintenance buffer.
func LiquidationPrice(entry float64, leverage int, isLong bool, buffer float64) float64 {
	if leverage <= 1 {
		if isLong {
			return 0
		}
		return 2 * entry
	}

	inv := 1 / float64(leverage)
	if isLong {
		return entry * (1 - inv + buffer)
	}
	return entry * (1 + inv - buffer)
}

// RecommendedStopLoss suggests a protective stop halfway between the entry
// and the estimated liquidation price, so the position is closed well before
// margin runs out. At leverage ≤ 1 a long has no liquidation level and the
// suggestion is 0 (no stop needed).
func RecommendedStopLoss(entry float64, leverage int, isLong bool, buffer float64) float64 {
	liq := LiquidationPrice(entry, leverage, isLong, buffer)
	if isLong && liq <= 0 {
		return 0
	}
	return (entry + liq) / 2
}

// Allocation is the fraction of the wallet balance the order's margin
// consumes. A non-positive balance yields 0 rather than a division artifact.
func Allocation(marginRequired, walletBalance float64) float64 {
	if walletBalance <= 0 {
		return 0
	}
	return marginRequired / walletBalance
}

// Compute produces the full snapshot for one order.
func Compute(
	size float64,
	entry float64,
	leverage int,
	isLong bool,
	walletBalance float64,
	cfg config.RiskConfig,
) Snapshot {
	value := OrderValue(size, entry)
	margin := MarginRequired(value, leverage)
	alloc := Allocation(margin, walletBalance)

	highRisk := false
	if cfg.HighRiskAllocation > 0 && alloc > cfg.HighRiskAllocation {
		highRisk = true
	}
	if cfg.HighRiskLeverage > 0 && leverage > cfg.HighRiskLeverage {
		highRisk = true
	}

	return Snapshot{
		OrderValue:          value,
		MarginRequired:      margin,
		LiquidationPrice:    LiquidationPrice(entry, leverage, isLong, cfg.MaintenanceBuffer),
		RecommendedStopLoss: RecommendedStopLoss(entry, leverage, isLong, cfg.MaintenanceBuffer),
		Allocation:          alloc,
		HighRisk:            highRisk,
	}
}
