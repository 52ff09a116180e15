package exchange

import (
	"github.com/samber/mo"

	"github.com/perpdesk/go-perpdesk/types"
)

// Side is the direction of a position the user wants to take.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Kind selects the execution style of an intent's primary order.
type Kind string

const (
	KindMarket     Kind = "market"
	KindLimit      Kind = "limit"
	KindIceberg    Kind = "iceberg"
	KindTwap       Kind = "twap"
	KindStopMarket Kind = "stop_market"
	KindStopLimit  Kind = "stop_limit"
	KindTakeMarket Kind = "take_market"
	KindTakeLimit  Kind = "take_limit"
)

// MarginMode selects cross or isolated margin for the leverage update.
type MarginMode string

const (
	MarginCross    MarginMode = "cross"
	MarginIsolated MarginMode = "isolated"
)

// Guards are optional protective exits attached to an entry order. Prices
// are raw marks; the builder quantizes them and derives the guard legs.
type Guards struct {
	TakeProfit mo.Option[float64]
	StopLoss   mo.Option[float64]
}

// Empty reports whether no guard is set.
func (g Guards) Empty() bool {
	return g.TakeProfit.IsNone() && g.StopLoss.IsNone()
}

// Intent is what the user asked for, exactly as entered: sizes and prices
// are still strings (possibly in compact "1.5k" notation) and nothing has
// been validated. The builder turns an Intent into a Plan or rejects it.
type Intent struct {
	Symbol string
	Side   Side
	Kind   Kind

	// Size in asset units. Required for every kind.
	Size string

	// LimitPrice is required for limit, iceberg, stop_limit and take_limit
	// kinds, ignored otherwise.
	LimitPrice mo.Option[string]

	// TriggerPrice is required for the stop_* and take_* kinds.
	TriggerPrice mo.Option[string]

	// ReduceOnly restricts the primary order to closing an existing
	// position.
	ReduceOnly bool

	// Guards attach take-profit / stop-loss exit legs to the entry. Only
	// valid on market, limit and iceberg kinds.
	Guards Guards

	// Leverage the position should run at. The builder emits a leverage
	// update step when it differs from the account's current setting.
	Leverage   int
	MarginMode MarginMode

	// TwapMinutes spreads the order over a time window (twap kind only).
	TwapMinutes   int
	TwapRandomize bool

	// VisibleSize caps the displayed size of an iceberg order.
	VisibleSize mo.Option[string]

	// Cloid tags the primary order for fill correlation. Guard legs are
	// never tagged with the entry's id.
	Cloid mo.Option[types.Cloid]
}

// IsBuy maps the position side onto the order book side of the entry.
func (i Intent) IsBuy() bool {
	return i.Side == SideLong
}
