package exchange

import (
	"fmt"

	"github.com/samber/mo"

	"github.com/perpdesk/go-perpdesk/types"
)

// Policy decides what a step failure means for the rest of the plan.
type Policy int

const (
	// PolicyMustSucceed aborts the plan on any non-success outcome.
	PolicyMustSucceed Policy = iota
	// PolicyBestEffort logs the failure and lets the plan continue. Used
	// for the leverage sync, where the worst case is trading at the
	// account's previous leverage.
	PolicyBestEffort
)

func (p Policy) String() string {
	switch p {
	case PolicyBestEffort:
		return "bestEffort"
	default:
		return "mustSucceed"
	}
}

// Tif is the time-in-force of a resting order.
type Tif string

const (
	TifGtc Tif = "Gtc"
	TifIoc Tif = "Ioc"
	TifAlo Tif = "Alo"
)

// TpSl marks a trigger order as a take-profit or a stop-loss.
type TpSl string

const (
	TpSlTakeProfit TpSl = "tp"
	TpSlStopLoss   TpSl = "sl"
)

// Grouping tells the exchange how the orders of one action relate.
type Grouping string

const (
	GroupingNA         Grouping = "na"
	GroupingNormalTpSl Grouping = "normalTpsl"
)

// Trigger is the trigger half of a conditional order.
type Trigger struct {
	IsMarket bool
	// PriceWire is the already-quantized trigger price in wire form.
	PriceWire string
	TpSl      TpSl
}

// OrderAction is one fully resolved order: asset index bound, prices and
// sizes quantized and rendered to wire strings. Nothing about it changes
// between building and signing.
type OrderAction struct {
	Asset      int64
	IsBuy      bool
	PriceWire  string
	SizeWire   string
	ReduceOnly bool

	// Tif applies when Trigger is nil.
	Tif     Tif
	Trigger *Trigger

	Cloid mo.Option[types.Cloid]
}

// LeverageAction updates the account's leverage for one asset.
type LeverageAction struct {
	Asset    int64
	IsCross  bool
	Leverage int
}

// TwapAction spreads an order over a time window, executed by the
// exchange's own slicer.
type TwapAction struct {
	Asset      int64
	IsBuy      bool
	SizeWire   string
	ReduceOnly bool
	Minutes    int
	Randomize  bool
}

// CancelAction removes one resting order by exchange order id.
type CancelAction struct {
	Asset int64
	Oid   int64
}

// Step is one signed payload of a plan. Exactly one of the payload
// families is populated; the orders of a single step travel in one action
// under one nonce and one signature, so the exchange accepts or rejects
// them as a unit.
type Step struct {
	Policy Policy

	Orders   []OrderAction
	Grouping Grouping

	Leverage *LeverageAction
	Twap     *TwapAction
	Cancels  []CancelAction
}

// Plan is the ordered list of steps built from one intent. Steps are
// submitted strictly in order; a later step may depend on an earlier one
// having settled.
type Plan struct {
	Symbol string
	Steps  []Step
}

// wire renders the step's payload family into the signable action.
func (s Step) wire() (action, error) {
	populated := 0
	if len(s.Orders) > 0 {
		populated++
	}
	if s.Leverage != nil {
		populated++
	}
	if s.Twap != nil {
		populated++
	}
	if len(s.Cancels) > 0 {
		populated++
	}
	if populated != 1 {
		return nil, fmt.Errorf("step must carry exactly one payload family, has %d", populated)
	}

	switch {
	case len(s.Orders) > 0:
		return ordersToAction(s.Orders, s.Grouping), nil
	case s.Leverage != nil:
		return leverageToAction(*s.Leverage), nil
	case s.Twap != nil:
		return twapToAction(*s.Twap), nil
	default:
		return cancelsToAction(s.Cancels), nil
	}
}
