package exchange

import (
	"github.com/perpdesk/go-perpdesk/config"
	"github.com/perpdesk/go-perpdesk/internal/wire"
	"github.com/perpdesk/go-perpdesk/quantize"
	"github.com/perpdesk/go-perpdesk/registry"
)

// BuildPlan turns a raw intent into the ordered steps to submit. It is a
// pure function of its inputs: quantization, validation and price synthesis
// all happen here, so everything after it works with frozen wire values.
//
// Plans come out in this shape:
//
//  1. a best-effort leverage update, when the requested leverage differs
//     from the account's current setting for the asset;
//  2. the entry order, with its take-profit / stop-loss guard legs (if any)
//     bundled into the same step so the exchange accepts or rejects the
//     group atomically.
func BuildPlan(
	intent Intent,
	asset registry.Context,
	priorLeverage int,
	bands config.SlippageConfig,
) (Plan, error) {
	if intent.Side != SideLong && intent.Side != SideShort {
		return Plan{}, buildErr("side", "must be long or short")
	}
	if intent.Leverage < 1 {
		return Plan{}, buildErr("leverage", "must be at least 1")
	}
	if asset.MaxLeverage > 0 && intent.Leverage > asset.MaxLeverage {
		return Plan{}, &BuildError{
			Field:  "leverage",
			Reason: "exceeds the asset's maximum",
		}
	}

	size, err := quantize.Size(intent.Size, asset.SzDecimals)
	if err != nil {
		return Plan{}, buildWrap("size", "not a usable order size", err)
	}
	sizeWire, err := wire.FloatToWire(size)
	if err != nil {
		return Plan{}, buildWrap("size", "not representable on the wire", err)
	}

	plan := Plan{Symbol: intent.Symbol}

	if intent.Leverage != priorLeverage {
		plan.Steps = append(plan.Steps, Step{
			Policy: PolicyBestEffort,
			Leverage: &LeverageAction{
				Asset:    asset.AssetIndex,
				IsCross:  intent.MarginMode != MarginIsolated,
				Leverage: intent.Leverage,
			},
		})
	}

	if intent.Kind == KindTwap {
		if !intent.Guards.Empty() {
			return Plan{}, buildErr("guards", "cannot attach guards to a twap order")
		}
		if intent.TwapMinutes <= 0 {
			return Plan{}, buildErr("twapMinutes", "must be positive")
		}

		plan.Steps = append(plan.Steps, Step{
			Policy: PolicyMustSucceed,
			Twap: &TwapAction{
				Asset:      asset.AssetIndex,
				IsBuy:      intent.IsBuy(),
				SizeWire:   sizeWire,
				ReduceOnly: intent.ReduceOnly,
				Minutes:    intent.TwapMinutes,
				Randomize:  intent.TwapRandomize,
			},
		})
		return plan, nil
	}
	if intent.TwapMinutes != 0 {
		return Plan{}, buildErr("twapMinutes", "only valid on twap orders")
	}

	primary, err := buildPrimary(intent, asset, sizeWire, bands)
	if err != nil {
		return Plan{}, err
	}

	entry := Step{
		Policy:   PolicyMustSucceed,
		Orders:   []OrderAction{primary},
		Grouping: GroupingNA,
	}

	if !intent.Guards.Empty() {
		switch intent.Kind {
		case KindMarket, KindLimit, KindIceberg:
		default:
			return Plan{}, buildErr("guards", "only valid on market, limit and iceberg orders")
		}

		guards, err := buildGuardLegs(intent, asset, sizeWire, bands)
		if err != nil {
			return Plan{}, err
		}
		entry.Orders = append(entry.Orders, guards...)
		entry.Grouping = GroupingNormalTpSl
	}

	plan.Steps = append(plan.Steps, entry)
	return plan, nil
}

// buildPrimary resolves the entry order for every non-twap kind.
func buildPrimary(
	intent Intent,
	asset registry.Context,
	sizeWire string,
	bands config.SlippageConfig,
) (OrderAction, error) {
	order := OrderAction{
		Asset:      asset.AssetIndex,
		IsBuy:      intent.IsBuy(),
		SizeWire:   sizeWire,
		ReduceOnly: intent.ReduceOnly,
		Cloid:      intent.Cloid,
	}

	limitPx := func() (float64, error) {
		raw, ok := intent.LimitPrice.Get()
		if !ok {
			return 0, buildErr("limitPrice", "required for this order kind")
		}
		px, err := quantize.Price(raw, asset.SzDecimals)
		if err != nil {
			return 0, buildWrap("limitPrice", "not a usable price", err)
		}
		return px, nil
	}

	triggerPx := func() (float64, error) {
		raw, ok := intent.TriggerPrice.Get()
		if !ok {
			return 0, buildErr("triggerPrice", "required for this order kind")
		}
		px, err := quantize.Price(raw, asset.SzDecimals)
		if err != nil {
			return 0, buildWrap("triggerPrice", "not a usable price", err)
		}
		return px, nil
	}

	switch intent.Kind {
	case KindMarket:
		// A market order is an aggressive immediate-or-cancel limit: the
		// synthetic price caps the fill, the tif discards the remainder.
		if asset.MarkPrice <= 0 {
			return OrderAction{}, buildErr("markPrice", "no mark price for the asset yet")
		}
		px := quantize.SlippagePrice(
			asset.MarkPrice,
			order.IsBuy,
			bands.MarketBand,
			asset.SzDecimals,
		)
		pxWire, err := wire.FloatToWire(px)
		if err != nil {
			return OrderAction{}, buildWrap("markPrice", "not representable on the wire", err)
		}
		order.PriceWire = pxWire
		order.Tif = TifIoc

	case KindLimit, KindIceberg:
		px, err := limitPx()
		if err != nil {
			return OrderAction{}, err
		}
		pxWire, err := wire.FloatToWire(px)
		if err != nil {
			return OrderAction{}, buildWrap("limitPrice", "not representable on the wire", err)
		}
		order.PriceWire = pxWire
		order.Tif = TifGtc

		if intent.Kind == KindIceberg {
			if err := checkVisibleSize(intent, asset); err != nil {
				return OrderAction{}, err
			}
		} else if intent.VisibleSize.IsPresent() {
			return OrderAction{}, buildErr("visibleSize", "only valid on iceberg orders")
		}

	case KindStopMarket, KindStopLimit, KindTakeMarket, KindTakeLimit:
		trigger, err := triggerPx()
		if err != nil {
			return OrderAction{}, err
		}
		triggerPxWire, err := wire.FloatToWire(trigger)
		if err != nil {
			return OrderAction{}, buildWrap("triggerPrice", "not representable on the wire", err)
		}

		tpsl := TpSlStopLoss
		if intent.Kind == KindTakeMarket || intent.Kind == KindTakeLimit {
			tpsl = TpSlTakeProfit
		}
		isMarket := intent.Kind == KindStopMarket || intent.Kind == KindTakeMarket

		var px float64
		if isMarket {
			// The triggered fill still needs a limit cap; skew it past the
			// trigger in the aggressive direction so it is marketable the
			// moment it fires.
			px = quantize.SlippagePrice(
				trigger,
				order.IsBuy,
				bands.GuardBand,
				asset.SzDecimals,
			)
		} else {
			px, err = limitPx()
			if err != nil {
				return OrderAction{}, err
			}
		}
		pxWire, err := wire.FloatToWire(px)
		if err != nil {
			return OrderAction{}, buildWrap("limitPrice", "not representable on the wire", err)
		}

		order.PriceWire = pxWire
		order.Trigger = &Trigger{
			IsMarket:  isMarket,
			PriceWire: triggerPxWire,
			TpSl:      tpsl,
		}

	default:
		return OrderAction{}, buildErr("kind", "unknown order kind")
	}

	return order, nil
}

// buildGuardLegs derives the take-profit and stop-loss exits attached to an
// entry. Guard legs face the opposite book side, are reduce-only so they can
// never grow the position, and carry a limit price skewed past the trigger
// so they fill once fired.
func buildGuardLegs(
	intent Intent,
	asset registry.Context,
	sizeWire string,
	bands config.SlippageConfig,
) ([]OrderAction, error) {
	legIsBuy := !intent.IsBuy()

	makeLeg := func(field string, rawPx float64, tpsl TpSl) (OrderAction, error) {
		if rawPx <= 0 {
			return OrderAction{}, buildErr(field, "must be positive")
		}

		trigger := quantize.PriceValue(rawPx, asset.SzDecimals)
		triggerPxWire, err := wire.FloatToWire(trigger)
		if err != nil {
			return OrderAction{}, buildWrap(field, "not representable on the wire", err)
		}

		px := quantize.SlippagePrice(trigger, legIsBuy, bands.GuardBand, asset.SzDecimals)
		pxWire, err := wire.FloatToWire(px)
		if err != nil {
			return OrderAction{}, buildWrap(field, "not representable on the wire", err)
		}

		return OrderAction{
			Asset:      asset.AssetIndex,
			IsBuy:      legIsBuy,
			PriceWire:  pxWire,
			SizeWire:   sizeWire,
			ReduceOnly: true,
			Trigger: &Trigger{
				IsMarket:  true,
				PriceWire: triggerPxWire,
				TpSl:      tpsl,
			},
		}, nil
	}

	var legs []OrderAction
	if tp, ok := intent.Guards.TakeProfit.Get(); ok {
		leg, err := makeLeg("takeProfit", tp, TpSlTakeProfit)
		if err != nil {
			return nil, err
		}
		legs = append(legs, leg)
	}
	if sl, ok := intent.Guards.StopLoss.Get(); ok {
		leg, err := makeLeg("stopLoss", sl, TpSlStopLoss)
		if err != nil {
			return nil, err
		}
		legs = append(legs, leg)
	}

	return legs, nil
}

func checkVisibleSize(intent Intent, asset registry.Context) error {
	raw, ok := intent.VisibleSize.Get()
	if !ok {
		return buildErr("visibleSize", "required for iceberg orders")
	}

	visible, err := quantize.Size(raw, asset.SzDecimals)
	if err != nil {
		return buildWrap("visibleSize", "not a usable size", err)
	}
	total, err := quantize.Size(intent.Size, asset.SzDecimals)
	if err != nil {
		return buildWrap("size", "not a usable size", err)
	}
	if visible > total {
		return buildErr("visibleSize", "cannot exceed the total size")
	}
	return nil
}
