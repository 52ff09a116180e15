package exchange

import (
	"github.com/perpdesk/go-perpdesk/types"
)

// action is a signable exchange payload. Field order in the wire structs is
// part of the protocol: the signed hash covers the msgpack bytes, and the
// exchange rebuilds them with the keys in exactly this sequence. The msgpack
// tags mirror the json tags so the hashed bytes and the transmitted JSON
// always carry the same keys.
type action interface {
	getType() string
}

type limitWire struct {
	Tif Tif `json:"tif" msgpack:"tif"`
}

type triggerWire struct {
	IsMarket  bool   `json:"isMarket" msgpack:"isMarket"`
	TriggerPx string `json:"triggerPx" msgpack:"triggerPx"`
	TpSl      TpSl   `json:"tpsl" msgpack:"tpsl"`
}

type orderTypeWire struct {
	Limit   *limitWire   `json:"limit,omitempty" msgpack:"limit,omitempty"`
	Trigger *triggerWire `json:"trigger,omitempty" msgpack:"trigger,omitempty"`
}

type orderWire struct {
	A int64         `json:"a" msgpack:"a"`
	B bool          `json:"b" msgpack:"b"`
	P string        `json:"p" msgpack:"p"`
	S string        `json:"s" msgpack:"s"`
	R bool          `json:"r" msgpack:"r"`
	T orderTypeWire `json:"t" msgpack:"t"`
	C *types.Cloid  `json:"c,omitempty" msgpack:"c,omitempty"`
}

func (o OrderAction) toWire() orderWire {
	w := orderWire{
		A: o.Asset,
		B: o.IsBuy,
		P: o.PriceWire,
		S: o.SizeWire,
		R: o.ReduceOnly,
		C: o.Cloid.ToPointer(),
	}

	if o.Trigger != nil {
		w.T.Trigger = &triggerWire{
			IsMarket:  o.Trigger.IsMarket,
			TriggerPx: o.Trigger.PriceWire,
			TpSl:      o.Trigger.TpSl,
		}
	} else {
		w.T.Limit = &limitWire{Tif: o.Tif}
	}

	return w
}

type orderAction struct {
	Type     string      `json:"type" msgpack:"type"`
	Orders   []orderWire `json:"orders" msgpack:"orders"`
	Grouping Grouping    `json:"grouping" msgpack:"grouping"`
}

func (o orderAction) getType() string {
	return o.Type
}

func ordersToAction(orders []OrderAction, grouping Grouping) orderAction {
	if grouping == "" {
		grouping = GroupingNA
	}

	wires := make([]orderWire, len(orders))
	for i, o := range orders {
		wires[i] = o.toWire()
	}

	return orderAction{
		Type:     "order",
		Orders:   wires,
		Grouping: grouping,
	}
}

type updateLeverageAction struct {
	Type     string `json:"type" msgpack:"type"`
	Asset    int64  `json:"asset" msgpack:"asset"`
	IsCross  bool   `json:"isCross" msgpack:"isCross"`
	Leverage int64  `json:"leverage" msgpack:"leverage"`
}

func (u updateLeverageAction) getType() string {
	return u.Type
}

func leverageToAction(l LeverageAction) updateLeverageAction {
	return updateLeverageAction{
		Type:     "updateLeverage",
		Asset:    l.Asset,
		IsCross:  l.IsCross,
		Leverage: int64(l.Leverage),
	}
}

type twapWire struct {
	A int64  `json:"a" msgpack:"a"`
	B bool   `json:"b" msgpack:"b"`
	S string `json:"s" msgpack:"s"`
	R bool   `json:"r" msgpack:"r"`
	M int64  `json:"m" msgpack:"m"`
	T bool   `json:"t" msgpack:"t"`
}

type twapOrderAction struct {
	Type string   `json:"type" msgpack:"type"`
	Twap twapWire `json:"twap" msgpack:"twap"`
}

func (t twapOrderAction) getType() string {
	return t.Type
}

func twapToAction(t TwapAction) twapOrderAction {
	return twapOrderAction{
		Type: "twapOrder",
		Twap: twapWire{
			A: t.Asset,
			B: t.IsBuy,
			S: t.SizeWire,
			R: t.ReduceOnly,
			M: int64(t.Minutes),
			T: t.Randomize,
		},
	}
}

type cancelWire struct {
	A int64 `json:"a" msgpack:"a"`
	O int64 `json:"o" msgpack:"o"`
}

type cancelAction struct {
	Type    string       `json:"type" msgpack:"type"`
	Cancels []cancelWire `json:"cancels" msgpack:"cancels"`
}

func (c cancelAction) getType() string {
	return c.Type
}

func cancelsToAction(cancels []CancelAction) cancelAction {
	wires := make([]cancelWire, len(cancels))
	for i, c := range cancels {
		wires[i] = cancelWire{A: c.Asset, O: c.Oid}
	}

	return cancelAction{
		Type:    "cancel",
		Cancels: wires,
	}
}
