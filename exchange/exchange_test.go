package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/maxatome/go-testdeep/td"
	"github.com/samber/mo"

	"github.com/perpdesk/go-perpdesk/registry"
	"github.com/perpdesk/go-perpdesk/session"
)

const testMetaBody = `{
	"universe": [
		{"name": "BTC", "szDecimals": 5, "maxLeverage": 50},
		{"name": "ETH", "szDecimals": 4, "maxLeverage": 50}
	]
}`

// fakeGateway serves the token list on /info and scripted bodies on
// /exchange, recording every submitted payload.
type fakeGateway struct {
	submitted [][]byte
	responses []string
	errs      []error
}

func (f *fakeGateway) Post(
	_ context.Context,
	path string,
	body any,
	result any,
) error {
	if path == "/info" {
		return json.Unmarshal([]byte(testMetaBody), result)
	}

	idx := len(f.submitted)
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	f.submitted = append(f.submitted, data)

	if idx < len(f.errs) && f.errs[idx] != nil {
		return f.errs[idx]
	}

	resp := `{"status":"ok","response":{"type":"default"}}`
	if idx < len(f.responses) && f.responses[idx] != "" {
		resp = f.responses[idx]
	}

	raw, ok := result.(*json.RawMessage)
	if !ok {
		return errors.New("expected a raw result sink")
	}
	*raw = json.RawMessage(resp)
	return nil
}

// sentPayload is the slice of the submitted JSON the tests care about.
type sentPayload struct {
	Action struct {
		Type     string            `json:"type"`
		Orders   []json.RawMessage `json:"orders"`
		Grouping string            `json:"grouping"`
	} `json:"action"`
	Nonce     uint64          `json:"nonce"`
	Signature json.RawMessage `json:"signature"`
}

func decodePayload(t *testing.T, data []byte) sentPayload {
	t.Helper()

	var p sentPayload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("submitted payload does not parse: %v", err)
	}
	return p
}

func newTestExchange(t *testing.T, gateway *fakeGateway) (*Exchange, *session.Session) {
	t.Helper()

	reg := registry.New(gateway, nil)
	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	reg.SetMark("BTC", 65000)

	sess, err := session.New(testAgentKey(t))
	if err != nil {
		t.Fatal(err)
	}

	e, err := New(Config{
		Rest:        gateway,
		Registry:    reg,
		Session:     sess,
		Mainnet:     true,
		SettleDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	return e, sess
}

func marketWithGuards() Intent {
	return Intent{
		Symbol:   "BTC",
		Side:     SideLong,
		Kind:     KindMarket,
		Size:     "0.5",
		Leverage: 10,
		Guards: Guards{
			TakeProfit: mo.Some(70000.0),
			StopLoss:   mo.Some(60000.0),
		},
	}
}

func TestSubmit_ExpiredSessionSendsNothing(t *testing.T) {
	gateway := &fakeGateway{}
	e, sess := newTestExchange(t, gateway)

	plan, err := e.BuildPlan(marketWithGuards(), 10)
	if err != nil {
		t.Fatal(err)
	}

	sess.Deactivate()

	_, err = e.Submit(context.Background(), plan)
	if !errors.Is(err, session.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	td.Cmp(t, len(gateway.submitted), 0, "nothing may reach the wire")
}

func TestSubmit_GuardBundleTravelsAsOnePayload(t *testing.T) {
	gateway := &fakeGateway{
		responses: []string{
			`{"status":"ok","response":{"type":"order","data":{"statuses":[
				{"resting":{"oid":1}},{"resting":{"oid":2}},{"resting":{"oid":3}}
			]}}}`,
		},
	}
	e, _ := newTestExchange(t, gateway)

	plan, err := e.BuildPlan(marketWithGuards(), 10)
	if err != nil {
		t.Fatal(err)
	}

	outcome, err := e.Submit(context.Background(), plan)
	if err != nil {
		t.Fatal(err)
	}

	td.Cmp(t, outcome.Status, OutcomeSuccess)
	td.Cmp(t, len(gateway.submitted), 1, "entry and guards share one signed payload")

	p := decodePayload(t, gateway.submitted[0])
	td.Cmp(t, p.Action.Type, "order")
	td.Cmp(t, p.Action.Grouping, "normalTpsl")
	td.Cmp(t, len(p.Action.Orders), 3)
	if len(p.Signature) == 0 {
		t.Fatal("payload is missing its signature")
	}

	// the wire rendering of the entry keeps the protocol's one-letter keys
	var entry struct {
		A int64  `json:"a"`
		B bool   `json:"b"`
		P string `json:"p"`
		S string `json:"s"`
		R bool   `json:"r"`
		T struct {
			Limit *struct {
				Tif string `json:"tif"`
			} `json:"limit"`
		} `json:"t"`
	}
	if err := json.Unmarshal(p.Action.Orders[0], &entry); err != nil {
		t.Fatal(err)
	}
	td.Cmp(t, entry.A, int64(0))
	td.Cmp(t, entry.B, true)
	td.Cmp(t, entry.P, "71500")
	td.Cmp(t, entry.S, "0.5")
	td.Cmp(t, entry.T.Limit.Tif, "Ioc")
}

func TestSubmit_BestEffortLeverageFailureContinues(t *testing.T) {
	gateway := &fakeGateway{
		responses: []string{
			`{"status":"err","response":"Cannot switch leverage with open orders"}`,
			`{"status":"ok","response":{"type":"order","data":{"statuses":[{"resting":{"oid":9}}]}}}`,
		},
	}
	e, _ := newTestExchange(t, gateway)

	// prior leverage differs, so the plan opens with a leverage sync
	plan, err := e.BuildPlan(marketWithGuards(), 5)
	if err != nil {
		t.Fatal(err)
	}
	td.Cmp(t, len(plan.Steps), 2)

	outcome, err := e.Submit(context.Background(), plan)
	if err != nil {
		t.Fatal(err)
	}

	td.Cmp(t, outcome.Status, OutcomeSuccess, "a failed leverage sync never blocks the entry")
	td.Cmp(t, len(gateway.submitted), 2)

	first := decodePayload(t, gateway.submitted[0])
	second := decodePayload(t, gateway.submitted[1])
	td.Cmp(t, first.Action.Type, "updateLeverage")
	td.Cmp(t, second.Action.Type, "order")

	if second.Nonce <= first.Nonce {
		t.Fatalf("nonces must be strictly increasing: %d then %d", first.Nonce, second.Nonce)
	}
}

func TestSubmit_RejectionStopsPlan(t *testing.T) {
	gateway := &fakeGateway{
		responses: []string{
			`{"status":"ok","response":{"type":"order","data":{"statuses":[
				{"error":"Order must have minimum value of $10."}
			]}}}`,
		},
	}
	e, sess := newTestExchange(t, gateway)

	plan, err := e.BuildPlan(marketWithGuards(), 10)
	if err != nil {
		t.Fatal(err)
	}

	outcome, err := e.Submit(context.Background(), plan)
	if err != nil {
		t.Fatal(err)
	}

	td.Cmp(t, outcome.Status, OutcomeRejected)
	td.Cmp(t, outcome.PerActionError, map[int]string{
		0: "Order must have minimum value of $10.",
	})
	td.Cmp(t, sess.Active(), true, "an order rejection is not a key problem")
}

func TestSubmit_StaleAgentDeactivatesSession(t *testing.T) {
	gateway := &fakeGateway{
		responses: []string{
			`{"status":"err","response":"User or API Wallet 0xabc does not exist."}`,
		},
	}
	e, sess := newTestExchange(t, gateway)

	plan, err := e.BuildPlan(marketWithGuards(), 10)
	if err != nil {
		t.Fatal(err)
	}

	outcome, err := e.Submit(context.Background(), plan)
	if err != nil {
		t.Fatal(err)
	}

	td.Cmp(t, outcome.Status, OutcomeRejected)
	td.Cmp(t, sess.Active(), false, "a rejected agent key ends the session")
}

func TestSubmit_TransportErrorIsNotARejection(t *testing.T) {
	gateway := &fakeGateway{
		errs: []error{errors.New("dial tcp: connection refused")},
	}
	e, sess := newTestExchange(t, gateway)

	plan, err := e.BuildPlan(marketWithGuards(), 10)
	if err != nil {
		t.Fatal(err)
	}

	outcome, err := e.Submit(context.Background(), plan)
	if err != nil {
		t.Fatal(err)
	}

	td.Cmp(t, outcome.Status, OutcomeTransportError)
	td.Cmp(t, outcome.Reason, "dial tcp: connection refused")
	td.Cmp(t, sess.Active(), true, "an unknown outcome never kills the session")
}

func TestCancelOrders(t *testing.T) {
	gateway := &fakeGateway{
		responses: []string{
			`{"status":"ok","response":{"type":"cancel","data":{"statuses":["success"]}}}`,
		},
	}
	e, _ := newTestExchange(t, gateway)

	outcome, err := e.CancelOrders(context.Background(), "BTC", []int64{12345})
	if err != nil {
		t.Fatal(err)
	}

	td.Cmp(t, outcome.Status, OutcomeSuccess)

	var p struct {
		Action struct {
			Type    string `json:"type"`
			Cancels []struct {
				A int64 `json:"a"`
				O int64 `json:"o"`
			} `json:"cancels"`
		} `json:"action"`
	}
	if err := json.Unmarshal(gateway.submitted[0], &p); err != nil {
		t.Fatal(err)
	}
	td.Cmp(t, p.Action.Type, "cancel")
	td.Cmp(t, p.Action.Cancels[0].A, int64(0))
	td.Cmp(t, p.Action.Cancels[0].O, int64(12345))
}

func TestBuildPlan_UnknownSymbol(t *testing.T) {
	e, _ := newTestExchange(t, &fakeGateway{})

	_, err := e.BuildPlan(Intent{
		Symbol:   "DOGE",
		Side:     SideLong,
		Kind:     KindMarket,
		Size:     "1",
		Leverage: 5,
	}, 5)
	if !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset, got %v", err)
	}
}
