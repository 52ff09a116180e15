// Package exchange builds, signs and submits trading actions. An Intent is
// quantized and expanded into a Plan by the builder; the Exchange walks the
// plan step by step, signing each payload with the session's agent key under
// a fresh nonce and classifying the gateway's verdict.
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/mo"
	"go.uber.org/zap"

	"github.com/perpdesk/go-perpdesk/config"
	"github.com/perpdesk/go-perpdesk/metrics"
	"github.com/perpdesk/go-perpdesk/registry"
	"github.com/perpdesk/go-perpdesk/rest"
	"github.com/perpdesk/go-perpdesk/session"
)

const exchangePath = "/exchange"

// Config assembles an Exchange.
type Config struct {
	// Rest is the gateway transport. Required.
	Rest rest.ClientInterface
	// Registry resolves symbols to asset contexts. Required.
	Registry *registry.Registry
	// Session holds the agent key and the nonce stream. Required.
	Session *session.Session

	// Mainnet selects the signature domain source byte.
	Mainnet bool
	// VaultAddress, when set, signs and submits on behalf of a vault.
	VaultAddress mo.Option[common.Address]

	// SettleDelay is the pause between dependent steps. Zero means the
	// shipped default.
	SettleDelay time.Duration
	// Bands are the slippage fractions the builder uses. Zero means the
	// shipped defaults.
	Bands config.SlippageConfig

	Log     *zap.Logger
	Metrics *metrics.Metrics
}

// Exchange is the submission pipeline. Safe for concurrent use; plans
// sharing a session are serialized so their nonce streams never interleave.
type Exchange struct {
	rest     rest.ClientInterface
	registry *registry.Registry
	session  *session.Session

	mainnet      bool
	vaultAddress mo.Option[common.Address]
	settleDelay  time.Duration
	bands        config.SlippageConfig

	log     *zap.Logger
	metrics *metrics.Metrics
}

// New creates an Exchange.
func New(cfg Config) (*Exchange, error) {
	if cfg.Rest == nil {
		return nil, errors.New("rest client is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("asset registry is required")
	}
	if cfg.Session == nil {
		return nil, errors.New("session is required")
	}

	defaults := config.Default()
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = defaults.Exchange.SettleDelay
	}
	if cfg.Bands.MarketBand <= 0 {
		cfg.Bands.MarketBand = defaults.Slippage.MarketBand
	}
	if cfg.Bands.GuardBand <= 0 {
		cfg.Bands.GuardBand = defaults.Slippage.GuardBand
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	return &Exchange{
		rest:         cfg.Rest,
		registry:     cfg.Registry,
		session:      cfg.Session,
		mainnet:      cfg.Mainnet,
		vaultAddress: cfg.VaultAddress,
		settleDelay:  cfg.SettleDelay,
		bands:        cfg.Bands,
		log:          cfg.Log,
		metrics:      cfg.Metrics,
	}, nil
}

// BuildPlan resolves the intent's symbol through the registry and builds
// the submission plan. priorLeverage is the account's current leverage for
// the asset; the plan includes a leverage update only when it differs.
func (e *Exchange) BuildPlan(intent Intent, priorLeverage int) (Plan, error) {
	asset, ok := e.registry.Snapshot(intent.Symbol)
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrUnknownAsset, intent.Symbol)
	}

	return BuildPlan(intent, asset, priorLeverage, e.bands)
}

// Submit executes the plan's steps in order. Each step is signed under a
// fresh nonce and posted as its own payload; a must-succeed step that does
// not come back successful stops the plan, a best-effort step that fails is
// logged and skipped.
//
// The returned error covers local failures only (expired session, signing,
// cancelled context) — in those cases nothing further was transmitted. Every
// exchange-side verdict, including rejections and unknown outcomes, arrives
// through the Outcome.
func (e *Exchange) Submit(ctx context.Context, plan Plan) (Outcome, error) {
	if len(plan.Steps) == 0 {
		return Outcome{}, errors.New("plan has no steps")
	}

	e.session.Acquire()
	defer e.session.Release()

	var last Outcome
	for i, step := range plan.Steps {
		if i > 0 {
			if err := e.settle(ctx); err != nil {
				return Outcome{}, err
			}
		}

		started := time.Now()
		outcome, err := e.submitStep(ctx, plan.Symbol, i, step)
		e.metrics.StepLatency.Observe(time.Since(started).Seconds())
		if err != nil {
			return Outcome{}, err
		}

		if outcome.Status != OutcomeSuccess {
			if step.Policy == PolicyBestEffort {
				e.metrics.BestEffortSkipped.Inc()
				e.log.Warn("best-effort step failed, continuing",
					zap.String("symbol", plan.Symbol),
					zap.Int("step", i),
					zap.String("status", string(outcome.Status)),
					zap.String("reason", outcome.Reason),
				)
				last = outcome
				continue
			}

			switch outcome.Status {
			case OutcomeRejected:
				e.metrics.SubmissionsRejected.Inc()
			case OutcomeTransportError:
				e.metrics.TransportFailures.Inc()
			}
			return outcome, nil
		}

		last = outcome
	}

	e.metrics.SubmissionsSucceeded.Inc()
	return last, nil
}

// CancelOrders cancels resting orders by exchange order id, as a
// single-step plan.
func (e *Exchange) CancelOrders(
	ctx context.Context,
	symbol string,
	oids []int64,
) (Outcome, error) {
	asset, ok := e.registry.Snapshot(symbol)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownAsset, symbol)
	}

	cancels := make([]CancelAction, len(oids))
	for i, oid := range oids {
		cancels[i] = CancelAction{Asset: asset.AssetIndex, Oid: oid}
	}

	return e.Submit(ctx, Plan{
		Symbol: symbol,
		Steps: []Step{{
			Policy:  PolicyMustSucceed,
			Cancels: cancels,
		}},
	})
}

// signedPayload is the wire envelope around one signed action.
type signedPayload struct {
	Action       action    `json:"action"`
	Nonce        uint64    `json:"nonce"`
	Signature    Signature `json:"signature"`
	VaultAddress *string   `json:"vaultAddress"`
}

func (e *Exchange) submitStep(
	ctx context.Context,
	symbol string,
	index int,
	step Step,
) (Outcome, error) {
	act, err := step.wire()
	if err != nil {
		return Outcome{}, err
	}

	// Fail closed before anything leaves the process: an expired session
	// must produce zero network traffic.
	key, err := e.session.Key()
	if err != nil {
		return Outcome{}, err
	}

	nonce := e.session.NextNonce()
	sig, err := signL1Action(
		act,
		nonce,
		key,
		e.vaultAddress,
		mo.None[time.Duration](),
		e.mainnet,
	)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to sign action: %w", err)
	}

	var vault *string
	if v, ok := e.vaultAddress.Get(); ok {
		addr := strings.ToLower(v.Hex())
		vault = &addr
	}

	payload := signedPayload{
		Action:       act,
		Nonce:        nonce,
		Signature:    sig,
		VaultAddress: vault,
	}

	e.log.Debug("submitting step",
		zap.String("symbol", symbol),
		zap.Int("step", index),
		zap.String("action", act.getType()),
		zap.String("policy", step.Policy.String()),
		zap.Uint64("nonce", nonce),
	)

	var body json.RawMessage
	if err := e.rest.Post(ctx, exchangePath, payload, &body); err != nil {
		e.log.Warn("gateway call failed, outcome unknown",
			zap.String("symbol", symbol),
			zap.Int("step", index),
			zap.Error(err),
		)
		return Outcome{
			Status: OutcomeTransportError,
			Reason: err.Error(),
		}, nil
	}

	outcome := Classify(body)

	if outcome.Status == OutcomeRejected && e.staleSession(outcome) {
		e.log.Warn("agent key rejected by the gateway, deactivating session",
			zap.String("agent", e.session.Address().Hex()),
		)
		e.session.Deactivate()
	}

	return outcome, nil
}

// staleSession reports whether the rejection points at the agent key rather
// than the orders.
func (e *Exchange) staleSession(outcome Outcome) bool {
	if staleSessionReason(outcome.Reason) {
		return true
	}
	for _, msg := range outcome.PerActionError {
		if staleSessionReason(msg) {
			return true
		}
	}
	return false
}

// settle waits out the configured delay between dependent steps.
func (e *Exchange) settle(ctx context.Context) error {
	if e.settleDelay <= 0 {
		return nil
	}

	timer := time.NewTimer(e.settleDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
