// Package perpdesk assembles the trading terminal's order core: the asset
// registry, the mark price feed, the signing session and the submission
// pipeline, wired together behind one client.
//
// The zero-configuration path is:
//
//	client, err := perpdesk.New(agentKey)
//	...
//	client.Start(ctx)
//	plan, err := client.BuildPlan(intent, priorLeverage)
//	outcome, err := client.Submit(ctx, plan)
package perpdesk

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/mo"
	"go.uber.org/zap"

	"github.com/perpdesk/go-perpdesk/config"
	"github.com/perpdesk/go-perpdesk/exchange"
	"github.com/perpdesk/go-perpdesk/metrics"
	"github.com/perpdesk/go-perpdesk/quantize"
	"github.com/perpdesk/go-perpdesk/registry"
	"github.com/perpdesk/go-perpdesk/rest"
	"github.com/perpdesk/go-perpdesk/risk"
	"github.com/perpdesk/go-perpdesk/session"
	"github.com/perpdesk/go-perpdesk/ws"
)

// Client is the assembled order core.
type Client struct {
	Registry *registry.Registry
	Session  *session.Session
	Exchange *exchange.Exchange
	Feed     *ws.Feed

	cfg config.Config
	log *zap.Logger
}

type options struct {
	cfg        config.Config
	log        *zap.Logger
	restClient rest.ClientInterface
	metrics    *metrics.Metrics
	vault      mo.Option[common.Address]
}

// Option customizes the client.
type Option func(*options)

// WithConfig replaces the shipped defaults wholesale.
func WithConfig(cfg config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger installs a logger. Without it one is built from the config's
// logging section.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithRestClient replaces the gateway transport, mainly for tests.
func WithRestClient(c rest.ClientInterface) Option {
	return func(o *options) { o.restClient = c }
}

// WithMetrics installs a metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithVaultAddress trades on behalf of a vault.
func WithVaultAddress(addr common.Address) Option {
	return func(o *options) { o.vault = mo.Some(addr) }
}

// New assembles a client around an agent key. The key activates a signing
// session immediately; nothing touches the network until Start.
func New(agentKey *ecdsa.PrivateKey, opts ...Option) (*Client, error) {
	o := options{cfg: config.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if o.log == nil {
		log, err := NewLogger(o.cfg.Logging)
		if err != nil {
			return nil, err
		}
		o.log = log
	}

	if o.restClient == nil {
		o.restClient = rest.New(rest.Config{
			BaseURL: o.cfg.Exchange.BaseURL,
			Timeout: o.cfg.Exchange.Timeout,
		})
	}

	sess, err := session.New(agentKey)
	if err != nil {
		return nil, err
	}

	reg := registry.New(o.restClient, o.log)

	ex, err := exchange.New(exchange.Config{
		Rest:         o.restClient,
		Registry:     reg,
		Session:      sess,
		Mainnet:      o.cfg.Exchange.Mainnet,
		VaultAddress: o.vault,
		SettleDelay:  o.cfg.Exchange.SettleDelay,
		Bands:        o.cfg.Slippage,
		Log:          o.log,
		Metrics:      o.metrics,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		Registry: reg,
		Session:  sess,
		Exchange: ex,
		Feed:     ws.New(o.cfg.Exchange.BaseURL, reg, o.log),
		cfg:      o.cfg,
		log:      o.log,
	}, nil
}

// Start loads the asset universe and launches the background refresh and
// the mark price feed. It returns once the universe is loaded; the
// goroutines run until ctx is cancelled.
func (c *Client) Start(ctx context.Context) error {
	if err := c.Registry.Refresh(ctx); err != nil {
		return fmt.Errorf("load asset universe: %w", err)
	}

	go c.Registry.Run(ctx, c.cfg.Exchange.RegistryRefresh)
	go func() {
		if err := c.Feed.Run(ctx); err != nil && ctx.Err() == nil {
			c.log.Error("mark price feed stopped", zap.Error(err))
		}
	}()

	return nil
}

// BuildPlan validates and quantizes an intent into a submission plan.
func (c *Client) BuildPlan(intent exchange.Intent, priorLeverage int) (exchange.Plan, error) {
	return c.Exchange.BuildPlan(intent, priorLeverage)
}

// Submit executes a plan against the gateway.
func (c *Client) Submit(ctx context.Context, plan exchange.Plan) (exchange.Outcome, error) {
	return c.Exchange.Submit(ctx, plan)
}

// CancelOrders cancels resting orders by exchange order id.
func (c *Client) CancelOrders(ctx context.Context, symbol string, oids []int64) (exchange.Outcome, error) {
	return c.Exchange.CancelOrders(ctx, symbol, oids)
}

// Preview computes the pre-trade risk figures for an intent without
// touching the network: order value, margin, estimated liquidation price
// and the allocation warning against the given wallet balance.
func (c *Client) Preview(intent exchange.Intent, walletBalance float64) (risk.Snapshot, error) {
	asset, ok := c.Registry.Snapshot(intent.Symbol)
	if !ok {
		return risk.Snapshot{}, fmt.Errorf("%w: %s", exchange.ErrUnknownAsset, intent.Symbol)
	}

	size, err := quantize.Size(intent.Size, asset.SzDecimals)
	if err != nil {
		return risk.Snapshot{}, err
	}

	// entry estimate: the limit price when given, the mark otherwise
	entry := asset.MarkPrice
	if raw, ok := intent.LimitPrice.Get(); ok {
		px, err := quantize.Price(raw, asset.SzDecimals)
		if err != nil {
			return risk.Snapshot{}, err
		}
		entry = px
	}

	return risk.Compute(
		size,
		entry,
		intent.Leverage,
		intent.Side == exchange.SideLong,
		walletBalance,
		c.cfg.Risk,
	), nil
}
