// Package registry owns the per-symbol static and session data the order
// pipeline depends on: exchange-assigned asset indices, size decimals,
// leverage caps and the last observed mark price. The rest of the core only
// ever reads immutable snapshots out of it and fails explicitly when a
// symbol is missing; a wrong or guessed asset index trades the wrong
// instrument.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/perpdesk/go-perpdesk/rest"
	"github.com/perpdesk/go-perpdesk/types"
)

// Context is an immutable per-symbol snapshot handed to the order builder.
type Context struct {
	Symbol      string
	AssetIndex  int64
	SzDecimals  int
	MaxLeverage int
	MarkPrice   float64
}

// Registry maps symbols to their trading context. Populated by Refresh
// (token-list fetch) and kept current by the mark-price feed.
type Registry struct {
	rest rest.ClientInterface
	log  *zap.Logger

	mu       sync.RWMutex
	bySymbol map[string]Context
}

// New creates an empty registry. A nil logger is replaced with a no-op one.
func New(restClient rest.ClientInterface, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		rest:     restClient,
		log:      log,
		bySymbol: make(map[string]Context),
	}
}

// metaResponse is the wire shape of the perp token list.
type metaResponse struct {
	Universe []struct {
		Name        string `json:"name"`
		SzDecimals  int    `json:"szDecimals"`
		MaxLeverage int    `json:"maxLeverage"`
		IsDelisted  bool   `json:"isDelisted,omitempty"`
	} `json:"universe"`
}

// Refresh fetches the perp universe and rebuilds the symbol table. The asset
// index is the entry's position in the universe list. Mark prices already
// observed for surviving symbols are preserved.
func (r *Registry) Refresh(ctx context.Context) error {
	var meta metaResponse
	err := r.rest.Post(ctx, "/info", map[string]any{"type": "meta"}, &meta)
	if err != nil {
		return fmt.Errorf("fetch meta: %w", err)
	}

	next := make(map[string]Context, len(meta.Universe))

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, entry := range meta.Universe {
		if entry.IsDelisted {
			continue
		}
		c := Context{
			Symbol:      entry.Name,
			AssetIndex:  int64(i),
			SzDecimals:  entry.SzDecimals,
			MaxLeverage: entry.MaxLeverage,
		}
		if prev, ok := r.bySymbol[entry.Name]; ok {
			c.MarkPrice = prev.MarkPrice
		}
		next[entry.Name] = c
	}

	r.bySymbol = next
	r.log.Debug("asset registry refreshed", zap.Int("symbols", len(next)))
	return nil
}

// Run refreshes the registry on a fixed interval until ctx is cancelled.
// Refresh failures are logged and retried on the next tick; the previous
// snapshot stays valid in the meantime.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.log.Warn("asset registry refresh failed", zap.Error(err))
			}
		}
	}
}

// Snapshot returns the context for a symbol. The second return is false when
// the symbol is unknown; callers must treat that as a hard miss, never as a
// default.
func (r *Registry) Snapshot(symbol string) (Context, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.bySymbol[symbol]
	return c, ok
}

// SetMark records the latest mark price for a symbol. Unknown symbols are
// ignored: a price without a universe entry is not tradeable anyway.
func (r *Registry) SetMark(symbol string, px float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.bySymbol[symbol]
	if !ok {
		return
	}
	c.MarkPrice = px
	r.bySymbol[symbol] = c
}

// UpdateMids applies a mid-price map as published on the allMids stream.
func (r *Registry) UpdateMids(mids map[string]types.FloatString) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for symbol, px := range mids {
		c, ok := r.bySymbol[symbol]
		if !ok {
			continue
		}
		c.MarkPrice = px.Raw()
		r.bySymbol[symbol] = c
	}
}
