// Package ws streams mark prices into the asset registry. The order
// pipeline never blocks on this feed: it reads whatever price the registry
// holds, and the feed's only job is to keep that price fresh.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/perpdesk/go-perpdesk/registry"
	"github.com/perpdesk/go-perpdesk/types"
)

const (
	// readySentinel is the first frame the gateway sends; subscriptions
	// sent before it are dropped server-side.
	readySentinel = "Websocket connection established."

	pingInterval   = 50 * time.Second
	readTimeout    = 60 * time.Second
	writeTimeout   = 5 * time.Second
	maxBackoff     = 30 * time.Second
	initialBackoff = time.Second
)

// Feed keeps the registry's mark prices current from the gateway's
// mid-price stream, reconnecting with backoff when the connection drops.
type Feed struct {
	baseURL  string
	registry *registry.Registry
	log      *zap.Logger

	mu   sync.RWMutex
	conn *websocket.Conn
}

// New creates a mark price feed. baseURL is the HTTP gateway URL; the
// websocket endpoint is derived from it.
func New(baseURL string, reg *registry.Registry, log *zap.Logger) *Feed {
	if log == nil {
		log = zap.NewNop()
	}
	return &Feed{
		baseURL:  baseURL,
		registry: reg,
		log:      log,
	}
}

// Run streams until ctx is cancelled. Connection drops are logged and
// retried with exponential backoff; the registry keeps serving the last
// observed prices in the meantime.
func (f *Feed) Run(ctx context.Context) error {
	backoff := initialBackoff

	for {
		err := f.stream(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.log.Warn("mark price feed dropped, reconnecting",
			zap.Error(err),
			zap.Duration("backoff", backoff),
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// stream runs one connection to completion.
func (f *Feed) stream(ctx context.Context) error {
	wsURL, err := websocketURL(f.baseURL)
	if err != nil {
		return err
	}

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to websocket: %w", err)
	}

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	defer func() {
		conn.Close(websocket.StatusNormalClosure, "closing")
		f.mu.Lock()
		f.conn = nil
		f.mu.Unlock()
	}()

	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go f.pingLoop(pingCtx, conn)

	f.log.Info("mark price feed connected")

	for {
		readCtx, cancel := context.WithTimeout(ctx, readTimeout)
		_, data, err := conn.Read(readCtx)
		cancel()
		if err != nil {
			return err
		}

		if string(data) == readySentinel {
			if err := f.subscribeAllMids(ctx, conn); err != nil {
				return err
			}
			continue
		}

		f.handleMessage(data)
	}
}

func (f *Feed) subscribeAllMids(ctx context.Context, conn *websocket.Conn) error {
	msg := map[string]any{
		"method":       "subscribe",
		"subscription": map[string]string{"type": "allMids"},
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

// pingLoop keeps the connection alive; the gateway drops idle clients.
func (f *Feed) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			data, _ := json.Marshal(map[string]string{"method": "ping"})

			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				f.log.Warn("websocket ping failed", zap.Error(err))
				return
			}
		}
	}
}

type envelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type allMidsData struct {
	Mids map[string]types.FloatString `json:"mids"`
}

// handleMessage routes one frame. Unknown channels are ignored: the feed
// subscribes to a single stream and anything else is gateway chatter.
func (f *Feed) handleMessage(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		f.log.Warn("unparseable websocket frame", zap.Error(err))
		return
	}

	switch env.Channel {
	case "allMids":
		var mids allMidsData
		if err := json.Unmarshal(env.Data, &mids); err != nil {
			f.log.Warn("unparseable allMids payload", zap.Error(err))
			return
		}
		f.registry.UpdateMids(mids.Mids)
	case "pong", "subscriptionResponse":
	default:
		f.log.Debug("ignoring websocket channel", zap.String("channel", env.Channel))
	}
}

// websocketURL derives the ws endpoint from the HTTP gateway base URL.
func websocketURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL %q: %w", baseURL, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https", "":
		u.Scheme = "wss"
	}

	u.Path = path.Join(u.Path, "ws")
	return u.String(), nil
}
