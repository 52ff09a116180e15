package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/maxatome/go-testdeep/td"

	"github.com/perpdesk/go-perpdesk/registry"
)

type fakeRest struct{}

func (fakeRest) Post(_ context.Context, _ string, _ any, result any) error {
	meta := `{"universe":[{"name":"BTC","szDecimals":5,"maxLeverage":50}]}`
	return json.Unmarshal([]byte(meta), result)
}

func seededRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	reg := registry.New(fakeRest{}, nil)
	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestHandleMessage_AllMidsUpdatesRegistry(t *testing.T) {
	reg := seededRegistry(t)
	feed := New("https://api.example.test", reg, nil)

	frame := `{"channel":"allMids","data":{"mids":{"BTC":"65123.5","UNKNOWN":"1"}}}`
	feed.handleMessage([]byte(frame))

	asset, ok := reg.Snapshot("BTC")
	td.Cmp(t, ok, true)
	td.Cmp(t, asset.MarkPrice, 65123.5)

	// symbols outside the universe stay out
	_, ok = reg.Snapshot("UNKNOWN")
	td.Cmp(t, ok, false)
}

func TestHandleMessage_IgnoresOtherChannels(t *testing.T) {
	reg := seededRegistry(t)
	feed := New("https://api.example.test", reg, nil)

	reg.SetMark("BTC", 65000)

	feed.handleMessage([]byte(`{"channel":"pong"}`))
	feed.handleMessage([]byte(`{"channel":"trades","data":[]}`))
	feed.handleMessage([]byte(`not json at all`))

	asset, _ := reg.Snapshot("BTC")
	td.Cmp(t, asset.MarkPrice, float64(65000), "noise must not disturb prices")
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		base     string
		expected string
	}{
		{base: "https://api.hyperliquid.xyz", expected: "wss://api.hyperliquid.xyz/ws"},
		{base: "http://localhost:3001", expected: "ws://localhost:3001/ws"},
	}

	for _, tt := range tests {
		got, err := websocketURL(tt.base)
		if err != nil {
			t.Fatal(err)
		}
		td.Cmp(t, got, tt.expected)
	}
}
