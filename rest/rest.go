// Package rest provides the HTTPS transport to the exchange gateway. It is
// the only place network I/O happens for signed submissions; everything above
// it deals in typed payloads and typed failures.
package rest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/perpdesk/go-perpdesk/constants"
)

// DefaultTimeout bounds every gateway call. A request that produces no
// response within this window resolves to a transport error; it never hangs.
const DefaultTimeout = 10 * time.Second

// ClientInterface defines the contract for gateway calls.
type ClientInterface interface {
	Post(ctx context.Context, path string, body any, result any) error
}

type Client struct {
	baseURL string
	timeout time.Duration
	http    *resty.Client
}

type Config struct {
	// BaseURL is the gateway base URL. Defaults to mainnet.
	BaseURL string
	// Timeout bounds each network call. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// New creates a gateway client.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = constants.MAINNET_API_URL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: baseURL,
		timeout: timeout,
		http: resty.New().
			SetJSONMarshaler(json.Marshal).
			SetJSONUnmarshaler(json.Unmarshal),
	}
}

// Post sends a POST request to the given path and decodes the JSON response
// into result. Any error returned here means the exchange's decision was not
// observed: the caller must treat server-side state as unknown.
func (c *Client) Post(
	ctx context.Context,
	path string,
	body any,
	result any,
) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&result).
		Post(c.baseURL + path)

	if err != nil {
		return err
	}

	return handleException(resp)
}
