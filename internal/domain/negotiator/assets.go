package negotiator

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

// RuntimeBundle is the alternative engine's runtime script.
const RuntimeBundle = "scram/scramjet.all.js"

// HTTPAssets checks over HTTP that the runtime bundle and worker scripts
// are served. It is the headless stand-in for script injection and
// service-worker registration.
type HTTPAssets struct {
	client *resty.Client
	base   string
}

// NewHTTPAssets checks assets below base, e.g. "https://portal.example/".
func NewHTTPAssets(client *resty.Client, base string) *HTTPAssets {
	if client == nil {
		client = resty.New()
	}
	return &HTTPAssets{client: client, base: strings.TrimRight(base, "/") + "/"}
}

func (a *HTTPAssets) LoadRuntime(ctx context.Context) error {
	return a.head(ctx, RuntimeBundle)
}

func (a *HTTPAssets) Register(ctx context.Context, t Transport) error {
	return a.head(ctx, t.Script)
}

func (a *HTTPAssets) head(ctx context.Context, asset string) error {
	url := a.base + strings.TrimLeft(asset, "/")
	resp, err := a.client.R().SetContext(ctx).Head(url)
	if err != nil {
		return fmt.Errorf("head %s: %w", url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("head %s: status %d", url, resp.StatusCode())
	}
	return nil
}
