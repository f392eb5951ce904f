package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bagcat/portal/internal/domain/launch"
	"github.com/bagcat/portal/internal/domain/negotiator"
	"github.com/bagcat/portal/internal/domain/route"
	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
)

// Entry is a catalog entry as served by the API.
type Entry struct {
	ID        string `json:"id"`
	AppName   string `json:"appName"`
	URL       any    `json:"url,omitempty"`
	Icon      string `json:"icon,omitempty"`
	Desc      string `json:"desc,omitempty"`
	Disabled  bool   `json:"disabled,omitempty"`
	Local     bool   `json:"local,omitempty"`
	ProxyMode string `json:"proxyMode,omitempty"`
	Category  string `json:"category,omitempty"`
}

// URLs returns the entry's url field as a list.
func (e Entry) URLs() []string {
	switch v := e.URL.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, u := range v {
			if s, ok := u.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Catalog is the /api/catalog answer.
type Catalog struct {
	Apps  []Entry            `json:"apps"`
	Games map[string][]Entry `json:"games"`
	// Categories lists the keys of Games in catalog file order.
	Categories []string `json:"categories"`
}

// Catalog fetches the catalog.
func (c *Client) Catalog(ctx context.Context) (*Catalog, error) {
	var out Catalog
	_, err := c.call(func() (*resty.Response, error) {
		return c.api.R().SetContext(ctx).SetResult(&out).Get("/api/catalog")
	})
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	return &out, nil
}

// Launch issues a launch token for a catalog entry.
func (c *Client) Launch(ctx context.Context, id string) (launch.Result, error) {
	var out launch.Result
	_, err := c.call(func() (*resty.Response, error) {
		return c.api.R().
			SetContext(ctx).
			SetBody(map[string]string{"id": id}).
			SetResult(&out).
			Post("/api/launch")
	})
	if err != nil {
		return launch.Result{}, fmt.Errorf("launch %q: %w", id, err)
	}
	return out, nil
}

// Resolve follows a play URL (or a bare token) one hop and returns the
// play path it redirects to.
func (c *Client) Resolve(ctx context.Context, playURL string) (string, error) {
	if !strings.HasPrefix(playURL, "/") {
		playURL = "/play/" + playURL + "/"
	}

	resp, err := c.call(func() (*resty.Response, error) {
		return c.api.R().SetContext(ctx).Get(playURL)
	})
	if err != nil {
		if resp != nil && resp.StatusCode() == http.StatusNotFound {
			return "", ErrExpired
		}
		return "", fmt.Errorf("resolve %s: %w", playURL, err)
	}

	location := resp.Header().Get("Location")
	if resp.StatusCode() != http.StatusFound || location == "" {
		return "", fmt.Errorf("resolve %s: unexpected status %d", playURL, resp.StatusCode())
	}
	return location, nil
}

// RewriteRequest is the omnibox input.
type RewriteRequest struct {
	Input string `json:"input"`
	// Mode is auto, primary or alternative.
	Mode   string `json:"mode,omitempty"`
	Engine string `json:"engine,omitempty"`
}

// Rewrite is the /api/rewrite answer.
type Rewrite struct {
	URL  string     `json:"url"`
	Mode route.Mode `json:"mode"`
	Path string     `json:"path"`
}

// Rewrite turns omnibox input into a play path.
func (c *Client) Rewrite(ctx context.Context, req RewriteRequest) (Rewrite, error) {
	var out Rewrite
	_, err := c.call(func() (*resty.Response, error) {
		return c.api.R().SetContext(ctx).SetBody(req).SetResult(&out).Post("/api/rewrite")
	})
	if err != nil {
		return Rewrite{}, fmt.Errorf("rewrite: %w", err)
	}
	return out, nil
}

// Decoded is the /api/decode answer.
type Decoded struct {
	URL  string     `json:"url"`
	Mode route.Mode `json:"mode"`
}

// Decode reverses a play path on the server, which holds the codec key.
func (c *Client) Decode(ctx context.Context, path string) (Decoded, error) {
	var out Decoded
	_, err := c.call(func() (*resty.Response, error) {
		return c.api.R().SetContext(ctx).SetQueryParam("path", path).SetResult(&out).Get("/api/decode")
	})
	if err != nil {
		return Decoded{}, fmt.Errorf("decode: %w", err)
	}
	return out, nil
}

// Transport returns the server's negotiation status. A failed negotiation
// is returned together with an error wrapping negotiator.ErrNoEndpoint.
func (c *Client) Transport(ctx context.Context) (*negotiator.Status, error) {
	var out negotiator.Status
	resp, err := c.call(func() (*resty.Response, error) {
		return c.api.R().SetContext(ctx).SetResult(&out).Get("/api/transport")
	})
	if err != nil {
		// A failed negotiation still carries its status.
		if resp != nil && resp.StatusCode() == http.StatusServiceUnavailable {
			var failed negotiator.Status
			if sonic.Unmarshal(resp.Body(), &failed) == nil && failed.State == negotiator.StateFailed {
				return &failed, fmt.Errorf("transport: %w", negotiator.ErrNoEndpoint)
			}
		}
		return nil, fmt.Errorf("transport: %w", err)
	}
	return &out, nil
}

// IsNoEndpoint reports whether err means no tunnel endpoint was found.
func IsNoEndpoint(err error) bool {
	return errors.Is(err, negotiator.ErrNoEndpoint) || CodeOf(err) == negotiator.ErrNoEndpoint.Error()
}
