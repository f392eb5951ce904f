package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

// maxSourceSize caps how much of a remote source is read.
const maxSourceSize = 8 << 20

// Source yields the raw bytes of a catalog or whitelist document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	Format() Format
	// Remote sources keep the last good snapshot when a fetch fails.
	Remote() bool
	String() string
}

// NewSource returns an HTTPSource for http(s) locations and a FileSource
// otherwise. client may be nil.
func NewSource(location string, client *retryablehttp.Client) Source {
	lower := strings.ToLower(location)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return NewHTTPSource(location, client)
	}
	return FileSource{Path: location}
}

// FileSource reads a local file.
type FileSource struct {
	Path string
}

func (f FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}
	return data, nil
}

func (f FileSource) Format() Format { return FormatOf(f.Path) }
func (f FileSource) Remote() bool   { return false }
func (f FileSource) String() string { return f.Path }

// HTTPSource fetches a document over HTTP with retries.
type HTTPSource struct {
	URL    string
	client *retryablehttp.Client
}

// NewHTTPSource creates a remote source.
func NewHTTPSource(rawURL string, client *retryablehttp.Client) *HTTPSource {
	if client == nil {
		client = retryablehttp.NewClient()
		client.RetryMax = 2
		client.Logger = nil
	}
	return &HTTPSource{URL: rawURL, client: client}
}

func (h *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml, application/toml;q=0.9, */*;q=0.5")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", h.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", h.URL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", h.URL, err)
	}
	return data, nil
}

func (h *HTTPSource) Format() Format { return FormatOf(h.URL) }
func (h *HTTPSource) Remote() bool   { return true }
func (h *HTTPSource) String() string { return h.URL }
