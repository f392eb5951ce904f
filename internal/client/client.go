package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bagcat/portal/internal/domain/negotiator"
	"github.com/bagcat/portal/internal/domain/route"
	"github.com/bagcat/portal/internal/infrastructure/resilience"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const userAgent = "portal-client/1.0"

// ErrExpired is returned for unknown and expired launch tokens.
var ErrExpired = errors.New("launch session expired")

// APIError is an error answer from the portal.
type APIError struct {
	Status int
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("portal: %s (status %d)", e.Code, e.Status)
}

// CodeOf returns the wire code of an *APIError in err's chain, or "".
func CodeOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// Options configure a Client.
type Options struct {
	// BaseURL is the portal root, e.g. "https://portal.example".
	BaseURL  string
	Timeout  time.Duration
	RetryMax int
	// Brand is matched when detecting the portal shell inside a frame.
	Brand string
	// Prefixes are the portal's transport mount points.
	Prefixes     route.Prefixes
	ProbeTimeout time.Duration
	Logger       *zap.Logger
}

// Client talks to one portal.
type Client struct {
	api        *resty.Client
	frames     *resty.Client
	breaker    *resilience.Breaker
	negotiator *negotiator.Negotiator
	base       *url.URL
	brand      string
	logger     *zap.Logger
}

// New creates a client for opts.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	// Create underlying retryable client
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil // Disable logging
	transport := retryClient.HTTPClient.Transport

	// Play URLs answer with redirects the caller wants to see.
	api := resty.New().
		SetBaseURL(base.String()).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryMax).
		SetRetryWaitTime(retryClient.RetryWaitMin).
		SetRetryMaxWaitTime(retryClient.RetryWaitMax).
		SetHeader("User-Agent", userAgent).
		SetError(&errorBody{}).
		SetTransport(transport).
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}))

	frames := resty.New().
		SetHeader("User-Agent", userAgent).
		SetTransport(transport).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	breaker := resilience.New("portal-api", resilience.Settings{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Answers the portal gave on purpose are not outages.
		IsFailure: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status >= http.StatusInternalServerError
			}
			return err != nil && !errors.Is(err, ErrExpired) && !errors.Is(err, context.Canceled)
		},
	})

	assets := negotiator.NewHTTPAssets(frames, base.String())
	neg := negotiator.New(negotiator.Options{
		Runtime:  assets,
		Workers:  assets,
		Prober:   negotiator.NewWebSocketProber(opts.ProbeTimeout),
		Prefixes: opts.Prefixes,
		Logger:   opts.Logger.Named("negotiator"),
	})

	return &Client{
		api:        api,
		frames:     frames,
		breaker:    breaker,
		negotiator: neg,
		base:       base,
		brand:      opts.Brand,
		logger:     opts.Logger,
	}, nil
}

// BaseURL returns the portal root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Host is the portal host, which the codec keys on.
func (c *Client) Host() string {
	return c.base.Host
}

// Secure reports whether the portal is served over https.
func (c *Client) Secure() bool {
	return c.base.Scheme == "https"
}

// BreakerState reports the API breaker's state.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

type errorBody struct {
	Error string `json:"error"`
}

// call runs fn through the breaker and turns error answers into *APIError.
func (c *Client) call(fn func() (*resty.Response, error)) (*resty.Response, error) {
	return resilience.Do(c.breaker, func() (*resty.Response, error) {
		resp, err := fn()
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return resp, apiError(resp)
		}
		return resp, nil
	})
}

func apiError(resp *resty.Response) error {
	code := http.StatusText(resp.StatusCode())
	if body, ok := resp.Error().(*errorBody); ok && body.Error != "" {
		code = body.Error
	}
	return &APIError{Status: resp.StatusCode(), Code: code}
}
