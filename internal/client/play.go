package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bagcat/portal/internal/domain/negotiator"
	"github.com/bagcat/portal/internal/domain/route"
	"go.uber.org/zap"
)

// PlayOptions describe the browser environment Play stands in for.
type PlayOptions struct {
	// Alternative enables the alternative engine, subject to its runtime
	// bundle being served.
	Alternative bool
	// DirectFallback permits loading the target unproxied as a last resort.
	DirectFallback    bool
	UserEndpoint      string
	DefaultEndpoint   string
	Static            bool
	Candidates        []string
	ActivationTimeout time.Duration
	ProbeTimeout      time.Duration
	// FrameTimeout replaces the per-mode frame timeouts when set.
	FrameTimeout time.Duration
}

// PlayResult is the outcome of Play.
type PlayResult struct {
	GameID    string               `json:"gameId"`
	Mode      route.Mode           `json:"mode,omitempty"`
	Target    string               `json:"target,omitempty"`
	Path      string               `json:"path,omitempty"`
	Status    int                  `json:"status,omitempty"`
	Attempts  []route.Mode         `json:"attempts,omitempty"`
	Failures  []negotiator.Failure `json:"failures,omitempty"`
	Transport *negotiator.Status   `json:"transport,omitempty"`
}

// Play launches id and loads it the way the portal's frame does. It
// returns negotiator.ErrNoEndpoint when no tunnel is reachable and
// negotiator.ErrNoWorkingRoute when every mode failed; the result is
// filled in as far as the flow got in both cases.
func (c *Client) Play(ctx context.Context, id string, opts PlayOptions) (*PlayResult, error) {
	res := &PlayResult{GameID: id}

	st, err := c.negotiator.Ensure(ctx, negotiator.Config{
		AlternativeEnabled: opts.Alternative,
		UserEndpoint:       opts.UserEndpoint,
		DefaultEndpoint:    opts.DefaultEndpoint,
		Static:             opts.Static,
		Candidates:         opts.Candidates,
		DirectFallback:     opts.DirectFallback,
		SameOrigin:         negotiator.SameOriginEndpoint(c.Secure(), c.Host()),
		ActivationTimeout:  opts.ActivationTimeout,
		ProbeTimeout:       opts.ProbeTimeout,
	})
	res.Transport = st
	if err != nil {
		return res, fmt.Errorf("negotiate: %w", err)
	}

	launched, err := c.Launch(ctx, id)
	if err != nil {
		return res, err
	}
	res.GameID = launched.GameID

	path, err := c.Resolve(ctx, launched.PlayURL)
	if err != nil {
		return res, err
	}
	decoded, err := c.Decode(ctx, path)
	if err != nil {
		return res, err
	}
	res.Target = decoded.URL

	session := negotiator.NewSession(launched.Mode, st.AlternativeAvailable, st.DirectFallback)
	res.Attempts = session.Attempts()

	for {
		mode, ok := session.Current()
		if !ok {
			res.Failures = session.Failures()
			return res, negotiator.ErrNoWorkingRoute
		}

		framePath := path
		if mode != launched.Mode {
			framePath, err = c.pathFor(ctx, decoded.URL, mode)
			if errors.Is(err, errModeUnavailable) {
				c.logger.Info("Mode not served by the portal", zap.String("mode", string(mode)))
				if _, err := session.Fail(negotiator.IssueUnavailable, err.Error()); err != nil {
					res.Failures = session.Failures()
					return res, err
				}
				continue
			}
			if err != nil {
				return res, err
			}
		}

		status, issue, detail := c.loadFrame(ctx, mode, framePath, opts.FrameTimeout)
		if err := ctx.Err(); err != nil {
			res.Failures = session.Failures()
			return res, err
		}
		if issue == "" {
			res.Mode, res.Path, res.Status = mode, framePath, status
			res.Failures = session.Failures()
			return res, nil
		}

		c.logger.Info("Frame failed",
			zap.String("mode", string(mode)),
			zap.String("issue", string(issue)),
			zap.String("detail", detail))
		if _, err := session.Fail(issue, detail); err != nil {
			res.Failures = session.Failures()
			return res, err
		}
	}
}

var errModeUnavailable = errors.New("mode unavailable")

// pathFor builds the frame location of target in mode. The server builds
// rewritten paths because only it holds the codec key for its host. A
// server that answers in another mode does not serve mode.
func (c *Client) pathFor(ctx context.Context, target string, mode route.Mode) (string, error) {
	if mode == route.ModeDirect {
		return target, nil
	}
	rw, err := c.Rewrite(ctx, RewriteRequest{Input: target, Mode: string(mode)})
	if err != nil {
		return "", err
	}
	if rw.Mode != mode {
		return "", fmt.Errorf("%w: portal rewrote to %s", errModeUnavailable, rw.Mode)
	}
	return rw.Path, nil
}

// loadFrame fetches one frame. An empty Issue means the target loaded.
func (c *Client) loadFrame(ctx context.Context, mode route.Mode, framePath string, timeout time.Duration) (int, negotiator.Issue, string) {
	if timeout <= 0 {
		timeout = negotiator.FrameTimeout(mode)
	}
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := framePath
	if strings.HasPrefix(framePath, "/") {
		target = c.base.String() + framePath
	}

	resp, err := c.frames.R().SetContext(fctx).Get(target)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(fctx.Err(), context.DeadlineExceeded) {
			return 0, negotiator.IssueTimeout, fmt.Sprintf("no response within %s", timeout)
		}
		return 0, negotiator.IssueError, err.Error()
	}
	if resp.IsError() {
		return resp.StatusCode(), negotiator.IssueError, fmt.Sprintf("status %d", resp.StatusCode())
	}

	// Direct frames show the target itself, whatever its path.
	if !mode.IsRewriting() {
		return resp.StatusCode(), "", ""
	}

	finalPath := framePath
	if raw := resp.RawResponse; raw != nil && raw.Request != nil {
		finalPath = raw.Request.URL.Path
	}
	issue, err := negotiator.InspectFrame(bytes.NewReader(resp.Body()), finalPath, c.brand)
	if err != nil {
		return resp.StatusCode(), negotiator.IssueError, err.Error()
	}
	if issue != "" {
		return resp.StatusCode(), issue, "frame shows the portal or a proxy error"
	}
	return resp.StatusCode(), "", ""
}
