package negotiator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// race probes every candidate concurrently and returns the first that
// answers. The remaining probes are cancelled.
func (n *Negotiator) race(ctx context.Context, candidates []string) (string, error) {
	if n.prober == nil || len(candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates to probe", ErrNoEndpoint)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		endpoint string
		err      error
	}
	results := make(chan result, len(candidates))

	for _, candidate := range candidates {
		go func() {
			err := n.probes.Get(candidate).Run(func() error {
				return n.prober.Probe(ctx, candidate)
			})
			if n.metrics != nil && !errors.Is(err, context.Canceled) {
				n.metrics.RecordProbe(err == nil)
			}
			results <- result{endpoint: candidate, err: err}
		}()
	}

	var errs []error
	for range candidates {
		select {
		case res := <-results:
			if res.err == nil {
				return res.endpoint, nil
			}
			n.logger.Debug("Endpoint probe failed", zap.String("endpoint", res.endpoint), zap.Error(res.err))
			errs = append(errs, fmt.Errorf("%s: %w", res.endpoint, res.err))
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", ErrNoEndpoint, ctx.Err())
		}
	}
	return "", fmt.Errorf("%w: %w", ErrNoEndpoint, errors.Join(errs...))
}

// ProbeStates reports the breaker state of every probed candidate.
func (n *Negotiator) ProbeStates() map[string]string {
	states := n.probes.States()
	out := make(map[string]string, len(states))
	for ep, s := range states {
		out[ep] = s.String()
	}
	return out
}

// WebSocketProber completes a WebSocket handshake with the endpoint and
// hangs up.
type WebSocketProber struct {
	Dialer *websocket.Dialer
	Header http.Header
}

// NewWebSocketProber creates a prober with a handshake timeout.
func NewWebSocketProber(handshakeTimeout time.Duration) *WebSocketProber {
	return &WebSocketProber{
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

func (p *WebSocketProber) Probe(ctx context.Context, endpoint string) error {
	if !strings.HasPrefix(endpoint, "ws://") && !strings.HasPrefix(endpoint, "wss://") {
		return fmt.Errorf("not a websocket endpoint: %q", endpoint)
	}
	dialer := p.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, p.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}

	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return conn.Close()
}

// SameOriginEndpoint derives the tunnel endpoint served by the portal
// itself: ws(s)://host/wisp/.
func SameOriginEndpoint(secure bool, host string) string {
	if host == "" {
		return ""
	}
	scheme := "ws"
	if secure {
		scheme = "wss"
	}
	return scheme + "://" + host + "/wisp/"
}
