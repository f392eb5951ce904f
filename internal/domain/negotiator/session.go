package negotiator

import (
	"errors"
	"sync"
	"time"

	"github.com/bagcat/portal/internal/domain/route"
)

// Issue is why a frame attempt was abandoned.
type Issue string

const (
	IssueTimeout Issue = "timeout"
	IssueError   Issue = "error"
	// IssueProxy means the frame loaded, but showed a proxy error page or
	// the portal itself instead of the target.
	IssueProxy Issue = "proxy"
	// IssueUnavailable means the portal cannot route the mode at all, so the
	// frame was never loaded.
	IssueUnavailable Issue = "unavailable"
)

const (
	ProxiedFrameTimeout = 12 * time.Second
	DirectFrameTimeout  = 18 * time.Second
)

// ErrNoWorkingRoute is returned once every mode of a session has failed.
var ErrNoWorkingRoute = errors.New("no working route")

// FrameTimeout is how long a frame in mode may take to load.
func FrameTimeout(mode route.Mode) time.Duration {
	if mode.IsRewriting() {
		return ProxiedFrameTimeout
	}
	return DirectFrameTimeout
}

// Attempts returns the ordered modes to try after resolving to resolved:
// the resolved mode, the other rewriting mode, primary, then direct when
// permitted. The alternative mode is left out when its runtime is not
// available. No mode appears twice.
func Attempts(resolved route.Mode, alternativeAvailable, directPermitted bool) []route.Mode {
	other := route.ModeAlternative
	if resolved == route.ModeAlternative {
		other = route.ModePrimary
	}

	candidates := []route.Mode{resolved, other, route.ModePrimary}
	if directPermitted {
		candidates = append(candidates, route.ModeDirect)
	}

	seen := make(map[route.Mode]bool, len(candidates))
	out := make([]route.Mode, 0, len(candidates))
	for _, m := range candidates {
		if m == "" || seen[m] {
			continue
		}
		if m == route.ModeAlternative && !alternativeAvailable {
			continue
		}
		if m == route.ModeDirect && !directPermitted {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// Failure records one abandoned attempt.
type Failure struct {
	Mode   route.Mode `json:"mode"`
	Issue  Issue      `json:"issue"`
	Detail string     `json:"detail,omitempty"`
}

// Session walks the attempt list of one launch.
type Session struct {
	mu       sync.Mutex
	attempts []route.Mode
	next     int
	failures []Failure
}

// NewSession starts at the first mode of Attempts.
func NewSession(resolved route.Mode, alternativeAvailable, directPermitted bool) *Session {
	return &Session{attempts: Attempts(resolved, alternativeAvailable, directPermitted)}
}

// Current returns the mode being tried. ok is false once the session is
// exhausted.
func (s *Session) Current() (route.Mode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.attempts) {
		return "", false
	}
	return s.attempts[s.next], true
}

// Fail abandons the current mode and returns the next one, or
// ErrNoWorkingRoute when none is left.
func (s *Session) Fail(issue Issue, detail string) (route.Mode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next < len(s.attempts) {
		s.failures = append(s.failures, Failure{Mode: s.attempts[s.next], Issue: issue, Detail: detail})
		s.next++
	}
	if s.next >= len(s.attempts) {
		return "", ErrNoWorkingRoute
	}
	return s.attempts[s.next], nil
}

// Attempts returns the full plan.
func (s *Session) Attempts() []route.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]route.Mode(nil), s.attempts...)
}

// Failures returns the abandoned attempts in order.
func (s *Session) Failures() []Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Failure(nil), s.failures...)
}
