package route

import (
	"fmt"
	"net/url"
	"strings"
)

// Mode identifies a rewriting transport.
type Mode string

const (
	ModePrimary     Mode = "primary"
	ModeAlternative Mode = "alternative"
	ModeDirect      Mode = "direct"
)

// ParseMode accepts wire names and the legacy short names used by catalog
// files ("uv", "scr").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary", "uv":
		return ModePrimary, nil
	case "alternative", "scr", "scramjet":
		return ModeAlternative, nil
	case "direct":
		return ModeDirect, nil
	default:
		return "", fmt.Errorf("unknown proxy mode %q", s)
	}
}

// IsRewriting reports whether m routes through a rewriting proxy.
func (m Mode) IsRewriting() bool {
	return m == ModePrimary || m == ModeAlternative
}

// Whitelist is a normalized set of domains served by the alternative engine.
type Whitelist map[string]struct{}

// NewWhitelist normalizes domains: lowercased, leading "www." removed,
// blanks dropped.
func NewWhitelist(domains []string) Whitelist {
	wl := make(Whitelist, len(domains))
	for _, d := range domains {
		if clean := normalizeHost(d); clean != "" {
			wl[clean] = struct{}{}
		}
	}
	return wl
}

// Matches reports whether host equals, or is a subdomain of, a whitelisted
// domain. host must already be normalized.
func (wl Whitelist) Matches(host string) bool {
	if len(wl) == 0 || host == "" {
		return false
	}
	for candidate := host; ; {
		if _, ok := wl[candidate]; ok {
			return true
		}
		dot := strings.IndexByte(candidate, '.')
		if dot < 0 {
			return false
		}
		candidate = candidate[dot+1:]
	}
}

// Domains returns the whitelist entries.
func (wl Whitelist) Domains() []string {
	out := make([]string, 0, len(wl))
	for d := range wl {
		out = append(out, d)
	}
	return out
}

// ResolveInput holds everything ResolveMode looks at.
type ResolveInput struct {
	// Override is the entry's explicit proxy mode, empty when unset.
	Override           string
	TargetURL          string
	Whitelist          Whitelist
	AlternativeEnabled bool
}

// ResolveMode picks the transport for a catalog launch.
func ResolveMode(in ResolveInput) Mode {
	if !in.AlternativeEnabled {
		return ModePrimary
	}
	if in.Override != "" {
		if m, err := ParseMode(in.Override); err == nil && m.IsRewriting() {
			return m
		}
	}
	if UseAlternative(in.TargetURL, in.Whitelist) {
		return ModeAlternative
	}
	return ModePrimary
}

// UseAlternative applies the host rules: ".io" hosts and whitelisted
// domains go to the alternative engine. Unparseable URLs never match.
func UseAlternative(targetURL string, wl Whitelist) bool {
	host, ok := TargetHost(targetURL)
	if !ok {
		return false
	}
	if strings.HasSuffix(host, ".io") {
		return true
	}
	return wl.Matches(host)
}

// TargetHost extracts the normalized host of an absolute URL.
func TargetHost(targetURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(targetURL))
	if err != nil || !u.IsAbs() {
		return "", false
	}
	host := normalizeHost(u.Hostname())
	return host, host != ""
}

func normalizeHost(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.TrimPrefix(h, "www.")
}
