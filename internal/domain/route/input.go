package route

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

// DefaultSearchEngine receives free-text omnibox input.
const DefaultSearchEngine = "https://www.google.com/search?q="

var (
	schemeRe     = regexp.MustCompile(`(?i)^https?://`)
	likelyHostRe = regexp.MustCompile(`(?i)^(localhost(?::\d+)?|[\w-]+(?:\.[\w-]+)+(?::\d+)?)(?:/|$)`)
)

// NormalizePlayableURL turns a catalog url field into an absolute URL.
// Scheme-less values get https. Blank input yields "".
func NormalizePlayableURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	switch {
	case trimmed == "":
		return ""
	case schemeRe.MatchString(trimmed):
		return trimmed
	case strings.HasPrefix(trimmed, "//"):
		return "https:" + trimmed
	default:
		return "https://" + trimmed
	}
}

// NormalizeSearchEngine falls back to DefaultSearchEngine unless engine is
// an http(s) URL.
func NormalizeSearchEngine(engine string) string {
	trimmed := strings.TrimSpace(engine)
	if schemeRe.MatchString(trimmed) {
		return trimmed
	}
	return DefaultSearchEngine
}

// NormalizeInput converts omnibox text into a URL. URLs and host-like text
// are kept (with https added when missing); anything else becomes a search
// query on engine.
func NormalizeInput(input, engine string) string {
	trimmed := strings.TrimSpace(input)
	switch {
	case trimmed == "":
		return ""
	case schemeRe.MatchString(trimmed):
		return trimmed
	case strings.HasPrefix(trimmed, "//"):
		return "https:" + trimmed
	case isLikelyHost(trimmed):
		return "https://" + trimmed
	}
	return NormalizeSearchEngine(engine) + EncodeURIComponent(trimmed)
}

func isLikelyHost(s string) bool {
	if likelyHostRe.MatchString(s) {
		return true
	}
	// Internationalized names: test the ASCII form of the host part.
	host, rest, _ := strings.Cut(s, "/")
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil || ascii == host {
		return false
	}
	if rest != "" {
		ascii += "/" + rest
	}
	return likelyHostRe.MatchString(ascii)
}

// Preference is the user's transport choice for free navigation.
type Preference string

const (
	PreferAuto        Preference = "auto"
	PreferPrimary     Preference = "primary"
	PreferAlternative Preference = "alternative"
)

// ParsePreference maps unknown values to PreferAuto.
func ParsePreference(s string) Preference {
	if s == "" {
		return PreferAuto
	}
	if m, err := ParseMode(s); err == nil {
		switch m {
		case ModePrimary:
			return PreferPrimary
		case ModeAlternative:
			return PreferAlternative
		}
	}
	return PreferAuto
}

// ResolveNavigationMode picks the transport for omnibox navigation. An
// explicit preference wins. In auto mode the host rules of ResolveMode apply,
// except that localhost never goes to the alternative engine.
func ResolveNavigationMode(targetURL string, pref Preference, wl Whitelist, alternativeEnabled bool) Mode {
	if !alternativeEnabled {
		return ModePrimary
	}
	switch pref {
	case PreferPrimary:
		return ModePrimary
	case PreferAlternative:
		return ModeAlternative
	}
	if host, ok := TargetHost(targetURL); ok && (host == "localhost" || strings.HasSuffix(host, ".localhost")) {
		return ModePrimary
	}
	if UseAlternative(targetURL, wl) {
		return ModeAlternative
	}
	return ModePrimary
}

// IsAbsoluteHTTPURL reports whether s parses as an http(s) URL with a host.
func IsAbsoluteHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}
