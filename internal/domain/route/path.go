package route

import (
	"strings"

	"github.com/bagcat/portal/internal/domain/codec"
)

// Prefixes are the mount points of the rewriting transports, without slashes.
type Prefixes struct {
	Primary     string
	Alternative string
}

// DefaultPrefixes matches the stock service-worker scopes.
func DefaultPrefixes() Prefixes {
	return Prefixes{Primary: "uv", Alternative: "scramjet"}
}

func (p Prefixes) primaryService() string {
	return "/" + strings.Trim(p.Primary, "/") + "/service/"
}

func (p Prefixes) alternativeRoot() string {
	return "/" + strings.Trim(p.Alternative, "/") + "/"
}

// Builder constructs play paths.
type Builder struct {
	codec    *codec.Codec
	prefixes Prefixes
}

// NewBuilder creates a path builder.
func NewBuilder(c *codec.Codec, prefixes Prefixes) *Builder {
	if c == nil {
		c = codec.New(nil)
	}
	if prefixes.Primary == "" {
		prefixes.Primary = DefaultPrefixes().Primary
	}
	if prefixes.Alternative == "" {
		prefixes.Alternative = DefaultPrefixes().Alternative
	}
	return &Builder{codec: c, prefixes: prefixes}
}

// Prefixes returns the configured mount points.
func (b *Builder) Prefixes() Prefixes {
	return b.prefixes
}

// PlayPath returns the relative path that loads targetURL through mode.
// Direct mode returns targetURL unchanged.
func (b *Builder) PlayPath(targetURL string, mode Mode, requestHost string) string {
	switch mode {
	case ModeAlternative:
		return b.prefixes.alternativeRoot() + EncodeURIComponent(targetURL)
	case ModeDirect:
		return targetURL
	default:
		return b.prefixes.primaryService() + b.codec.Encode(targetURL, requestHost)
	}
}

// DecodePath reverses PlayPath. Paths that belong to neither transport are
// returned as-is. A single trailing slash is trimmed from the result.
// Only the text between the first and second occurrence of a transport
// prefix is decoded.
func (b *Builder) DecodePath(path, requestHost string) (string, Mode) {
	decoded, mode := path, ModeDirect
	if rest := between(path, b.prefixes.primaryService()); rest != "" {
		decoded, mode = b.codec.Decode(rest, requestHost), ModePrimary
	} else if rest := between(path, b.prefixes.alternativeRoot()); rest != "" {
		mode = ModeAlternative
		if d, err := DecodeURIComponent(rest); err == nil {
			decoded = d
		} else {
			decoded = rest
		}
	}
	return strings.TrimSuffix(decoded, "/"), mode
}

// between returns the text after the first sep up to the next sep.
func between(s, sep string) string {
	_, rest, ok := strings.Cut(s, sep)
	if !ok {
		return ""
	}
	rest, _, _ = strings.Cut(rest, sep)
	return rest
}
