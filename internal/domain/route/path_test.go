package route

import (
	"testing"
	"time"

	"github.com/bagcat/portal/internal/domain/codec"
	"github.com/stretchr/testify/assert"
)

func newTestBuilder() *Builder {
	now := time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)
	return NewBuilder(codec.New(func() time.Time { return now }), DefaultPrefixes())
}

func TestPlayPath(t *testing.T) {
	b := newTestBuilder()

	assert.Equal(t, "/uv/service/5a1607453058477d571a1258330e0d7c510d1e1a",
		b.PlayPath("https://example.com/", ModePrimary, "portal.local"))
	assert.Equal(t, "/scramjet/https%3A%2F%2Fexample.com%2F%3Fa%3D1",
		b.PlayPath("https://example.com/?a=1", ModeAlternative, "portal.local"))
	assert.Equal(t, "https://example.com/", b.PlayPath("https://example.com/", ModeDirect, "portal.local"))
}

func TestPlayPathCustomPrefixes(t *testing.T) {
	b := NewBuilder(nil, Prefixes{Primary: "/p/", Alternative: "alt"})

	assert.Regexp(t, `^/p/service/[0-9a-f]+$`, b.PlayPath("https://a.com", ModePrimary, "h"))
	assert.Equal(t, "/alt/https%3A%2F%2Fa.com", b.PlayPath("https://a.com", ModeAlternative, "h"))
}

func TestDecodePath(t *testing.T) {
	b := newTestBuilder()

	tests := []struct {
		name     string
		path     string
		wantURL  string
		wantMode Mode
	}{
		{
			name:     "primary",
			path:     b.PlayPath("https://example.com/game", ModePrimary, "portal.local"),
			wantURL:  "https://example.com/game",
			wantMode: ModePrimary,
		},
		{
			name:     "primary absolute with trailing slash",
			path:     "https://portal.local" + b.PlayPath("https://example.com/", ModePrimary, "portal.local"),
			wantURL:  "https://example.com",
			wantMode: ModePrimary,
		},
		{
			name:     "alternative",
			path:     "/scramjet/https%3A%2F%2Ffoo.io%2Fplay",
			wantURL:  "https://foo.io/play",
			wantMode: ModeAlternative,
		},
		{
			name:     "alternative malformed escape",
			path:     "/scramjet/%zz",
			wantURL:  "%zz",
			wantMode: ModeAlternative,
		},
		{
			name:     "alternative repeated prefix",
			path:     "/scramjet/https%3A%2F%2Ffoo.io/scramjet/bar",
			wantURL:  "https://foo.io",
			wantMode: ModeAlternative,
		},
		{
			name:     "empty primary segment",
			path:     "/uv/service//uv/service/",
			wantURL:  "/uv/service//uv/service",
			wantMode: ModeDirect,
		},
		{
			name:     "unrelated",
			path:     "https://example.com/",
			wantURL:  "https://example.com",
			wantMode: ModeDirect,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotURL, gotMode := b.DecodePath(tt.path, "portal.local")
			assert.Equal(t, tt.wantURL, gotURL)
			assert.Equal(t, tt.wantMode, gotMode)
		})
	}
}

func TestEncodeURIComponent(t *testing.T) {
	tests := map[string]string{
		"abcXYZ019":           "abcXYZ019",
		"-_.!~*'()":           "-_.!~*'()",
		"a b":                 "a%20b",
		"a+b/c?d=e&f#g":       "a%2Bb%2Fc%3Fd%3De%26f%23g",
		"é":                   "%C3%A9",
		"https://x.io/?q=1 2": "https%3A%2F%2Fx.io%2F%3Fq%3D1%202",
	}
	for in, want := range tests {
		assert.Equal(t, want, EncodeURIComponent(in), in)
		decoded, err := DecodeURIComponent(want)
		assert.NoError(t, err)
		assert.Equal(t, in, decoded)
	}
}
