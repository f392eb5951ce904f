package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePlayableURL(t *testing.T) {
	tests := map[string]string{
		"":                     "",
		"   ":                  "",
		"example.com":          "https://example.com",
		" HTTP://example.com ": "HTTP://example.com",
		"https://a.b/c":        "https://a.b/c",
		"//cdn.example.com/g":  "https://cdn.example.com/g",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePlayableURL(in), in)
	}
}

func TestNormalizeInput(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		engine string
		want   string
	}{
		{name: "empty", input: " ", want: ""},
		{name: "url", input: "https://example.com/a", want: "https://example.com/a"},
		{name: "protocol relative", input: "//example.com", want: "https://example.com"},
		{name: "host", input: "example.com/path", want: "https://example.com/path"},
		{name: "localhost with port", input: "localhost:8080", want: "https://localhost:8080"},
		{name: "idn host", input: "bücher.de", want: "https://bücher.de"},
		{name: "search", input: "free games", want: DefaultSearchEngine + "free%20games"},
		{name: "custom engine", input: "cats", engine: "https://duck.example/?q=", want: "https://duck.example/?q=cats"},
		{name: "bad engine", input: "cats", engine: "javascript:alert(1)", want: DefaultSearchEngine + "cats"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeInput(tt.input, tt.engine))
		})
	}
}

func TestResolveNavigationMode(t *testing.T) {
	wl := NewWhitelist([]string{"example.com"})

	assert.Equal(t, ModePrimary, ResolveNavigationMode("https://foo.io", PreferAuto, wl, false))
	assert.Equal(t, ModeAlternative, ResolveNavigationMode("https://foo.io", PreferAuto, wl, true))
	assert.Equal(t, ModePrimary, ResolveNavigationMode("https://foo.io", PreferPrimary, wl, true))
	assert.Equal(t, ModeAlternative, ResolveNavigationMode("https://plain.com", PreferAlternative, wl, true))
	assert.Equal(t, ModePrimary, ResolveNavigationMode("http://game.localhost:3000", PreferAuto, wl, true))
	assert.Equal(t, ModePrimary, ResolveNavigationMode("http://localhost", PreferAuto, wl, true))
	assert.Equal(t, ModeAlternative, ResolveNavigationMode("https://a.example.com", PreferAuto, wl, true))
}

func TestParsePreference(t *testing.T) {
	assert.Equal(t, PreferAuto, ParsePreference(""))
	assert.Equal(t, PreferAuto, ParsePreference("auto"))
	assert.Equal(t, PreferAuto, ParsePreference("direct"))
	assert.Equal(t, PreferPrimary, ParsePreference("uv"))
	assert.Equal(t, PreferAlternative, ParsePreference("scr"))
}

func TestIsAbsoluteHTTPURL(t *testing.T) {
	assert.True(t, IsAbsoluteHTTPURL("https://example.com"))
	assert.True(t, IsAbsoluteHTTPURL("HTTP://example.com/x"))
	assert.False(t, IsAbsoluteHTTPURL("https://"))
	assert.False(t, IsAbsoluteHTTPURL("ftp://example.com"))
	assert.False(t, IsAbsoluteHTTPURL("example.com"))
}
